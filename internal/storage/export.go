package storage

import (
	"encoding/json"
	"io"

	"github.com/san-kum/focsim/internal/rig"
)

type ExportData struct {
	Run     *RunMetadata `json:"run"`
	Samples []rig.Sample `json:"samples"`
}

// ExportJSON writes a stored run, metadata and samples, as one document.
func (s *Store) ExportJSON(w io.Writer, runID string) error {
	meta, err := s.Load(runID)
	if err != nil {
		return err
	}
	samples, err := s.LoadSamples(runID)
	if err != nil {
		return err
	}

	enc := json.NewEncoder(w)
	enc.SetIndent("", "  ")
	return enc.Encode(ExportData{Run: meta, Samples: samples})
}
