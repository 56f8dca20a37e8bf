package storage

import (
	"encoding/csv"
	"encoding/json"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"sort"
	"strconv"
	"time"

	"github.com/san-kum/focsim/internal/config"
	"github.com/san-kum/focsim/internal/rig"
)

const (
	metadataFile = "metadata.json"
	samplesFile  = "samples.csv"
)

// SampleHeader is the column order of samples.csv.
var SampleHeader = []string{"time", "setpoint", "angle", "velocity", "estimated", "filtered", "finite", "output"}

type Store struct {
	baseDir string
}

func New(baseDir string) *Store {
	return &Store{baseDir: baseDir}
}

func (s *Store) Init() error {
	return os.MkdirAll(s.baseDir, 0755)
}

type RunMetadata struct {
	ID        string             `json:"id"`
	Name      string             `json:"name"`
	Timestamp time.Time          `json:"timestamp"`
	Steps     int                `json:"steps"`
	Error     string             `json:"error,omitempty"`
	Config    *config.Config     `json:"config"`
	Metrics   map[string]float64 `json:"metrics"`
}

// Save writes a run below a fresh directory and returns its id. runErr is
// recorded in the metadata so partial runs stay inspectable.
func (s *Store) Save(cfg *config.Config, result *rig.Result, runErr error) (string, error) {
	name := cfg.Name
	if name == "" {
		name = "run"
	}

	now := time.Now()
	runID, runDir, err := s.makeRunDir(fmt.Sprintf("%s_%d", name, now.Unix()))
	if err != nil {
		return "", err
	}

	meta := RunMetadata{
		ID:        runID,
		Name:      name,
		Timestamp: now,
		Steps:     result.StepsTaken,
		Config:    cfg,
		Metrics:   result.Metrics,
	}
	if runErr != nil {
		meta.Error = runErr.Error()
	}

	if err := writeJSON(filepath.Join(runDir, metadataFile), meta); err != nil {
		_ = os.RemoveAll(runDir)
		return "", fmt.Errorf("write run %s: %w", runID, err)
	}
	if err := writeSamples(filepath.Join(runDir, samplesFile), result.Samples); err != nil {
		_ = os.RemoveAll(runDir)
		return "", fmt.Errorf("write run %s: %w", runID, err)
	}
	return runID, nil
}

// makeRunDir creates base, or base-1, base-2 ... if it is taken.
func (s *Store) makeRunDir(base string) (string, string, error) {
	id := base
	for i := 1; ; i++ {
		dir := filepath.Join(s.baseDir, id)
		err := os.Mkdir(dir, 0755)
		if err == nil {
			return id, dir, nil
		}
		if !errors.Is(err, os.ErrExist) {
			return "", "", err
		}
		id = fmt.Sprintf("%s-%d", base, i)
	}
}

func writeJSON(path string, v any) error {
	f, err := os.Create(path)
	if err != nil {
		return err
	}
	defer f.Close()

	enc := json.NewEncoder(f)
	enc.SetIndent("", "  ")
	if err := enc.Encode(v); err != nil {
		return err
	}
	return f.Close()
}

func writeSamples(path string, samples []rig.Sample) error {
	f, err := os.Create(path)
	if err != nil {
		return err
	}
	defer f.Close()

	w := csv.NewWriter(f)
	if err := w.Write(SampleHeader); err != nil {
		return err
	}
	for _, smp := range samples {
		if err := w.Write(FormatSample(smp)); err != nil {
			return err
		}
	}
	w.Flush()
	if err := w.Error(); err != nil {
		return err
	}
	return f.Close()
}

// FormatSample renders a sample in SampleHeader order.
func FormatSample(smp rig.Sample) []string {
	values := []float64{smp.Time, smp.Setpoint, smp.Angle, smp.Velocity, smp.Estimated, smp.Filtered, smp.Finite, smp.Output}
	row := make([]string, len(values))
	for i, v := range values {
		row[i] = strconv.FormatFloat(v, 'f', 6, 64)
	}
	return row
}

// List returns every readable run, oldest first.
func (s *Store) List() ([]RunMetadata, error) {
	entries, err := os.ReadDir(s.baseDir)
	if err != nil {
		if os.IsNotExist(err) {
			return []RunMetadata{}, nil
		}
		return nil, err
	}

	runs := make([]RunMetadata, 0)
	for _, entry := range entries {
		if !entry.IsDir() {
			continue
		}
		meta, err := s.Load(entry.Name())
		if err != nil {
			continue
		}
		runs = append(runs, *meta)
	}

	sort.SliceStable(runs, func(i, j int) bool {
		return runs[i].Timestamp.Before(runs[j].Timestamp)
	})
	return runs, nil
}

func (s *Store) Load(runID string) (*RunMetadata, error) {
	data, err := os.ReadFile(filepath.Join(s.baseDir, runID, metadataFile))
	if err != nil {
		return nil, err
	}

	var meta RunMetadata
	if err := json.Unmarshal(data, &meta); err != nil {
		return nil, fmt.Errorf("run %s: %w", runID, err)
	}
	return &meta, nil
}

func (s *Store) LoadSamples(runID string) ([]rig.Sample, error) {
	file, err := os.Open(filepath.Join(s.baseDir, runID, samplesFile))
	if err != nil {
		return nil, err
	}
	defer file.Close()

	r := csv.NewReader(file)
	r.FieldsPerRecord = len(SampleHeader)

	records, err := r.ReadAll()
	if err != nil {
		return nil, fmt.Errorf("run %s: %w", runID, err)
	}
	if len(records) < 2 {
		return []rig.Sample{}, nil
	}

	samples := make([]rig.Sample, 0, len(records)-1)
	for i, record := range records[1:] {
		var v [8]float64
		for j := range record {
			v[j], err = strconv.ParseFloat(record[j], 64)
			if err != nil {
				return nil, fmt.Errorf("run %s: row %d column %s: %w", runID, i+1, SampleHeader[j], err)
			}
		}
		samples = append(samples, rig.Sample{
			Time: v[0], Setpoint: v[1], Angle: v[2], Velocity: v[3],
			Estimated: v[4], Filtered: v[5], Finite: v[6], Output: v[7],
		})
	}
	return samples, nil
}
