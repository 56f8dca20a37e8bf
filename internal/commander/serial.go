package commander

import (
	"fmt"

	"go.bug.st/serial"
)

// OpenSerial opens a tty at baud, 8N1.
func OpenSerial(port string, baud int) (serial.Port, error) {
	if baud <= 0 {
		return nil, fmt.Errorf("commander: invalid baud rate %d", baud)
	}
	mode := &serial.Mode{
		BaudRate: baud,
		DataBits: 8,
		Parity:   serial.NoParity,
		StopBits: serial.OneStopBit,
	}
	p, err := serial.Open(port, mode)
	if err != nil {
		return nil, fmt.Errorf("commander: open %s: %w", port, err)
	}
	return p, nil
}

// SerialPorts lists the serial ports visible on this machine.
func SerialPorts() ([]string, error) {
	return serial.GetPortsList()
}
