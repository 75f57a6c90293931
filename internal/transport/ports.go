package transport

import (
	"fmt"

	"go.bug.st/serial"
)

// ListPorts enumerates the serial ports visible on this machine.
func ListPorts() ([]string, error) {
	ports, err := serial.GetPortsList()
	if err != nil {
		return nil, fmt.Errorf("list serial ports: %w", err)
	}

	return ports, nil
}
