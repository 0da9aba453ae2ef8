package serialport

import (
	"errors"
	"fmt"
	"go.bug.st/serial"
	"strings"
	"time"
)

// Port is the part of go.bug.st/serial.Port the lamp needs.
type Port interface {
	Read(p []byte) (int, error)
	Write(p []byte) (int, error)
	Close() error
	SetReadTimeout(d time.Duration) error
}

// Opener opens a candidate path.
type Opener func(path string) (Port, error)

// Lister returns candidate device paths in whatever order the OS reports them.
type Lister func() ([]string, error)

// OpenSerial returns an Opener for 8N1 ports at the given baud rate.
func OpenSerial(baud int) Opener {
	return func(path string) (Port, error) {
		port, err := serial.Open(path, &serial.Mode{
			BaudRate: baud,
			DataBits: 8,
			Parity:   serial.NoParity,
			StopBits: serial.OneStopBit,
		})
		if err != nil {
			return nil, fmt.Errorf("open %s: %w", path, err)
		}
		return port, nil
	}
}

// ListSerial lists system serial ports whose path starts with one of prefixes.
func ListSerial(prefixes []string) Lister {
	return func() ([]string, error) {
		ports, err := serial.GetPortsList()
		if err != nil {
			return nil, fmt.Errorf("list serial ports: %w", err)
		}
		return filterPrefixes(ports, prefixes), nil
	}
}

func filterPrefixes(ports, prefixes []string) []string {
	var out []string
	for _, p := range ports {
		for _, prefix := range prefixes {
			if strings.HasPrefix(p, prefix) {
				out = append(out, p)
				break
			}
		}
	}
	return out
}

func isPortClosed(err error) bool {
	if errors.Is(err, ErrClosed) {
		return true
	}

	var portErr *serial.PortError
	if errors.As(err, &portErr) {
		return portErr.Code() == serial.PortClosed
	}

	return false
}
