// Package transport holds the concrete C6 collaborators spec.md leaves as
// an external concern: a serial adapter over github.com/tarm/serial, and a
// UDP adapter that staples a fixed remote address onto a connectionless
// socket so it satisfies the plain io.ReadWriter a Link expects.
package transport

import (
	"time"

	"github.com/tarm/serial"
)

// SerialAdapter wraps github.com/tarm/serial so a Link can treat a physical
// serial port exactly like any other io.ReadWriter transport — grounded on
// the teacher's internal/serial/port.go Open wrapper.
type SerialAdapter struct {
	port *serial.Port
}

// OpenSerial opens name at baud with readTimeout applied to each Read call.
func OpenSerial(name string, baud int, readTimeout time.Duration) (*SerialAdapter, error) {
	cfg := &serial.Config{Name: name, Baud: baud, ReadTimeout: readTimeout}
	port, err := serial.OpenPort(cfg)
	if err != nil {
		return nil, err
	}
	return &SerialAdapter{port: port}, nil
}

func (s *SerialAdapter) Read(p []byte) (int, error)  { return s.port.Read(p) }
func (s *SerialAdapter) Write(p []byte) (int, error) { return s.port.Write(p) }
func (s *SerialAdapter) Close() error                { return s.port.Close() }
