package location

import (
	"bufio"
	"context"
	"errors"
	"fmt"
	"io"
	"log"
	"sync"
	"time"

	"go.bug.st/serial"

	"biketrail/internal/domain"
)

// SerialConfig holds configuration for an NMEA GPS on a serial port.
type SerialConfig struct {
	PortPath string `yaml:"port_path"`
	BaudRate int    `yaml:"baud_rate"`
}

// SerialSource reads NMEA 0183 sentences from a UART GPS receiver.
type SerialSource struct {
	cfg  SerialConfig
	open func() (io.ReadCloser, error)

	mu      sync.Mutex
	port    io.ReadCloser
	stopped bool
}

// NewSerialSource creates a serial GPS source.
func NewSerialSource(cfg SerialConfig) *SerialSource {
	if cfg.BaudRate == 0 {
		cfg.BaudRate = 9600 // Standard NMEA default
	}
	s := &SerialSource{cfg: cfg}
	s.open = s.openPort
	return s
}

// newReaderSource builds a source over an arbitrary stream of NMEA lines.
func newReaderSource(open func() (io.ReadCloser, error)) *SerialSource {
	return &SerialSource{cfg: SerialConfig{PortPath: "reader"}, open: open}
}

func (s *SerialSource) Name() string { return "NMEA GPS " + s.cfg.PortPath }

func (s *SerialSource) openPort() (io.ReadCloser, error) {
	mode := &serial.Mode{
		BaudRate: s.cfg.BaudRate,
		DataBits: 8,
		Parity:   serial.NoParity,
		StopBits: serial.OneStopBit,
	}
	port, err := serial.Open(s.cfg.PortPath, mode)
	if err != nil {
		return nil, err
	}
	if err := port.SetReadTimeout(time.Second); err != nil {
		_ = port.Close()
		return nil, err
	}
	return port, nil
}

// RequestPermission opens the port. Access denied by the OS is reported as
// a denied permission rather than an error.
func (s *SerialSource) RequestPermission(ctx context.Context) (bool, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	if s.port != nil {
		return true, nil
	}

	port, err := s.open()
	if err != nil {
		var portErr *serial.PortError
		if errors.As(err, &portErr) && portErr.Code() == serial.PermissionDenied {
			return false, nil
		}
		return false, fmt.Errorf("gps: failed to open %s: %w", s.cfg.PortPath, err)
	}
	s.port = port
	log.Printf("[gps] connected to %s at %d baud", s.cfg.PortPath, s.cfg.BaudRate)
	return true, nil
}

// Subscribe streams every valid RMC fix read from the port.
func (s *SerialSource) Subscribe(ctx context.Context) (<-chan domain.LocationFix, error) {
	s.mu.Lock()
	port, stopped := s.port, s.stopped
	s.mu.Unlock()

	if stopped {
		return nil, ErrSourceStopped
	}
	if port == nil {
		return nil, ErrNotSubscribed
	}

	_, isSerial := port.(serial.Port)

	out := make(chan domain.LocationFix)
	go func() {
		defer close(out)
		scanner := bufio.NewScanner(port)
		for {
			if ctx.Err() != nil {
				return
			}
			if !scanner.Scan() {
				// Read timeouts on a serial port surface as empty reads; start
				// a fresh scanner until the port is closed.
				if !isSerial || s.isStopped() || !errors.Is(scanner.Err(), io.ErrNoProgress) {
					return
				}
				scanner = bufio.NewScanner(port)
				continue
			}

			fix, ok := ParseRMC(scanner.Text())
			if !ok {
				continue
			}
			select {
			case out <- fix:
			case <-ctx.Done():
				return
			}
		}
	}()
	return out, nil
}

func (s *SerialSource) isStopped() bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.stopped
}

func (s *SerialSource) Stop() error {
	s.mu.Lock()
	defer s.mu.Unlock()

	s.stopped = true
	if s.port != nil {
		err := s.port.Close()
		s.port = nil
		return err
	}
	return nil
}
