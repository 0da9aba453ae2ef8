package serialport

import (
	"bytes"
	"codeberg.org/miketth/keylamp/pkg/metrics"
	"context"
	"fmt"
	"go.uber.org/zap"
	"strings"
	"time"
)

const maxReplyLength = 64

type CandidateState int

const (
	Untested CandidateState = iota
	Confirmed
	Rejected
)

func (s CandidateState) String() string {
	switch s {
	case Confirmed:
		return "confirmed"
	case Rejected:
		return "rejected"
	default:
		return "untested"
	}
}

type Candidate struct {
	Path  string
	State CandidateState
}

type ProbeConfig struct {
	// Settle is how long to wait after opening; the microcontroller resets
	// when the port opens and ignores input until it has booted.
	Settle      time.Duration
	ReadTimeout time.Duration
	Request     []byte
	Ack         string
}

func DefaultProbeConfig() ProbeConfig {
	return ProbeConfig{
		Settle:      2 * time.Second,
		ReadTimeout: time.Second,
		Request:     []byte("?"),
		Ack:         "ARDUINO_OK",
	}
}

// Prober finds the lamp among the serial candidates.
type Prober struct {
	list Lister
	open Opener
	cfg  ProbeConfig
	log  *zap.SugaredLogger
}

func NewProber(list Lister, open Opener, cfg ProbeConfig, log *zap.SugaredLogger) *Prober {
	return &Prober{
		list: list,
		open: open,
		cfg:  cfg,
		log:  log,
	}
}

// FindDevice returns a channel to the first candidate that answers the
// handshake. A false result is not an error: there is simply no lamp.
func (p *Prober) FindDevice(ctx context.Context) (*Channel, bool) {
	paths, err := p.list()
	if err != nil {
		p.log.Warnw("could not list serial devices", "error", err)
		return nil, false
	}

	if len(paths) == 0 {
		p.log.Warn("no serial devices found")
		return nil, false
	}

	candidates := make([]Candidate, 0, len(paths))
	for _, path := range paths {
		candidates = append(candidates, Candidate{Path: path})
	}

	for i := range candidates {
		c := &candidates[i]
		p.log.Infow("trying device", "device", c.Path)

		port, err := p.probe(ctx, c.Path)
		if ctx.Err() != nil {
			if port != nil {
				_ = port.Close()
			}
			return nil, false
		}
		if err != nil {
			c.State = Rejected
			p.log.Warnw("device rejected", "device", c.Path, "error", err)
			continue
		}

		c.State = Confirmed
		metrics.ProbeAttempts.WithLabelValues("confirmed").Inc()
		p.log.Infow("connected to lamp", "device", c.Path)
		return NewChannel(c.Path, port, p.log), true
	}

	p.log.Warnw("no lamp answered the handshake", "candidates", candidates)
	return nil, false
}

// probe returns an open port only when the handshake succeeded; on every other
// path the port is closed before returning.
func (p *Prober) probe(ctx context.Context, path string) (Port, error) {
	port, err := p.open(path)
	if err != nil {
		metrics.ProbeAttempts.WithLabelValues("open_error").Inc()
		return nil, err
	}

	reply, err := p.handshake(ctx, port)
	if err != nil {
		_ = port.Close()
		metrics.ProbeAttempts.WithLabelValues("handshake_error").Inc()
		return nil, err
	}

	if reply != p.cfg.Ack {
		_ = port.Close()
		metrics.ProbeAttempts.WithLabelValues("rejected").Inc()
		return nil, fmt.Errorf("unexpected reply %q", reply)
	}

	return port, nil
}

func (p *Prober) handshake(ctx context.Context, port Port) (string, error) {
	if err := port.SetReadTimeout(p.cfg.ReadTimeout); err != nil {
		return "", fmt.Errorf("set read timeout: %w", err)
	}

	if err := sleep(ctx, p.cfg.Settle); err != nil {
		return "", err
	}

	if _, err := port.Write(p.cfg.Request); err != nil {
		return "", fmt.Errorf("write probe: %w", err)
	}

	type result struct {
		line string
		err  error
	}

	// the read runs to its own timeout; the caller closing the port on
	// cancellation makes it return early
	resultCh := make(chan result, 1)
	go func() {
		line, err := readLine(port)
		resultCh <- result{line: line, err: err}
	}()

	select {
	case <-ctx.Done():
		return "", ctx.Err()
	case res := <-resultCh:
		if res.err != nil {
			return "", fmt.Errorf("read reply: %w", res.err)
		}
		return strings.TrimSpace(strings.ToValidUTF8(res.line, "")), nil
	}
}

// readLine reads up to and including '\n'. A read timeout ends the line with
// whatever has arrived so far.
func readLine(port Port) (string, error) {
	var line bytes.Buffer
	buf := make([]byte, 1)

	for line.Len() < maxReplyLength {
		n, err := port.Read(buf)
		if err != nil {
			return line.String(), err
		}
		if n == 0 {
			if line.Len() == 0 {
				return "", errNoReply
			}
			break
		}

		line.WriteByte(buf[0])
		if buf[0] == '\n' {
			break
		}
	}

	return line.String(), nil
}

func sleep(ctx context.Context, d time.Duration) error {
	if d <= 0 {
		return ctx.Err()
	}

	timer := time.NewTimer(d)
	defer timer.Stop()

	select {
	case <-ctx.Done():
		return ctx.Err()
	case <-timer.C:
		return nil
	}
}
