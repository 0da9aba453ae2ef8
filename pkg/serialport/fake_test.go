package serialport

import (
	"errors"
	"sync"
	"time"
)

type fakePort struct {
	mu sync.Mutex

	reply    string
	pending  []byte
	writes   []byte
	writeErr error
	closed   int
	timeout  time.Duration
}

func (f *fakePort) Read(p []byte) (int, error) {
	f.mu.Lock()
	defer f.mu.Unlock()

	if f.closed > 0 {
		return 0, ErrClosed
	}
	if len(f.pending) == 0 {
		return 0, nil
	}

	n := copy(p, f.pending)
	f.pending = f.pending[n:]
	return n, nil
}

func (f *fakePort) Write(p []byte) (int, error) {
	f.mu.Lock()
	defer f.mu.Unlock()

	if f.writeErr != nil {
		return 0, f.writeErr
	}

	f.writes = append(f.writes, p...)
	if string(p) == "?" {
		f.pending = append(f.pending, f.reply...)
	}
	return len(p), nil
}

func (f *fakePort) Close() error {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.closed++
	return nil
}

func (f *fakePort) SetReadTimeout(d time.Duration) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.timeout = d
	return nil
}

func (f *fakePort) Writes() string {
	f.mu.Lock()
	defer f.mu.Unlock()
	return string(f.writes)
}

func (f *fakePort) Closed() int {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.closed
}

var errNoSuchDevice = errors.New("no such device")

type fakeBoard struct {
	ports  map[string]*fakePort
	order  []string
	opened []string
}

func (b *fakeBoard) list() ([]string, error) {
	return b.order, nil
}

func (b *fakeBoard) open(path string) (Port, error) {
	b.opened = append(b.opened, path)
	port, ok := b.ports[path]
	if !ok {
		return nil, errNoSuchDevice
	}
	return port, nil
}
