package serialport

import "errors"

var (
	// ErrClosed means the lamp connection is gone. It cannot recover without
	// probing again.
	ErrClosed = errors.New("serial connection closed")
	ErrWrite  = errors.New("serial write failed")

	errNoReply = errors.New("no reply")
)
