package serialport

import (
	"codeberg.org/miketth/keylamp/pkg/metrics"
	"codeberg.org/miketth/keylamp/pkg/palette"
	"fmt"
	"go.uber.org/zap"
	"io"
)

// Channel owns the open connection to a confirmed lamp. It is not safe for
// concurrent use; the supervisor is its only caller.
type Channel struct {
	path string
	port Port
	log  *zap.SugaredLogger

	last   palette.Color
	sent   bool
	closed bool
}

func NewChannel(path string, port Port, log *zap.SugaredLogger) *Channel {
	return &Channel{
		path: path,
		port: port,
		log:  log,
	}
}

func (c *Channel) Path() string {
	return c.path
}

// Send writes color unless it is the last color successfully sent.
func (c *Channel) Send(color palette.Color) error {
	if c.sent && color == c.last {
		metrics.SuppressedWrites.Inc()
		return nil
	}

	if c.closed {
		metrics.Faults.WithLabelValues("closed").Inc()
		return fmt.Errorf("send %s to %s: %w", color, c.path, ErrClosed)
	}

	n, err := c.port.Write([]byte{byte(color)})
	if err == nil && n != 1 {
		err = io.ErrShortWrite
	}
	if err != nil {
		if isPortClosed(err) {
			metrics.Faults.WithLabelValues("closed").Inc()
			return fmt.Errorf("send %s to %s: %w: %w", color, c.path, ErrClosed, err)
		}
		metrics.Faults.WithLabelValues("write").Inc()
		return fmt.Errorf("send %s to %s: %w: %w", color, c.path, ErrWrite, err)
	}

	c.last = color
	c.sent = true
	metrics.ColorWrites.WithLabelValues(color.String()).Inc()
	c.log.Infow("sent color", "color", color.String(), "device", c.path)

	return nil
}

// Close is safe to call more than once; only the first call closes the port.
func (c *Channel) Close() error {
	if c.closed {
		return nil
	}
	c.closed = true

	if err := c.port.Close(); err != nil {
		return fmt.Errorf("close %s: %w", c.path, err)
	}

	c.log.Debugw("closed serial port", "device", c.path)
	return nil
}
