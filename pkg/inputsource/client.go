package inputsource

import (
	"codeberg.org/miketth/keylamp/pkg/metrics"
	"codeberg.org/miketth/keylamp/pkg/retry"
	"context"
	"errors"
	"fmt"
	"github.com/godbus/dbus/v5"
	"github.com/godbus/dbus/v5/introspect"
	"go.uber.org/zap"
	"sync"
	"time"
)

const (
	BusName    = "org.gnome.InputSourceMonitor"
	ObjectPath = dbus.ObjectPath("/org/gnome/InputSourceMonitor")
	Interface  = "org.gnome.InputSourceMonitor"
	SignalName = "SourceChanged"
)

var (
	ErrUnavailable       = errors.New("input source service unavailable")
	ErrNotReady          = errors.New("input source interface not resolved")
	ErrAlreadySubscribed = errors.New("already subscribed")
	ErrMissingSignal     = errors.New("interface does not emit " + SignalName)
	ErrMissingInterface  = errors.New("object does not implement " + Interface)
)

// DefaultPolicy gives the session service fifteen seconds to appear.
var DefaultPolicy = retry.Policy{Attempts: 15, Interval: time.Second}

type conn interface {
	Introspect(ctx context.Context) (*introspect.Node, error)
	AddMatchSignalContext(ctx context.Context, options ...dbus.MatchOption) error
	Signal(ch chan<- *dbus.Signal)
	Close() error
}

// Client talks to the input source monitor over the session bus. It holds at
// most one subscription.
type Client struct {
	conn   conn
	policy retry.Policy
	log    *zap.SugaredLogger

	iface   *introspect.Interface
	signals chan *dbus.Signal
	done    chan struct{}
	once    sync.Once
}

// Connect opens the session bus once; retrying is left to AwaitReady.
func Connect(ctx context.Context, policy retry.Policy, log *zap.SugaredLogger) (*Client, error) {
	c, err := dbus.ConnectSessionBus(dbus.WithContext(ctx))
	if err != nil {
		return nil, fmt.Errorf("connect session bus: %w", err)
	}

	return newClient(sessionConn{Conn: c}, policy, log), nil
}

func newClient(c conn, policy retry.Policy, log *zap.SugaredLogger) *Client {
	return &Client{
		conn:   c,
		policy: policy,
		log:    log,
		done:   make(chan struct{}),
	}
}

// AwaitReady polls for the monitor interface. It returns an error wrapping
// ErrUnavailable once the attempt budget is spent.
func (c *Client) AwaitReady(ctx context.Context) error {
	err := retry.Do(ctx, c.policy, func(ctx context.Context, attempt int) error {
		metrics.BusAttempts.Inc()

		iface, err := c.resolve(ctx)
		if err != nil {
			c.log.Infow("input source not ready", "attempt", attempt, "error", err)
			return err
		}

		c.iface = iface
		return nil
	})

	switch {
	case errors.Is(err, retry.ErrExhausted):
		return fmt.Errorf("%w: %w", ErrUnavailable, err)
	case err != nil:
		return err
	}

	c.log.Info("connected to input source service")
	return nil
}

func (c *Client) resolve(ctx context.Context) (*introspect.Interface, error) {
	node, err := c.conn.Introspect(ctx)
	if err != nil {
		return nil, fmt.Errorf("introspect: %w", err)
	}

	return findInterface(node)
}

func findInterface(node *introspect.Node) (*introspect.Interface, error) {
	for i := range node.Interfaces {
		iface := &node.Interfaces[i]
		if iface.Name != Interface {
			continue
		}

		for _, sig := range iface.Signals {
			if sig.Name == SignalName {
				return iface, nil
			}
		}
		return nil, ErrMissingSignal
	}

	return nil, ErrMissingInterface
}

// Subscribe starts delivering layout identifiers. The returned channel is
// closed when the bus connection goes away or Disconnect is called.
func (c *Client) Subscribe(ctx context.Context) (<-chan string, error) {
	if c.iface == nil {
		return nil, ErrNotReady
	}
	if c.signals != nil {
		return nil, ErrAlreadySubscribed
	}

	err := c.conn.AddMatchSignalContext(ctx,
		dbus.WithMatchObjectPath(ObjectPath),
		dbus.WithMatchInterface(Interface),
		dbus.WithMatchMember(SignalName),
	)
	if err != nil {
		return nil, fmt.Errorf("add match: %w", err)
	}

	c.signals = make(chan *dbus.Signal, 16)
	c.conn.Signal(c.signals)

	layouts := make(chan string, 16)
	go c.forward(layouts)

	c.log.Info("listening for input source changes")
	return layouts, nil
}

func (c *Client) forward(layouts chan<- string) {
	defer close(layouts)

	for {
		select {
		case <-c.done:
			return
		case sig, ok := <-c.signals:
			if !ok {
				return
			}

			layout, ok := layoutFromSignal(sig)
			if !ok {
				c.log.Debugw("ignoring signal", "name", sig.Name, "path", sig.Path)
				continue
			}

			select {
			case layouts <- layout:
			case <-c.done:
				return
			}
		}
	}
}

func layoutFromSignal(sig *dbus.Signal) (string, bool) {
	if sig == nil || sig.Path != ObjectPath || sig.Name != Interface+"."+SignalName {
		return "", false
	}
	if len(sig.Body) == 0 {
		return "", false
	}

	layout, ok := sig.Body[0].(string)
	return layout, ok
}

// Disconnect ends the subscription and closes the bus connection. Only the
// first call does anything.
func (c *Client) Disconnect() error {
	var err error
	c.once.Do(func() {
		close(c.done)
		err = c.conn.Close()
	})
	return err
}
