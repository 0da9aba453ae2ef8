package keylamp

import (
	"codeberg.org/miketth/keylamp/pkg/palette"
	"context"
)

// Indicator is the lamp side of the bridge.
type Indicator interface {
	Send(color palette.Color) error
	Close() error
}

type DeviceFinder interface {
	FindDevice(ctx context.Context) (Indicator, bool)
}

type DeviceFinderFunc func(ctx context.Context) (Indicator, bool)

func (f DeviceFinderFunc) FindDevice(ctx context.Context) (Indicator, bool) {
	return f(ctx)
}

// LayoutSource is the notification side of the bridge.
type LayoutSource interface {
	AwaitReady(ctx context.Context) error
	Subscribe(ctx context.Context) (<-chan string, error)
	Disconnect() error
}

type SourceConnector interface {
	Connect(ctx context.Context) (LayoutSource, error)
}

type SourceConnectorFunc func(ctx context.Context) (LayoutSource, error)

func (f SourceConnectorFunc) Connect(ctx context.Context) (LayoutSource, error) {
	return f(ctx)
}

type LayoutNamer interface {
	PrettyName(layout string) string
}
