package inputsource

import (
	"context"
	"encoding/xml"
	"fmt"
	"github.com/godbus/dbus/v5"
	"github.com/godbus/dbus/v5/introspect"
)

type sessionConn struct {
	*dbus.Conn
}

func (c sessionConn) Introspect(ctx context.Context) (*introspect.Node, error) {
	var data string
	err := c.Object(BusName, ObjectPath).
		CallWithContext(ctx, "org.freedesktop.DBus.Introspectable.Introspect", 0).
		Store(&data)
	if err != nil {
		return nil, err
	}

	var node introspect.Node
	if err := xml.Unmarshal([]byte(data), &node); err != nil {
		return nil, fmt.Errorf("decode introspection: %w", err)
	}

	return &node, nil
}
