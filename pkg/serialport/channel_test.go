package serialport

import (
	"codeberg.org/miketth/keylamp/pkg/metrics"
	"codeberg.org/miketth/keylamp/pkg/palette"
	"errors"
	"testing"

	"github.com/prometheus/client_golang/prometheus/testutil"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
)

func newTestChannel(port *fakePort) *Channel {
	return NewChannel("/dev/ttyACM0", port, zap.NewNop().Sugar())
}

func TestSendSuppressesRepeats(t *testing.T) {
	port := &fakePort{}
	ch := newTestChannel(port)

	require.NoError(t, ch.Send(palette.Red))
	require.NoError(t, ch.Send(palette.Red))
	require.NoError(t, ch.Send(palette.Blue))
	require.NoError(t, ch.Send(palette.Red))

	assert.Equal(t, "131", port.Writes())
}

func TestSendCountsSuppressedWrites(t *testing.T) {
	ch := newTestChannel(&fakePort{})
	before := testutil.ToFloat64(metrics.SuppressedWrites)

	require.NoError(t, ch.Send(palette.Green))
	require.NoError(t, ch.Send(palette.Green))

	assert.Equal(t, before+1, testutil.ToFloat64(metrics.SuppressedWrites))
}

func TestSendFirstColorAlwaysWritten(t *testing.T) {
	port := &fakePort{}
	ch := newTestChannel(port)

	require.NoError(t, ch.Send(palette.Black))
	assert.Equal(t, "0", port.Writes())
}

func TestSendAfterClose(t *testing.T) {
	port := &fakePort{}
	ch := newTestChannel(port)

	require.NoError(t, ch.Send(palette.Gray))
	require.NoError(t, ch.Close())

	err := ch.Send(palette.Red)
	assert.ErrorIs(t, err, ErrClosed)
	assert.Equal(t, "8", port.Writes())

	// an unchanged color is still a no-op, matching the suppression rule
	assert.NoError(t, ch.Send(palette.Gray))
}

func TestSendWriteError(t *testing.T) {
	port := &fakePort{writeErr: errors.New("input/output error")}
	ch := newTestChannel(port)

	err := ch.Send(palette.Red)
	assert.ErrorIs(t, err, ErrWrite)
	assert.NotErrorIs(t, err, ErrClosed)

	// the failed color was not recorded, so a retry writes again
	port.writeErr = nil
	require.NoError(t, ch.Send(palette.Red))
	assert.Equal(t, "1", port.Writes())
}

func TestSendPortReportsClosed(t *testing.T) {
	port := &fakePort{writeErr: ErrClosed}
	ch := newTestChannel(port)

	err := ch.Send(palette.Red)
	assert.ErrorIs(t, err, ErrClosed)
	assert.NotErrorIs(t, err, ErrWrite)
}

func TestCloseIdempotent(t *testing.T) {
	port := &fakePort{}
	ch := newTestChannel(port)

	require.NoError(t, ch.Close())
	require.NoError(t, ch.Close())
	assert.Equal(t, 1, port.Closed())
}
