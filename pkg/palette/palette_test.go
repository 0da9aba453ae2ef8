package palette

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestParseColor(t *testing.T) {
	tests := []struct {
		in   string
		want Color
	}{
		{"red", Red},
		{"  Blue ", Blue},
		{"off", Black},
		{"black", Black},
		{"grey", Gray},
		{"8", Gray},
		{"9", White},
		{"2", Green},
	}

	for _, tt := range tests {
		t.Run(tt.in, func(t *testing.T) {
			got, err := ParseColor(tt.in)
			require.NoError(t, err)
			assert.Equal(t, tt.want, got)
		})
	}
}

func TestParseColorUnknown(t *testing.T) {
	_, err := ParseColor("purple")
	assert.ErrorIs(t, err, ErrUnknownColor)

	_, err = ParseColor("4")
	assert.ErrorIs(t, err, ErrUnknownColor)
}

func TestColorWireBytes(t *testing.T) {
	assert.Equal(t, byte('0'), byte(Black))
	assert.Equal(t, byte('1'), byte(Red))
	assert.Equal(t, byte('2'), byte(Green))
	assert.Equal(t, byte('3'), byte(Blue))
	assert.Equal(t, byte('8'), byte(Gray))
	assert.Equal(t, byte('9'), byte(White))
}

func TestColorText(t *testing.T) {
	var c Color
	require.NoError(t, c.UnmarshalText([]byte("green")))
	assert.Equal(t, Green, c)

	text, err := c.MarshalText()
	require.NoError(t, err)
	assert.Equal(t, "green", string(text))

	_, err = Color('x').MarshalText()
	assert.ErrorIs(t, err, ErrUnknownColor)
}

func TestMemoryLookup(t *testing.T) {
	m := NewMemory(Defaults())

	c, ok := m.Lookup("us")
	assert.True(t, ok)
	assert.Equal(t, Blue, c)

	c, ok = m.Lookup("ru")
	assert.True(t, ok)
	assert.Equal(t, Red, c)

	_, ok = m.Lookup("de")
	assert.False(t, ok)
}

func TestNewMemoryCopiesInput(t *testing.T) {
	src := map[string]Color{"us": Blue}
	m := NewMemory(src)
	src["us"] = Red

	c, _ := m.Lookup("us")
	assert.Equal(t, Blue, c)
}
