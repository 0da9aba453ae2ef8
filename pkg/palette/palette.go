package palette

// Palette maps layout identifiers to lamp colors. Unknown layouts report false.
type Palette interface {
	Lookup(layout string) (Color, bool)
}

type Entry struct {
	Layout string
	Color  Color
}

// Defaults is the mapping used when nothing else is configured.
func Defaults() map[string]Color {
	return map[string]Color{
		"us": Blue,
		"ru": Red,
	}
}

type Memory struct {
	colors map[string]Color
}

func NewMemory(colors map[string]Color) *Memory {
	m := &Memory{colors: make(map[string]Color, len(colors))}
	for layout, color := range colors {
		m.colors[layout] = color
	}
	return m
}

func (m *Memory) Lookup(layout string) (Color, bool) {
	color, ok := m.colors[layout]
	return color, ok
}
