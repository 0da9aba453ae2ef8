package xkblayouts

import (
	"encoding/xml"
	"fmt"
	"io"
	"os"
	"strings"
)

func Load(path string) (*Registry, error) {
	file, err := os.Open(path)
	if err != nil {
		return nil, fmt.Errorf("open file: %w", err)
	}
	defer file.Close()

	return Parse(file)
}

func Parse(r io.Reader) (*Registry, error) {
	registry := &Registry{}
	if err := xml.NewDecoder(r).Decode(registry); err != nil {
		return nil, fmt.Errorf("decode xml: %w", err)
	}

	return registry, nil
}

// PrettyName resolves an input source id such as "us" or "us+dvorak" to its
// description. Unknown ids give "".
func (r *Registry) PrettyName(source string) string {
	layout, variant, _ := strings.Cut(source, "+")
	return r.Describe(layout, variant)
}

func (r *Registry) Describe(layout, variant string) string {
	for _, l := range r.Layouts {
		if l.ConfigItem.Name != layout {
			continue
		}

		if variant == "" {
			return l.ConfigItem.Description
		}

		for _, v := range l.Variants {
			if v.ConfigItem.Name == variant {
				return v.ConfigItem.Description
			}
		}
	}

	return ""
}
