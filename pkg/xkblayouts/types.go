package xkblayouts

import "encoding/xml"

// Registry is the subset of evdev.xml needed to name layouts.
type Registry struct {
	XMLName xml.Name `xml:"xkbConfigRegistry"`
	Layouts []Layout `xml:"layoutList>layout"`
}

type ConfigItem struct {
	Name        string `xml:"name"`
	Description string `xml:"description"`
}

type Variant struct {
	ConfigItem ConfigItem `xml:"configItem"`
}

type Layout struct {
	ConfigItem ConfigItem `xml:"configItem"`
	Variants   []Variant  `xml:"variantList>variant"`
}
