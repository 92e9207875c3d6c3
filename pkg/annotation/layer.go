// Package annotation defines the contract between slice-view overlay text and
// the providers that compute property values for it.
package annotation

import "strconv"

// Attributes are the key/value pairs attached to one property in a layout
type Attributes map[string]string

// Layer identifies one of the three image slots of a slice view
type Layer int

const (
	LayerUnknown    Layer = -1
	LayerForeground Layer = 0
	LayerBackground Layer = 1
	LayerLabel      Layer = 2
)

func (l Layer) String() string {
	switch l {
	case LayerForeground:
		return "foreground"
	case LayerBackground:
		return "background"
	case LayerLabel:
		return "label"
	}
	return "unknown"
}

// DisplayLevel orders properties by how eagerly they are shown
type DisplayLevel int

const (
	DisplayLeast     DisplayLevel = 1
	DisplaySometimes DisplayLevel = 2
	DisplayAlways    DisplayLevel = 3
)

func (d DisplayLevel) String() string {
	switch d {
	case DisplayLeast:
		return "least"
	case DisplaySometimes:
		return "sometimes"
	case DisplayAlways:
		return "always"
	}
	return strconv.Itoa(int(d))
}

// digit returns the value of an all-digit string, or -1
func digit(s string) int {
	if s == "" {
		return -1
	}
	for _, r := range s {
		if r < '0' || r > '9' {
			return -1
		}
	}
	n, err := strconv.Atoi(s)
	if err != nil {
		return -1
	}
	return n
}

// LayerValue reads the "layer" attribute as a name or index.
// Names match exactly; foreground wins over background over label.
func LayerValue(attrs Attributes, def Layer) Layer {
	layer, ok := attrs["layer"]
	if !ok {
		return def
	}
	d := digit(layer)
	switch {
	case layer == "foreground" || d == int(LayerForeground):
		return LayerForeground
	case layer == "background" || d == int(LayerBackground):
		return LayerBackground
	case layer == "label" || d == int(LayerLabel):
		return LayerLabel
	}
	return def
}

// ResolveLayerIndicator is LayerValue with LayerUnknown as the default
func ResolveLayerIndicator(attrs Attributes) Layer {
	return LayerValue(attrs, LayerUnknown)
}

// DisplayLevelValue reads the "display-level" attribute as a name or number
func DisplayLevelValue(attrs Attributes, def DisplayLevel) DisplayLevel {
	level, ok := attrs["display-level"]
	if !ok {
		return def
	}
	d := digit(level)
	switch {
	case level == "always" || d == int(DisplayAlways):
		return DisplayAlways
	case level == "sometimes" || d == int(DisplaySometimes):
		return DisplaySometimes
	case level == "least" || d == int(DisplayLeast):
		return DisplayLeast
	}
	return def
}
