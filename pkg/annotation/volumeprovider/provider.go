// Package volumeprovider answers properties describing what is loaded in a
// slice view rather than what the images say about themselves.
package volumeprovider

import (
	"fmt"
	"math"
	"strconv"

	"github.com/jpfielding/cornertext.go/pkg/annotation"
)

// Name is the registry name of this provider
const Name = "Default"

const (
	Background                  = "Background"
	Foreground                  = "Foreground"
	Label                       = "Label"
	VolumeName                  = "VolumeName"
	SlabReconstructionThickness = "SlabReconstructionThickness"
	SlabReconstructionType      = "SlabReconstructionType"
)

var supported = []string{
	Background,
	Foreground,
	Label,
	VolumeName,
	SlabReconstructionThickness,
	SlabReconstructionType,
}

type Provider struct{}

func New() *Provider { return &Provider{} }

func (p *Provider) SupportedProperties() []string {
	return append([]string(nil), supported...)
}

func (p *Provider) CanProvideValueForPropertyName(propertyName string) bool {
	for _, s := range supported {
		if s == propertyName {
			return true
		}
	}
	return false
}

// GetValueForPropertyName never fails; an empty layer or a disabled slab is ""
func (p *Provider) GetValueForPropertyName(propertyName string, attrs annotation.Attributes, slice *annotation.Slice) (string, error) {
	if slice == nil {
		return "", nil
	}
	switch propertyName {
	case Background:
		return name(slice.Background), nil
	case Foreground:
		return name(slice.Foreground), nil
	case Label:
		return labelName(slice), nil
	case VolumeName:
		l := annotation.LayerValue(attrs, annotation.LayerBackground)
		if l == annotation.LayerLabel {
			return labelName(slice), nil
		}
		return name(slice.Volume(l)), nil
	case SlabReconstructionThickness:
		if slice.Slab == nil || !slice.Slab.Enabled {
			return "", nil
		}
		return "Thickness: " + strconv.FormatFloat(slice.Slab.Thickness, 'f', -1, 64), nil
	case SlabReconstructionType:
		if slice.Slab == nil || !slice.Slab.Enabled {
			return "", nil
		}
		return "Type: " + slice.Slab.Type, nil
	}
	return "", nil
}

func name(v *annotation.Volume) string {
	if v == nil {
		return ""
	}
	return v.Name
}

func labelName(s *annotation.Slice) string {
	if s.Label == nil {
		return ""
	}
	return fmt.Sprintf("%s (%d%%)", s.Label.Name, int(math.Round(s.LabelOpacity*100)))
}
