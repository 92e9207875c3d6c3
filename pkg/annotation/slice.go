package annotation

import "strings"

// InstanceUIDsAttribute holds the space separated SOP Instance UIDs a volume was loaded from
const InstanceUIDsAttribute = "DICOM.instanceUIDs"

// Volume is an image loaded into a layer
type Volume struct {
	Name       string
	Attributes map[string]string
}

// FirstInstanceUID returns the first token of the instance UID list, or ""
func (v *Volume) FirstInstanceUID() string {
	if v == nil {
		return ""
	}
	fields := strings.Fields(v.Attributes[InstanceUIDsAttribute])
	if len(fields) == 0 {
		return ""
	}
	return fields[0]
}

// Slice is the display context of one slice view
type Slice struct {
	Name         string
	Foreground   *Volume
	Background   *Volume
	Label        *Volume
	LabelOpacity float64 // 0..1
	Slab         *SlabReconstruction
}

// SlabReconstruction describes thick slab rendering of a slice view
type SlabReconstruction struct {
	Enabled   bool
	Thickness float64 // mm
	Type      string  // max, min, mean, sum
}

// Volume returns the volume in layer l, or nil
func (s *Slice) Volume(l Layer) *Volume {
	if s == nil {
		return nil
	}
	switch l {
	case LayerForeground:
		return s.Foreground
	case LayerBackground:
		return s.Background
	case LayerLabel:
		return s.Label
	}
	return nil
}

// NewDICOMVolume is a volume whose instance UID attribute lists uids
func NewDICOMVolume(name string, uids ...string) *Volume {
	return &Volume{
		Name:       name,
		Attributes: map[string]string{InstanceUIDsAttribute: strings.Join(uids, " ")},
	}
}
