package dicom

import (
	"strings"

	"github.com/jpfielding/cornertext.go/pkg/dicom/tag"
)

// Tag alias to avoid duplication
type Tag = tag.Tag

// Dataset represents the header elements of one DICOM instance
type Dataset struct {
	Elements map[Tag]*Element
}

// Element represents a single DICOM element
type Element struct {
	Tag   Tag
	VR    string // Value Representation
	Value any    // string for text VRs, []byte otherwise
}

// NewDataset returns an empty dataset
func NewDataset() *Dataset {
	return &Dataset{Elements: make(map[Tag]*Element)}
}

// FindElement returns an element by tag
func (ds *Dataset) FindElement(t Tag) (*Element, bool) {
	elem, ok := ds.Elements[t]
	return elem, ok
}

// GetString returns a string value from an element
func (elem *Element) GetString() (string, bool) {
	switch v := elem.Value.(type) {
	case string:
		return v, true
	case []byte:
		// implicit VR files may hand us text we have no dictionary entry for
		return trimPadding(string(v)), true
	}
	return "", false
}

// Text returns the trimmed text value of t, or "" if absent
func (ds *Dataset) Text(t Tag) string {
	if elem, ok := ds.FindElement(t); ok {
		if s, ok := elem.GetString(); ok {
			return strings.TrimSpace(s)
		}
	}
	return ""
}

// SOPInstanceUID returns the instance identifier, falling back to the file meta copy
func (ds *Dataset) SOPInstanceUID() string {
	if uid := ds.Text(tag.SOPInstanceUID); uid != "" {
		return uid
	}
	return ds.Text(tag.MediaStorageSOPInstanceUID)
}

// Set stores a text element, taking the VR from the annotation dictionary
func (ds *Dataset) Set(t Tag, value string) {
	ds.Elements[t] = &Element{Tag: t, VR: VROf(t), Value: value}
}

func trimPadding(s string) string {
	for len(s) > 0 && (s[len(s)-1] == 0 || s[len(s)-1] == ' ') {
		s = s[:len(s)-1]
	}
	return s
}
