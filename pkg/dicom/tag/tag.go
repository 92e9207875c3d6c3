// Package tag defines the DICOM tags used for overlay annotations
package tag

import (
	"fmt"
	"strconv"
	"strings"
)

// Tag represents a DICOM tag with Group and Element
type Tag struct {
	Group   uint16
	Element uint16
}

// New creates a new Tag
func New(group, element uint16) Tag {
	return Tag{Group: group, Element: element}
}

// IsGroup0002 returns true if this tag is in the File Meta Information group
func (t Tag) IsGroup0002() bool {
	return t.Group == 0x0002
}

// Code returns the tag in database key form: lower case "gggg,eeee"
func (t Tag) Code() string {
	return fmt.Sprintf("%04x,%04x", t.Group, t.Element)
}

// ParseCode parses "gggg,eeee" (either case, optional parens) into a Tag
func ParseCode(code string) (Tag, error) {
	s := strings.TrimSpace(code)
	s = strings.TrimPrefix(s, "(")
	s = strings.TrimSuffix(s, ")")
	g, e, ok := strings.Cut(s, ",")
	if !ok || len(g) != 4 || len(e) != 4 {
		return Tag{}, fmt.Errorf("invalid tag code %q", code)
	}
	group, err := strconv.ParseUint(g, 16, 16)
	if err != nil {
		return Tag{}, fmt.Errorf("invalid tag group %q: %w", g, err)
	}
	element, err := strconv.ParseUint(e, 16, 16)
	if err != nil {
		return Tag{}, fmt.Errorf("invalid tag element %q: %w", e, err)
	}
	return New(uint16(group), uint16(element)), nil
}

// File Meta Information (Group 0002)
var (
	FileMetaInformationGroupLength = Tag{0x0002, 0x0000}
	MediaStorageSOPClassUID        = Tag{0x0002, 0x0002}
	MediaStorageSOPInstanceUID     = Tag{0x0002, 0x0003}
	TransferSyntaxUID              = Tag{0x0002, 0x0010}
	ImplementationClassUID         = Tag{0x0002, 0x0012}
)

// SOP Common Module
var (
	SOPClassUID    = Tag{0x0008, 0x0016}
	SOPInstanceUID = Tag{0x0008, 0x0018}
)

// Patient Module (Group 0010)
var (
	PatientName      = Tag{0x0010, 0x0010}
	PatientID        = Tag{0x0010, 0x0020}
	PatientBirthDate = Tag{0x0010, 0x0030}
	PatientSex       = Tag{0x0010, 0x0040}
	PatientAge       = Tag{0x0010, 0x1010}
)

// General Study Module
var (
	StudyInstanceUID       = Tag{0x0020, 0x000D}
	ReferringPhysicianName = Tag{0x0008, 0x0090}
)

// General Series Module
var (
	Modality          = Tag{0x0008, 0x0060}
	SeriesInstanceUID = Tag{0x0020, 0x000E}
	SeriesDescription = Tag{0x0008, 0x103E}
	SeriesDate        = Tag{0x0008, 0x0021}
	SeriesTime        = Tag{0x0008, 0x0031}
	PatientPosition   = Tag{0x0018, 0x5100} // CS - HFS, FFS, ...
)

// General Equipment Module
var (
	Manufacturer          = Tag{0x0008, 0x0070}
	InstitutionName       = Tag{0x0008, 0x0080}
	ManufacturerModelName = Tag{0x0008, 0x1090}
)

// MR Image Module
var (
	RepetitionTime = Tag{0x0018, 0x0080} // DS - TR (ms)
	EchoTime       = Tag{0x0018, 0x0081} // DS - TE (ms)
)

// Pixel data and sequence delimiters
var (
	PixelData                = Tag{0x7FE0, 0x0010}
	Item                     = Tag{0xFFFE, 0xE000}
	ItemDelimitationItem     = Tag{0xFFFE, 0xE00D}
	SequenceDelimitationItem = Tag{0xFFFE, 0xE0DD}
)

// Annotation lists the tags read for every annotated instance, in table order.
var Annotation = []Tag{
	SeriesDate,
	SeriesTime,
	Modality,
	Manufacturer,
	InstitutionName,
	ReferringPhysicianName,
	SeriesDescription,
	ManufacturerModelName,
	PatientName,
	PatientID,
	PatientBirthDate,
	PatientSex,
	PatientAge,
	PatientPosition,
	RepetitionTime,
	EchoTime,
}

// LookupName returns a human-readable name for the tags this package knows
func (t Tag) LookupName() string {
	switch t {
	case SeriesDate:
		return "SeriesDate"
	case SeriesTime:
		return "SeriesTime"
	case Modality:
		return "Modality"
	case Manufacturer:
		return "Manufacturer"
	case InstitutionName:
		return "InstitutionName"
	case ReferringPhysicianName:
		return "ReferringPhysicianName"
	case SeriesDescription:
		return "SeriesDescription"
	case ManufacturerModelName:
		return "ManufacturerModelName"
	case PatientName:
		return "PatientName"
	case PatientID:
		return "PatientID"
	case PatientBirthDate:
		return "PatientBirthDate"
	case PatientSex:
		return "PatientSex"
	case PatientAge:
		return "PatientAge"
	case PatientPosition:
		return "PatientPosition"
	case RepetitionTime:
		return "RepetitionTime"
	case EchoTime:
		return "EchoTime"
	case SOPInstanceUID:
		return "SOPInstanceUID"
	case SOPClassUID:
		return "SOPClassUID"
	case TransferSyntaxUID:
		return "TransferSyntaxUID"
	case PixelData:
		return "PixelData"
	default:
		return ""
	}
}
