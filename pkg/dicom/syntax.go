package dicom

import "github.com/jpfielding/cornertext.go/pkg/dicom/tag"

// Transfer syntaxes the header reader distinguishes
const (
	ImplicitVRLittleEndian = "1.2.840.10008.1.2"
	ExplicitVRLittleEndian = "1.2.840.10008.1.2.1"
	ExplicitVRBigEndian    = "1.2.840.10008.1.2.2" // retired, not supported
)

// isExplicitVR returns true if the dataset after file meta uses explicit VR.
// Every encapsulated syntax is explicit VR little endian.
func isExplicitVR(syntax string) bool {
	return syntax != ImplicitVRLittleEndian
}

// isLongVR returns true if VR uses 4-byte VL (OB, OD, OF, OL, OW, SQ, UC, UR, UT, UN)
func isLongVR(vr string) bool {
	switch vr {
	case "OB", "OD", "OF", "OL", "OW", "SQ", "UC", "UR", "UT", "UN":
		return true
	}
	return false
}

// isTextVR returns true for the string VRs
func isTextVR(vr string) bool {
	switch vr {
	case "AE", "AS", "CS", "DA", "DS", "DT", "IS", "LO", "LT", "PN", "SH", "ST", "TM", "UC", "UI", "UR", "UT":
		return true
	}
	return false
}

// VROf returns the VR of a tag for implicit VR reading and for writing
func VROf(t Tag) string {
	switch t {
	case tag.FileMetaInformationGroupLength:
		return "UL"
	case tag.MediaStorageSOPClassUID, tag.MediaStorageSOPInstanceUID, tag.TransferSyntaxUID,
		tag.ImplementationClassUID, tag.SOPClassUID, tag.SOPInstanceUID,
		tag.StudyInstanceUID, tag.SeriesInstanceUID:
		return "UI"
	case tag.SeriesDate, tag.PatientBirthDate:
		return "DA"
	case tag.SeriesTime:
		return "TM"
	case tag.Modality, tag.PatientSex, tag.PatientPosition:
		return "CS"
	case tag.Manufacturer, tag.InstitutionName, tag.SeriesDescription,
		tag.ManufacturerModelName, tag.PatientID:
		return "LO"
	case tag.PatientName, tag.ReferringPhysicianName:
		return "PN"
	case tag.PatientAge:
		return "AS"
	case tag.RepetitionTime, tag.EchoTime:
		return "DS"
	case tag.PixelData:
		return "OW"
	}
	return "UN"
}
