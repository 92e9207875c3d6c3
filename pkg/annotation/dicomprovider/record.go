package dicomprovider

import (
	"fmt"

	"github.com/jpfielding/cornertext.go/pkg/dicom/tag"
	"github.com/jpfielding/cornertext.go/pkg/tagstore"
)

// TagRecord is the annotation snapshot of one instance, read for a single
// resolution and then dropped. Compare records field by field.
type TagRecord struct {
	SeriesDate             string
	SeriesTime             string
	Modality               string
	Manufacturer           string
	InstitutionName        string
	ReferringPhysicianName string
	SeriesDescription      string
	Model                  string
	PatientName            string
	PatientID              string
	PatientBirthDate       string
	PatientSex             string
	PatientAge             string
	PatientPosition        string
	RepetitionTime         string
	EchoTime               string
}

// ReadTagRecord reads the 16 annotation tags of instanceUID from s
func ReadTagRecord(s tagstore.Store, instanceUID string) (TagRecord, error) {
	vals, err := tagstore.Values(s, instanceUID, tag.Annotation)
	if err != nil {
		return TagRecord{}, fmt.Errorf("reading tags of %s: %w", instanceUID, err)
	}
	return TagRecord{
		SeriesDate:             vals[tag.SeriesDate],
		SeriesTime:             vals[tag.SeriesTime],
		Modality:               vals[tag.Modality],
		Manufacturer:           vals[tag.Manufacturer],
		InstitutionName:        vals[tag.InstitutionName],
		ReferringPhysicianName: vals[tag.ReferringPhysicianName],
		SeriesDescription:      vals[tag.SeriesDescription],
		Model:                  vals[tag.ManufacturerModelName],
		PatientName:            vals[tag.PatientName],
		PatientID:              vals[tag.PatientID],
		PatientBirthDate:       vals[tag.PatientBirthDate],
		PatientSex:             vals[tag.PatientSex],
		PatientAge:             vals[tag.PatientAge],
		PatientPosition:        vals[tag.PatientPosition],
		RepetitionTime:         vals[tag.RepetitionTime],
		EchoTime:               vals[tag.EchoTime],
	}, nil
}

// SameIdentity reports whether both records describe the same patient
func (r TagRecord) SameIdentity(o TagRecord) bool {
	return r.PatientName == o.PatientName &&
		r.PatientID == o.PatientID &&
		r.PatientBirthDate == o.PatientBirthDate
}
