// Package dicomprovider resolves corner annotation properties from DICOM tags
// of the instances loaded in the background and foreground layers.
package dicomprovider

import (
	"errors"
	"log/slog"

	"github.com/jpfielding/cornertext.go/pkg/annotation"
	"github.com/jpfielding/cornertext.go/pkg/tagstore"
)

// ErrNoPrimarySubject is returned when neither image layer holds a volume
var ErrNoPrimarySubject = errors.New("no image loaded in background or foreground")

// Name is the registry name of this provider
const Name = "DICOM"

// property names
const (
	PatientName        = "PatientName"
	PatientID          = "PatientID"
	PatientInfo        = "PatientInfo"
	PatientBirthDate   = "PatientBirthDate"
	SeriesDate         = "SeriesDate"
	SeriesTime         = "SeriesTime"
	SeriesDescription  = "SeriesDescription"
	InstitutionName    = "InstitutionName"
	ReferringPhysician = "ReferringPhysician"
	Manufacturer       = "Manufacturer"
	Model              = "Model"
	PatientPosition    = "Patient-Position"
	TR                 = "TR"
	TE                 = "TE"
)

var supported = []string{
	PatientName,
	PatientID,
	PatientInfo,
	SeriesDate,
	SeriesTime,
	SeriesDescription,
	InstitutionName,
	ReferringPhysician,
	Manufacturer,
	Model,
	PatientPosition,
	TR,
	TE,
}

// formatters maps each resolvable property onto its rendering of a record.
// PatientBirthDate formats but is not advertised as supported.
var formatters = map[string]func(TagRecord) string{
	PatientName:        func(r TagRecord) string { return FormatPersonName(r.PatientName) },
	PatientID:          func(r TagRecord) string { return "ID: " + r.PatientID },
	PatientBirthDate:   func(r TagRecord) string { return FormatDate(r.PatientBirthDate) },
	PatientInfo:        PatientInfoOf,
	SeriesDate:         func(r TagRecord) string { return FormatDate(r.SeriesDate) },
	SeriesTime:         func(r TagRecord) string { return FormatTime(r.SeriesTime) },
	SeriesDescription:  func(r TagRecord) string { return r.SeriesDescription },
	InstitutionName:    func(r TagRecord) string { return r.InstitutionName },
	ReferringPhysician: func(r TagRecord) string { return FormatPersonName(r.ReferringPhysicianName) },
	Manufacturer:       func(r TagRecord) string { return r.Manufacturer },
	Model:              func(r TagRecord) string { return r.Model },
	PatientPosition:    func(r TagRecord) string { return r.PatientPosition },
	TR:                 func(r TagRecord) string { return "TR: " + r.RepetitionTime },
	TE:                 func(r TagRecord) string { return "TE: " + r.EchoTime },
}

// conflictFields are compared across layers; a difference prefixes the value
var conflictFields = map[string]func(TagRecord) string{
	SeriesDate:        func(r TagRecord) string { return r.SeriesDate },
	SeriesTime:        func(r TagRecord) string { return r.SeriesTime },
	SeriesDescription: func(r TagRecord) string { return r.SeriesDescription },
}

// Provider answers DICOM properties for a slice view. Store may be swapped or
// closed between calls; nothing is cached across resolutions.
type Provider struct {
	Store tagstore.Store
	// PersistBackground keeps showing the background's values when the
	// foreground volume carries no instance UID.
	PersistBackground bool
}

// New returns a provider reading from store
func New(store tagstore.Store, persistBackground bool) *Provider {
	return &Provider{Store: store, PersistBackground: persistBackground}
}

// SupportedProperties returns the advertised property names in display order
func (p *Provider) SupportedProperties() []string {
	return append([]string(nil), supported...)
}

// CanProvideValueForPropertyName is an exact, case-sensitive membership test
func (p *Provider) CanProvideValueForPropertyName(propertyName string) bool {
	for _, s := range supported {
		if s == propertyName {
			return true
		}
	}
	return false
}

// GetValueForPropertyName resolves propertyName against the slice's layers.
// Absence is "": a closed store, a mismatched patient, a volume without
// instance UIDs or a property this provider does not know. The only error
// besides store failures is ErrNoPrimarySubject.
func (p *Provider) GetValueForPropertyName(propertyName string, attrs annotation.Attributes, slice *annotation.Slice) (string, error) {
	if p.Store == nil || !p.Store.IsOpen() {
		return "", nil
	}
	format, ok := formatters[propertyName]
	if !ok {
		return "", nil
	}

	bg := slice.Volume(annotation.LayerBackground)
	fg := slice.Volume(annotation.LayerForeground)

	switch {
	case bg != nil && fg != nil:
		return p.resolveBoth(propertyName, attrs, bg, fg, format)
	case bg != nil:
		return p.resolveOne(bg.FirstInstanceUID(), format)
	case fg != nil:
		return p.resolveOne(fg.FirstInstanceUID(), format)
	}
	return "", ErrNoPrimarySubject
}

func (p *Provider) resolveOne(uid string, format func(TagRecord) string) (string, error) {
	if uid == "" {
		return "", nil
	}
	rec, err := ReadTagRecord(p.Store, uid)
	if err != nil {
		return "", err
	}
	return format(rec), nil
}

func (p *Provider) resolveBoth(propertyName string, attrs annotation.Attributes, bg, fg *annotation.Volume, format func(TagRecord) string) (string, error) {
	bgUID, fgUID := bg.FirstInstanceUID(), fg.FirstInstanceUID()
	if bgUID == "" {
		return "", nil
	}
	if fgUID == "" {
		if p.PersistBackground {
			return p.resolveOne(bgUID, format)
		}
		return "", nil
	}

	bgRec, err := ReadTagRecord(p.Store, bgUID)
	if err != nil {
		return "", err
	}
	fgRec, err := ReadTagRecord(p.Store, fgUID)
	if err != nil {
		return "", err
	}
	if !bgRec.SameIdentity(fgRec) {
		slog.Debug("background and foreground patients differ",
			slog.String("background", bgUID),
			slog.String("foreground", fgUID),
			slog.String("property", propertyName))
		return "", nil
	}

	field, ok := conflictFields[propertyName]
	if !ok || field(bgRec) == field(fgRec) {
		return format(bgRec), nil
	}
	switch annotation.ResolveLayerIndicator(attrs) {
	case annotation.LayerBackground:
		return "B: " + format(bgRec), nil
	case annotation.LayerForeground:
		return "F: " + format(fgRec), nil
	}
	return format(bgRec), nil
}
