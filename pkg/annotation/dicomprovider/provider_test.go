package dicomprovider_test

import (
	"errors"
	"testing"

	"github.com/jpfielding/cornertext.go/pkg/annotation"
	"github.com/jpfielding/cornertext.go/pkg/annotation/dicomprovider"
	"github.com/jpfielding/cornertext.go/pkg/dicom/tag"
	"github.com/jpfielding/cornertext.go/pkg/tagstore"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func patient(overrides map[tag.Tag]string) map[tag.Tag]string {
	vals := map[tag.Tag]string{
		tag.PatientName:            "DOE^JOHN",
		tag.PatientID:              "12345",
		tag.PatientBirthDate:       "19800101",
		tag.PatientSex:             "M",
		tag.PatientAge:             "043Y",
		tag.SeriesDate:             "20230101",
		tag.SeriesTime:             "153000",
		tag.SeriesDescription:      "T1 AX",
		tag.Modality:               "MR",
		tag.Manufacturer:           "ACME",
		tag.ManufacturerModelName:  "Scanner 3000",
		tag.InstitutionName:        "General",
		tag.ReferringPhysicianName: "WHO^DOCTOR",
		tag.RepetitionTime:         "500",
		tag.EchoTime:               "15",
		tag.PatientPosition:        "HFS",
	}
	for k, v := range overrides {
		vals[k] = v
	}
	return vals
}

// countingStore only implements the single value contract
type countingStore struct {
	mem     *tagstore.Memory
	queries int
}

func (c *countingStore) IsOpen() bool { return c.mem.IsOpen() }

func (c *countingStore) InstanceValue(uid string, t tag.Tag) (string, error) {
	c.queries++
	return c.mem.InstanceValue(uid, t)
}

type failingStore struct{}

func (failingStore) IsOpen() bool { return true }
func (failingStore) InstanceValue(string, tag.Tag) (string, error) {
	return "", errors.New("disk on fire")
}

func TestProvider_SupportedProperties(t *testing.T) {
	p := dicomprovider.New(tagstore.NewMemory(), false)
	props := p.SupportedProperties()
	assert.Len(t, props, 13)
	for _, name := range props {
		assert.True(t, p.CanProvideValueForPropertyName(name), name)
	}
	assert.False(t, p.CanProvideValueForPropertyName("seriesdate"))
	assert.False(t, p.CanProvideValueForPropertyName("Background"))
	assert.False(t, p.CanProvideValueForPropertyName(""))
	assert.False(t, p.CanProvideValueForPropertyName("PatientBirthDate"))
	assert.False(t, p.CanProvideValueForPropertyName("PatientPosition"))
	assert.False(t, p.CanProvideValueForPropertyName("ReferringPhysicianName"))
	assert.False(t, p.CanProvideValueForPropertyName("Modality"))
	assert.True(t, p.CanProvideValueForPropertyName("Patient-Position"))
	assert.True(t, p.CanProvideValueForPropertyName("ReferringPhysician"))

	props[0] = "mutated"
	assert.Equal(t, "PatientName", p.SupportedProperties()[0])
}

func TestProvider_SingleLayer(t *testing.T) {
	store := tagstore.NewMemory()
	store.PutAll("1.1", patient(nil))
	p := dicomprovider.New(store, false)

	tests := []struct {
		prop string
		want string
	}{
		{dicomprovider.SeriesDate, "2023-01-01"},
		{dicomprovider.SeriesTime, "3:30:00 PM"},
		{dicomprovider.Manufacturer, "ACME"},
		{dicomprovider.InstitutionName, "General"},
		{dicomprovider.ReferringPhysician, "WHO, DOCTOR"},
		{dicomprovider.SeriesDescription, "T1 AX"},
		{dicomprovider.Model, "Scanner 3000"},
		{dicomprovider.PatientName, "DOE, JOHN"},
		{dicomprovider.PatientID, "ID: 12345"},
		{dicomprovider.PatientBirthDate, "1980-01-01"},
		{dicomprovider.PatientInfo, "DOE, JOHN, 1980-01-01, 043Y M"},
		{"Patient-Position", "HFS"},
		{dicomprovider.TR, "TR: 500"},
		{dicomprovider.TE, "TE: 15"},
		{"Modality", ""},
		{"Unsupported", ""},
	}
	for _, tc := range tests {
		t.Run(tc.prop, func(t *testing.T) {
			for _, slice := range []*annotation.Slice{
				{Background: annotation.NewDICOMVolume("bg", "1.1")},
				{Foreground: annotation.NewDICOMVolume("fg", "1.1", "1.2")},
			} {
				got, err := p.GetValueForPropertyName(tc.prop, nil, slice)
				require.NoError(t, err)
				assert.Equal(t, tc.want, got)
			}
		})
	}
}

func TestProvider_DualLayerConflictPrefix(t *testing.T) {
	store := tagstore.NewMemory()
	store.PutAll("bg", patient(map[tag.Tag]string{tag.SeriesDate: "20230101"}))
	store.PutAll("fg", patient(map[tag.Tag]string{tag.SeriesDate: "20230102"}))
	p := dicomprovider.New(store, false)
	slice := &annotation.Slice{
		Background: annotation.NewDICOMVolume("bg", "bg"),
		Foreground: annotation.NewDICOMVolume("fg", "fg"),
	}

	v, err := p.GetValueForPropertyName("SeriesDate", annotation.Attributes{"layer": "background"}, slice)
	require.NoError(t, err)
	assert.Equal(t, "B: 2023-01-01", v)

	v, err = p.GetValueForPropertyName("SeriesDate", annotation.Attributes{"layer": "foreground"}, slice)
	require.NoError(t, err)
	assert.Equal(t, "F: 2023-01-02", v)

	v, err = p.GetValueForPropertyName("SeriesDate", annotation.Attributes{"layer": "1"}, slice)
	require.NoError(t, err)
	assert.Equal(t, "B: 2023-01-01", v)

	v, err = p.GetValueForPropertyName("SeriesDate", nil, slice)
	require.NoError(t, err)
	assert.Equal(t, "2023-01-01", v, "no indicator means no prefix")

	v, err = p.GetValueForPropertyName("SeriesDate", annotation.Attributes{"layer": "label"}, slice)
	require.NoError(t, err)
	assert.Equal(t, "2023-01-01", v)

	// fields outside the conflict set never get a prefix
	v, err = p.GetValueForPropertyName("Manufacturer", annotation.Attributes{"layer": "background"}, slice)
	require.NoError(t, err)
	assert.Equal(t, "ACME", v)
}

func TestProvider_DualLayerAgreeingFieldsHaveNoPrefix(t *testing.T) {
	store := tagstore.NewMemory()
	store.PutAll("bg", patient(nil))
	store.PutAll("fg", patient(map[tag.Tag]string{tag.SeriesDescription: "T2 AX"}))
	p := dicomprovider.New(store, false)
	slice := &annotation.Slice{
		Background: annotation.NewDICOMVolume("bg", "bg"),
		Foreground: annotation.NewDICOMVolume("fg", "fg"),
	}

	v, err := p.GetValueForPropertyName("SeriesTime", annotation.Attributes{"layer": "background"}, slice)
	require.NoError(t, err)
	assert.Equal(t, "3:30:00 PM", v)

	v, err = p.GetValueForPropertyName("SeriesDescription", annotation.Attributes{"layer": "0"}, slice)
	require.NoError(t, err)
	assert.Equal(t, "F: T2 AX", v)
}

func TestProvider_IdentityMismatch(t *testing.T) {
	for name, override := range map[string]map[tag.Tag]string{
		"name":       {tag.PatientName: "ROE^JANE"},
		"id":         {tag.PatientID: "99999"},
		"birth date": {tag.PatientBirthDate: "19900101"},
	} {
		t.Run(name, func(t *testing.T) {
			store := tagstore.NewMemory()
			store.PutAll("bg", patient(nil))
			store.PutAll("fg", patient(override))
			p := dicomprovider.New(store, true)
			slice := &annotation.Slice{
				Background: annotation.NewDICOMVolume("bg", "bg"),
				Foreground: annotation.NewDICOMVolume("fg", "fg"),
			}
			for _, prop := range p.SupportedProperties() {
				v, err := p.GetValueForPropertyName(prop, annotation.Attributes{"layer": "background"}, slice)
				require.NoError(t, err)
				assert.Equal(t, "", v, prop)
			}
		})
	}
}

func TestProvider_PersistBackground(t *testing.T) {
	store := tagstore.NewMemory()
	store.PutAll("bg", patient(nil))
	slice := &annotation.Slice{
		Background: annotation.NewDICOMVolume("bg", "bg"),
		Foreground: &annotation.Volume{Name: "not dicom"},
	}

	v, err := dicomprovider.New(store, false).GetValueForPropertyName("PatientName", nil, slice)
	require.NoError(t, err)
	assert.Equal(t, "", v)

	v, err = dicomprovider.New(store, true).GetValueForPropertyName("PatientName", nil, slice)
	require.NoError(t, err)
	assert.Equal(t, "DOE, JOHN", v)

	// a background without identifiers yields nothing either way
	slice.Background = &annotation.Volume{Name: "not dicom"}
	slice.Foreground = annotation.NewDICOMVolume("fg", "bg")
	v, err = dicomprovider.New(store, true).GetValueForPropertyName("PatientName", nil, slice)
	require.NoError(t, err)
	assert.Equal(t, "", v)
}

func TestProvider_NoPrimarySubject(t *testing.T) {
	p := dicomprovider.New(tagstore.NewMemory(), false)

	_, err := p.GetValueForPropertyName("SeriesDate", nil, &annotation.Slice{})
	require.ErrorIs(t, err, dicomprovider.ErrNoPrimarySubject)

	_, err = p.GetValueForPropertyName("SeriesDate", nil, &annotation.Slice{Label: annotation.NewDICOMVolume("l", "1")})
	require.ErrorIs(t, err, dicomprovider.ErrNoPrimarySubject)

	_, err = p.GetValueForPropertyName("SeriesDate", nil, nil)
	require.ErrorIs(t, err, dicomprovider.ErrNoPrimarySubject)
}

func TestProvider_StoreClosed(t *testing.T) {
	store := tagstore.NewMemory()
	store.PutAll("1.1", patient(nil))
	p := dicomprovider.New(store, false)
	slice := &annotation.Slice{Background: annotation.NewDICOMVolume("bg", "1.1")}

	v, err := p.GetValueForPropertyName("PatientName", nil, slice)
	require.NoError(t, err)
	assert.Equal(t, "DOE, JOHN", v)

	require.NoError(t, store.Close())
	v, err = p.GetValueForPropertyName("PatientName", nil, slice)
	require.NoError(t, err)
	assert.Equal(t, "", v)

	// closed wins over the missing subject
	v, err = p.GetValueForPropertyName("PatientName", nil, &annotation.Slice{})
	require.NoError(t, err)
	assert.Equal(t, "", v)

	v, err = (&dicomprovider.Provider{}).GetValueForPropertyName("PatientName", nil, slice)
	require.NoError(t, err)
	assert.Equal(t, "", v)
}

func TestProvider_UnknownInstanceIsEmpty(t *testing.T) {
	p := dicomprovider.New(tagstore.NewMemory(), false)
	v, err := p.GetValueForPropertyName("SeriesDate", nil, &annotation.Slice{Background: annotation.NewDICOMVolume("bg", "9.9")})
	require.NoError(t, err)
	assert.Equal(t, "", v)
}

func TestProvider_StoreError(t *testing.T) {
	p := dicomprovider.New(failingStore{}, false)
	_, err := p.GetValueForPropertyName("SeriesDate", nil, &annotation.Slice{Background: annotation.NewDICOMVolume("bg", "1")})
	require.Error(t, err)
	assert.Contains(t, err.Error(), "disk on fire")
}

func TestProvider_QueryCount(t *testing.T) {
	store := &countingStore{mem: tagstore.NewMemory()}
	store.mem.PutAll("bg", patient(nil))
	store.mem.PutAll("fg", patient(nil))
	p := dicomprovider.New(store, false)

	_, err := p.GetValueForPropertyName("SeriesDate", nil, &annotation.Slice{Background: annotation.NewDICOMVolume("bg", "bg")})
	require.NoError(t, err)
	assert.Equal(t, len(tag.Annotation), store.queries)

	store.queries = 0
	_, err = p.GetValueForPropertyName("SeriesDate", nil, &annotation.Slice{
		Background: annotation.NewDICOMVolume("bg", "bg"),
		Foreground: annotation.NewDICOMVolume("fg", "fg"),
	})
	require.NoError(t, err)
	assert.Equal(t, 2*len(tag.Annotation), store.queries)

	// values are re-read on every call
	store.mem.Put("bg", tag.SeriesDate, "20240229")
	v, err := p.GetValueForPropertyName("SeriesDate", nil, &annotation.Slice{Background: annotation.NewDICOMVolume("bg", "bg")})
	require.NoError(t, err)
	assert.Equal(t, "2024-02-29", v)
}

func TestProvider_ImplementsInterface(t *testing.T) {
	var _ annotation.Provider = (*dicomprovider.Provider)(nil)
	r := annotation.NewRegistry()
	require.True(t, r.Register(dicomprovider.Name, dicomprovider.New(tagstore.NewMemory(), false)))
	name, _, ok := r.Lookup("TR")
	require.True(t, ok)
	assert.Equal(t, dicomprovider.Name, name)
}
