package cornertext_test

import (
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/jpfielding/cornertext.go/pkg/annotation"
	"github.com/jpfielding/cornertext.go/pkg/annotation/dicomprovider"
	"github.com/jpfielding/cornertext.go/pkg/annotation/volumeprovider"
	"github.com/jpfielding/cornertext.go/pkg/cornertext"
	"github.com/jpfielding/cornertext.go/pkg/dicom/tag"
	"github.com/jpfielding/cornertext.go/pkg/tagstore"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

const layoutXML = `<annotations fontFamily="Courier" fontSize="12">
  <corner position="top-left">
    <property name="PatientName" prefix="Name: " />
    <property name="PatientID" />
    <property name="PatientInfo" display-level="least" />
  </corner>
  <corner position="bottom-right" fontSize="10">
    <property name="SeriesDate" layer="background" />
  </corner>
  <edge position="bottom">
    <property name="Background" prefix="B: " />
  </edge>
</annotations>`

func registry(t *testing.T) (*annotation.Registry, *annotation.Slice) {
	t.Helper()
	store := tagstore.NewMemory()
	store.PutAll("1.1", map[tag.Tag]string{
		tag.PatientName:      "DOE^JOHN",
		tag.PatientID:        "12345",
		tag.PatientBirthDate: "19800101",
		tag.SeriesDate:       "20230101",
	})
	r := annotation.NewRegistry()
	require.True(t, r.Register(dicomprovider.Name, dicomprovider.New(store, false)))
	require.True(t, r.Register(volumeprovider.Name, volumeprovider.New()))
	bg := annotation.NewDICOMVolume("MRHead", "1.1")
	return r, &annotation.Slice{Background: bg}
}

func TestParseXML(t *testing.T) {
	l, err := cornertext.ParseXML(strings.NewReader(layoutXML))
	require.NoError(t, err)
	assert.Equal(t, "Courier", l.FontFamily)
	assert.Equal(t, 12, l.FontSize)
	require.Len(t, l.Sections, 3)

	assert.Equal(t, cornertext.TopLeft, l.Sections[0].Position)
	assert.Equal(t, 12, l.Sections[0].FontSize)
	require.Len(t, l.Sections[0].Properties, 3)
	assert.Equal(t, "Name: ", l.Sections[0].Properties[0].Prefix)
	assert.Equal(t, "", l.Sections[0].Properties[1].Prefix)
	assert.Equal(t, "least", l.Sections[0].Properties[2].Attributes["display-level"])

	assert.Equal(t, 10, l.Sections[1].FontSize)
	assert.Equal(t, "Courier", l.Sections[1].FontFamily)
	assert.Equal(t, "edge", l.Sections[2].Element)
	assert.Equal(t, cornertext.Bottom, l.Sections[2].Position)
}

func TestParseXML_Defaults(t *testing.T) {
	l, err := cornertext.ParseXML(strings.NewReader(`<annotations><corner position="top"><property name="X"/></corner></annotations>`))
	require.NoError(t, err)
	assert.Equal(t, cornertext.DefaultFontFamily, l.FontFamily)
	assert.Equal(t, cornertext.DefaultFontSize, l.FontSize)
}

func TestParseXML_Invalid(t *testing.T) {
	tests := map[string]string{
		"empty":          ``,
		"wrong root":     `<layout><corner position="top"><property name="X"/></corner></layout>`,
		"no sections":    `<annotations fontSize="10"></annotations>`,
		"bad element":    `<annotations><box position="top"><property name="X"/></box></annotations>`,
		"no position":    `<annotations><corner><property name="X"/></corner></annotations>`,
		"bad position":   `<annotations><corner position="middle"><property name="X"/></corner></annotations>`,
		"no properties":  `<annotations><corner position="top"></corner></annotations>`,
		"bad child":      `<annotations><corner position="top"><text name="X"/></corner></annotations>`,
		"bad font size":  `<annotations fontSize="big"><corner position="top"><property name="X"/></corner></annotations>`,
		"malformed xml":  `<annotations><corner position="top">`,
		"zero font size": `<annotations><corner position="top" fontSize="0"><property name="X"/></corner></annotations>`,
	}
	for name, doc := range tests {
		t.Run(name, func(t *testing.T) {
			_, err := cornertext.ParseXML(strings.NewReader(doc))
			require.ErrorIs(t, err, cornertext.ErrInvalidLayout)
		})
	}
}

func TestParseYAML(t *testing.T) {
	doc := `
fontFamily: Courier
fontSize: "11"
sections:
  - position: top-right
    properties:
      - name: SeriesDate
        layer: background
        prefix: "Date: "
  - element: edge
    position: left
    properties:
      - name: Background
`
	l, err := cornertext.ParseYAML(strings.NewReader(doc))
	require.NoError(t, err)
	assert.Equal(t, "Courier", l.FontFamily)
	assert.Equal(t, 11, l.FontSize)
	require.Len(t, l.Sections, 2)
	assert.Equal(t, "corner", l.Sections[0].Element)
	assert.Equal(t, cornertext.TopRight, l.Sections[0].Position)
	assert.Equal(t, "Date: ", l.Sections[0].Properties[0].Prefix)
	assert.Equal(t, "background", l.Sections[0].Properties[0].Attributes["layer"])
	assert.Equal(t, cornertext.Left, l.Sections[1].Position)

	_, err = cornertext.ParseYAML(strings.NewReader("sections: []\n"))
	require.ErrorIs(t, err, cornertext.ErrInvalidLayout)
}

func TestLoad(t *testing.T) {
	dir := t.TempDir()
	xmlPath := filepath.Join(dir, "layout.xml")
	require.NoError(t, os.WriteFile(xmlPath, []byte(layoutXML), 0o644))
	l, err := cornertext.Load(xmlPath)
	require.NoError(t, err)
	assert.Len(t, l.Sections, 3)

	yamlPath := filepath.Join(dir, "layout.yml")
	require.NoError(t, os.WriteFile(yamlPath, []byte("sections:\n  - position: top\n    properties:\n      - name: Background\n"), 0o644))
	l, err = cornertext.Load(yamlPath)
	require.NoError(t, err)
	assert.Equal(t, cornertext.Top, l.Sections[0].Position)

	_, err = cornertext.Load(filepath.Join(dir, "missing.xml"))
	require.Error(t, err)
}

func TestDefault(t *testing.T) {
	l := cornertext.Default()
	assert.NotEmpty(t, l.Sections)
}

func TestPosition(t *testing.T) {
	for i := 0; i < cornertext.NumPositions; i++ {
		p, ok := cornertext.ParsePosition(cornertext.Position(i).String())
		require.True(t, ok)
		assert.Equal(t, cornertext.Position(i), p)
	}
	_, ok := cornertext.ParsePosition("Top")
	assert.False(t, ok)
}

func TestGenerate(t *testing.T) {
	l, err := cornertext.ParseXML(strings.NewReader(layoutXML))
	require.NoError(t, err)
	r, slice := registry(t)

	out := cornertext.Generate(l, r, slice, annotation.DisplayLeast)
	assert.Equal(t, "Name: DOE, JOHN\nID: 12345\nDOE, JOHN, 1980-01-01\n", out[cornertext.TopLeft].Text)
	assert.Equal(t, "Courier", out[cornertext.TopLeft].FontFamily)
	assert.Equal(t, "2023-01-01\n", out[cornertext.BottomRight].Text)
	assert.Equal(t, 10, out[cornertext.BottomRight].FontSize)
	assert.Equal(t, "B: MRHead\n", out[cornertext.Bottom].Text)
	assert.Equal(t, cornertext.Annotation{}, out[cornertext.TopRight])

	out = cornertext.Generate(l, r, slice, annotation.DisplayAlways)
	assert.Equal(t, "Name: DOE, JOHN\nID: 12345\n", out[cornertext.TopLeft].Text, "least is hidden at always")
}

func TestGenerate_EmptyValues(t *testing.T) {
	doc := `<annotations>
  <corner position="top-left">
    <property prefix="P: " />
    <property name="NoSuchThing" prefix="N: " />
    <property name="SeriesDate" />
  </corner>
</annotations>`
	l, err := cornertext.ParseXML(strings.NewReader(doc))
	require.NoError(t, err)
	r, _ := registry(t)

	out := cornertext.Generate(l, r, &annotation.Slice{}, annotation.DisplayLeast)
	assert.Equal(t, "P: \nN: \n\n", out[cornertext.TopLeft].Text)

	assert.Equal(t, [cornertext.NumPositions]cornertext.Annotation{}, cornertext.Generate(nil, r, nil, annotation.DisplayLeast))
}

func TestRender(t *testing.T) {
	var anns [cornertext.NumPositions]cornertext.Annotation
	anns[cornertext.TopLeft].Text = "DOE, JOHN\n"
	anns[cornertext.BottomRight].Text = "2023-01-01\n"
	anns[cornertext.Left].Text = "L\n"

	out := cornertext.Render(anns, 60)
	assert.Contains(t, out, "DOE, JOHN")
	assert.Contains(t, out, "2023-01-01")
	lines := strings.Split(out, "\n")
	assert.GreaterOrEqual(t, len(lines), 5)
	assert.Less(t, strings.Index(out, "DOE, JOHN"), strings.Index(out, "2023-01-01"))
}
