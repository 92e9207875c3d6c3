package tag_test

import (
	"encoding/json"
	"testing"

	"github.com/jpfielding/cornertext.go/pkg/dicom/tag"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestTag_Code(t *testing.T) {
	assert.Equal(t, "0008,103e", tag.SeriesDescription.Code())
	assert.Equal(t, "0018,5100", tag.PatientPosition.Code())
	assert.Equal(t, "(0008,103E)", tag.SeriesDescription.String())
}

func TestParseCode(t *testing.T) {
	tests := []struct {
		in   string
		want tag.Tag
	}{
		{"0008,0021", tag.SeriesDate},
		{"0008,103e", tag.SeriesDescription},
		{"0008,103E", tag.SeriesDescription},
		{"(0010,0010)", tag.PatientName},
		{" 0018,0081 ", tag.EchoTime},
	}
	for _, tc := range tests {
		got, err := tag.ParseCode(tc.in)
		require.NoError(t, err, tc.in)
		assert.Equal(t, tc.want, got, tc.in)
	}

	for _, bad := range []string{"", "0008", "0008,10", "zzzz,0010", "0008;0021"} {
		_, err := tag.ParseCode(bad)
		assert.Error(t, err, bad)
	}
}

func TestAnnotationTable(t *testing.T) {
	// the table is fixed: 16 codes, all distinct
	require.Len(t, tag.Annotation, 16)
	seen := map[tag.Tag]bool{}
	for _, tg := range tag.Annotation {
		assert.False(t, seen[tg], "duplicate %s", tg)
		seen[tg] = true
		assert.NotEmpty(t, tg.LookupName(), tg.String())
	}
	codes := []string{
		"0008,0021", "0008,0031", "0008,0060", "0008,0070",
		"0008,0080", "0008,0090", "0008,103e", "0008,1090",
		"0010,0010", "0010,0020", "0010,0030", "0010,0040",
		"0010,1010", "0018,5100", "0018,0080", "0018,0081",
	}
	for i, c := range codes {
		assert.Equal(t, c, tag.Annotation[i].Code())
	}
}

func TestTag_JSONMapKey(t *testing.T) {
	in := map[tag.Tag]string{tag.PatientID: "123"}
	raw, err := json.Marshal(in)
	require.NoError(t, err)
	assert.JSONEq(t, `{"0010,0020":"123"}`, string(raw))

	var out map[tag.Tag]string
	require.NoError(t, json.Unmarshal(raw, &out))
	assert.Equal(t, in, out)
}
