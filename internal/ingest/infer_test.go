package ingest

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestInferType(t *testing.T) {
	tests := []struct {
		name  string
		cells []string
		want  ColumnType
	}{
		{"integers", []string{"1", "-2", "+30"}, ColumnInteger},
		{"integers with missing", []string{"1", "", "NA", "3"}, ColumnInteger},
		{"floats", []string{"1.5", "2", "3e2"}, ColumnFloat},
		{"leading dot", []string{".5"}, ColumnFloat},
		{"booleans", []string{"true", "FALSE", "True"}, ColumnBoolean},
		{"mixed number and text", []string{"1", "abc"}, ColumnText},
		{"comma decimal stays text", []string{"1,5"}, ColumnText},
		{"all missing", []string{"", "N/A", "null"}, ColumnText},
		{"no cells", nil, ColumnText},
		{"padded integer", []string{" 42 "}, ColumnInteger},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, InferType(tt.cells))
		})
	}
}

func TestIsMissing(t *testing.T) {
	for _, s := range []string{
		"", "  ", "NA", "N/A", "n/a", "<NA>", "#N/A", "#NA", "NaN", "nan", "-nan",
		"-1.#IND", "null", "NULL", "None",
	} {
		assert.True(t, IsMissing(s), "%q should be missing", s)
	}
	for _, s := range []string{"0", "none", "-", "na", " NA ", "Null"} {
		assert.False(t, IsMissing(s), "%q should not be missing", s)
	}
}

func TestInferType_PaddedTokenIsText(t *testing.T) {
	assert.Equal(t, ColumnText, InferType([]string{"1", " NA ", "3"}))
	assert.Equal(t, ColumnInteger, InferType([]string{"1", "None", "<NA>", "3"}))
}

func TestInferColumn_TextKeepsOriginal(t *testing.T) {
	c := inferColumn("nome", []string{" Ana ", "", "Bruno"})

	assert.Equal(t, ColumnText, c.Type)
	assert.Equal(t, " Ana ", c.Values[0].Text)
	assert.True(t, c.Values[1].Null)
	assert.Equal(t, "", c.Format(1))
}
