package ingest

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestClassify(t *testing.T) {
	tests := []struct {
		name string
		want ContainerKind
	}{
		{"notas.zip", KindArchive},
		{"NOTAS.ZIP", KindArchive},
		{"sales.csv", KindFlatTable},
		{"Sales.CSV", KindFlatTable},
		{"report.xlsx", KindWorkbook},
		{"legacy.xls", KindWorkbook},
		{"invoice.pdf", KindDocument},
		{"readme.txt", KindUnknown},
		{"csv", KindUnknown},
		{"", KindUnknown},
		{"archive.zip.bak", KindUnknown},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, Classify(tt.name))
		})
	}
}

func TestPartition(t *testing.T) {
	files := []File{
		{Name: "a.csv"},
		{Name: "b.pdf"},
		{Name: "c.csv"},
		{Name: "d.txt"},
	}

	groups := Partition(files)

	assert.Len(t, groups[KindFlatTable], 2)
	assert.Equal(t, "a.csv", groups[KindFlatTable][0].Name)
	assert.Equal(t, "c.csv", groups[KindFlatTable][1].Name)
	assert.Len(t, groups[KindDocument], 1)
	assert.Len(t, groups[KindUnknown], 1)
	assert.Empty(t, groups[KindArchive])

	total := 0
	for _, g := range groups {
		total += len(g)
	}
	assert.Equal(t, len(files), total, "every file lands in exactly one group")
}

func TestSelect(t *testing.T) {
	tests := []struct {
		name     string
		files    []string
		wantName string
		wantKind ContainerKind
		wantOK   bool
	}{
		{"archive beats csv", []string{"a.csv", "b.zip"}, "b.zip", KindArchive, true},
		{"csv beats workbook", []string{"a.xlsx", "b.csv"}, "b.csv", KindFlatTable, true},
		{"workbook beats document", []string{"a.pdf", "b.xlsx"}, "b.xlsx", KindWorkbook, true},
		{"first of group wins", []string{"x.csv", "y.csv"}, "x.csv", KindFlatTable, true},
		{"document only", []string{"a.pdf"}, "a.pdf", KindDocument, true},
		{"unknown only", []string{"a.txt", "b.doc"}, "", KindUnknown, false},
		{"empty batch", nil, "", KindUnknown, false},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			files := make([]File, len(tt.files))
			for i, n := range tt.files {
				files[i] = File{Name: n}
			}
			f, kind, ok := Select(files)
			assert.Equal(t, tt.wantOK, ok)
			assert.Equal(t, tt.wantKind, kind)
			assert.Equal(t, tt.wantName, f.Name)
		})
	}
}
