package ingest

import (
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestDecodeText(t *testing.T) {
	tests := []struct {
		name    string
		input   []byte
		want    string
		wantEnc Encoding
	}{
		{"ascii", []byte("a,b\n1,2\n"), "a,b\n1,2\n", EncodingUTF8},
		{"utf-8 accents", []byte("cidade\nSão Paulo\n"), "cidade\nSão Paulo\n", EncodingUTF8},
		{"utf-8 with BOM", append([]byte{0xEF, 0xBB, 0xBF}, "x\n"...), "x\n", EncodingUTF8},
		{"latin-1 fallback", latin1("cidade\nSão Paulo\n"), "cidade\nSão Paulo\n", EncodingLatin1},
		{"latin-1 high bytes", []byte{'a', 0xE9, 0xFF}, "aéÿ", EncodingLatin1},
		{"empty", []byte{}, "", EncodingUTF8},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got, enc, err := DecodeText(tt.input)
			require.NoError(t, err)
			assert.Equal(t, tt.want, got)
			assert.Equal(t, tt.wantEnc, enc)
		})
	}
}

func TestDecodeCSV_RowCountAndHeader(t *testing.T) {
	text := "id,cliente,valor\n1,Ana,10.5\n2,Bruno,20\n3,Carla,\n"

	tbl, enc, err := DecodeCSV([]byte(text))
	require.NoError(t, err)
	assert.Equal(t, EncodingUTF8, enc)

	lines := strings.Count(text, "\n")
	assert.Equal(t, lines-1, tbl.NumRows())
	assert.Equal(t, []string{"id", "cliente", "valor"}, tbl.ColumnNames())

	id, _ := tbl.Column("id")
	assert.Equal(t, ColumnInteger, id.Type)
	valor, _ := tbl.Column("valor")
	assert.Equal(t, ColumnFloat, valor.Type)
	assert.True(t, valor.Values[2].Null)
}

func TestDecodeCSV_Latin1Header(t *testing.T) {
	tbl, enc, err := DecodeCSV(latin1("município,valor\nSão Paulo,1\n"))
	require.NoError(t, err)
	assert.Equal(t, EncodingLatin1, enc)
	assert.Equal(t, []string{"município", "valor"}, tbl.ColumnNames())
	assert.Equal(t, "São Paulo", tbl.Cell(0, 0).Text)
}

func TestDecodeCSV_RaggedRows(t *testing.T) {
	tbl, _, err := DecodeCSV([]byte("a,b,c\n1,2\n3,4,5,6\n"))
	require.NoError(t, err)
	require.Equal(t, 2, tbl.NumRows())
	assert.Equal(t, []string{"1", "2", ""}, tbl.Row(0))
	assert.Equal(t, []string{"3", "4", "5"}, tbl.Row(1))
}

func TestDecodeCSV_DuplicateAndBlankHeaders(t *testing.T) {
	tbl, _, err := DecodeCSV([]byte("valor,,valor\n1,2,3\n"))
	require.NoError(t, err)
	assert.Equal(t, []string{"valor", "Unnamed: 1", "valor"}, tbl.ColumnNames())
}

func TestDecodeCSV_HeaderOnly(t *testing.T) {
	tbl, _, err := DecodeCSV([]byte("a,b\n"))
	require.NoError(t, err)
	assert.Equal(t, 0, tbl.NumRows())
	assert.Equal(t, 2, tbl.NumColumns())
}

func TestDecodeCSV_Errors(t *testing.T) {
	_, _, err := DecodeCSV(nil)
	assert.ErrorIs(t, err, ErrEmptyFile)

	_, _, err = DecodeCSV([]byte("a,b\n\"unclosed,1\n"))
	assert.ErrorIs(t, err, ErrInvalidCSV)
}

func TestDecodeCSV_BareQuotes(t *testing.T) {
	tbl, _, err := DecodeCSV([]byte("prod,size\ntubo 5\" pol,3\n\"cano\",4\n"))
	require.NoError(t, err)

	assert.Equal(t, 2, tbl.NumRows())
	prod, _ := tbl.Column("prod")
	assert.Equal(t, `tubo 5" pol`, prod.Format(0))
	assert.Equal(t, "cano", prod.Format(1), "quoted fields are still unquoted")
	size, _ := tbl.Column("size")
	assert.Equal(t, ColumnInteger, size.Type)
}

func TestDecodeCSV_Idempotent(t *testing.T) {
	data := []byte("cliente,valor_total,ativo\nAna,100.5,true\nBruno,200,false\n")

	first, _, err := DecodeCSV(data)
	require.NoError(t, err)
	second, _, err := DecodeCSV(data)
	require.NoError(t, err)
	assert.True(t, first.Equal(second))
}
