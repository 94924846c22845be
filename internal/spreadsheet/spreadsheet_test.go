package spreadsheet

import (
	"bytes"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/xuri/excelize/v2"
)

func workbook(t *testing.T, rows [][]interface{}) *bytes.Buffer {
	t.Helper()
	f := excelize.NewFile()
	defer f.Close()
	for i, r := range rows {
		cell, err := excelize.CoordinatesToCellName(1, i+1)
		require.NoError(t, err)
		r := r
		require.NoError(t, f.SetSheetRow("Sheet1", cell, &r))
	}
	var buf bytes.Buffer
	require.NoError(t, f.Write(&buf))
	return &buf
}

func TestRead_HeadersAreCaseInsensitive(t *testing.T) {
	buf := workbook(t, [][]interface{}{
		{"EMPRESA", "Motivo", "Conteúdo"},
		{"Gupy", "Cadastro", "Olá"},
		{"", "", ""},
		{"Acme", "", "Tudo certo"},
	})

	rows, err := Read(buf)
	require.NoError(t, err)
	require.Len(t, rows, 2)
	assert.Equal(t, Row{Company: "Gupy", Reason: "Cadastro", Content: "Olá"}, rows[0])
	assert.Equal(t, "Acme", rows[1].Company)
}

func TestRead_Errors(t *testing.T) {
	_, err := Read(workbook(t, [][]interface{}{{"empresa", "motivo"}, {"a", "b"}}))
	assert.ErrorIs(t, err, ErrMissingContent)

	_, err = Read(workbook(t, [][]interface{}{{"conteudo"}}))
	assert.ErrorIs(t, err, ErrEmptySheet)

	_, err = Read(bytes.NewBufferString("not a workbook"))
	assert.Error(t, err)
}

func TestWriteAndTemplate_RoundTrip(t *testing.T) {
	var buf bytes.Buffer
	require.NoError(t, Write(&buf, "Frases", []Row{{Company: "Gupy", Reason: "Cadastro", Document: "RG", Content: "Olá"}}))

	rows, err := Read(&buf)
	require.NoError(t, err)
	require.Len(t, rows, 1)
	assert.Equal(t, Row{Company: "Gupy", Reason: "Cadastro", Document: "RG", Content: "Olá"}, rows[0])

	buf.Reset()
	require.NoError(t, Template(&buf))
	rows, err = Read(&buf)
	require.NoError(t, err)
	assert.Len(t, rows, 2)
}
