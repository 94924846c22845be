// Package spreadsheet reads and writes the xlsx bulk-load format for phrases.
package spreadsheet

import (
	"errors"
	"fmt"
	"io"
	"strings"

	"phrasedesk/internal/library"

	"github.com/xuri/excelize/v2"
)

var (
	ErrEmptySheet     = errors.New("spreadsheet has no data rows")
	ErrMissingContent = errors.New(`spreadsheet needs a "content" column`)
)

// Row is one phrase as it appears in the sheet, before formatting
type Row struct {
	Company  string
	Reason   string
	Document string
	Content  string
}

// header names accepted per column, compared after normalisation
var columns = map[string][]string{
	"company":  {"company", "empresa"},
	"reason":   {"reason", "motivo"},
	"document": {"document", "documento", "document_type", "tipo"},
	"content":  {"content", "conteudo", "frase"},
}

var header = []interface{}{"empresa", "motivo", "documento", "conteudo"}

// Read parses the first sheet. The first row is the header.
func Read(r io.Reader) ([]Row, error) {
	f, err := excelize.OpenReader(r)
	if err != nil {
		return nil, fmt.Errorf("open spreadsheet: %w", err)
	}
	defer f.Close()

	sheets := f.GetSheetList()
	if len(sheets) == 0 {
		return nil, ErrEmptySheet
	}
	rows, err := f.GetRows(sheets[0])
	if err != nil {
		return nil, fmt.Errorf("read rows: %w", err)
	}
	if len(rows) < 2 {
		return nil, ErrEmptySheet
	}

	idx := indexHeader(rows[0])
	if _, ok := idx["content"]; !ok {
		return nil, ErrMissingContent
	}

	out := make([]Row, 0, len(rows)-1)
	for _, cells := range rows[1:] {
		get := func(col string) string {
			i, ok := idx[col]
			if !ok || i >= len(cells) {
				return ""
			}
			return strings.TrimSpace(cells[i])
		}
		row := Row{Company: get("company"), Reason: get("reason"), Document: get("document"), Content: get("content")}
		if row == (Row{}) {
			continue
		}
		out = append(out, row)
	}
	if len(out) == 0 {
		return nil, ErrEmptySheet
	}
	return out, nil
}

func indexHeader(cells []string) map[string]int {
	idx := make(map[string]int)
	for i, cell := range cells {
		name := library.Normalize(strings.TrimSpace(cell))
		for col, aliases := range columns {
			if _, taken := idx[col]; taken {
				continue
			}
			for _, a := range aliases {
				if name == a {
					idx[col] = i
				}
			}
		}
	}
	return idx
}

// Write renders rows to a single-sheet workbook
func Write(w io.Writer, sheet string, rows []Row) error {
	f := excelize.NewFile()
	defer f.Close()

	if err := f.SetSheetName("Sheet1", sheet); err != nil {
		return err
	}
	if err := f.SetSheetRow(sheet, "A1", &header); err != nil {
		return err
	}
	for i, r := range rows {
		cell, err := excelize.CoordinatesToCellName(1, i+2)
		if err != nil {
			return err
		}
		values := []interface{}{r.Company, r.Reason, r.Document, r.Content}
		if err := f.SetSheetRow(sheet, cell, &values); err != nil {
			return err
		}
	}
	return f.Write(w)
}

// Template writes the two-row sample sheet offered for download
func Template(w io.Writer) error {
	return Write(w, "Modelo", []Row{
		{Company: "Exemplo LTDA", Reason: "Agradecimento", Document: "Email", Content: "Olá, agradecemos o seu contato..."},
		{Company: "Teste SA", Reason: "Cobrança", Document: "WhatsApp", Content: "Prezado, consta em aberto..."},
	})
}
