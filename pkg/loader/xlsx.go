package loader

import (
	"fmt"
	"io"
	"strings"

	"github.com/xuri/excelize/v2"

	"rfm-segments/pkg/models"
)

// ReadXLSX lit une feuille de classeur en Table (première feuille si sheet est vide).
// Les valeurs sont celles affichées par Excel, dates comprises.
func ReadXLSX(r io.Reader, sheet string) (models.Table, error) {
	f, err := excelize.OpenReader(r)
	if err != nil {
		return models.Table{}, fmt.Errorf("open xlsx: %w", err)
	}
	defer f.Close()

	if sheet == "" {
		sheets := f.GetSheetList()
		if len(sheets) == 0 {
			return models.Table{}, fmt.Errorf("xlsx: aucune feuille")
		}
		sheet = sheets[0]
	}
	rows, err := f.GetRows(sheet)
	if err != nil {
		return models.Table{}, fmt.Errorf("xlsx %s: %w", sheet, err)
	}
	if len(rows) == 0 {
		return models.Table{}, fmt.Errorf("xlsx %s: en-tête absent", sheet)
	}

	header := make([]string, len(rows[0]))
	for i, h := range rows[0] {
		header[i] = strings.TrimSpace(h)
	}
	t := models.Table{Header: header}
	for _, row := range rows[1:] {
		if isBlank(row) {
			continue
		}
		t.Rows = append(t.Rows, fitRow(row, len(header)))
	}
	return t, nil
}

func isBlank(row []string) bool {
	for _, v := range row {
		if strings.TrimSpace(v) != "" {
			return false
		}
	}
	return true
}
