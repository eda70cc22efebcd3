package loader

import (
	"bufio"
	"bytes"
	"encoding/csv"
	"errors"
	"fmt"
	"io"
	"log"
	"strings"
	"unicode/utf8"

	"golang.org/x/text/encoding"
	"golang.org/x/text/encoding/charmap"

	"rfm-segments/pkg/models"
)

var utf8BOM = []byte{0xEF, 0xBB, 0xBF}

// CSVOptions : séparateur et encodage du texte délimité (identiques en lecture et en export).
type CSVOptions struct {
	Delimiter rune
	Encoding  string
}

// LookupEncoding résout un nom d'encodage. UTF-8 passe les octets tels quels.
func LookupEncoding(name string) (encoding.Encoding, error) {
	switch strings.ToLower(strings.TrimSpace(name)) {
	case "", "utf-8", "utf8":
		return encoding.Nop, nil
	case "iso-8859-1", "latin1", "latin-1":
		return charmap.ISO8859_1, nil
	case "windows-1252", "cp1252":
		return charmap.Windows1252, nil
	}
	return nil, fmt.Errorf("encodage inconnu: %q", name)
}

// Delimiter convertit le séparateur configuré ; "" → ','.
func Delimiter(s string) (rune, error) {
	if s == "" {
		return ',', nil
	}
	if utf8.RuneCountInString(s) != 1 {
		return 0, fmt.Errorf("séparateur invalide: %q", s)
	}
	r, _ := utf8.DecodeRuneInString(s)
	return r, nil
}

// ReadCSV lit un texte délimité en Table.
// Les noms de colonnes sont nettoyés (espaces), les lignes mal formées sont ignorées.
func ReadCSV(r io.Reader, opts CSVOptions) (models.Table, error) {
	enc, err := LookupEncoding(opts.Encoding)
	if err != nil {
		return models.Table{}, err
	}
	br := bufio.NewReader(enc.NewDecoder().Reader(r))
	if head, err := br.Peek(len(utf8BOM)); err == nil && bytes.Equal(head, utf8BOM) {
		_, _ = br.Discard(len(utf8BOM))
	}

	reader := csv.NewReader(br)
	if opts.Delimiter != 0 {
		reader.Comma = opts.Delimiter
	}
	reader.FieldsPerRecord = -1
	reader.LazyQuotes = true

	header, err := reader.Read()
	if err != nil {
		if err == io.EOF {
			return models.Table{}, errors.New("fichier vide: en-tête absent")
		}
		return models.Table{}, fmt.Errorf("lecture en-tête: %w", err)
	}
	for i := range header {
		header[i] = strings.TrimSpace(header[i])
	}

	t := models.Table{Header: header}
	skipped := 0
	for {
		row, err := reader.Read()
		if err == io.EOF {
			break
		}
		if err != nil {
			var pe *csv.ParseError
			if errors.As(err, &pe) {
				skipped++
				continue
			}
			return models.Table{}, fmt.Errorf("lecture csv: %w", err)
		}
		t.Rows = append(t.Rows, fitRow(row, len(header)))
	}
	if skipped > 0 {
		log.Printf("[DEBUG] csv: %d lignes mal formées ignorées", skipped)
	}
	return t, nil
}

// fitRow complète ou tronque une ligne à la largeur de l'en-tête.
func fitRow(row []string, width int) []string {
	if len(row) == width {
		return row
	}
	out := make([]string, width)
	copy(out, row)
	return out
}
