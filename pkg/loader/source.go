package loader

import (
	"context"
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"rfm-segments/pkg/models"
)

// FileSource charge une Table depuis un fichier CSV ou XLSX.
type FileSource struct {
	Path      string
	Format    string // "csv" | "xlsx" | "" (extension)
	Delimiter string
	Encoding  string
	Sheet     string
}

// NewFileSource construit une FileSource depuis la configuration d'entrée.
func NewFileSource(in models.InputConfig) FileSource {
	return FileSource{
		Path:      in.Path,
		Format:    in.Format,
		Delimiter: in.Delimiter,
		Encoding:  in.Encoding,
		Sheet:     in.Sheet,
	}
}

// Name identifie la source dans les logs.
func (s FileSource) Name() string { return s.Path }

// Load lit le fichier en entier.
func (s FileSource) Load(ctx context.Context) (models.Table, error) {
	if err := ctx.Err(); err != nil {
		return models.Table{}, err
	}
	f, err := os.Open(s.Path)
	if err != nil {
		return models.Table{}, err
	}
	defer f.Close()

	switch s.format() {
	case "xlsx":
		return ReadXLSX(f, s.Sheet)
	case "csv":
		delim, err := Delimiter(s.Delimiter)
		if err != nil {
			return models.Table{}, err
		}
		return ReadCSV(f, CSVOptions{Delimiter: delim, Encoding: s.Encoding})
	default:
		return models.Table{}, fmt.Errorf("format inconnu: %q", s.Format)
	}
}

func (s FileSource) format() string {
	if s.Format != "" {
		return strings.ToLower(s.Format)
	}
	switch strings.ToLower(filepath.Ext(s.Path)) {
	case ".xlsx", ".xlsm":
		return "xlsx"
	default:
		return "csv"
	}
}
