package export

import (
	"encoding/csv"
	"errors"
	"fmt"
	"io"
	"strconv"
	"strings"

	"rfm-segments/pkg/loader"
	"rfm-segments/pkg/models"
)

// Colonnes de la table client exportée.
const (
	ColCustomerID = "CustomerID"
	ColRecency    = "Recency"
	ColFrequency  = "Frequency"
	ColMonetary   = "Monetary"
	ColRScore     = "R_Score"
	ColFScore     = "F_Score"
	ColMScore     = "M_Score"
	ColRFMScore   = "RFM_Score"
	ColSegment    = "Segment"
	ColName       = "Customer Name"
	ColRegion     = "Region"
)

var requiredColumns = []string{ColCustomerID, ColRecency, ColFrequency, ColMonetary, ColRScore, ColFScore, ColMScore, ColSegment}

// WriteCustomers sérialise la table client avec le séparateur et l'encodage de l'entrée.
// Monetary est écrit sans perte ('f', précision minimale) : la relecture redonne la même valeur.
func WriteCustomers(w io.Writer, customers []models.CustomerRFM, opts loader.CSVOptions) error {
	enc, err := loader.LookupEncoding(opts.Encoding)
	if err != nil {
		return err
	}
	ew := enc.NewEncoder().Writer(w)
	cw := csv.NewWriter(ew)
	if opts.Delimiter != 0 {
		cw.Comma = opts.Delimiter
	}

	withName, withRegion := false, false
	for _, c := range customers {
		withName = withName || c.Name != ""
		withRegion = withRegion || c.Region != ""
	}
	header := []string{ColCustomerID, ColRecency, ColFrequency, ColMonetary, ColRScore, ColFScore, ColMScore, ColRFMScore, ColSegment}
	if withName {
		header = append(header, ColName)
	}
	if withRegion {
		header = append(header, ColRegion)
	}
	if err := cw.Write(header); err != nil {
		return err
	}

	for _, c := range customers {
		row := []string{
			c.CustomerID,
			strconv.Itoa(c.Recency),
			strconv.Itoa(c.Frequency),
			strconv.FormatFloat(c.Monetary, 'f', -1, 64),
			strconv.Itoa(c.Scores.R),
			strconv.Itoa(c.Scores.F),
			strconv.Itoa(c.Scores.M),
			c.Scores.Code(),
			c.Segment,
		}
		if withName {
			row = append(row, c.Name)
		}
		if withRegion {
			row = append(row, c.Region)
		}
		if err := cw.Write(row); err != nil {
			return fmt.Errorf("client %s: %w", c.CustomerID, err)
		}
	}
	cw.Flush()
	if err := cw.Error(); err != nil {
		return err
	}
	if closer, ok := ew.(io.Closer); ok {
		return closer.Close()
	}
	return nil
}

// ReadCustomers relit une table exportée par WriteCustomers (mêmes options).
func ReadCustomers(r io.Reader, opts loader.CSVOptions) ([]models.CustomerRFM, error) {
	t, err := loader.ReadCSV(r, opts)
	if err != nil {
		return nil, err
	}
	var missing []string
	for _, col := range requiredColumns {
		if t.Index(col) < 0 {
			missing = append(missing, col)
		}
	}
	if len(missing) > 0 {
		return nil, &models.SchemaError{Schema: "rfm-export", Missing: missing}
	}

	get := func(row []string, col string) string {
		if i := t.Index(col); i >= 0 && i < len(row) {
			return row[i]
		}
		return ""
	}
	out := make([]models.CustomerRFM, 0, len(t.Rows))
	for n, row := range t.Rows {
		var errs []error
		atoi := func(col string) int {
			v, err := strconv.Atoi(strings.TrimSpace(get(row, col)))
			if err != nil {
				errs = append(errs, fmt.Errorf("%s: %w", col, err))
			}
			return v
		}
		c := models.CustomerRFM{
			CustomerID: get(row, ColCustomerID),
			Recency:    atoi(ColRecency),
			Frequency:  atoi(ColFrequency),
			Scores:     models.Scores{R: atoi(ColRScore), F: atoi(ColFScore), M: atoi(ColMScore)},
			Segment:    get(row, ColSegment),
			Name:       get(row, ColName),
			Region:     get(row, ColRegion),
		}
		m, err := strconv.ParseFloat(strings.TrimSpace(get(row, ColMonetary)), 64)
		if err != nil {
			errs = append(errs, fmt.Errorf("%s: %w", ColMonetary, err))
		}
		c.Monetary = m
		if len(errs) > 0 {
			return nil, fmt.Errorf("ligne %d: %w", n+1, errors.Join(errs...))
		}
		out = append(out, c)
	}
	return out, nil
}
