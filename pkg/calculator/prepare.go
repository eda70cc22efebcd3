package calculator

import (
	"fmt"
	"math"
	"strconv"
	"strings"
	"time"

	"rfm-segments/pkg/models"
)

const maxDateErrorSamples = 5

// binding : rôles résolus en index de colonne (-1 = non utilisé).
type binding struct {
	preset    string
	customer  int
	timestamp int
	order     int
	amount    int
	quantity  int
	unitPrice int
	region    int
	name      int
}

// resolveColumns associe les rôles logiques aux colonnes de l'en-tête, une seule fois par table.
// Preset "auto" : premier preset (PresetOrder) dont toutes les colonnes requises existent.
func resolveColumns(header []string, sc models.SchemaConfig, mode string) (binding, error) {
	var candidates []string
	switch sc.Preset {
	case "", "auto":
		candidates = models.PresetOrder
	default:
		candidates = []string{sc.Preset}
	}

	var firstErr error
	for _, name := range candidates {
		base, ok := models.SchemaPresets[name]
		if !ok && name != "custom" {
			return binding{}, fmt.Errorf("preset inconnu: %q", name)
		}
		b, err := bind(header, name, base.Overlay(sc.Columns), mode)
		if err == nil {
			return b, nil
		}
		if firstErr == nil {
			firstErr = err
		}
	}
	return binding{}, firstErr
}

func bind(header []string, preset string, cm models.ColumnMap, mode string) (binding, error) {
	index := make(map[string]int, len(header))
	for i, h := range header {
		if _, dup := index[h]; !dup {
			index[h] = i
		}
	}
	lookup := func(col string) int {
		if col == "" {
			return -1
		}
		if i, ok := index[col]; ok {
			return i
		}
		return -1
	}

	b := binding{
		preset:    preset,
		customer:  lookup(cm.Customer),
		timestamp: lookup(cm.Timestamp),
		order:     -1,
		amount:    lookup(cm.Amount),
		quantity:  -1,
		unitPrice: -1,
		region:    lookup(cm.Region),
		name:      lookup(cm.Name),
	}

	var missing []string
	need := func(role, col string, idx int) {
		if idx < 0 {
			if col == "" {
				col = "(non configurée)"
			}
			missing = append(missing, fmt.Sprintf("%s=%q", role, col))
		}
	}
	need("customer", cm.Customer, b.customer)
	need("timestamp", cm.Timestamp, b.timestamp)

	// Sans colonne de commande configurée, la fréquence retombe sur le nombre de lignes.
	if mode == models.FrequencyDistinct && cm.Order != "" {
		b.order = lookup(cm.Order)
		need("order", cm.Order, b.order)
	}

	if b.amount < 0 {
		q, p := lookup(cm.Quantity), lookup(cm.UnitPrice)
		switch {
		case q >= 0 && p >= 0:
			b.quantity, b.unitPrice = q, p
		case cm.Amount != "":
			need("amount", cm.Amount, -1)
		default:
			need("quantity", cm.Quantity, q)
			need("unit_price", cm.UnitPrice, p)
		}
	}

	if len(missing) > 0 {
		return binding{}, &models.SchemaError{Schema: preset, Missing: missing}
	}
	return b, nil
}

// Prepare transforme une Table brute en transactions typées.
// Lignes sans client ou à date illisible : écartées (comptées dans les stats, jamais en erreur).
// Montant illisible : compté pour 0.
func Prepare(t models.Table, sc models.SchemaConfig, mode string) ([]models.Transaction, models.PrepareStats, error) {
	stats := models.PrepareStats{RowsRead: len(t.Rows)}

	b, err := resolveColumns(t.Header, sc, mode)
	if err != nil {
		return nil, stats, err
	}
	stats.AmountDerived = b.amount < 0
	stats.RowCountMode = b.order < 0

	layouts := sc.DateLayouts
	if len(layouts) == 0 {
		layouts = models.DefaultDateLayouts
	}

	txs := make([]models.Transaction, 0, len(t.Rows))
	for i, row := range t.Rows {
		cust := cleanText(cell(row, b.customer))
		if cust == "" {
			stats.DroppedNoCustID++
			continue
		}
		raw := strings.TrimSpace(cell(row, b.timestamp))
		ts, ok := parseTimestamp(raw, layouts)
		if !ok {
			stats.DroppedBadDate++
			if len(stats.DateErrors) < maxDateErrorSamples {
				stats.DateErrors = append(stats.DateErrors, models.DateParseError{Row: i, Value: raw})
			}
			continue
		}

		amount, ok := rowAmount(row, b)
		if !ok {
			stats.BadAmounts++
		}
		txs = append(txs, models.Transaction{
			CustomerID: cust,
			OrderDate:  ts,
			OrderID:    cleanText(cell(row, b.order)),
			Amount:     amount,
			Region:     cleanText(cell(row, b.region)),
			Name:       cleanText(cell(row, b.name)),
		})
	}
	stats.RowsKept = len(txs)
	return txs, stats, nil
}

// lineBreaks ramène \r\n et \r à \n, seule fin de ligne qu'encoding/csv restitue à la relecture.
var lineBreaks = strings.NewReplacer("\r\n", "\n", "\r", "\n")

// cleanText : espaces de bord retirés, fins de ligne normalisées (XLSX, bases de données).
func cleanText(s string) string {
	return strings.TrimSpace(lineBreaks.Replace(s))
}

func cell(row []string, idx int) string {
	if idx < 0 || idx >= len(row) {
		return ""
	}
	return row[idx]
}

func rowAmount(row []string, b binding) (float64, bool) {
	if b.amount >= 0 {
		return parseNumber(cell(row, b.amount))
	}
	q, okQ := parseNumber(cell(row, b.quantity))
	p, okP := parseNumber(cell(row, b.unitPrice))
	if !okQ || !okP {
		return 0, false
	}
	return q * p, true
}

func parseNumber(s string) (float64, bool) {
	f, err := strconv.ParseFloat(strings.TrimSpace(s), 64)
	if err != nil || math.IsNaN(f) || math.IsInf(f, 0) {
		return 0, false
	}
	return f, true
}

// parseTimestamp essaie chaque layout dans l'ordre ; résultat en UTC.
func parseTimestamp(s string, layouts []string) (time.Time, bool) {
	if s == "" {
		return time.Time{}, false
	}
	for _, layout := range layouts {
		if t, err := time.Parse(layout, s); err == nil {
			return t.UTC(), true
		}
	}
	return time.Time{}, false
}
