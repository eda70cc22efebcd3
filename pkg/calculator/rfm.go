package calculator

import (
	"errors"
	"fmt"
	"math"
	"sort"
	"strconv"
	"time"

	"rfm-segments/pkg/models"
)

// Noms des métriques (logs, Report.Degenerate).
const (
	MetricRecency   = "recency"
	MetricFrequency = "frequency"
	MetricMonetary  = "monetary"
)

// Result est la sortie du moteur RFM.
type Result struct {
	Customers    []models.CustomerRFM
	Snapshot     time.Time
	Degenerate   []string
	Transactions []models.Transaction // lignes retenues par Prepare (ComputeRFM)
}

type customerAgg struct {
	last   time.Time
	orders map[string]struct{}
	rows   int
	sum    float64
	region string
	name   string
}

// ComputeRFM : Prepare puis Compute sur une Table brute.
// Une SchemaError interrompt tout ; zéro ligne valide donne une table vide et une EmptyInputError.
func ComputeRFM(t models.Table, sc models.SchemaConfig, scoring models.ScoringConfig) (Result, models.PrepareStats, error) {
	txs, stats, err := Prepare(t, sc, scoring.FrequencyMode)
	if err != nil {
		return Result{}, stats, err
	}
	res, err := Compute(txs, scoring, stats.RowCountMode)
	res.Transactions = txs
	if err != nil {
		var empty *models.EmptyInputError
		if errors.As(err, &empty) {
			empty.RowsRead = stats.RowsRead
		}
		return res, stats, err
	}
	return res, stats, nil
}

// Compute agrège les transactions par client, note R/F/M par quantiles et attribue un segment.
// Fonction pure : txs n'est jamais modifié, le résultat est déterministe.
// countRows force Frequency = nombre de lignes (pas de colonne de commande).
func Compute(txs []models.Transaction, scoring models.ScoringConfig, countRows bool) (Result, error) {
	k := scoring.Buckets
	if k == 0 {
		k = 4
	}
	if k < 2 {
		return Result{}, fmt.Errorf("nombre de seaux invalide: %d", k)
	}
	table, err := RuleTableFor(scoring.Rules, k)
	if err != nil {
		return Result{}, err
	}
	if scoring.FrequencyMode == models.FrequencyRows {
		countRows = true
	}
	if len(txs) == 0 {
		return Result{Customers: []models.CustomerRFM{}}, &models.EmptyInputError{}
	}

	// 1) snapshot = date max + 1 jour
	maxDate := txs[0].OrderDate
	for _, tx := range txs[1:] {
		if tx.OrderDate.After(maxDate) {
			maxDate = tx.OrderDate
		}
	}
	snapshot := maxDate.Add(24 * time.Hour)

	// 2) agrégation par client
	aggs := make(map[string]*customerAgg)
	for i, tx := range txs {
		a, ok := aggs[tx.CustomerID]
		if !ok {
			a = &customerAgg{last: tx.OrderDate, orders: map[string]struct{}{}, region: tx.Region, name: tx.Name}
			aggs[tx.CustomerID] = a
		}
		if tx.OrderDate.After(a.last) {
			a.last = tx.OrderDate
		}
		a.rows++
		a.sum += tx.Amount
		// une commande sans identifiant compte pour elle-même
		key := tx.OrderID
		if key == "" {
			key = "\x00row" + strconv.Itoa(i)
		}
		a.orders[key] = struct{}{}
	}

	ids := make([]string, 0, len(aggs))
	for id := range aggs {
		ids = append(ids, id)
	}
	sort.Slice(ids, func(i, j int) bool { return lessID(ids[i], ids[j]) })

	customers := make([]models.CustomerRFM, len(ids))
	recency := make([]float64, len(ids))
	frequency := make([]float64, len(ids))
	monetary := make([]float64, len(ids))
	for i, id := range ids {
		a := aggs[id]
		c := models.CustomerRFM{
			CustomerID: id,
			Recency:    daysBetween(a.last, snapshot),
			Frequency:  len(a.orders),
			Monetary:   a.sum,
			Region:     a.region,
			Name:       a.name,
		}
		if countRows {
			c.Frequency = a.rows
		}
		customers[i] = c
		recency[i] = float64(c.Recency)
		frequency[i] = float64(c.Frequency)
		monetary[i] = c.Monetary
	}

	// 3) notes quantiles ; Frequency classée d'abord (égalités → ordre de la table)
	var degenerate []string
	rScores, deg := qcut(recency, descending(k))
	if deg {
		degenerate = append(degenerate, MetricRecency)
	}
	fScores, deg := qcut(rankFirst(frequency), ascending(k))
	if deg {
		degenerate = append(degenerate, MetricFrequency)
	}
	mScores, deg := qcut(monetary, ascending(k))
	if deg {
		degenerate = append(degenerate, MetricMonetary)
	}

	// 4) segment
	for i := range customers {
		customers[i].Scores = models.Scores{R: rScores[i], F: fScores[i], M: mScores[i]}
		customers[i].Segment = table.Classify(customers[i].Scores)
	}

	return Result{Customers: customers, Snapshot: snapshot, Degenerate: degenerate}, nil
}

// lessID : identifiants numériques d'abord (par valeur), puis ordre lexical.
func lessID(a, b string) bool {
	fa, okA := numericID(a)
	fb, okB := numericID(b)
	switch {
	case okA && okB:
		if fa != fb {
			return fa < fb
		}
		return a < b
	case okA:
		return true
	case okB:
		return false
	}
	return a < b
}

func numericID(s string) (float64, bool) {
	f, err := strconv.ParseFloat(s, 64)
	if err != nil || math.IsNaN(f) {
		return 0, false
	}
	return f, true
}

// daysBetween : jours entiers écoulés de from à to, calculés en secondes Unix
// (time.Duration sature au-delà de ~292 ans).
func daysBetween(from, to time.Time) int {
	secs := to.Unix() - from.Unix()
	if to.Nanosecond() < from.Nanosecond() {
		secs--
	}
	return int(secs / 86400)
}
