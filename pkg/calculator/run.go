package calculator

import (
	"context"
	"errors"
	"fmt"
	"io"
	"log"
	"os"
	"time"

	"rfm-segments/pkg/models"

	"github.com/google/uuid"
	"github.com/schollz/progressbar/v3"
)

// Source fournit la table brute (fichier, base de données).
type Source interface {
	Name() string
	Load(ctx context.Context) (models.Table, error)
}

// Run enchaîne chargement → préparation → calcul RFM → vues, et retourne le rapport complet.
// Sur EmptyInputError, le rapport (tables vides) est retourné avec l'erreur.
func Run(ctx context.Context, src Source, cfg models.Config) (*models.Report, error) {
	bar := newBar(cfg, 3)
	defer func() { _ = bar.Finish() }()

	// Chargement
	bar.Describe("load")
	table, err := src.Load(ctx)
	if err != nil {
		return nil, fmt.Errorf("load %s: %w", src.Name(), err)
	}
	_ = bar.Add(1)
	if cfg.Verbose {
		log.Printf("[INFO] %s -> colonnes=%d lignes=%d", src.Name(), len(table.Header), len(table.Rows))
	}
	if err := ctx.Err(); err != nil {
		return nil, err
	}

	// Préparation + calcul
	bar.Describe("score")
	res, stats, err := ComputeRFM(table, cfg.Schema, cfg.Scoring)
	_ = bar.Add(1)
	if cfg.Verbose {
		log.Printf("[INFO] prepare -> gardées=%d sans_client=%d dates_invalides=%d montants_invalides=%d",
			stats.RowsKept, stats.DroppedNoCustID, stats.DroppedBadDate, stats.BadAmounts)
		for _, e := range stats.DateErrors {
			log.Printf("[DEBUG] %v", e)
		}
		if stats.RowCountMode {
			log.Printf("[DEBUG] pas de colonne de commande: Frequency = nombre de lignes")
		}
	}

	report := &models.Report{
		RunID:       uuid.NewString(),
		GeneratedAt: time.Now().UTC(),
		Buckets:     cfg.Scoring.Buckets,
		Rules:       cfg.Scoring.Rules,
		Stats:       stats,
	}
	if err != nil {
		if errors.Is(err, models.ErrEmptyInput) {
			report.Customers = []models.CustomerRFM{}
			report.Filtered = []models.CustomerRFM{}
			return report, err
		}
		return nil, fmt.Errorf("compute: %w", err)
	}
	for _, m := range res.Degenerate {
		log.Printf("[DEBUG] découpage quantile dégénéré pour %s, seaux fusionnés", m)
	}

	// Vues
	bar.Describe("views")
	report.Snapshot = res.Snapshot
	report.Degenerate = res.Degenerate
	report.Customers = res.Customers
	report.Filtered = Filter{Segments: cfg.View.Segments, Regions: cfg.View.Regions}.Apply(res.Customers)
	report.KPIs = ComputeKPIs(report.Filtered)
	report.SegmentCounts = SegmentCounts(report.Filtered)
	report.SegmentRevenue = SegmentRevenue(res.Customers)
	report.MonthlyRevenue = MonthlyRevenue(res.Transactions)
	report.TopCustomers = TopCustomers(report.Filtered, cfg.View.TopN)
	report.Insights = ComputeInsights(res.Customers, cfg.View.TopN)
	_ = bar.Add(1)

	if cfg.Verbose {
		log.Printf("[INFO] snapshot=%s clients=%d filtrés=%d CA=%.2f",
			res.Snapshot.Format("2006-01-02"), len(report.Customers), len(report.Filtered), report.KPIs.TotalRevenue)
	}
	return report, nil
}

func newBar(cfg models.Config, steps int) *progressbar.ProgressBar {
	var w io.Writer = io.Discard
	if cfg.Progress {
		w = os.Stderr
	}
	return progressbar.NewOptions(steps,
		progressbar.OptionSetWriter(w),
		progressbar.OptionSetDescription("rfm"),
		progressbar.OptionShowCount(),
		progressbar.OptionClearOnFinish(),
	)
}

// formatMonth → "YYYY-MM"
func formatMonth(t time.Time) string {
	return fmt.Sprintf("%04d-%02d", t.Year(), int(t.Month()))
}
