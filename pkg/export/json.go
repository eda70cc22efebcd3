package export

import (
	"bytes"
	"encoding/json"
	"fmt"
	"log"
	"os"
	"path/filepath"
	"time"

	"rfm-segments/pkg/models"
)

type customerJSON struct {
	CustomerID string  `json:"customer_id"`
	Name       string  `json:"customer_name,omitempty"`
	Region     string  `json:"region,omitempty"`
	Recency    int     `json:"recency"`
	Frequency  int     `json:"frequency"`
	Monetary   float64 `json:"monetary"`
	RScore     int     `json:"r_score"`
	FScore     int     `json:"f_score"`
	MScore     int     `json:"m_score"`
	RFMScore   string  `json:"rfm_score"`
	RFMTotal   int     `json:"rfm_total"`
	Segment    string  `json:"segment"`
}

type segmentJSON struct {
	Segment string  `json:"segment"`
	Count   int     `json:"count"`
	Revenue float64 `json:"revenue"`
}

type monthJSON struct {
	Month   string  `json:"month"`
	Revenue float64 `json:"revenue"`
}

type reportJSON struct {
	RunID       string `json:"run_id"`
	ReportType  string `json:"report_type"`
	GeneratedAt string `json:"generated_at"`
	Snapshot    string `json:"snapshot_date"`
	Buckets     int    `json:"buckets"`
	Rules       string `json:"rules"`
	Stats       struct {
		RowsRead        int  `json:"rows_read"`
		RowsKept        int  `json:"rows_kept"`
		DroppedNoCustID int  `json:"dropped_no_customer"`
		DroppedBadDate  int  `json:"dropped_bad_date"`
		BadAmounts      int  `json:"bad_amounts"`
		AmountDerived   bool `json:"amount_derived"`
		RowCountMode    bool `json:"row_count_frequency"`
	} `json:"stats"`
	Degenerate []string `json:"degenerate_metrics,omitempty"`
	KPIs       struct {
		TotalCustomers int     `json:"total_customers"`
		AvgRecency     float64 `json:"avg_recency_days"`
		AvgFrequency   float64 `json:"avg_frequency"`
		TotalRevenue   float64 `json:"total_revenue"`
	} `json:"kpis"`
	Insights struct {
		ChampionsRevenueShare float64 `json:"champions_revenue_pct"`
		AtRiskCount           int     `json:"at_risk_customers"`
		TopN                  int     `json:"top_n"`
		TopNRevenueShare      float64 `json:"top_n_revenue_pct"`
	} `json:"insights"`
	SegmentCounts  []segmentJSON  `json:"segment_counts"`
	SegmentRevenue []segmentJSON  `json:"segment_revenue"`
	MonthlyRevenue []monthJSON    `json:"monthly_revenue"`
	TopCustomers   []customerJSON `json:"top_customers"`
	Customers      []customerJSON `json:"customers"`
}

// NewReportJSON convertit un rapport en charge utile JSON (table filtrée uniquement).
func NewReportJSON(r *models.Report) any {
	var out reportJSON
	out.RunID = r.RunID
	out.ReportType = "rfm"
	out.GeneratedAt = r.GeneratedAt.Format(time.RFC3339)
	if !r.Snapshot.IsZero() {
		out.Snapshot = r.Snapshot.Format("2006-01-02")
	}
	out.Buckets = r.Buckets
	out.Rules = r.Rules
	out.Stats.RowsRead = r.Stats.RowsRead
	out.Stats.RowsKept = r.Stats.RowsKept
	out.Stats.DroppedNoCustID = r.Stats.DroppedNoCustID
	out.Stats.DroppedBadDate = r.Stats.DroppedBadDate
	out.Stats.BadAmounts = r.Stats.BadAmounts
	out.Stats.AmountDerived = r.Stats.AmountDerived
	out.Stats.RowCountMode = r.Stats.RowCountMode
	out.Degenerate = r.Degenerate
	out.KPIs.TotalCustomers = r.KPIs.TotalCustomers
	out.KPIs.AvgRecency = r.KPIs.AvgRecency
	out.KPIs.AvgFrequency = r.KPIs.AvgFrequency
	out.KPIs.TotalRevenue = r.KPIs.TotalRevenue
	out.Insights.ChampionsRevenueShare = r.Insights.ChampionsRevenueShare
	out.Insights.AtRiskCount = r.Insights.AtRiskCount
	out.Insights.TopN = r.Insights.TopN
	out.Insights.TopNRevenueShare = r.Insights.TopNRevenueShare
	out.SegmentCounts = segmentsJSON(r.SegmentCounts)
	out.SegmentRevenue = segmentsJSON(r.SegmentRevenue)
	out.MonthlyRevenue = make([]monthJSON, len(r.MonthlyRevenue))
	for i, m := range r.MonthlyRevenue {
		out.MonthlyRevenue[i] = monthJSON{Month: m.Month, Revenue: m.Revenue}
	}
	out.TopCustomers = customersJSON(r.TopCustomers)
	out.Customers = customersJSON(r.Filtered)
	return out
}

func segmentsJSON(in []models.SegmentStat) []segmentJSON {
	out := make([]segmentJSON, len(in))
	for i, s := range in {
		out[i] = segmentJSON{Segment: s.Segment, Count: s.Count, Revenue: s.Revenue}
	}
	return out
}

func customersJSON(in []models.CustomerRFM) []customerJSON {
	out := make([]customerJSON, len(in))
	for i, c := range in {
		out[i] = customerJSON{
			CustomerID: c.CustomerID,
			Name:       c.Name,
			Region:     c.Region,
			Recency:    c.Recency,
			Frequency:  c.Frequency,
			Monetary:   c.Monetary,
			RScore:     c.Scores.R,
			FScore:     c.Scores.F,
			MScore:     c.Scores.M,
			RFMScore:   c.Scores.Code(),
			RFMTotal:   c.Scores.Total(),
			Segment:    c.Segment,
		}
	}
	return out
}

// ExportJSON écrit data en JSON indenté, en créant le dossier si besoin.
// Rien n'est écrit si l'encodage échoue ; l'erreur de fermeture du fichier est remontée.
func ExportJSON(filename string, data any) error {
	var buf bytes.Buffer
	enc := json.NewEncoder(&buf)
	enc.SetIndent("", "  ")
	if err := enc.Encode(data); err != nil {
		return fmt.Errorf("écriture json: %w", err)
	}

	if err := os.MkdirAll(filepath.Dir(filename), 0o755); err != nil {
		return fmt.Errorf("création du dossier: %w", err)
	}
	if err := os.WriteFile(filename, buf.Bytes(), 0o644); err != nil {
		return fmt.Errorf("écriture du fichier: %w", err)
	}

	log.Printf("[INFO] exporté: %s", filename)
	return nil
}

// TimestampedFilename → <baseDir>/<name>_YYYYMMDD_HHMMSS.json
func TimestampedFilename(baseDir, name string, at time.Time) string {
	return filepath.Join(baseDir, fmt.Sprintf("%s_%s.json", name, at.Format("20060102_150405")))
}
