package export

import (
	"fmt"
	"io"

	"github.com/xuri/excelize/v2"

	"rfm-segments/pkg/models"
)

// Feuilles du classeur de rapport.
const (
	SheetSummary   = "Summary"
	SheetCustomers = "Customers"
	SheetSegments  = "Segments"
	SheetMonthly   = "Monthly"
	SheetTop       = "Top"
)

// WriteWorkbook écrit le rapport en classeur XLSX : synthèse, table filtrée, segments,
// série mensuelle et meilleurs clients.
func WriteWorkbook(w io.Writer, r *models.Report) error {
	f := excelize.NewFile()
	defer f.Close()

	if err := f.SetSheetName("Sheet1", SheetSummary); err != nil {
		return err
	}
	for _, name := range []string{SheetCustomers, SheetSegments, SheetMonthly, SheetTop} {
		if _, err := f.NewSheet(name); err != nil {
			return fmt.Errorf("feuille %s: %w", name, err)
		}
	}

	summary := [][]any{
		{"Run", r.RunID},
		{"Snapshot", r.Snapshot.Format("2006-01-02")},
		{"Buckets", r.Buckets},
		{"Rules", r.Rules},
		{"Total Customers", r.KPIs.TotalCustomers},
		{"Avg Recency (Days)", r.KPIs.AvgRecency},
		{"Avg Frequency", r.KPIs.AvgFrequency},
		{"Total Revenue", r.KPIs.TotalRevenue},
		{"Champions Revenue %", r.Insights.ChampionsRevenueShare},
		{"At Risk Customers", r.Insights.AtRiskCount},
		{fmt.Sprintf("Top %d Revenue %%", r.Insights.TopN), r.Insights.TopNRevenueShare},
	}
	if err := writeRows(f, SheetSummary, summary); err != nil {
		return err
	}

	if err := writeRows(f, SheetCustomers, customerRows(r.Filtered)); err != nil {
		return err
	}
	if err := writeRows(f, SheetTop, customerRows(r.TopCustomers)); err != nil {
		return err
	}

	segments := [][]any{{"Segment", "Count", "Revenue"}}
	revenue := map[string]float64{}
	for _, s := range r.SegmentRevenue {
		revenue[s.Segment] = s.Revenue
	}
	for _, s := range r.SegmentCounts {
		segments = append(segments, []any{s.Segment, s.Count, revenue[s.Segment]})
	}
	if err := writeRows(f, SheetSegments, segments); err != nil {
		return err
	}

	monthly := [][]any{{"Month", "Revenue"}}
	for _, m := range r.MonthlyRevenue {
		monthly = append(monthly, []any{m.Month, m.Revenue})
	}
	if err := writeRows(f, SheetMonthly, monthly); err != nil {
		return err
	}

	return f.Write(w)
}

func customerRows(customers []models.CustomerRFM) [][]any {
	rows := [][]any{{ColCustomerID, ColName, ColRegion, ColRecency, ColFrequency, ColMonetary,
		ColRScore, ColFScore, ColMScore, ColRFMScore, ColSegment}}
	for _, c := range customers {
		rows = append(rows, []any{c.CustomerID, c.Name, c.Region, c.Recency, c.Frequency, c.Monetary,
			c.Scores.R, c.Scores.F, c.Scores.M, c.Scores.Code(), c.Segment})
	}
	return rows
}

func writeRows(f *excelize.File, sheet string, rows [][]any) error {
	for i, row := range rows {
		cell, err := excelize.CoordinatesToCellName(1, i+1)
		if err != nil {
			return err
		}
		if err := f.SetSheetRow(sheet, cell, &row); err != nil {
			return fmt.Errorf("%s!%s: %w", sheet, cell, err)
		}
	}
	return nil
}
