package export

import (
	"bytes"
	"encoding/json"
	"errors"
	"math"
	"os"
	"path/filepath"
	"reflect"
	"strings"
	"testing"
	"time"

	"github.com/xuri/excelize/v2"

	"rfm-segments/pkg/loader"
	"rfm-segments/pkg/models"
)

func sampleCustomers() []models.CustomerRFM {
	return []models.CustomerRFM{
		{CustomerID: "A", Recency: 1, Frequency: 3, Monetary: 1000, Scores: models.Scores{R: 4, F: 4, M: 4}, Segment: "Champions", Name: "Émilie Durand", Region: "Ouest"},
		{CustomerID: "B", Recency: 40, Frequency: 1, Monetary: 50, Scores: models.Scores{R: 1, F: 1, M: 1}, Segment: "Lost Customers", Region: "Est"},
		{CustomerID: "C", Recency: 2, Frequency: 2, Monetary: 500.125, Scores: models.Scores{R: 3, F: 2, M: 2}, Segment: "Others", Name: "Chloé; \"C\"", Region: "Ouest"},
	}
}

func sampleReport() *models.Report {
	cs := sampleCustomers()
	return &models.Report{
		RunID:       "run-1",
		GeneratedAt: time.Date(2024, 1, 10, 12, 0, 0, 0, time.UTC),
		Snapshot:    time.Date(2024, 1, 10, 0, 0, 0, 0, time.UTC),
		Buckets:     4,
		Rules:       models.RulesThreshold,
		Customers:   cs,
		Filtered:    cs[:2],
		KPIs:        models.KPIs{TotalCustomers: 3, AvgRecency: 14.33, AvgFrequency: 2, TotalRevenue: 1550.125},
		SegmentCounts: []models.SegmentStat{
			{Segment: "Champions", Count: 1, Revenue: 1000},
			{Segment: "Lost Customers", Count: 1, Revenue: 50},
			{Segment: "Others", Count: 1, Revenue: 500.125},
		},
		SegmentRevenue: []models.SegmentStat{
			{Segment: "Champions", Count: 1, Revenue: 1000},
			{Segment: "Lost Customers", Count: 1, Revenue: 50},
			{Segment: "Others", Count: 1, Revenue: 500.125},
		},
		MonthlyRevenue: []models.MonthRevenue{{Month: "2023-11", Revenue: 400}, {Month: "2024-01", Revenue: 1150.125}},
		TopCustomers:   cs[:1],
		Insights:       models.Insights{ChampionsRevenueShare: 64.5, TopN: 1, TopNRevenueShare: 64.5},
	}
}

func TestCustomers_RoundTrip(t *testing.T) {
	cases := []struct {
		name string
		opts loader.CSVOptions
	}{
		{"utf8 comma", loader.CSVOptions{Delimiter: ',', Encoding: "utf-8"}},
		{"latin1 semicolon", loader.CSVOptions{Delimiter: ';', Encoding: "iso-8859-1"}},
		{"windows-1252 tab", loader.CSVOptions{Delimiter: '\t', Encoding: "windows-1252"}},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			var first bytes.Buffer
			if err := WriteCustomers(&first, sampleCustomers(), tc.opts); err != nil {
				t.Fatalf("write: %v", err)
			}
			got, err := ReadCustomers(bytes.NewReader(first.Bytes()), tc.opts)
			if err != nil {
				t.Fatalf("read: %v", err)
			}
			if !reflect.DeepEqual(got, sampleCustomers()) {
				t.Fatalf("round trip mismatch:\n got %+v\nwant %+v", got, sampleCustomers())
			}

			var second bytes.Buffer
			if err := WriteCustomers(&second, got, tc.opts); err != nil {
				t.Fatalf("rewrite: %v", err)
			}
			if !bytes.Equal(first.Bytes(), second.Bytes()) {
				t.Fatalf("re-export differs:\n%q\n%q", first.String(), second.String())
			}
		})
	}
}

func TestWriteCustomers_Latin1Bytes(t *testing.T) {
	var buf bytes.Buffer
	opts := loader.CSVOptions{Delimiter: ';', Encoding: "latin1"}
	if err := WriteCustomers(&buf, sampleCustomers()[:1], opts); err != nil {
		t.Fatal(err)
	}
	// É = 0xC9 en ISO-8859-1, sur un seul octet
	if !bytes.Contains(buf.Bytes(), []byte{0xC9, 'm'}) {
		t.Fatalf("expected single-byte latin1 output, got %q", buf.Bytes())
	}
	if !strings.HasPrefix(buf.String(), "CustomerID;Recency;") {
		t.Fatalf("unexpected header: %q", buf.String())
	}
}

func TestWriteCustomers_OptionalColumns(t *testing.T) {
	var buf bytes.Buffer
	cs := []models.CustomerRFM{{CustomerID: "1", Frequency: 1, Scores: models.Scores{R: 1, F: 1, M: 1}, Segment: "Others"}}
	if err := WriteCustomers(&buf, cs, loader.CSVOptions{}); err != nil {
		t.Fatal(err)
	}
	header := strings.SplitN(buf.String(), "\n", 2)[0]
	if header != "CustomerID,Recency,Frequency,Monetary,R_Score,F_Score,M_Score,RFM_Score,Segment" {
		t.Fatalf("unexpected header %q", header)
	}
}

func TestReadCustomers_MissingColumns(t *testing.T) {
	_, err := ReadCustomers(strings.NewReader("CustomerID,Recency\n1,2\n"), loader.CSVOptions{Delimiter: ','})
	var se *models.SchemaError
	if !errors.As(err, &se) {
		t.Fatalf("got %v, want SchemaError", err)
	}
	if len(se.Missing) != 6 {
		t.Fatalf("missing %v, want 6 columns", se.Missing)
	}
}

func TestReadCustomers_BadNumber(t *testing.T) {
	in := "CustomerID,Recency,Frequency,Monetary,R_Score,F_Score,M_Score,Segment\n1,x,1,abc,1,1,1,Others\n"
	if _, err := ReadCustomers(strings.NewReader(in), loader.CSVOptions{Delimiter: ','}); err == nil {
		t.Fatal("expected parse error")
	}
}

func TestExportJSON(t *testing.T) {
	dir := t.TempDir()
	name := TimestampedFilename(filepath.Join(dir, "out"), "rfm_report", time.Date(2024, 1, 10, 8, 5, 3, 0, time.UTC))
	if filepath.Base(name) != "rfm_report_20240110_080503.json" {
		t.Fatalf("unexpected filename %s", name)
	}
	if err := ExportJSON(name, NewReportJSON(sampleReport())); err != nil {
		t.Fatalf("export: %v", err)
	}

	raw, err := os.ReadFile(name)
	if err != nil {
		t.Fatal(err)
	}
	var got struct {
		RunID     string `json:"run_id"`
		Snapshot  string `json:"snapshot_date"`
		Customers []struct {
			CustomerID string `json:"customer_id"`
			RFMScore   string `json:"rfm_score"`
		} `json:"customers"`
		MonthlyRevenue []map[string]any `json:"monthly_revenue"`
	}
	if err := json.Unmarshal(raw, &got); err != nil {
		t.Fatalf("decode: %v", err)
	}
	if got.RunID != "run-1" || got.Snapshot != "2024-01-10" {
		t.Fatalf("unexpected header: %+v", got)
	}
	if len(got.Customers) != 2 || got.Customers[0].RFMScore != "444" {
		t.Fatalf("customers should be the filtered table: %+v", got.Customers)
	}
	if len(got.MonthlyRevenue) != 2 {
		t.Fatalf("monthly: %+v", got.MonthlyRevenue)
	}
}

func TestWriteWorkbook(t *testing.T) {
	var buf bytes.Buffer
	if err := WriteWorkbook(&buf, sampleReport()); err != nil {
		t.Fatalf("write: %v", err)
	}
	f, err := excelize.OpenReader(&buf)
	if err != nil {
		t.Fatalf("open: %v", err)
	}
	defer f.Close()

	sheets := f.GetSheetList()
	want := []string{SheetSummary, SheetCustomers, SheetSegments, SheetMonthly, SheetTop}
	if !reflect.DeepEqual(sheets, want) {
		t.Fatalf("sheets %v, want %v", sheets, want)
	}
	rows, err := f.GetRows(SheetCustomers)
	if err != nil {
		t.Fatal(err)
	}
	if len(rows) != 3 || rows[0][0] != ColCustomerID || rows[1][0] != "A" {
		t.Fatalf("customers sheet: %v", rows)
	}
	seg, _ := f.GetRows(SheetSegments)
	if len(seg) != 4 || seg[1][0] != "Champions" || seg[1][2] != "1000" {
		t.Fatalf("segments sheet: %v", seg)
	}
}

func TestCustomers_RoundTripMultilineName(t *testing.T) {
	cs := []models.CustomerRFM{
		{CustomerID: "7", Recency: 3, Frequency: 1, Monetary: 12.5, Scores: models.Scores{R: 2, F: 1, M: 1}, Segment: "Others", Name: "Rue A\nBât 2"},
	}
	opts := loader.CSVOptions{Delimiter: ';', Encoding: "latin1"}
	var first bytes.Buffer
	if err := WriteCustomers(&first, cs, opts); err != nil {
		t.Fatal(err)
	}
	got, err := ReadCustomers(bytes.NewReader(first.Bytes()), opts)
	if err != nil {
		t.Fatal(err)
	}
	if !reflect.DeepEqual(got, cs) {
		t.Fatalf("got %+v, want %+v", got, cs)
	}
	var second bytes.Buffer
	if err := WriteCustomers(&second, got, opts); err != nil {
		t.Fatal(err)
	}
	if !bytes.Equal(first.Bytes(), second.Bytes()) {
		t.Fatalf("re-export differs:\n%q\n%q", first.String(), second.String())
	}
}

func TestExportJSON_EncodeErrorWritesNothing(t *testing.T) {
	name := filepath.Join(t.TempDir(), "out", "bad.json")
	if err := ExportJSON(name, map[string]float64{"x": math.NaN()}); err == nil {
		t.Fatal("expected encode error for NaN")
	}
	if _, err := os.Stat(name); !os.IsNotExist(err) {
		t.Fatalf("no file expected, stat err=%v", err)
	}
}

func TestExportJSON_WriteError(t *testing.T) {
	dir := t.TempDir()
	blocker := filepath.Join(dir, "file")
	if err := os.WriteFile(blocker, []byte("x"), 0o644); err != nil {
		t.Fatal(err)
	}
	if err := ExportJSON(filepath.Join(blocker, "report.json"), map[string]int{"a": 1}); err == nil {
		t.Fatal("expected error when parent is a regular file")
	}
}
