package config

import (
	"strings"
	"testing"

	"rfm-segments/pkg/models"
)

func TestLoadJSON_Valid(t *testing.T) {
	raw := []byte(`{
		"input": {"path": "data.csv", "delimiter": ";", "encoding": "iso-8859-1"},
		"schema": {"preset": "superstore", "columns": {"region": "Zone"}},
		"scoring": {"buckets": 5, "frequency_mode": "rows", "rules": "threshold"},
		"view": {"segments": ["Champions"], "top_n": 3}
	}`)
	cfg, err := LoadJSON("", raw)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if cfg.Input.Delimiter != ";" || cfg.Schema.Columns.Region != "Zone" || cfg.Scoring.Buckets != 5 {
		t.Fatalf("fields not mapped: %+v", cfg)
	}
	if err := Validate(Merge(Defaults(), cfg)); err != nil {
		t.Fatalf("validate: %v", err)
	}
}

func TestLoadJSON_UnknownField(t *testing.T) {
	if _, err := LoadJSON("", []byte(`{"unknown":1}`)); err == nil {
		t.Fatal("expected error for unknown field, got nil")
	}
}

func TestLoadJSON_NoSource(t *testing.T) {
	if _, err := LoadJSON("", nil); err == nil {
		t.Fatal("expected error without source, got nil")
	}
}

func TestEnvOverlay(t *testing.T) {
	env := []string{
		"PATH=/usr/bin",
		"RFM_DSN=sqlite://orders.db",
		"RFM_TABLE=orders",
		"RFM_BUCKETS=5",
		"RFM_SEGMENTS=Champions, At Risk,",
		"RFM_COLUMNS_CUSTOMER=client",
		"RFM_DATE_LAYOUTS=02/01/2006;2006-01-02",
		"RFM_VERBOSE=true",
	}
	over, err := EnvOverlay(env)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if over.Database.DSN != "sqlite://orders.db" || over.Database.Table != "orders" {
		t.Fatalf("database overlay wrong: %+v", over.Database)
	}
	if over.Scoring.Buckets != 5 || !over.Verbose {
		t.Fatalf("scalar overlay wrong: %+v", over)
	}
	if len(over.View.Segments) != 2 || over.View.Segments[1] != "At Risk" {
		t.Fatalf("segments overlay wrong: %v", over.View.Segments)
	}
	if over.Schema.Columns.Customer != "client" || len(over.Schema.DateLayouts) != 2 {
		t.Fatalf("schema overlay wrong: %+v", over.Schema)
	}
}

func TestEnvOverlay_BadNumber(t *testing.T) {
	if _, err := EnvOverlay([]string{"RFM_BUCKETS=four"}); err == nil {
		t.Fatal("expected error for non-numeric buckets, got nil")
	}
}

func TestMerge_KeepsBaseWhenEmpty(t *testing.T) {
	base := Defaults()
	base.Input.Path = "a.csv"
	out := Merge(base, models.Config{Scoring: models.ScoringConfig{Rules: models.RulesCodes}})
	if out.Input.Path != "a.csv" || out.Input.Delimiter != "," || out.Scoring.Buckets != 4 {
		t.Fatalf("base values lost: %+v", out)
	}
	if out.Scoring.Rules != models.RulesCodes {
		t.Fatalf("override not applied: %q", out.Scoring.Rules)
	}
}

func TestMerge_TabDelimiter(t *testing.T) {
	out := Merge(Defaults(), models.Config{Input: models.InputConfig{Delimiter: "\t"}})
	if out.Input.Delimiter != "\t" {
		t.Fatalf("tab delimiter lost: %q", out.Input.Delimiter)
	}
}

func TestValidate_Errors(t *testing.T) {
	if err := Validate(Defaults()); err == nil {
		t.Fatal("expected error without source, got nil")
	}

	cases := map[string]func(*models.Config){
		"both sources":   func(c *models.Config) { c.Database.DSN = "sqlite://x.db"; c.Database.Table = "t" },
		"buckets":        func(c *models.Config) { c.Scoring.Buckets = 3 },
		"codes needs 4":  func(c *models.Config) { c.Scoring.Buckets = 5; c.Scoring.Rules = models.RulesCodes },
		"frequency mode": func(c *models.Config) { c.Scoring.FrequencyMode = "weekly" },
		"delimiter":      func(c *models.Config) { c.Input.Delimiter = ";;" },
		"encoding":       func(c *models.Config) { c.Input.Encoding = "ebcdic" },
		"preset":         func(c *models.Config) { c.Schema.Preset = "erp" },
		"top n":          func(c *models.Config) { c.View.TopN = -1 },
	}
	for name, mutate := range cases {
		cfg := Defaults()
		cfg.Input.Path = "data.csv"
		mutate(&cfg)
		if err := Validate(cfg); err == nil {
			t.Fatalf("%s: expected error, got nil", name)
		}
	}
}

func TestValidate_DatabaseNeedsTable(t *testing.T) {
	cfg := Defaults()
	cfg.Database.DSN = "sqlite://x.db"
	err := Validate(cfg)
	if err == nil || !strings.Contains(err.Error(), "database.table") {
		t.Fatalf("expected table error, got %v", err)
	}
}
