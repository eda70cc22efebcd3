package main

import (
	"bytes"
	"context"
	"errors"
	"flag"
	"fmt"
	"log"
	"os"
	"path/filepath"
	"time"

	"rfm-segments/pkg/calculator"
	"rfm-segments/pkg/config"
	"rfm-segments/pkg/database"
	"rfm-segments/pkg/export"
	"rfm-segments/pkg/loader"
	"rfm-segments/pkg/models"
)

func main() {
	log.SetFlags(log.LstdFlags | log.Lmicroseconds)

	flags := config.BindFlags(flag.CommandLine)
	flag.Parse()

	// Défauts < fichier JSON < variables RFM_* < flags passés explicitement
	cfg := config.Defaults()
	if flags.ConfigPath != "" {
		fileCfg, err := config.LoadJSON(flags.ConfigPath, nil)
		if err != nil {
			log.Fatalf("config: %v", err)
		}
		cfg = config.Merge(cfg, fileCfg)
	}
	envCfg, err := config.EnvOverlay(os.Environ())
	if err != nil {
		log.Fatalf("env: %v", err)
	}
	cfg = config.Merge(cfg, envCfg)
	cfg = flags.Apply(flag.CommandLine, cfg)

	if err := config.Validate(cfg); err != nil {
		flag.Usage()
		log.Fatalf("config: %v", err)
	}

	// Source
	var src calculator.Source
	if cfg.Database.DSN != "" {
		db, dsnUsed, err := database.Open(cfg.Database.DSN)
		if err != nil {
			log.Fatalf("open db: %v", err)
		}
		defer db.Close()
		if cfg.Verbose {
			log.Printf("[INFO] connected dsn=%s", dsnUsed)
		}
		src = database.TableSource{DB: db, Table: cfg.Database.Table}
	} else {
		src = loader.NewFileSource(cfg.Input)
	}

	// Calcul
	ctx := context.Background()
	report, err := calculator.Run(ctx, src, cfg)
	if errors.Is(err, models.ErrEmptyInput) {
		log.Printf("[INFO] %v", err)
	} else if err != nil {
		log.Fatalf("compute: %v", err)
	}

	// Sortie : segment ; clients ; chiffre d'affaires
	revenue := map[string]float64{}
	for _, s := range report.SegmentRevenue {
		revenue[s.Segment] = s.Revenue
	}
	for _, s := range report.SegmentCounts {
		fmt.Printf("%s ; count=%d ; revenue=%.2f\n", s.Segment, s.Count, revenue[s.Segment])
	}
	fmt.Printf("total ; customers=%d ; revenue=%.2f ; snapshot=%s\n",
		report.KPIs.TotalCustomers, report.KPIs.TotalRevenue, report.Snapshot.Format("2006-01-02"))

	if err := writeOutputs(cfg, report); err != nil {
		log.Fatalf("export: %v", err)
	}
}

// writeOutputs écrit les exports demandés. Le CSV reprend séparateur et encodage de l'entrée.
func writeOutputs(cfg models.Config, report *models.Report) error {
	if cfg.Output.CSV != "" {
		delim, err := loader.Delimiter(cfg.Input.Delimiter)
		if err != nil {
			return err
		}
		var buf bytes.Buffer
		opts := loader.CSVOptions{Delimiter: delim, Encoding: cfg.Input.Encoding}
		if err := export.WriteCustomers(&buf, report.Filtered, opts); err != nil {
			return fmt.Errorf("csv: %w", err)
		}
		if err := writeFile(cfg.Output.CSV, buf.Bytes()); err != nil {
			return err
		}
	}

	if cfg.Output.JSONDir != "" {
		name := export.TimestampedFilename(cfg.Output.JSONDir, "rfm_report", time.Now())
		if err := export.ExportJSON(name, export.NewReportJSON(report)); err != nil {
			return fmt.Errorf("json: %w", err)
		}
	}

	if cfg.Output.XLSX != "" {
		var buf bytes.Buffer
		if err := export.WriteWorkbook(&buf, report); err != nil {
			return fmt.Errorf("xlsx: %w", err)
		}
		if err := writeFile(cfg.Output.XLSX, buf.Bytes()); err != nil {
			return err
		}
	}
	return nil
}

func writeFile(path string, data []byte) error {
	if dir := filepath.Dir(path); dir != "." {
		if err := os.MkdirAll(dir, 0o755); err != nil {
			return fmt.Errorf("création du dossier: %w", err)
		}
	}
	if err := os.WriteFile(path, data, 0o644); err != nil {
		return err
	}
	log.Printf("[INFO] exporté: %s", path)
	return nil
}
