package config

import (
	"bytes"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"os"
	"strings"
	"unicode/utf8"

	"rfm-segments/pkg/loader"
	"rfm-segments/pkg/models"
)

const envPrefix = "RFM_"

// Defaults retourne une Config avec des valeurs sûres.
// Aucune source n'est fixée par défaut (fichier ou DSN obligatoire).
func Defaults() models.Config {
	return models.Config{
		Input: models.InputConfig{
			Delimiter: ",",
			Encoding:  "utf-8",
		},
		Schema: models.SchemaConfig{
			Preset: "auto",
		},
		Scoring: models.ScoringConfig{
			Buckets:       4,
			FrequencyMode: models.FrequencyDistinct,
			Rules:         models.RulesThreshold,
		},
		View: models.ViewConfig{
			TopN: 10,
		},
	}
}

// LoadJSON lit une Config depuis un fichier ou du JSON brut (champs inconnus refusés).
func LoadJSON(path string, raw []byte) (models.Config, error) {
	var cfg models.Config
	var r io.Reader
	switch {
	case len(raw) > 0:
		r = bytes.NewReader(raw)
	case path != "":
		f, err := os.Open(path)
		if err != nil {
			return cfg, err
		}
		defer f.Close()
		r = f
	default:
		return cfg, errors.New("aucune source de configuration")
	}
	dec := json.NewDecoder(r)
	dec.DisallowUnknownFields()
	if err := dec.Decode(&cfg); err != nil {
		return cfg, fmt.Errorf("config json: %w", err)
	}
	return cfg, nil
}

// Merge applique over sur base : les valeurs non nulles de over remplacent celles de base.
// Pas de fusion profonde des listes. Les booléens ne font que s'activer (voir Flags.Apply).
func Merge(base, over models.Config) models.Config {
	out := base
	str := func(dst *string, v string) {
		if v = strings.TrimSpace(v); v != "" {
			*dst = v
		}
	}

	// une couche qui désigne une seule source remplace celle des couches inférieures
	overFile := strings.TrimSpace(over.Input.Path) != ""
	overDB := strings.TrimSpace(over.Database.DSN) != ""
	switch {
	case overFile && !overDB:
		out.Database = models.DatabaseConfig{}
	case overDB && !overFile:
		out.Input.Path = ""
	}

	str(&out.Input.Path, over.Input.Path)
	str(&out.Input.Format, over.Input.Format)
	if over.Input.Delimiter != "" {
		// pas de TrimSpace : la tabulation est un séparateur valide
		out.Input.Delimiter = over.Input.Delimiter
	}
	str(&out.Input.Encoding, over.Input.Encoding)
	str(&out.Input.Sheet, over.Input.Sheet)

	str(&out.Database.DSN, over.Database.DSN)
	str(&out.Database.Table, over.Database.Table)

	str(&out.Schema.Preset, over.Schema.Preset)
	out.Schema.Columns = out.Schema.Columns.Overlay(over.Schema.Columns)
	if len(over.Schema.DateLayouts) > 0 {
		out.Schema.DateLayouts = cloneStrings(over.Schema.DateLayouts)
	}

	if over.Scoring.Buckets != 0 {
		out.Scoring.Buckets = over.Scoring.Buckets
	}
	str(&out.Scoring.FrequencyMode, over.Scoring.FrequencyMode)
	str(&out.Scoring.Rules, over.Scoring.Rules)

	if len(over.View.Segments) > 0 {
		out.View.Segments = cloneStrings(over.View.Segments)
	}
	if len(over.View.Regions) > 0 {
		out.View.Regions = cloneStrings(over.View.Regions)
	}
	if over.View.TopN != 0 {
		out.View.TopN = over.View.TopN
	}

	str(&out.Output.CSV, over.Output.CSV)
	str(&out.Output.JSONDir, over.Output.JSONDir)
	str(&out.Output.XLSX, over.Output.XLSX)

	out.Verbose = out.Verbose || over.Verbose
	out.Progress = out.Progress || over.Progress
	return out
}

// EnvOverlay construit une Config de surcharge depuis les variables RFM_*.
// Les clés inconnues sont ignorées ; une valeur numérique illisible est une erreur.
func EnvOverlay(environ []string) (models.Config, error) {
	var over models.Config
	for _, kv := range environ {
		if !strings.HasPrefix(kv, envPrefix) {
			continue
		}
		eq := strings.IndexByte(kv, '=')
		if eq <= len(envPrefix) {
			continue
		}
		key := strings.TrimPrefix(kv[:eq], envPrefix)
		val := kv[eq+1:]
		switch key {
		case "INPUT_PATH":
			over.Input.Path = val
		case "INPUT_FORMAT":
			over.Input.Format = val
		case "INPUT_DELIMITER":
			over.Input.Delimiter = val
		case "INPUT_ENCODING":
			over.Input.Encoding = val
		case "INPUT_SHEET":
			over.Input.Sheet = val
		case "DSN":
			over.Database.DSN = val
		case "TABLE":
			over.Database.Table = val
		case "SCHEMA_PRESET":
			over.Schema.Preset = val
		case "DATE_LAYOUTS":
			over.Schema.DateLayouts = splitList(val, ";")
		case "BUCKETS":
			v, err := atoi(val)
			if err != nil {
				return over, fmt.Errorf("%sBUCKETS: %w", envPrefix, err)
			}
			over.Scoring.Buckets = v
		case "FREQUENCY_MODE":
			over.Scoring.FrequencyMode = val
		case "RULES":
			over.Scoring.Rules = val
		case "SEGMENTS":
			over.View.Segments = splitList(val, ",")
		case "REGIONS":
			over.View.Regions = splitList(val, ",")
		case "TOP_N":
			v, err := atoi(val)
			if err != nil {
				return over, fmt.Errorf("%sTOP_N: %w", envPrefix, err)
			}
			over.View.TopN = v
		case "OUTPUT_CSV":
			over.Output.CSV = val
		case "OUTPUT_JSON_DIR":
			over.Output.JSONDir = val
		case "OUTPUT_XLSX":
			over.Output.XLSX = val
		case "VERBOSE":
			over.Verbose = isTrue(val)
		case "PROGRESS":
			over.Progress = isTrue(val)
		default:
			// RFM_COLUMNS_<ROLE>
			if role, ok := strings.CutPrefix(key, "COLUMNS_"); ok {
				setColumn(&over.Schema.Columns, role, val)
			}
		}
	}
	return over, nil
}

// Validate vérifie la cohérence d'une Config fusionnée.
func Validate(cfg models.Config) error {
	var errs []error

	hasFile := strings.TrimSpace(cfg.Input.Path) != ""
	hasDB := strings.TrimSpace(cfg.Database.DSN) != ""
	switch {
	case hasFile && hasDB:
		errs = append(errs, errors.New("input.path et database.dsn sont exclusifs"))
	case !hasFile && !hasDB:
		errs = append(errs, errors.New("input.path ou database.dsn requis"))
	case hasDB && strings.TrimSpace(cfg.Database.Table) == "":
		errs = append(errs, errors.New("database.table requis avec database.dsn"))
	}

	if utf8.RuneCountInString(cfg.Input.Delimiter) != 1 {
		errs = append(errs, fmt.Errorf("input.delimiter doit être un seul caractère: %q", cfg.Input.Delimiter))
	}
	if _, err := loader.LookupEncoding(cfg.Input.Encoding); err != nil {
		errs = append(errs, err)
	}
	switch strings.ToLower(cfg.Input.Format) {
	case "", "csv", "xlsx":
	default:
		errs = append(errs, fmt.Errorf("input.format inconnu: %q", cfg.Input.Format))
	}

	switch cfg.Schema.Preset {
	case "", "auto", "custom":
	default:
		if _, ok := models.SchemaPresets[cfg.Schema.Preset]; !ok {
			errs = append(errs, fmt.Errorf("schema.preset inconnu: %q", cfg.Schema.Preset))
		}
	}

	if cfg.Scoring.Buckets != 4 && cfg.Scoring.Buckets != 5 {
		errs = append(errs, fmt.Errorf("scoring.buckets doit valoir 4 ou 5: %d", cfg.Scoring.Buckets))
	}
	switch cfg.Scoring.FrequencyMode {
	case models.FrequencyDistinct, models.FrequencyRows:
	default:
		errs = append(errs, fmt.Errorf("scoring.frequency_mode inconnu: %q", cfg.Scoring.FrequencyMode))
	}
	switch cfg.Scoring.Rules {
	case models.RulesThreshold:
	case models.RulesCodes:
		if cfg.Scoring.Buckets != 4 {
			errs = append(errs, errors.New("scoring.rules=codes exige scoring.buckets=4"))
		}
	default:
		errs = append(errs, fmt.Errorf("scoring.rules inconnu: %q", cfg.Scoring.Rules))
	}

	if cfg.View.TopN < 0 {
		errs = append(errs, fmt.Errorf("view.top_n négatif: %d", cfg.View.TopN))
	}
	return errors.Join(errs...)
}

func setColumn(cm *models.ColumnMap, role, val string) {
	switch role {
	case "CUSTOMER":
		cm.Customer = val
	case "TIMESTAMP":
		cm.Timestamp = val
	case "ORDER":
		cm.Order = val
	case "AMOUNT":
		cm.Amount = val
	case "QUANTITY":
		cm.Quantity = val
	case "UNIT_PRICE":
		cm.UnitPrice = val
	case "REGION":
		cm.Region = val
	case "NAME":
		cm.Name = val
	}
}

func cloneStrings(in []string) []string {
	if len(in) == 0 {
		return nil
	}
	out := make([]string, len(in))
	copy(out, in)
	return out
}

func splitList(s, sep string) []string {
	if s == "" {
		return nil
	}
	parts := strings.Split(s, sep)
	out := parts[:0]
	for _, p := range parts {
		if t := strings.TrimSpace(p); t != "" {
			out = append(out, t)
		}
	}
	return out
}

func atoi(s string) (int, error) {
	var n int
	_, err := fmt.Sscanf(strings.TrimSpace(s), "%d", &n)
	if err != nil {
		return 0, err
	}
	return n, nil
}

func isTrue(s string) bool {
	switch strings.ToLower(strings.TrimSpace(s)) {
	case "1", "true", "yes", "on":
		return true
	}
	return false
}
