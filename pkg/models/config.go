package models

/*
CONFIG → paramètres globaux (lus une fois, immuables pendant l'exécution).
JSON en snake_case ; les champs inconnus sont refusés au chargement.
*/

// Modes de comptage de la fréquence.
const (
	FrequencyDistinct = "distinct" // commandes distinctes
	FrequencyRows     = "rows"     // nombre de lignes
)

// Tables de règles de segmentation.
const (
	RulesThreshold = "threshold"
	RulesCodes     = "codes"
)

// Config contient les paramètres de configuration passés au pipeline.
type Config struct {
	Input    InputConfig    `json:"input"`
	Database DatabaseConfig `json:"database"`
	Schema   SchemaConfig   `json:"schema"`
	Scoring  ScoringConfig  `json:"scoring"`
	View     ViewConfig     `json:"view"`
	Output   OutputConfig   `json:"output"`
	Verbose  bool           `json:"verbose"`  // Flag pour activer les logs détaillés.
	Progress bool           `json:"progress"` // Barre de progression sur stderr.
}

// InputConfig décrit un fichier source. Delimiter et Encoding servent aussi à l'export CSV.
type InputConfig struct {
	Path      string `json:"path"`
	Format    string `json:"format"`    // "csv" | "xlsx" | "" (déduit de l'extension)
	Delimiter string `json:"delimiter"` // un seul caractère
	Encoding  string `json:"encoding"`  // "utf-8" | "iso-8859-1" | "windows-1252"
	Sheet     string `json:"sheet"`     // XLSX uniquement ; vide = première feuille
}

// DatabaseConfig décrit une source SQL en lecture seule.
type DatabaseConfig struct {
	DSN   string `json:"dsn"`
	Table string `json:"table"`
}

// SchemaConfig associe les rôles logiques aux colonnes physiques.
// Les colonnes explicites complètent/écrasent celles du preset.
type SchemaConfig struct {
	Preset      string    `json:"preset"` // "auto" | "generic" | "online-retail" | "superstore" | "custom"
	Columns     ColumnMap `json:"columns"`
	DateLayouts []string  `json:"date_layouts"`
}

// ColumnMap : rôle logique → nom de colonne. Vide = rôle non utilisé.
type ColumnMap struct {
	Customer  string `json:"customer"`
	Timestamp string `json:"timestamp"`
	Order     string `json:"order"`
	Amount    string `json:"amount"`
	Quantity  string `json:"quantity"`
	UnitPrice string `json:"unit_price"`
	Region    string `json:"region"`
	Name      string `json:"name"`
}

// ScoringConfig regroupe les paramètres reconnus par le moteur.
type ScoringConfig struct {
	Buckets       int    `json:"buckets"`        // 4 ou 5
	FrequencyMode string `json:"frequency_mode"` // distinct | rows
	Rules         string `json:"rules"`          // threshold | codes
}

// ViewConfig : filtres et vues de présentation.
type ViewConfig struct {
	Segments []string `json:"segments"` // vide = "All"
	Regions  []string `json:"regions"`
	TopN     int      `json:"top_n"`
}

// OutputConfig : destinations d'export (vide = pas d'export).
type OutputConfig struct {
	CSV     string `json:"csv"`
	JSONDir string `json:"json_dir"`
	XLSX    string `json:"xlsx"`
}

// DefaultDateLayouts couvre les exports courants (ISO, "12/1/2010 8:26", superstore "11/8/2016")
// et les formats affichés par Excel ("12/1/10 8:26"). Les années sur 4 chiffres sont essayées en premier.
var DefaultDateLayouts = []string{
	"2006-01-02 15:04:05",
	"2006-01-02T15:04:05Z07:00",
	"2006-01-02T15:04:05",
	"2006-01-02 15:04",
	"2006-01-02",
	"1/2/2006 15:04:05",
	"1/2/2006 15:04",
	"1/2/2006",
	"2006/01/02",
	"1/2/06 15:04",
	"1/2/06",
	"01-02-06",
}

// SchemaPresets : schémas connus. Region/Name ne sont jamais requis.
var SchemaPresets = map[string]ColumnMap{
	"generic": {
		Customer:  "CustomerID",
		Timestamp: "InvoiceDate",
		Order:     "InvoiceNo",
		Amount:    "Monetary",
	},
	"online-retail": {
		Customer:  "CustomerID",
		Timestamp: "InvoiceDate",
		Order:     "InvoiceNo",
		Quantity:  "Quantity",
		UnitPrice: "UnitPrice",
	},
	"superstore": {
		Customer:  "Customer ID",
		Timestamp: "Order Date",
		Order:     "Order ID",
		Amount:    "Sales",
		Quantity:  "Quantity",
		UnitPrice: "Unit Price",
		Region:    "Region",
		Name:      "Customer Name",
	},
}

// PresetOrder fixe l'ordre d'essai du preset "auto".
var PresetOrder = []string{"generic", "superstore", "online-retail"}

// Overlay retourne m complété par les champs non vides de over.
func (m ColumnMap) Overlay(over ColumnMap) ColumnMap {
	out := m
	set := func(dst *string, v string) {
		if v != "" {
			*dst = v
		}
	}
	set(&out.Customer, over.Customer)
	set(&out.Timestamp, over.Timestamp)
	set(&out.Order, over.Order)
	set(&out.Amount, over.Amount)
	set(&out.Quantity, over.Quantity)
	set(&out.UnitPrice, over.UnitPrice)
	set(&out.Region, over.Region)
	set(&out.Name, over.Name)
	return out
}
