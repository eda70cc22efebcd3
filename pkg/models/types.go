package models

import (
	"fmt"
	"time"
)

/*
LOAD → types simples pour charger les données brutes (CSV, XLSX ou base de données).
*/

// Table représente un jeu de données tabulaire brut : un en-tête et des lignes de chaînes.
// Les lignes plus courtes que l'en-tête sont complétées par des chaînes vides à la lecture.
type Table struct {
	Header []string
	Rows   [][]string
}

// Index retourne la position d'une colonne dans l'en-tête, ou -1.
func (t Table) Index(column string) int {
	for i, h := range t.Header {
		if h == column {
			return i
		}
	}
	return -1
}

// Transaction représente une ligne de commande résolue (rôles logiques → valeurs typées).
type Transaction struct {
	CustomerID string
	OrderDate  time.Time
	OrderID    string // vide si aucune colonne de commande n'est configurée
	Amount     float64
	Region     string
	Name       string
}

/*
COMPUTE → une ligne par client
*/

// Scores regroupe les notes quantiles R, F et M.
type Scores struct {
	R int
	F int
	M int
}

// Code retourne le code composite "RFM" (ex: "443").
func (s Scores) Code() string {
	return fmt.Sprintf("%d%d%d", s.R, s.F, s.M)
}

// Total retourne la somme R+F+M.
func (s Scores) Total() int {
	return s.R + s.F + s.M
}

// CustomerRFM contient le profil RFM calculé pour un client.
type CustomerRFM struct {
	CustomerID string
	Recency    int     // jours entre la date snapshot et la dernière commande
	Frequency  int     // commandes distinctes (ou lignes, selon le mode)
	Monetary   float64 // somme des montants
	Scores     Scores
	Segment    string
	Region     string // attributs facultatifs, première valeur rencontrée
	Name       string
}

/*
VIEWS → vues dérivées en lecture seule pour la couche de présentation
*/

// SegmentStat est une ligne d'agrégat par segment (effectif ou chiffre d'affaires).
type SegmentStat struct {
	Segment string
	Count   int
	Revenue float64
}

// MonthRevenue est un point de la série mensuelle de chiffre d'affaires.
type MonthRevenue struct {
	Month   string // "YYYY-MM"
	Revenue float64
}

// KPIs résume la table filtrée.
type KPIs struct {
	TotalCustomers int
	AvgRecency     float64
	AvgFrequency   float64
	TotalRevenue   float64
}

// Insights reprend les indicateurs "stratégiques" calculés sur la table complète.
type Insights struct {
	ChampionsRevenueShare float64 // en pourcentage
	AtRiskCount           int
	TopN                  int
	TopNRevenueShare      float64 // en pourcentage
}

// PrepareStats compte les lignes conservées et écartées à la résolution.
type PrepareStats struct {
	RowsRead        int
	RowsKept        int
	DroppedNoCustID int
	DroppedBadDate  int
	BadAmounts      int              // montants illisibles, comptés pour 0
	DateErrors      []DateParseError // échantillon des premières erreurs
	AmountDerived   bool             // Quantity × UnitPrice
	RowCountMode    bool             // Frequency = nombre de lignes
}

// Report est le résultat complet d'une exécution, consommé par les exports.
type Report struct {
	RunID          string
	GeneratedAt    time.Time
	Snapshot       time.Time
	Buckets        int
	Rules          string
	Stats          PrepareStats
	Degenerate     []string // métriques dont le découpage quantile a dégénéré
	Customers      []CustomerRFM
	Filtered       []CustomerRFM
	KPIs           KPIs
	SegmentCounts  []SegmentStat // sur la table filtrée
	SegmentRevenue []SegmentStat // sur la table complète
	MonthlyRevenue []MonthRevenue
	TopCustomers   []CustomerRFM // sur la table filtrée
	Insights       Insights
}
