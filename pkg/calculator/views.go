package calculator

import (
	"sort"
	"strings"

	"rfm-segments/pkg/models"
)

// Filter : segments et régions autorisés. Liste vide (ou "All") = pas de restriction.
// Les dimensions sont combinées en ET, les valeurs d'une dimension en OU, sans casse.
type Filter struct {
	Segments []string
	Regions  []string
}

// Apply retourne les clients retenus, dans l'ordre d'origine. La table n'est pas recalculée.
func (f Filter) Apply(customers []models.CustomerRFM) []models.CustomerRFM {
	segs := toLowerSet(f.Segments)
	regions := toLowerSet(f.Regions)
	if segs == nil && regions == nil {
		return customers
	}
	out := make([]models.CustomerRFM, 0, len(customers))
	for _, c := range customers {
		if segs != nil && !segs[strings.ToLower(c.Segment)] {
			continue
		}
		if regions != nil && !regions[strings.ToLower(c.Region)] {
			continue
		}
		out = append(out, c)
	}
	return out
}

// toLowerSet retourne nil si items est vide ou contient "All".
func toLowerSet(items []string) map[string]bool {
	if len(items) == 0 {
		return nil
	}
	set := make(map[string]bool, len(items))
	for _, item := range items {
		item = strings.ToLower(strings.TrimSpace(item))
		if item == "all" {
			return nil
		}
		set[item] = true
	}
	return set
}

// SegmentCounts : effectif et chiffre d'affaires par segment, effectif décroissant puis nom.
func SegmentCounts(customers []models.CustomerRFM) []models.SegmentStat {
	stats := segmentStats(customers)
	sort.SliceStable(stats, func(i, j int) bool {
		if stats[i].Count != stats[j].Count {
			return stats[i].Count > stats[j].Count
		}
		return stats[i].Segment < stats[j].Segment
	})
	return stats
}

// SegmentRevenue : chiffre d'affaires par segment, trié par nom de segment.
func SegmentRevenue(customers []models.CustomerRFM) []models.SegmentStat {
	stats := segmentStats(customers)
	sort.Slice(stats, func(i, j int) bool { return stats[i].Segment < stats[j].Segment })
	return stats
}

func segmentStats(customers []models.CustomerRFM) []models.SegmentStat {
	index := map[string]int{}
	var stats []models.SegmentStat
	for _, c := range customers {
		i, ok := index[c.Segment]
		if !ok {
			i = len(stats)
			index[c.Segment] = i
			stats = append(stats, models.SegmentStat{Segment: c.Segment})
		}
		stats[i].Count++
		stats[i].Revenue += c.Monetary
	}
	return stats
}

// MonthlyRevenue : montant sommé par mois calendaire ("YYYY-MM"), ordre chronologique.
// Seuls les mois observés apparaissent.
func MonthlyRevenue(txs []models.Transaction) []models.MonthRevenue {
	sums := map[string]float64{}
	for _, tx := range txs {
		sums[formatMonth(tx.OrderDate)] += tx.Amount
	}
	out := make([]models.MonthRevenue, 0, len(sums))
	for m, v := range sums {
		out = append(out, models.MonthRevenue{Month: m, Revenue: v})
	}
	sort.Slice(out, func(i, j int) bool { return out[i].Month < out[j].Month })
	return out
}

// TopCustomers : n premiers clients par Monetary décroissant (égalités : ordre de la table).
func TopCustomers(customers []models.CustomerRFM, n int) []models.CustomerRFM {
	sorted := append([]models.CustomerRFM(nil), customers...)
	sort.SliceStable(sorted, func(i, j int) bool { return sorted[i].Monetary > sorted[j].Monetary })
	if n >= 0 && len(sorted) > n {
		sorted = sorted[:n]
	}
	return sorted
}

// ComputeKPIs résume une table (filtrée ou non).
func ComputeKPIs(customers []models.CustomerRFM) models.KPIs {
	k := models.KPIs{TotalCustomers: len(customers)}
	if len(customers) == 0 {
		return k
	}
	var rec, freq float64
	for _, c := range customers {
		rec += float64(c.Recency)
		freq += float64(c.Frequency)
		k.TotalRevenue += c.Monetary
	}
	k.AvgRecency = rec / float64(len(customers))
	k.AvgFrequency = freq / float64(len(customers))
	return k
}

// ComputeInsights : part des Champions, nombre de clients At Risk, part des n meilleurs clients.
// Les parts valent 0 si le chiffre d'affaires total est nul ou négatif.
func ComputeInsights(customers []models.CustomerRFM, n int) models.Insights {
	in := models.Insights{TopN: n}
	var total, champions float64
	for _, c := range customers {
		total += c.Monetary
		switch c.Segment {
		case SegmentChampions:
			champions += c.Monetary
		case SegmentAtRisk:
			in.AtRiskCount++
		}
	}
	if total <= 0 {
		return in
	}
	var top float64
	for _, c := range TopCustomers(customers, n) {
		top += c.Monetary
	}
	in.ChampionsRevenueShare = champions / total * 100
	in.TopNRevenueShare = top / total * 100
	return in
}
