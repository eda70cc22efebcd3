package calculator

import (
	"sort"
)

// ascending(k) = [1..k], descending(k) = [k..1].
func ascending(k int) []int {
	out := make([]int, k)
	for i := range out {
		out[i] = i + 1
	}
	return out
}

func descending(k int) []int {
	out := make([]int, k)
	for i := range out {
		out[i] = k - i
	}
	return out
}

// quantileEdges : k+1 bornes aux quantiles i/k, interpolation linéaire sur des valeurs triées.
func quantileEdges(sorted []float64, k int) []float64 {
	n := len(sorted)
	edges := make([]float64, k+1)
	for i := 0; i <= k; i++ {
		num := i * (n - 1)
		lo := num / k
		rem := num % k
		if rem == 0 || lo+1 >= n {
			edges[i] = sorted[lo]
			continue
		}
		frac := float64(rem) / float64(k)
		edges[i] = sorted[lo] + (sorted[lo+1]-sorted[lo])*frac
	}
	return edges
}

// qcut découpe values en len(labels) seaux de même effectif et renvoie le label de chaque valeur.
//
// Seau de v : plus petit j tel que v <= edges[j+1] (le premier seau inclut sa borne basse).
// Des bornes dupliquées donnent des seaux vides : les seaux restants gardent leur label de position.
// Si toutes les bornes sont égales, chaque valeur reçoit le plus petit label.
// Le booléen indique une distribution dégénérée.
func qcut(values []float64, labels []int) ([]int, bool) {
	out := make([]int, len(values))
	if len(values) == 0 {
		return out, false
	}
	sorted := append([]float64(nil), values...)
	sort.Float64s(sorted)
	k := len(labels)
	edges := quantileEdges(sorted, k)

	if edges[0] == edges[k] {
		low := lowest(labels)
		for i := range out {
			out[i] = low
		}
		return out, true
	}

	degenerate := false
	for i := 1; i <= k; i++ {
		if edges[i] == edges[i-1] {
			degenerate = true
			break
		}
	}
	for i, v := range values {
		j := sort.Search(k, func(j int) bool { return v <= edges[j+1] })
		if j == k {
			j = k - 1
		}
		out[i] = labels[j]
	}
	return out, degenerate
}

func lowest(labels []int) int {
	low := labels[0]
	for _, l := range labels[1:] {
		if l < low {
			low = l
		}
	}
	return low
}

// rankFirst : rang 1..n, égalités départagées par ordre d'apparition.
func rankFirst(values []float64) []float64 {
	idx := make([]int, len(values))
	for i := range idx {
		idx[i] = i
	}
	sort.SliceStable(idx, func(a, b int) bool { return values[idx[a]] < values[idx[b]] })
	ranks := make([]float64, len(values))
	for pos, i := range idx {
		ranks[i] = float64(pos + 1)
	}
	return ranks
}
