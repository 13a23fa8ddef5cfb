package features

import (
	"sort"
)

// FindPeaks находит локальные максимумы с минимальным расстоянием между ними.
// Кандидаты сортируются по убыванию амплитуды, поэтому при конфликте
// в пределах minDist всегда побеждает более высокий пик.
func FindPeaks(data []float64, minDist int) []int {
	if len(data) < 3 {
		return []int{}
	}

	// строгие локальные максимумы, края не учитываются, плато пропускаются
	var candidates []int
	for i := 1; i < len(data)-1; i++ {
		if data[i] > data[i-1] && data[i] > data[i+1] {
			candidates = append(candidates, i)
		}
	}

	sort.Slice(candidates, func(i, j int) bool {
		return data[candidates[i]] > data[candidates[j]]
	})

	var kept []int
	for _, idx := range candidates {
		ok := true
		for _, k := range kept {
			if abs(idx-k) < minDist {
				ok = false
				break
			}
		}
		if ok {
			kept = append(kept, idx)
		}
	}

	sort.Ints(kept)
	return kept
}

// FindValleys находит локальные минимумы через инверсию сигнала
func FindValleys(data []float64, minDist int) []int {
	inverted := make([]float64, len(data))
	for i, v := range data {
		inverted[i] = -v
	}
	return FindPeaks(inverted, minDist)
}

func abs(x int) int {
	if x < 0 {
		return -x
	}
	return x
}
