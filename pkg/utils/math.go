package utils

import (
	"math"
)

// SafeFloat заменяет NaN и Inf на ноль
func SafeFloat(v float64) float64 {
	if math.IsNaN(v) || math.IsInf(v, 0) {
		return 0.0
	}
	return v
}

// Mean вычисляет среднее значение
func Mean(data []float64) float64 {
	if len(data) == 0 {
		return 0.0
	}

	sum := 0.0
	for _, v := range data {
		sum += v
	}
	return sum / float64(len(data))
}

// StdPop вычисляет стандартное отклонение (популяционное, делитель N)
func StdPop(data []float64) float64 {
	if len(data) == 0 {
		return 0.0
	}

	mean := Mean(data)
	sumSquares := 0.0

	for _, v := range data {
		diff := v - mean
		sumSquares += diff * diff
	}

	return math.Sqrt(sumSquares / float64(len(data)))
}

// Min находит минимальное значение
func Min(data []float64) float64 {
	if len(data) == 0 {
		return 0.0
	}

	min := data[0]
	for _, v := range data[1:] {
		if v < min {
			min = v
		}
	}
	return min
}

// Max находит максимальное значение
func Max(data []float64) float64 {
	if len(data) == 0 {
		return 0.0
	}

	max := data[0]
	for _, v := range data[1:] {
		if v > max {
			max = v
		}
	}
	return max
}

// Abs возвращает абсолютное значение
func Abs(x float64) float64 {
	if x < 0 {
		return -x
	}
	return x
}

// Diff вычисляет разности соседних элементов
func Diff(data []float64) []float64 {
	if len(data) <= 1 {
		return []float64{}
	}

	result := make([]float64, len(data)-1)
	for i := 1; i < len(data); i++ {
		result[i-1] = data[i] - data[i-1]
	}
	return result
}

// Gradient вычисляет градиент центральными разностями,
// на краях — односторонними
func Gradient(data []float64) []float64 {
	n := len(data)
	if n == 0 {
		return []float64{}
	}
	if n == 1 {
		return []float64{0.0}
	}

	result := make([]float64, n)
	result[0] = data[1] - data[0]
	result[n-1] = data[n-1] - data[n-2]

	for i := 1; i < n-1; i++ {
		result[i] = (data[i+1] - data[i-1]) / 2.0
	}
	return result
}

// Trapz вычисляет интеграл методом трапеций (шаг = 1 отсчет)
func Trapz(data []float64) float64 {
	if len(data) < 2 {
		return 0.0
	}

	sum := 0.0
	for i := 1; i < len(data); i++ {
		sum += (data[i] + data[i-1]) / 2.0
	}
	return sum
}

// ZNormalize приводит массив к нулевому среднему и единичной дисперсии
func ZNormalize(data []float64, eps float64) []float64 {
	mean := Mean(data)
	std := StdPop(data)

	result := make([]float64, len(data))
	for i, v := range data {
		result[i] = (v - mean) / (std + eps)
	}
	return result
}

// HasNaN проверяет наличие NaN в массиве
func HasNaN(data []float64) bool {
	for _, v := range data {
		if math.IsNaN(v) {
			return true
		}
	}
	return false
}
