package features

import (
	"math"
)

const (
	lfBandLowHz  = 0.01
	lfBandHighHz = 0.15

	welchMaxSegment = 256
	welchMinLength  = 32
)

// LFPower оценивает мощность низкочастотной полосы [0.01, 0.15] Гц
// методом Уэлча: усредненные периодограммы перекрывающихся окон Ханна.
// ДПФ считается напрямую — при n <= 256 и малом числе окон это дешевле,
// чем тянуть FFT, и точность та же.
func LFPower(data []float64, fs float64) float64 {
	if len(data) < welchMinLength {
		return 0.0
	}

	n := welchMaxSegment
	if len(data) < n {
		n = len(data)
	}

	step := n / 2 // перекрытие 50%
	numWindows := (len(data)-n)/step + 1
	if numWindows < 1 {
		return 0.0
	}

	window := hannWindow(n)
	windowPower := 0.0
	for _, w := range window {
		windowPower += w * w
	}

	numBins := n/2 + 1
	psd := make([]float64, numBins)

	for w := 0; w < numWindows; w++ {
		start := w * step
		segment := make([]float64, n)
		for i := 0; i < n; i++ {
			segment[i] = data[start+i] * window[i]
		}

		for k := 0; k < numBins; k++ {
			var re, im float64
			for i := 0; i < n; i++ {
				angle := -2.0 * math.Pi * float64(k) * float64(i) / float64(n)
				re += segment[i] * math.Cos(angle)
				im += segment[i] * math.Sin(angle)
			}
			psd[k] += re*re + im*im
		}
	}

	// усреднение по окнам и нормировка, односторонний спектр:
	// удваиваем все бины кроме нулевого и найквистовского
	scale := 1.0 / (fs * windowPower)
	for k := range psd {
		psd[k] = psd[k] / float64(numWindows) * scale
		if k != 0 && k != numBins-1 {
			psd[k] *= 2.0
		}
	}

	freqRes := fs / float64(n)
	power := 0.0
	for k := range psd {
		freq := float64(k) * freqRes
		if freq >= lfBandLowHz && freq <= lfBandHighHz {
			power += psd[k]
		}
	}
	return power
}

// hannWindow строит окно Ханна длины n
func hannWindow(n int) []float64 {
	window := make([]float64, n)
	for i := 0; i < n; i++ {
		window[i] = 0.5 * (1.0 - math.Cos(2.0*math.Pi*float64(i)/float64(n-1)))
	}
	return window
}
