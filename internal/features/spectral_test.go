package features

import (
	"math"
	"testing"
)

func TestLFPowerShortInput(t *testing.T) {
	// меньше 32 отсчетов — спектральная оценка не имеет смысла
	if got := LFPower(makeSine(0.1, DefaultSampleRate, 31), DefaultSampleRate); got != 0.0 {
		t.Errorf("LFPower = %v, ожидалось 0", got)
	}
	if got := LFPower(nil, DefaultSampleRate); got != 0.0 {
		t.Errorf("LFPower(nil) = %v, ожидалось 0", got)
	}
}

func TestLFPowerNonNegative(t *testing.T) {
	if got := LFPower(makeSine(1.2, DefaultSampleRate, 300), DefaultSampleRate); got < 0 {
		t.Errorf("LFPower = %v, мощность не может быть отрицательной", got)
	}
}

func TestLFPowerSlowVsFast(t *testing.T) {
	// медленная волна внутри LF полосы должна давать заметно больше
	// мощности, чем пульсовая волна 1.2 Гц далеко за ее пределами
	n := 600
	slow := makeSine(0.1, DefaultSampleRate, n)
	fast := makeSine(1.2, DefaultSampleRate, n)

	slowPower := LFPower(slow, DefaultSampleRate)
	fastPower := LFPower(fast, DefaultSampleRate)

	if slowPower <= fastPower {
		t.Errorf("LF мощность: медленная %v <= быстрая %v", slowPower, fastPower)
	}
}

func TestLFPowerFinite(t *testing.T) {
	signal := make([]float64, 512)
	for i := range signal {
		ti := float64(i) / DefaultSampleRate
		signal[i] = math.Sin(2.0*math.Pi*0.08*ti) + 0.5*math.Sin(2.0*math.Pi*1.2*ti)
	}

	got := LFPower(signal, DefaultSampleRate)
	if math.IsNaN(got) || math.IsInf(got, 0) {
		t.Errorf("LFPower = %v", got)
	}
}

func TestHannWindow(t *testing.T) {
	w := hannWindow(64)

	if w[0] != 0.0 {
		t.Errorf("окно Ханна должно начинаться с нуля, w[0] = %v", w[0])
	}
	if math.Abs(w[63]) > 1e-12 {
		t.Errorf("окно Ханна должно заканчиваться нулем, w[63] = %v", w[63])
	}
	// максимум в середине
	if w[32] < 0.99 {
		t.Errorf("середина окна w[32] = %v", w[32])
	}
}
