package features

import (
	"errors"
	"math"
	"testing"
)

func TestExtractSignalTooShort(t *testing.T) {
	e := NewExtractor(DefaultSampleRate)

	fv, err := e.Extract(makeSine(1.2, DefaultSampleRate, 29))
	if !errors.Is(err, ErrSignalTooShort) {
		t.Errorf("err = %v, ожидалось ErrSignalTooShort", err)
	}
	if fv != nil {
		t.Error("при ошибке вектор должен быть nil")
	}
}

func TestExtractFlatline(t *testing.T) {
	e := NewExtractor(DefaultSampleRate)

	flat := make([]float64, 100)
	for i := range flat {
		flat[i] = 5.0
	}

	if _, err := e.Extract(flat); !errors.Is(err, ErrSignalFlatline) {
		t.Errorf("err = %v, ожидалось ErrSignalFlatline", err)
	}
}

func TestExtractInsufficientPeaks(t *testing.T) {
	e := NewExtractor(DefaultSampleRate)

	// монотонный рост: ни одного внутреннего максимума
	ramp := make([]float64, 60)
	for i := range ramp {
		ramp[i] = float64(i)
	}

	if _, err := e.Extract(ramp); !errors.Is(err, ErrInsufficientPeaks) {
		t.Errorf("err = %v, ожидалось ErrInsufficientPeaks", err)
	}
}

func TestExtractNoValleys(t *testing.T) {
	e := NewExtractor(DefaultSampleRate)

	// два строгих пика, но минимум между ними — плато,
	// поэтому строгой впадины нет
	signal := []float64{
		0, 1, 2, 3, 4, 5, 6, 7, 8, 9, 10, 11, 12,
		11, 10, 9, 9, 9, 10, 11, 12, 13, 14,
		13, 12, 11, 10, 9, 8, 7, 6, 5,
	}

	if _, err := e.Extract(signal); !errors.Is(err, ErrNoValleys) {
		t.Errorf("err = %v, ожидалось ErrNoValleys", err)
	}
}

func TestExtractSinusoidHeartRate(t *testing.T) {
	// 1.2 Гц при 30 Гц за 10 секунд: ожидаемая ЧСС около 72 уд/мин
	e := NewExtractor(DefaultSampleRate)

	fv, err := e.Extract(makeSine(1.2, DefaultSampleRate, 300))
	if err != nil {
		t.Fatalf("неожиданная ошибка: %v", err)
	}

	if math.Abs(fv.HeartRate-72.0) > 5.0 {
		t.Errorf("HeartRate = %v, ожидалось 72±5", fv.HeartRate)
	}
}

func TestExtractVectorSize(t *testing.T) {
	e := NewExtractor(DefaultSampleRate)

	fv, err := e.Extract(makeSine(1.2, DefaultSampleRate, 300))
	if err != nil {
		t.Fatalf("неожиданная ошибка: %v", err)
	}

	vec := fv.Vector()
	if len(vec) != FeatureVectorSize {
		t.Fatalf("размер вектора %d, ожидалось %d", len(vec), FeatureVectorSize)
	}

	// порядок — контракт входного тензора модели
	if vec[0] != fv.RI || vec[6] != fv.HeartRate || vec[13] != fv.Stiffness || vec[17] != fv.SpectralLF {
		t.Error("нарушен фиксированный порядок признаков")
	}

	for i, v := range vec {
		if math.IsNaN(v) || math.IsInf(v, 0) {
			t.Errorf("признак %d не является числом: %v", i, v)
		}
	}
}

func TestExtractAllFinite(t *testing.T) {
	e := NewExtractor(DefaultSampleRate)

	// зашумленная синусоида с дрейфом базовой линии
	signal := make([]float64, 300)
	for i := range signal {
		ti := float64(i) / DefaultSampleRate
		signal[i] = math.Sin(2.0*math.Pi*1.2*ti) +
			0.3*math.Sin(2.0*math.Pi*3.7*ti) +
			0.05*ti
	}

	fv, err := e.Extract(signal)
	if err != nil {
		t.Fatalf("неожиданная ошибка: %v", err)
	}
	for i, v := range fv.Vector() {
		if math.IsNaN(v) || math.IsInf(v, 0) {
			t.Errorf("признак %d не является числом: %v", i, v)
		}
	}
}

func TestIndexListClamping(t *testing.T) {
	// деградация на границе: запрос за пределами списка
	// возвращает последний доступный индекс
	l := indexList{3, 7}

	cases := []struct {
		k, want int
	}{
		{0, 3},
		{1, 7},
		{2, 7},
		{10, 7},
	}
	for _, c := range cases {
		if got := l.At(c.k); got != c.want {
			t.Errorf("At(%d) = %d, ожидалось %d", c.k, got, c.want)
		}
	}

	var empty indexList
	if got := empty.At(0); got != 0 {
		t.Errorf("At на пустом списке = %d, ожидалось 0", got)
	}
}
