package features

import (
	"log"
	"math"

	"github.com/rvc-001/PPG-PWA-main/pkg/utils"
)

const (
	// DefaultSampleRate номинальная частота дискретизации камеры (Гц)
	DefaultSampleRate = 30.0

	bandpassLowHz  = 0.5
	bandpassHighHz = 5.0
	stabilityBound = 1e9
	trimSeconds    = 3.0
)

// biquad рекурсивное звено второго порядка (нормировано по a0)
type biquad struct {
	b0, b1, b2 float64
	a1, a2     float64
}

// apply пропускает сигнал через звено (прямая форма I)
func (bq biquad) apply(data []float64) []float64 {
	out := make([]float64, len(data))
	var x1, x2, y1, y2 float64

	for i, x := range data {
		y := bq.b0*x + bq.b1*x1 + bq.b2*x2 - bq.a1*y1 - bq.a2*y2
		x2, x1 = x1, x
		y2, y1 = y1, y
		out[i] = y
	}
	return out
}

// lowpassBiquad строит НЧ-звено Баттерворта (Q = 1/sqrt(2))
func lowpassBiquad(freq, fs float64) biquad {
	w0 := 2.0 * math.Pi * freq / fs
	cosw := math.Cos(w0)
	alpha := math.Sin(w0) / math.Sqrt2

	a0 := 1.0 + alpha
	return biquad{
		b0: (1.0 - cosw) / 2.0 / a0,
		b1: (1.0 - cosw) / a0,
		b2: (1.0 - cosw) / 2.0 / a0,
		a1: -2.0 * cosw / a0,
		a2: (1.0 - alpha) / a0,
	}
}

// highpassBiquad строит ВЧ-звено Баттерворта (Q = 1/sqrt(2))
func highpassBiquad(freq, fs float64) biquad {
	w0 := 2.0 * math.Pi * freq / fs
	cosw := math.Cos(w0)
	alpha := math.Sin(w0) / math.Sqrt2

	a0 := 1.0 + alpha
	return biquad{
		b0: (1.0 + cosw) / 2.0 / a0,
		b1: -(1.0 + cosw) / a0,
		b2: (1.0 + cosw) / 2.0 / a0,
		a1: -2.0 * cosw / a0,
		a2: (1.0 - alpha) / a0,
	}
}

// Preprocessor очищает сырой PPG сигнал: полосовой фильтр без фазового
// сдвига, гауссово сглаживание и обрезка переходных процессов по краям
type Preprocessor struct {
	fs       float64
	sections []biquad
}

// NewPreprocessor создает препроцессор с фиксированной полосой 0.5-5 Гц.
// Каскад из двух ВЧ и двух НЧ звеньев дает суммарный 8-й порядок.
func NewPreprocessor(fs float64) *Preprocessor {
	return &Preprocessor{
		fs: fs,
		sections: []biquad{
			highpassBiquad(bandpassLowHz, fs),
			highpassBiquad(bandpassLowHz, fs),
			lowpassBiquad(bandpassHighHz, fs),
			lowpassBiquad(bandpassHighHz, fs),
		},
	}
}

// Process выполняет полный конвейер предобработки
func (p *Preprocessor) Process(raw []float64) []float64 {
	if len(raw) == 0 {
		return []float64{}
	}

	// NaN во входе — защитный откат: заменяем нулями и пропускаем
	// фильтрацию и сглаживание; обрезка краев применяется как обычно
	if utils.HasNaN(raw) {
		log.Println("препроцессор: во входном сигнале NaN, возвращаем очищенный сигнал без фильтрации")
		sanitized := make([]float64, len(raw))
		for i, v := range raw {
			if math.IsNaN(v) {
				sanitized[i] = 0.0
			} else {
				sanitized[i] = v
			}
		}
		return p.trimEdges(sanitized)
	}

	filtered := p.filtfilt(raw)

	// защита от численной нестабильности: при NaN или огромных
	// значениях отбрасываем результат фильтра и работаем с сырым сигналом
	if !isStable(filtered) {
		log.Println("препроцессор: фильтр нестабилен, используем нефильтрованный сигнал")
		filtered = raw
	}

	smoothed := GaussianSmooth(filtered, 2.0)

	return p.trimEdges(smoothed)
}

// filtfilt применяет фильтр вперед-назад для нулевой фазовой задержки
func (p *Preprocessor) filtfilt(data []float64) []float64 {
	out := p.forward(data)
	out = reverse(out)
	out = p.forward(out)
	return reverse(out)
}

// forward один прямой проход через весь каскад
func (p *Preprocessor) forward(data []float64) []float64 {
	out := data
	for _, section := range p.sections {
		out = section.apply(out)
	}
	return out
}

// trimEdges убирает по 3 секунды с каждого края, если сигнал
// достаточно длинный, иначе оставляет как есть
func (p *Preprocessor) trimEdges(data []float64) []float64 {
	trim := int(trimSeconds * p.fs)
	if float64(len(data)) <= 2.5*float64(trim) {
		return data
	}
	return data[trim : len(data)-trim]
}

// GaussianSmooth сглаживает сигнал дискретным гауссовым ядром.
// Края не дополняются нулями, а зажимаются на ближайший валидный индекс,
// поэтому длина сохраняется и константа остается неизменной.
func GaussianSmooth(data []float64, sigma float64) []float64 {
	if len(data) == 0 {
		return []float64{}
	}

	radius := int(math.Ceil(4.0 * sigma))
	kernel := make([]float64, 2*radius+1)
	sum := 0.0

	for i := -radius; i <= radius; i++ {
		k := math.Exp(-float64(i*i) / (2.0 * sigma * sigma))
		kernel[i+radius] = k
		sum += k
	}
	for i := range kernel {
		kernel[i] /= sum
	}

	out := make([]float64, len(data))
	for i := range data {
		acc := 0.0
		for j := -radius; j <= radius; j++ {
			idx := i + j
			if idx < 0 {
				idx = 0
			}
			if idx >= len(data) {
				idx = len(data) - 1
			}
			acc += data[idx] * kernel[j+radius]
		}
		out[i] = acc
	}
	return out
}

// isStable проверяет результат фильтра на NaN и выход за допустимую величину
func isStable(data []float64) bool {
	for _, v := range data {
		if math.IsNaN(v) || math.Abs(v) > stabilityBound {
			return false
		}
	}
	return true
}

// reverse возвращает перевернутую копию массива
func reverse(data []float64) []float64 {
	out := make([]float64, len(data))
	for i, v := range data {
		out[len(data)-1-i] = v
	}
	return out
}
