package features

import (
	"errors"

	"github.com/rvc-001/PPG-PWA-main/pkg/utils"
)

// Ошибки извлечения признаков. Все восстановимые: пользователю
// предлагается перезаписать сигнал с лучшим контактом пальца и камеры.
var (
	ErrSignalTooShort    = errors.New("сигнал слишком короткий для анализа")
	ErrSignalFlatline    = errors.New("сигнал без пульсаций (flatline)")
	ErrInsufficientPeaks = errors.New("недостаточно пиков в сигнале")
	ErrNoValleys         = errors.New("не найдено ни одной впадины")
)

const (
	eps = 1e-6

	minSignalLength  = 30
	flatlineStd      = 1e-4
	peakMinDistance  = 10 // >= 0.33 c при 30 Гц
	sdppgMinDistance = 8
	sdppgLandmarks   = 5
)

// FeatureVectorSize размер вектора признаков — контракт входа ML модели
const FeatureVectorSize = 18

// FeatureVector 18 морфологических и спектральных признаков PPG.
// Порядок полей в Vector() фиксирован и менять его без версионирования
// модели нельзя.
type FeatureVector struct {
	RI            float64 `json:"ri"`             // индекс отражения
	AIx           float64 `json:"aix"`            // индекс аугментации
	SystolicSlope float64 `json:"sys_slope"`      // систолический наклон
	DiastSlope    float64 `json:"dia_slope"`      // диастолический наклон
	PulseWidth50  float64 `json:"pw50"`           // ширина пульса на 50%
	PulseWidth75  float64 `json:"pw75"`           // ширина пульса на 75%
	HeartRate     float64 `json:"hr"`             // ЧСС, уд/мин
	HRV           float64 `json:"hrv"`            // вариабельность интервалов
	AUC           float64 `json:"auc"`            // площадь под кривой
	BA            float64 `json:"b_a"`            // отношение b/a (SDPPG)
	CA            float64 `json:"c_a"`            // отношение c/a
	DA            float64 `json:"d_a"`            // отношение d/a
	EA            float64 `json:"e_a"`            // отношение e/a
	Stiffness     float64 `json:"stiffness"`      // индекс жесткости |a-b|
	MeanAmp       float64 `json:"mean_amp"`       // средняя амплитуда
	StdAmp        float64 `json:"std_amp"`        // отклонение амплитуды
	BaselineTrend float64 `json:"baseline_trend"` // низкочастотный дрейф
	SpectralLF    float64 `json:"spectral_lf"`    // мощность LF полосы
}

// Vector возвращает признаки в фиксированном порядке
func (fv *FeatureVector) Vector() []float64 {
	return []float64{
		fv.RI, fv.AIx, fv.SystolicSlope, fv.DiastSlope,
		fv.PulseWidth50, fv.PulseWidth75, fv.HeartRate, fv.HRV,
		fv.AUC, fv.BA, fv.CA, fv.DA, fv.EA, fv.Stiffness,
		fv.MeanAmp, fv.StdAmp, fv.BaselineTrend, fv.SpectralLF,
	}
}

// indexList список индексов с зажимающим доступом: запрос k-го элемента
// при нехватке возвращает последний доступный. Политика деградации
// сосредоточена здесь, а не размазана по формулам.
type indexList []int

// At возвращает k-й индекс, либо последний при выходе за границы
func (l indexList) At(k int) int {
	if len(l) == 0 {
		return 0
	}
	if k >= len(l) {
		return l[len(l)-1]
	}
	return l[k]
}

// Extractor вычисляет вектор признаков из обработанного PPG сигнала
type Extractor struct {
	fs float64
}

// NewExtractor создает экстрактор для заданной частоты дискретизации
func NewExtractor(fs float64) *Extractor {
	return &Extractor{fs: fs}
}

// Extract вычисляет все 18 признаков. Либо полный вектор, либо ошибка —
// частично заполненный вектор наружу не отдается.
func (e *Extractor) Extract(signal []float64) (*FeatureVector, error) {
	if len(signal) < minSignalLength {
		return nil, ErrSignalTooShort
	}
	if utils.StdPop(signal) < flatlineStd {
		return nil, ErrSignalFlatline
	}

	peaks := indexList(FindPeaks(signal, peakMinDistance))
	if len(peaks) < 2 {
		return nil, ErrInsufficientPeaks
	}

	valleys := indexList(FindValleys(signal, peakMinDistance))
	if len(valleys) < 1 {
		return nil, ErrNoValleys
	}

	peakAmps := make([]float64, len(peaks))
	for i, idx := range peaks {
		peakAmps[i] = signal[idx]
	}
	meanPeakAmp := utils.Mean(peakAmps)

	fv := &FeatureVector{}

	// морфология волны
	firstValley := signal[valleys.At(0)]
	fv.RI = firstValley / (meanPeakAmp + eps)
	fv.AIx = (utils.Max(signal) - utils.Min(signal)) / (meanPeakAmp + eps)

	fv.SystolicSlope = (signal[peaks.At(0)] - firstValley) /
		(utils.Abs(float64(peaks.At(0)-valleys.At(0))) + eps)
	fv.DiastSlope = (signal[peaks.At(1)] - firstValley) /
		(utils.Abs(float64(peaks.At(1)-valleys.At(0))) + eps)

	fv.PulseWidth50 = e.pulseWidth(signal, 0.5*meanPeakAmp)
	fv.PulseWidth75 = e.pulseWidth(signal, 0.75*meanPeakAmp)

	// ритм
	durationSec := float64(len(signal)) / e.fs
	fv.HeartRate = float64(len(peaks)) * 60.0 / durationSec
	fv.HRV = e.peakIntervalStd(peaks)

	fv.AUC = utils.Trapz(signal)

	// морфология второй производной (точки a..e)
	fv.BA, fv.CA, fv.DA, fv.EA, fv.Stiffness = e.sdppgFeatures(signal)

	fv.MeanAmp = utils.Mean(signal)
	fv.StdAmp = utils.StdPop(signal)

	// дрейф базовой линии: средний градиент сильно сглаженной копии
	fv.BaselineTrend = utils.Mean(utils.Gradient(GaussianSmooth(signal, 5.0)))

	fv.SpectralLF = LFPower(signal, e.fs)

	return fv, nil
}

// pulseWidth длительность (в секундах) превышения порога
func (e *Extractor) pulseWidth(signal []float64, threshold float64) float64 {
	count := 0
	for _, v := range signal {
		if v > threshold {
			count++
		}
	}
	return float64(count) / e.fs
}

// peakIntervalStd отклонение межпиковых интервалов в секундах
func (e *Extractor) peakIntervalStd(peaks indexList) float64 {
	if len(peaks) < 2 {
		return 0.0
	}

	intervals := make([]float64, len(peaks)-1)
	for i := 1; i < len(peaks); i++ {
		intervals[i-1] = float64(peaks[i]-peaks[i-1]) / e.fs
	}
	return utils.StdPop(intervals)
}

// sdppgFeatures признаки второй производной: отношения b/a..e/a и индекс
// жесткости. Ориентиры a..e — первые пять пиков нормализованной второй
// производной; при нехватке ориентиров все пять значений равны нулю.
func (e *Extractor) sdppgFeatures(signal []float64) (ba, ca, da, ea, stiffness float64) {
	sdppg := utils.Gradient(utils.Gradient(signal))
	norm := utils.ZNormalize(sdppg, eps)

	landmarks := FindPeaks(norm, sdppgMinDistance)
	if len(landmarks) < sdppgLandmarks {
		return 0, 0, 0, 0, 0
	}

	a := norm[landmarks[0]]
	b := norm[landmarks[1]]
	c := norm[landmarks[2]]
	d := norm[landmarks[3]]
	ev := norm[landmarks[4]]

	ba = b / (a + eps)
	ca = c / (a + eps)
	da = d / (a + eps)
	ea = ev / (a + eps)
	stiffness = utils.Abs(a - b)
	return ba, ca, da, ea, stiffness
}
