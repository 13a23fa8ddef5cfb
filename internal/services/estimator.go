package services

import (
	"math"

	"github.com/rvc-001/PPG-PWA-main/internal/features"
	"github.com/rvc-001/PPG-PWA-main/internal/models"
	"github.com/rvc-001/PPG-PWA-main/pkg/utils"
)

// Границы клинически правдоподобных значений
const (
	SbpMin, SbpMax         = 90.0, 180.0
	DbpMin, DbpMax         = 60.0, 120.0
	GlucoseMin, GlucoseMax = 70.0, 250.0
)

// Estimator закрытые эвристические формулы витальных показателей.
// Это резервная оценка, которая показывается до (или вместо) ответа
// внешней модели, поэтому путь никогда не завершается ошибкой.
type Estimator struct{}

// NewEstimator создает эвристический оценщик
func NewEstimator() *Estimator {
	return &Estimator{}
}

// Estimate вычисляет SBP/DBP/глюкозу по признакам и демографии.
// Результаты округлены и зажаты в допустимые диапазоны.
func (e *Estimator) Estimate(fv *features.FeatureVector, age int, heightCm, weightKg float64) models.Vitals {
	bmi := 0.0
	if heightCm > 0 {
		heightM := heightCm / 100.0
		bmi = weightKg / (heightM * heightM)
	}
	bmi = utils.SafeFloat(bmi)

	ageF := float64(age)
	hr := utils.SafeFloat(fv.HeartRate)
	ri := utils.SafeFloat(fv.RI)
	aix := utils.SafeFloat(fv.AIx)
	stiff := utils.SafeFloat(fv.Stiffness)

	sbp := 105.0 + 0.5*ageF + 0.5*bmi + 0.2*hr - 20.0*ri
	dbp := 65.0 + 0.2*ageF + 0.3*bmi + 0.15*hr - 10.0*ri + 10.0*aix
	glucose := 85.0 + 0.8*bmi + 0.2*ageF + 100.0*stiff - 0.5*hr

	return models.Vitals{
		Sbp:     math.Round(clamp(sbp, SbpMin, SbpMax)),
		Dbp:     math.Round(clamp(dbp, DbpMin, DbpMax)),
		Glucose: math.Round(clamp(glucose, GlucoseMin, GlucoseMax)),
	}
}

func clamp(v, lo, hi float64) float64 {
	if math.IsNaN(v) {
		return lo
	}
	if v < lo {
		return lo
	}
	if v > hi {
		return hi
	}
	return v
}
