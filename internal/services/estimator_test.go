package services

import (
	"math"
	"testing"

	"github.com/rvc-001/PPG-PWA-main/internal/features"
)

func TestEstimateWithinClamps(t *testing.T) {
	e := NewEstimator()

	// произвольные конечные входы не должны выводить результат
	// за клинически правдоподобные границы
	cases := []struct {
		name string
		fv   features.FeatureVector
		age  int
		h, w float64
	}{
		{"нулевые признаки", features.FeatureVector{}, 30, 170, 70},
		{"огромный RI", features.FeatureVector{RI: 1e6, HeartRate: 70}, 40, 180, 80},
		{"отрицательный RI", features.FeatureVector{RI: -1e6}, 40, 180, 80},
		{"огромная жесткость", features.FeatureVector{Stiffness: 1e9}, 25, 160, 55},
		{"огромная ЧСС", features.FeatureVector{HeartRate: 1e7}, 90, 150, 120},
		{"отрицательная ЧСС", features.FeatureVector{HeartRate: -1e7}, 1, 100, 20},
		{"нулевой рост", features.FeatureVector{HeartRate: 72}, 30, 0, 70},
		{"NaN в признаках", features.FeatureVector{RI: math.NaN(), HeartRate: math.NaN(), Stiffness: math.NaN()}, 30, 170, 70},
	}

	for _, c := range cases {
		got := e.Estimate(&c.fv, c.age, c.h, c.w)

		if got.Sbp < SbpMin || got.Sbp > SbpMax {
			t.Errorf("%s: sbp = %v вне [%v, %v]", c.name, got.Sbp, SbpMin, SbpMax)
		}
		if got.Dbp < DbpMin || got.Dbp > DbpMax {
			t.Errorf("%s: dbp = %v вне [%v, %v]", c.name, got.Dbp, DbpMin, DbpMax)
		}
		if got.Glucose < GlucoseMin || got.Glucose > GlucoseMax {
			t.Errorf("%s: glucose = %v вне [%v, %v]", c.name, got.Glucose, GlucoseMin, GlucoseMax)
		}

		// значения всегда целые
		if got.Sbp != math.Trunc(got.Sbp) || got.Dbp != math.Trunc(got.Dbp) || got.Glucose != math.Trunc(got.Glucose) {
			t.Errorf("%s: результат не округлен: %+v", c.name, got)
		}
	}
}

func TestEstimateTypicalAdult(t *testing.T) {
	e := NewEstimator()

	fv := features.FeatureVector{
		RI:        0.4,
		AIx:       1.1,
		HeartRate: 72,
		Stiffness: 0.2,
	}
	got := e.Estimate(&fv, 35, 175, 70)

	// sbp = 105 + 17.5 + 0.5*22.86 + 14.4 - 8 = 140.3 -> 140
	if got.Sbp != 140 {
		t.Errorf("sbp = %v, ожидалось 140", got.Sbp)
	}
}
