package models

import (
	"fmt"
	"time"
)

// SeriesSchemaVersion текущая версия схемы сохраняемых временных рядов.
// При несовпадении версии чтение завершается ошибкой, а не тихими
// значениями по умолчанию.
const SeriesSchemaVersion = 1

// SignalSample одна точка сырого PPG сигнала
type SignalSample struct {
	TMs int64   `json:"t_ms"` // время от начала записи, мс
	V   float64 `json:"v"`    // значение яркости кадра
}

// PPGTimeSeries сохраняемый временной ряд с версией схемы
type PPGTimeSeries struct {
	SchemaVersion int            `json:"schema_version"`
	Samples       []SignalSample `json:"samples"`
	Count         int            `json:"count"`
	LastTMs       int64          `json:"last_t_ms"`
}

// Validate проверяет согласованность ряда после десериализации
func (ts *PPGTimeSeries) Validate() error {
	if ts.SchemaVersion != SeriesSchemaVersion {
		return fmt.Errorf("неподдерживаемая версия схемы ряда: %d (ожидается %d)",
			ts.SchemaVersion, SeriesSchemaVersion)
	}
	if ts.Count != len(ts.Samples) {
		return fmt.Errorf("счетчик ряда %d не совпадает с числом точек %d",
			ts.Count, len(ts.Samples))
	}
	if ts.Count > 0 && ts.Samples[ts.Count-1].TMs != ts.LastTMs {
		return fmt.Errorf("последняя отметка ряда %d не совпадает с last_t_ms %d",
			ts.Samples[ts.Count-1].TMs, ts.LastTMs)
	}
	return nil
}

// Values возвращает только значения сигнала
func (ts *PPGTimeSeries) Values() []float64 {
	values := make([]float64, len(ts.Samples))
	for i, s := range ts.Samples {
		values[i] = s.V
	}
	return values
}

// FeatureSet сохраняемый вектор признаков с версией схемы
type FeatureSet struct {
	SchemaVersion int       `json:"schema_version"`
	Values        []float64 `json:"values"`
}

// Validate проверяет версию и размер вектора признаков
func (fs *FeatureSet) Validate() error {
	if fs.SchemaVersion != SeriesSchemaVersion {
		return fmt.Errorf("неподдерживаемая версия схемы признаков: %d", fs.SchemaVersion)
	}
	if len(fs.Values) != 0 && len(fs.Values) != 18 {
		return fmt.Errorf("размер вектора признаков %d, ожидается 18", len(fs.Values))
	}
	return nil
}

// PPGSession одна запись измерения: демография, сырой сигнал,
// признаки и витальные показатели
type PPGSession struct {
	// ID — четырехзначный десятичный номер с ведущими нулями ("0001"),
	// монотонно растущий; контракт экспорта, не UUID
	ID       string `json:"id" gorm:"type:char(4);primaryKey"`
	Name     string `json:"name" gorm:"type:varchar(255)"`
	DeviceID string `json:"device_id" gorm:"type:varchar(100);index"`

	Age      int     `json:"age"`
	HeightCm float64 `json:"height_cm"`
	WeightKg float64 `json:"weight_kg"`

	StartTime time.Time  `json:"start_time" gorm:"not null;index"`
	EndTime   *time.Time `json:"end_time"`

	RawData  PPGTimeSeries `json:"raw_data" gorm:"serializer:json;type:jsonb"`
	Features FeatureSet    `json:"features" gorm:"serializer:json;type:jsonb"`

	// эвристическая оценка, доступна сразу после остановки записи
	SbpHeuristic     float64 `json:"sbp_heuristic"`
	DbpHeuristic     float64 `json:"dbp_heuristic"`
	GlucoseHeuristic float64 `json:"glucose_heuristic"`

	// результат внешней модели, дозаполняется асинхронно после инференса
	SbpModel     *float64 `json:"sbp_model"`
	DbpModel     *float64 `json:"dbp_model"`
	GlucoseModel *float64 `json:"glucose_model"`

	CreatedAt time.Time `json:"created_at"`
}

func (PPGSession) TableName() string {
	return "ppg_sessions"
}

// CalibrationRecord сохраняемое аддитивное смещение по каналам.
// Хранится под фиксированным ключом, по умолчанию нули.
type CalibrationRecord struct {
	Key           string    `json:"key" gorm:"type:varchar(64);primaryKey"`
	SchemaVersion int       `json:"schema_version"`
	Sbp           float64   `json:"sbp"`
	Dbp           float64   `json:"dbp"`
	Glu           float64   `json:"glu"`
	UpdatedAt     time.Time `json:"updated_at"`
}

func (CalibrationRecord) TableName() string {
	return "calibration_records"
}

// Vitals тройка витальных показателей (SBP, DBP, глюкоза)
type Vitals struct {
	Sbp     float64 `json:"sbp"`
	Dbp     float64 `json:"dbp"`
	Glucose float64 `json:"glucose"`
}
