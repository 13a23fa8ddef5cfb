package models

import "fmt"

// InferenceInputSize размер входного тензора модели:
// 18 признаков + возраст, рост, вес
const InferenceInputSize = 21

// InferenceOutputSize размер выходного тензора: sbp, dbp, glucose
const InferenceOutputSize = 3

// InferenceRequest вход внешней ML модели, логическая форма (1, 21)
type InferenceRequest struct {
	RequestID string      `json:"request_id"`
	Inputs    [][]float64 `json:"inputs"`
}

// NewInferenceRequest собирает входной тензор из признаков и демографии
func NewInferenceRequest(requestID string, features []float64, age int, heightCm, weightKg float64) (*InferenceRequest, error) {
	if len(features) != InferenceInputSize-3 {
		return nil, fmt.Errorf("ожидалось %d признаков, получено %d", InferenceInputSize-3, len(features))
	}

	row := make([]float64, 0, InferenceInputSize)
	row = append(row, features...)
	row = append(row, float64(age), heightCm, weightKg)

	return &InferenceRequest{
		RequestID: requestID,
		Inputs:    [][]float64{row},
	}, nil
}

// InferenceResponse выход внешней ML модели, форма (1, 3),
// порядок (sbp, dbp, glucose), до применения калибровки
type InferenceResponse struct {
	RequestID string      `json:"request_id,omitempty"`
	Outputs   [][]float64 `json:"outputs"`
}

// Vitals извлекает тройку показателей с проверкой формы
func (r *InferenceResponse) Vitals() (*Vitals, error) {
	if len(r.Outputs) != 1 || len(r.Outputs[0]) != InferenceOutputSize {
		return nil, fmt.Errorf("неверная форма выхода модели: ожидалось (1, %d)", InferenceOutputSize)
	}
	return &Vitals{
		Sbp:     r.Outputs[0][0],
		Dbp:     r.Outputs[0][1],
		Glucose: r.Outputs[0][2],
	}, nil
}
