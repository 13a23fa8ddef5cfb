package models

// PPGSampleMessage одна точка сигнала от устройства через MQTT
type PPGSampleMessage struct {
	DeviceID string  `json:"device_id"`
	Value    float64 `json:"value"`
	TimeMs   int64   `json:"time_ms"`
	Units    string  `json:"units,omitempty"`
}
