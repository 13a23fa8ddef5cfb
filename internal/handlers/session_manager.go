package handlers

import (
	"errors"
	"fmt"
	"log"
	"sync"
	"time"

	"github.com/rvc-001/PPG-PWA-main/internal/features"
	"github.com/rvc-001/PPG-PWA-main/internal/models"
	"github.com/rvc-001/PPG-PWA-main/internal/services"
)

// SessionStore доступ к сохраненным сессиям, нужный менеджеру записей
// и REST слою; *services.DataService реализует его поверх gorm
type SessionStore interface {
	NextSessionID() (string, error)
	CreateSession(session *models.PPGSession) error
	GetSession(id string) (*models.PPGSession, error)
	ListSessions() ([]models.PPGSession, error)
	UpdateModelVitals(id string, vitals models.Vitals) error
}

// Demographics демография пациента, вводимая перед записью
type Demographics struct {
	Name     string
	Age      int
	HeightCm float64
	WeightKg float64
}

type activeRecording struct {
	sessionID    string
	deviceID     string
	demographics Demographics
	startTime    time.Time
}

// SessionManager управляет жизненным циклом записей PPG: старт,
// накопление отсчетов, остановка с синхронным прогоном конвейера
// и асинхронным дозаполнением показателей внешней модели
type SessionManager struct {
	dataService  SessionStore
	mlService    *services.MLService
	estimator    *services.Estimator
	preprocessor *features.Preprocessor
	extractor    *features.Extractor
	buffer       *SampleBuffer

	active map[string]*activeRecording // ключ — deviceID
	mu     sync.RWMutex
}

// NewSessionManager создает менеджер сессий
func NewSessionManager(
	dataService SessionStore,
	mlService *services.MLService,
	buffer *SampleBuffer,
	fs float64,
) *SessionManager {
	manager := &SessionManager{
		dataService:  dataService,
		mlService:    mlService,
		estimator:    services.NewEstimator(),
		preprocessor: features.NewPreprocessor(fs),
		extractor:    features.NewExtractor(fs),
		buffer:       buffer,
		active:       make(map[string]*activeRecording),
	}

	log.Println("Менеджер сессий инициализирован")
	return manager
}

// StartRecording начинает запись для устройства
func (sm *SessionManager) StartRecording(deviceID string, demo Demographics) (string, error) {
	sm.mu.Lock()
	defer sm.mu.Unlock()

	if existing := sm.active[deviceID]; existing != nil {
		return "", fmt.Errorf("запись уже идет для устройства %s (сессия %s)",
			deviceID, existing.sessionID)
	}

	sessionID, err := sm.dataService.NextSessionID()
	if err != nil {
		return "", err
	}

	sm.active[deviceID] = &activeRecording{
		sessionID:    sessionID,
		deviceID:     deviceID,
		demographics: demo,
		startTime:    time.Now().UTC(),
	}
	sm.buffer.Open(deviceID)

	log.Printf("Запись %s начата для устройства %s", sessionID, deviceID)
	return sessionID, nil
}

// AppendSamples добавляет отсчеты в буфер активной записи
func (sm *SessionManager) AppendSamples(deviceID string, samples []models.SignalSample) error {
	sm.mu.RLock()
	recording := sm.active[deviceID]
	sm.mu.RUnlock()

	if recording == nil {
		return fmt.Errorf("нет активной записи для устройства %s", deviceID)
	}
	if !sm.buffer.AppendBatch(deviceID, samples) {
		return fmt.Errorf("буфер устройства %s недоступен", deviceID)
	}
	return nil
}

// AppendSample добавляет один отсчет (путь MQTT)
func (sm *SessionManager) AppendSample(deviceID string, sample models.SignalSample) bool {
	sm.mu.RLock()
	recording := sm.active[deviceID]
	sm.mu.RUnlock()

	if recording == nil {
		return false
	}
	return sm.buffer.Append(deviceID, sample)
}

// StopRecording завершает запись и синхронно прогоняет конвейер:
// препроцессор -> экстрактор -> эвристическая оценка -> сохранение.
// Конвейер короткий (размер буфера ограничен), отмена не нужна.
// Ошибки извлечения признаков восстановимые: сессия не сохраняется,
// пользователю предлагается перезаписать сигнал.
func (sm *SessionManager) StopRecording(deviceID string) (*models.PPGSession, error) {
	sm.mu.Lock()
	recording := sm.active[deviceID]
	delete(sm.active, deviceID)
	sm.mu.Unlock()

	if recording == nil {
		return nil, fmt.Errorf("нет активной записи для устройства %s", deviceID)
	}

	samples := sm.buffer.Take(deviceID)
	endTime := time.Now().UTC()

	raw := make([]float64, len(samples))
	for i, s := range samples {
		raw[i] = s.V
	}

	processed := sm.preprocessor.Process(raw)

	fv, err := sm.extractor.Extract(processed)
	if err != nil {
		log.Printf("Сессия %s: извлечение признаков не удалось: %v", recording.sessionID, err)
		return nil, err
	}

	vitals := sm.estimator.Estimate(fv,
		recording.demographics.Age,
		recording.demographics.HeightCm,
		recording.demographics.WeightKg)

	var lastTMs int64
	if len(samples) > 0 {
		lastTMs = samples[len(samples)-1].TMs
	}

	session := &models.PPGSession{
		ID:       recording.sessionID,
		Name:     recording.demographics.Name,
		DeviceID: deviceID,
		Age:      recording.demographics.Age,
		HeightCm: recording.demographics.HeightCm,
		WeightKg: recording.demographics.WeightKg,

		StartTime: recording.startTime,
		EndTime:   &endTime,

		RawData: models.PPGTimeSeries{
			SchemaVersion: models.SeriesSchemaVersion,
			Samples:       samples,
			Count:         len(samples),
			LastTMs:       lastTMs,
		},
		Features: models.FeatureSet{
			SchemaVersion: models.SeriesSchemaVersion,
			Values:        fv.Vector(),
		},

		SbpHeuristic:     vitals.Sbp,
		DbpHeuristic:     vitals.Dbp,
		GlucoseHeuristic: vitals.Glucose,
	}

	if err := sm.dataService.CreateSession(session); err != nil {
		return nil, err
	}

	log.Printf("Сессия %s сохранена: %d отсчетов, ЧСС %.0f",
		session.ID, len(samples), fv.HeartRate)

	// инференс внешней модели в фоне; эвристика уже на месте,
	// ответ модели лишь дозаполнит сессию
	go sm.runInference(session)

	return session, nil
}

// runInference вызывает внешнюю модель и дозаполняет показатели сессии
func (sm *SessionManager) runInference(session *models.PPGSession) {
	vitals, err := sm.mlService.Predict(session.Features.Values,
		session.Age, session.HeightCm, session.WeightKg)
	if err != nil {
		if errors.Is(err, services.ErrStaleInference) {
			return
		}
		log.Printf("Сессия %s: инференс не удался, остается эвристическая оценка: %v",
			session.ID, err)
		return
	}

	if err := sm.dataService.UpdateModelVitals(session.ID, *vitals); err != nil {
		log.Printf("Сессия %s: не удалось дозаполнить показатели: %v", session.ID, err)
		return
	}
	log.Printf("Сессия %s: показатели модели sbp=%.0f dbp=%.0f glu=%.0f",
		session.ID, vitals.Sbp, vitals.Dbp, vitals.Glucose)
}

// CancelRecording отменяет запись без обработки и сохранения
func (sm *SessionManager) CancelRecording(deviceID string) {
	sm.mu.Lock()
	recording := sm.active[deviceID]
	delete(sm.active, deviceID)
	sm.mu.Unlock()

	if recording != nil {
		sm.buffer.Discard(deviceID)
		log.Printf("Запись %s отменена", recording.sessionID)
	}
}

// ActiveCount количество активных записей
func (sm *SessionManager) ActiveCount() int {
	sm.mu.RLock()
	defer sm.mu.RUnlock()
	return len(sm.active)
}

// HasActiveRecording проверяет, идет ли запись для устройства
func (sm *SessionManager) HasActiveRecording(deviceID string) bool {
	sm.mu.RLock()
	defer sm.mu.RUnlock()
	return sm.active[deviceID] != nil
}
