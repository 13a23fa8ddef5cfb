package services

import (
	"bytes"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"log"
	"net/http"
	"sync"
	"sync/atomic"
	"time"

	"github.com/google/uuid"

	"github.com/rvc-001/PPG-PWA-main/internal/models"
)

// ErrStaleInference ответ пришел на устаревший запрос: пока он выполнялся,
// был запущен более новый инференс, и его результат имеет приоритет
var ErrStaleInference = errors.New("результат инференса устарел и отброшен")

// MLService взаимодействие с внешней ML моделью.
// Модель — черный ящик: вход (1, 21), выход (1, 3).
type MLService struct {
	mlURL       string
	httpClient  *http.Client
	calibration *CalibrationService

	// счетчик поколений: результат отбрасывается, если после запуска
	// запроса был запущен более новый
	generation atomic.Uint64

	mu      sync.Mutex
	lastRaw *models.Vitals
}

// NewMLService создает клиента внешней модели
func NewMLService(mlURL string, calibration *CalibrationService) *MLService {
	return &MLService{
		mlURL:       mlURL,
		calibration: calibration,
		httpClient: &http.Client{
			Timeout: 30 * time.Second,
		},
	}
}

// Predict выполняет инференс: собирает тензор, вызывает модель,
// применяет калибровочное смещение. Ошибка инференса не обесценивает
// уже извлеченные признаки — у вызывающего остается эвристическая оценка.
func (ms *MLService) Predict(featureValues []float64, age int, heightCm, weightKg float64) (*models.Vitals, error) {
	gen := ms.generation.Add(1)

	request, err := models.NewInferenceRequest(uuid.New().String(), featureValues, age, heightCm, weightKg)
	if err != nil {
		return nil, err
	}

	response, err := ms.callModel(request)
	if err != nil {
		return nil, err
	}

	// отбрасываем результат, если за время ожидания запущен новый запрос
	if ms.generation.Load() != gen {
		log.Printf("инференс %s: поколение %d устарело, результат отброшен", request.RequestID, gen)
		return nil, ErrStaleInference
	}

	raw, err := response.Vitals()
	if err != nil {
		return nil, err
	}

	ms.mu.Lock()
	ms.lastRaw = raw
	ms.mu.Unlock()

	calibrated := ms.calibration.Apply(*raw)
	return &calibrated, nil
}

// LastRawOutput последний сырой (до калибровки) выход модели;
// используется операцией калибровки как базовая точка
func (ms *MLService) LastRawOutput() (*models.Vitals, bool) {
	ms.mu.Lock()
	defer ms.mu.Unlock()
	if ms.lastRaw == nil {
		return nil, false
	}
	raw := *ms.lastRaw
	return &raw, true
}

// callModel отправляет запрос внешнему сервису модели
func (ms *MLService) callModel(request *models.InferenceRequest) (*models.InferenceResponse, error) {
	requestBody, err := json.Marshal(request)
	if err != nil {
		return nil, fmt.Errorf("ошибка сериализации запроса: %w", err)
	}

	url := fmt.Sprintf("%s/infer", ms.mlURL)
	httpReq, err := http.NewRequest(http.MethodPost, url, bytes.NewBuffer(requestBody))
	if err != nil {
		return nil, fmt.Errorf("ошибка создания запроса: %w", err)
	}
	httpReq.Header.Set("Content-Type", "application/json")

	resp, err := ms.httpClient.Do(httpReq)
	if err != nil {
		return nil, fmt.Errorf("ошибка выполнения запроса: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		body, _ := io.ReadAll(resp.Body)
		return nil, fmt.Errorf("сервис модели вернул ошибку %d: %s", resp.StatusCode, string(body))
	}

	responseBody, err := io.ReadAll(resp.Body)
	if err != nil {
		return nil, fmt.Errorf("ошибка чтения ответа: %w", err)
	}

	var response models.InferenceResponse
	if err := json.Unmarshal(responseBody, &response); err != nil {
		return nil, fmt.Errorf("ошибка десериализации ответа: %w", err)
	}
	return &response, nil
}
