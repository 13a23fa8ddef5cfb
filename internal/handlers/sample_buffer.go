package handlers

import (
	"log"
	"sync"

	"github.com/rvc-001/PPG-PWA-main/internal/models"
)

// SampleBuffer накапливает сырые отсчеты активных записей в памяти.
// Во время записи обработка не запускается: буфер целиком забирается
// один раз при остановке.
type SampleBuffer struct {
	buffers map[string]*deviceBuffer
	mu      sync.RWMutex
}

type deviceBuffer struct {
	samples []models.SignalSample
	mu      sync.Mutex
}

// NewSampleBuffer создает пустой буфер отсчетов
func NewSampleBuffer() *SampleBuffer {
	log.Println("Буфер отсчетов инициализирован")
	return &SampleBuffer{buffers: make(map[string]*deviceBuffer)}
}

// Open заводит буфер для устройства, начавшего запись
func (sb *SampleBuffer) Open(deviceID string) {
	sb.mu.Lock()
	defer sb.mu.Unlock()
	// ~30 отсчетов в секунду, минута записи заранее
	sb.buffers[deviceID] = &deviceBuffer{samples: make([]models.SignalSample, 0, 2048)}
}

// Append добавляет один отсчет (один тик камеры, ~33 мс)
func (sb *SampleBuffer) Append(deviceID string, sample models.SignalSample) bool {
	sb.mu.RLock()
	buffer, exists := sb.buffers[deviceID]
	sb.mu.RUnlock()

	if !exists {
		return false
	}

	buffer.mu.Lock()
	buffer.samples = append(buffer.samples, sample)
	buffer.mu.Unlock()
	return true
}

// AppendBatch добавляет пакет отсчетов
func (sb *SampleBuffer) AppendBatch(deviceID string, samples []models.SignalSample) bool {
	sb.mu.RLock()
	buffer, exists := sb.buffers[deviceID]
	sb.mu.RUnlock()

	if !exists {
		return false
	}

	buffer.mu.Lock()
	buffer.samples = append(buffer.samples, samples...)
	buffer.mu.Unlock()
	return true
}

// Count текущее число отсчетов устройства
func (sb *SampleBuffer) Count(deviceID string) int {
	sb.mu.RLock()
	buffer, exists := sb.buffers[deviceID]
	sb.mu.RUnlock()

	if !exists {
		return 0
	}

	buffer.mu.Lock()
	defer buffer.mu.Unlock()
	return len(buffer.samples)
}

// Take забирает накопленные отсчеты и удаляет буфер устройства
func (sb *SampleBuffer) Take(deviceID string) []models.SignalSample {
	sb.mu.Lock()
	buffer, exists := sb.buffers[deviceID]
	delete(sb.buffers, deviceID)
	sb.mu.Unlock()

	if !exists {
		return nil
	}

	buffer.mu.Lock()
	defer buffer.mu.Unlock()
	return buffer.samples
}

// Discard удаляет буфер без обработки
func (sb *SampleBuffer) Discard(deviceID string) {
	sb.mu.Lock()
	defer sb.mu.Unlock()

	if _, exists := sb.buffers[deviceID]; exists {
		delete(sb.buffers, deviceID)
		log.Printf("Буфер устройства %s удален без обработки", deviceID)
	}
}
