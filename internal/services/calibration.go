package services

import (
	"errors"
	"fmt"
	"log"
	"sync"
	"time"

	"gorm.io/gorm"

	"github.com/rvc-001/PPG-PWA-main/internal/models"
)

// CalibrationKey фиксированный ключ записи калибровки
const CalibrationKey = "vital_calibration_v1"

// ErrKeyNotFound запись с таким ключом отсутствует
var ErrKeyNotFound = errors.New("запись не найдена")

// CalibrationStore key-value доступ к записям калибровки.
// Дисциплина конкурентного доступа лежит на вызывающем сервисе.
type CalibrationStore interface {
	Get(key string) (*models.CalibrationRecord, error)
	Put(key string, record *models.CalibrationRecord) error
	Delete(key string) error
}

// GormCalibrationStore хранилище калибровки в PostgreSQL
type GormCalibrationStore struct {
	db *gorm.DB
}

// NewGormCalibrationStore создает хранилище поверх gorm
func NewGormCalibrationStore(db *gorm.DB) *GormCalibrationStore {
	return &GormCalibrationStore{db: db}
}

func (s *GormCalibrationStore) Get(key string) (*models.CalibrationRecord, error) {
	var record models.CalibrationRecord
	if err := s.db.First(&record, "key = ?", key).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, ErrKeyNotFound
		}
		return nil, fmt.Errorf("не удалось прочитать калибровку: %w", err)
	}
	return &record, nil
}

func (s *GormCalibrationStore) Put(key string, record *models.CalibrationRecord) error {
	record.Key = key
	if err := s.db.Save(record).Error; err != nil {
		return fmt.Errorf("не удалось сохранить калибровку: %w", err)
	}
	return nil
}

func (s *GormCalibrationStore) Delete(key string) error {
	return s.db.Delete(&models.CalibrationRecord{}, "key = ?", key).Error
}

// MemoryCalibrationStore хранилище в памяти для тестов
type MemoryCalibrationStore struct {
	records map[string]models.CalibrationRecord
}

// NewMemoryCalibrationStore создает пустое хранилище в памяти
func NewMemoryCalibrationStore() *MemoryCalibrationStore {
	return &MemoryCalibrationStore{records: make(map[string]models.CalibrationRecord)}
}

func (s *MemoryCalibrationStore) Get(key string) (*models.CalibrationRecord, error) {
	record, ok := s.records[key]
	if !ok {
		return nil, ErrKeyNotFound
	}
	return &record, nil
}

func (s *MemoryCalibrationStore) Put(key string, record *models.CalibrationRecord) error {
	record.Key = key
	s.records[key] = *record
	return nil
}

func (s *MemoryCalibrationStore) Delete(key string) error {
	delete(s.records, key)
	return nil
}

// CalibrationService аддитивное смещение для сырых выходов внешней модели.
// Смещение живет до перезаписи: без версионирования, затухания и срока
// действия. Read-modify-write сериализуется мьютексом — без него два
// одновременных вызова могли бы молча потерять одну из записей.
type CalibrationService struct {
	store CalibrationStore
	mu    sync.Mutex
}

// NewCalibrationService создает сервис поверх хранилища
func NewCalibrationService(store CalibrationStore) *CalibrationService {
	return &CalibrationService{store: store}
}

// Offset возвращает текущее смещение; при отсутствии записи — нули
func (c *CalibrationService) Offset() models.Vitals {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.offsetLocked()
}

func (c *CalibrationService) offsetLocked() models.Vitals {
	record, err := c.store.Get(CalibrationKey)
	if err != nil {
		if !errors.Is(err, ErrKeyNotFound) {
			log.Printf("калибровка: ошибка чтения, используются нули: %v", err)
		}
		return models.Vitals{}
	}
	if record.SchemaVersion != models.SeriesSchemaVersion {
		log.Printf("калибровка: несовместимая версия схемы %d, используются нули", record.SchemaVersion)
		return models.Vitals{}
	}
	return models.Vitals{Sbp: record.Sbp, Dbp: record.Dbp, Glucose: record.Glu}
}

// Calibrate вычисляет смещение reference - raw по каждому каналу
// и сохраняет его; применяется ко всем последующим сырым выходам модели
func (c *CalibrationService) Calibrate(reference, raw models.Vitals) (models.Vitals, error) {
	c.mu.Lock()
	defer c.mu.Unlock()

	offset := models.Vitals{
		Sbp:     reference.Sbp - raw.Sbp,
		Dbp:     reference.Dbp - raw.Dbp,
		Glucose: reference.Glucose - raw.Glucose,
	}

	record := &models.CalibrationRecord{
		SchemaVersion: models.SeriesSchemaVersion,
		Sbp:           offset.Sbp,
		Dbp:           offset.Dbp,
		Glu:           offset.Glucose,
		UpdatedAt:     time.Now().UTC(),
	}
	if err := c.store.Put(CalibrationKey, record); err != nil {
		return models.Vitals{}, err
	}

	log.Printf("калибровка сохранена: sbp=%+.1f dbp=%+.1f glu=%+.1f",
		offset.Sbp, offset.Dbp, offset.Glucose)
	return offset, nil
}

// Apply прибавляет сохраненное смещение к сырому выходу модели.
// К эвристической оценке калибровка не применяется.
func (c *CalibrationService) Apply(raw models.Vitals) models.Vitals {
	c.mu.Lock()
	defer c.mu.Unlock()

	offset := c.offsetLocked()
	return models.Vitals{
		Sbp:     raw.Sbp + offset.Sbp,
		Dbp:     raw.Dbp + offset.Dbp,
		Glucose: raw.Glucose + offset.Glucose,
	}
}

// Reset сбрасывает калибровку
func (c *CalibrationService) Reset() error {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.store.Delete(CalibrationKey)
}
