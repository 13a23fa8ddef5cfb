package services

import (
	"fmt"
	"strconv"

	"gorm.io/gorm"

	"github.com/rvc-001/PPG-PWA-main/internal/models"
)

// DataService доступ к сохраненным сессиям измерений
type DataService struct {
	db *gorm.DB
}

// NewDataService создает сервис данных
func NewDataService(db *gorm.DB) *DataService {
	return &DataService{db: db}
}

// NextSessionID выделяет следующий номер сессии: максимум среди
// сохраненных плюс один, четыре цифры с ведущими нулями, первая — "0001"
func (ds *DataService) NextSessionID() (string, error) {
	var ids []string
	if err := ds.db.Model(&models.PPGSession{}).Pluck("id", &ids).Error; err != nil {
		return "", fmt.Errorf("не удалось прочитать номера сессий: %w", err)
	}
	return NextSessionID(ids), nil
}

// NextSessionID чистая функция выделения номера по списку существующих.
// Нечисловые идентификаторы игнорируются.
func NextSessionID(existing []string) string {
	max := 0
	for _, id := range existing {
		n, err := strconv.Atoi(id)
		if err != nil {
			continue
		}
		if n > max {
			max = n
		}
	}
	return fmt.Sprintf("%04d", max+1)
}

// CreateSession сохраняет новую сессию
func (ds *DataService) CreateSession(session *models.PPGSession) error {
	if err := ds.db.Create(session).Error; err != nil {
		return fmt.Errorf("не удалось создать сессию: %w", err)
	}
	return nil
}

// GetSession читает сессию по номеру с проверкой схемы сохраненных рядов
func (ds *DataService) GetSession(id string) (*models.PPGSession, error) {
	var session models.PPGSession
	if err := ds.db.First(&session, "id = ?", id).Error; err != nil {
		return nil, err
	}
	if err := session.RawData.Validate(); err != nil {
		return nil, fmt.Errorf("сессия %s повреждена: %w", id, err)
	}
	if err := session.Features.Validate(); err != nil {
		return nil, fmt.Errorf("сессия %s повреждена: %w", id, err)
	}
	return &session, nil
}

// ListSessions возвращает сессии от новых к старым
func (ds *DataService) ListSessions() ([]models.PPGSession, error) {
	var sessions []models.PPGSession
	if err := ds.db.Order("start_time DESC").Find(&sessions).Error; err != nil {
		return nil, err
	}
	return sessions, nil
}

// UpdateModelVitals дозаполняет показатели внешней модели после
// асинхронного инференса; остальные поля сессии неизменяемы
func (ds *DataService) UpdateModelVitals(id string, vitals models.Vitals) error {
	updates := map[string]interface{}{
		"sbp_model":     vitals.Sbp,
		"dbp_model":     vitals.Dbp,
		"glucose_model": vitals.Glucose,
	}
	if err := ds.db.Model(&models.PPGSession{}).Where("id = ?", id).Updates(updates).Error; err != nil {
		return fmt.Errorf("не удалось обновить показатели сессии %s: %w", id, err)
	}
	return nil
}
