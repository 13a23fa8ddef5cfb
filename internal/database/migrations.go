// internal/database/migrations.go
package database

import (
	"fmt"
	"log"

	"gorm.io/gorm"

	"github.com/rvc-001/PPG-PWA-main/internal/models"
)

// RunMigrations выполняет миграции базы данных
func RunMigrations(db *gorm.DB) error {
	log.Println("Запуск миграций базы данных...")

	err := db.AutoMigrate(
		&models.PPGSession{},
		&models.CalibrationRecord{},
	)
	if err != nil {
		return fmt.Errorf("ошибка миграции: %w", err)
	}

	if err := createIndexes(db); err != nil {
		return fmt.Errorf("ошибка создания индексов: %w", err)
	}

	log.Println("Миграции выполнены успешно")
	return nil
}

// createIndexes создает дополнительные индексы
func createIndexes(db *gorm.DB) error {
	indexes := []string{
		"CREATE INDEX IF NOT EXISTS idx_ppg_sessions_start_time_desc ON ppg_sessions(start_time DESC)",
		"CREATE INDEX IF NOT EXISTS idx_ppg_sessions_device ON ppg_sessions(device_id, start_time)",

		// GIN индекс для поиска по содержимому сохраненных рядов
		"CREATE INDEX IF NOT EXISTS idx_ppg_sessions_raw_gin ON ppg_sessions USING GIN (raw_data)",
	}

	for _, indexSQL := range indexes {
		if err := db.Exec(indexSQL).Error; err != nil {
			log.Printf("Не удалось создать индекс: %s, ошибка: %v", indexSQL, err)
		}
	}
	return nil
}
