package services

import (
	"encoding/csv"
	"fmt"
	"io"
	"strconv"
	"time"

	"github.com/rvc-001/PPG-PWA-main/internal/models"
)

// ExportCSV выгружает сырые отсчеты сессии в CSV: две колонки
// Timestamp (ISO-8601) и PPG, по строке на отсчет внутри окна [from, to].
// Нулевые границы окна означают отсутствие ограничения.
func ExportCSV(w io.Writer, session *models.PPGSession, from, to time.Time) error {
	writer := csv.NewWriter(w)

	if err := writer.Write([]string{"Timestamp", "PPG"}); err != nil {
		return fmt.Errorf("не удалось записать заголовок CSV: %w", err)
	}

	for _, sample := range session.RawData.Samples {
		ts := session.StartTime.Add(time.Duration(sample.TMs) * time.Millisecond)
		if !from.IsZero() && ts.Before(from) {
			continue
		}
		if !to.IsZero() && ts.After(to) {
			continue
		}

		row := []string{
			ts.UTC().Format(time.RFC3339Nano),
			strconv.FormatFloat(sample.V, 'f', -1, 64),
		}
		if err := writer.Write(row); err != nil {
			return fmt.Errorf("не удалось записать строку CSV: %w", err)
		}
	}

	writer.Flush()
	return writer.Error()
}
