package services

import (
	"bytes"
	"encoding/csv"
	"strings"
	"testing"
	"time"

	"github.com/rvc-001/PPG-PWA-main/internal/models"
)

func exportTestSession(t *testing.T) *models.PPGSession {
	t.Helper()

	start := time.Date(2024, 5, 1, 12, 0, 0, 0, time.UTC)
	return &models.PPGSession{
		ID:        "0001",
		StartTime: start,
		RawData: models.PPGTimeSeries{
			SchemaVersion: models.SeriesSchemaVersion,
			Samples: []models.SignalSample{
				{TMs: 0, V: 0.5},
				{TMs: 33, V: 0.75},
				{TMs: 66, V: 1},
				{TMs: 99, V: 0.25},
			},
			Count:   4,
			LastTMs: 99,
		},
	}
}

func TestExportCSVFormat(t *testing.T) {
	var buf bytes.Buffer
	if err := ExportCSV(&buf, exportTestSession(t), time.Time{}, time.Time{}); err != nil {
		t.Fatalf("неожиданная ошибка: %v", err)
	}

	rows, err := csv.NewReader(&buf).ReadAll()
	if err != nil {
		t.Fatalf("некорректный CSV: %v", err)
	}

	if len(rows) != 5 {
		t.Fatalf("строк %d, ожидалось 5 (заголовок + 4 отсчета)", len(rows))
	}
	if rows[0][0] != "Timestamp" || rows[0][1] != "PPG" {
		t.Errorf("заголовок = %v", rows[0])
	}

	// временная метка в ISO-8601
	if _, err := time.Parse(time.RFC3339Nano, rows[1][0]); err != nil {
		t.Errorf("метка %q не разбирается как ISO-8601: %v", rows[1][0], err)
	}
	if !strings.HasPrefix(rows[1][0], "2024-05-01T12:00:00") {
		t.Errorf("метка первого отсчета = %q", rows[1][0])
	}
	if rows[2][1] != "0.75" {
		t.Errorf("значение второго отсчета = %q", rows[2][1])
	}
}

func TestExportCSVWindow(t *testing.T) {
	session := exportTestSession(t)

	// окно накрывает только отсчеты на 33 и 66 мс
	from := session.StartTime.Add(20 * time.Millisecond)
	to := session.StartTime.Add(70 * time.Millisecond)

	var buf bytes.Buffer
	if err := ExportCSV(&buf, session, from, to); err != nil {
		t.Fatalf("неожиданная ошибка: %v", err)
	}

	rows, err := csv.NewReader(&buf).ReadAll()
	if err != nil {
		t.Fatal(err)
	}
	if len(rows) != 3 {
		t.Errorf("строк %d, ожидалось 3 (заголовок + 2 отсчета в окне)", len(rows))
	}
}

func TestExportCSVEmptySession(t *testing.T) {
	session := &models.PPGSession{
		ID:        "0002",
		StartTime: time.Now().UTC(),
		RawData:   models.PPGTimeSeries{SchemaVersion: models.SeriesSchemaVersion},
	}

	var buf bytes.Buffer
	if err := ExportCSV(&buf, session, time.Time{}, time.Time{}); err != nil {
		t.Fatal(err)
	}

	rows, err := csv.NewReader(&buf).ReadAll()
	if err != nil {
		t.Fatal(err)
	}
	if len(rows) != 1 {
		t.Errorf("пустая сессия должна давать только заголовок, строк %d", len(rows))
	}
}
