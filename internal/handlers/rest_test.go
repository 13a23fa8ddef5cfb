package handlers

import (
	"bytes"
	"encoding/json"
	"math"
	"net/http"
	"net/http/httptest"
	"sync"
	"testing"

	"github.com/gin-gonic/gin"
	"gorm.io/gorm"

	"github.com/rvc-001/PPG-PWA-main/internal/models"
	"github.com/rvc-001/PPG-PWA-main/internal/services"
)

// fakeSessionStore хранилище сессий в памяти для тестов REST слоя
type fakeSessionStore struct {
	mu       sync.Mutex
	sessions map[string]*models.PPGSession
}

func newFakeSessionStore() *fakeSessionStore {
	return &fakeSessionStore{sessions: make(map[string]*models.PPGSession)}
}

func (s *fakeSessionStore) NextSessionID() (string, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	ids := make([]string, 0, len(s.sessions))
	for id := range s.sessions {
		ids = append(ids, id)
	}
	return services.NextSessionID(ids), nil
}

func (s *fakeSessionStore) CreateSession(session *models.PPGSession) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	stored := *session
	s.sessions[session.ID] = &stored
	return nil
}

func (s *fakeSessionStore) GetSession(id string) (*models.PPGSession, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	session, ok := s.sessions[id]
	if !ok {
		return nil, gorm.ErrRecordNotFound
	}
	copied := *session
	return &copied, nil
}

func (s *fakeSessionStore) ListSessions() ([]models.PPGSession, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	sessions := make([]models.PPGSession, 0, len(s.sessions))
	for _, session := range s.sessions {
		sessions = append(sessions, *session)
	}
	return sessions, nil
}

func (s *fakeSessionStore) UpdateModelVitals(id string, vitals models.Vitals) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	session, ok := s.sessions[id]
	if !ok {
		return gorm.ErrRecordNotFound
	}
	session.SbpModel = &vitals.Sbp
	session.DbpModel = &vitals.Dbp
	session.GlucoseModel = &vitals.Glucose
	return nil
}

// testRouter собирает полный REST стек поверх хранилища в памяти
// и тестового сервера внешней модели
func testRouter(t *testing.T) (*gin.Engine, *fakeSessionStore) {
	t.Helper()

	modelServer := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		json.NewEncoder(w).Encode(models.InferenceResponse{
			Outputs: [][]float64{{125, 82, 98}},
		})
	}))
	t.Cleanup(modelServer.Close)

	store := newFakeSessionStore()
	calibration := services.NewCalibrationService(services.NewMemoryCalibrationStore())
	mlService := services.NewMLService(modelServer.URL, calibration)

	buffer := NewSampleBuffer()
	manager := NewSessionManager(store, mlService, buffer, 30.0)

	api := NewRESTAPIServer(manager, store, mlService, calibration)
	return api.SetupRoutes(), store
}

func doJSON(t *testing.T, router *gin.Engine, method, path string, body interface{}) *httptest.ResponseRecorder {
	t.Helper()

	var reader *bytes.Buffer
	if body != nil {
		payload, err := json.Marshal(body)
		if err != nil {
			t.Fatalf("сериализация запроса: %v", err)
		}
		reader = bytes.NewBuffer(payload)
	} else {
		reader = bytes.NewBuffer(nil)
	}

	req := httptest.NewRequest(method, path, reader)
	req.Header.Set("Content-Type", "application/json")
	rec := httptest.NewRecorder()
	router.ServeHTTP(rec, req)
	return rec
}

func TestSetupRoutesRegistersAllPaths(t *testing.T) {
	// построение роутера не должно паниковать: маршруты записи и маршруты
	// чтения делят сегмент :id в одном дереве методов
	router, _ := testRouter(t)

	if rec := doJSON(t, router, http.MethodGet, "/api/v1/health", nil); rec.Code != http.StatusOK {
		t.Errorf("health = %d, ожидалось 200", rec.Code)
	}
	// ветка :id/predict того же POST дерева, что и :id/samples
	if rec := doJSON(t, router, http.MethodPost, "/api/v1/sessions/0001/predict", nil); rec.Code != http.StatusNotFound {
		t.Errorf("predict несуществующей сессии = %d, ожидалось 404", rec.Code)
	}
	if rec := doJSON(t, router, http.MethodGet, "/api/v1/calibration", nil); rec.Code != http.StatusOK {
		t.Errorf("calibration = %d, ожидалось 200", rec.Code)
	}
}

func TestRecordingLifecycle(t *testing.T) {
	router, store := testRouter(t)

	start := doJSON(t, router, http.MethodPost, "/api/v1/sessions/start", StartRequest{
		DeviceID: "dev-1",
		Name:     "Иван",
		Age:      35,
		HeightCm: 175,
		WeightKg: 70,
	})
	if start.Code != http.StatusOK {
		t.Fatalf("start = %d: %s", start.Code, start.Body.String())
	}

	var started map[string]string
	if err := json.Unmarshal(start.Body.Bytes(), &started); err != nil {
		t.Fatalf("разбор ответа start: %v", err)
	}
	if started["session_id"] != "0001" {
		t.Errorf("session_id = %q, ожидалось 0001", started["session_id"])
	}

	// 10 секунд синусоиды 1.2 Гц при 30 Гц
	samples := make([]models.SignalSample, 300)
	for i := range samples {
		ti := float64(i) / 30.0
		samples[i] = models.SignalSample{
			TMs: int64(i) * 33,
			V:   math.Sin(2.0 * math.Pi * 1.2 * ti),
		}
	}
	appended := doJSON(t, router, http.MethodPost, "/api/v1/sessions/dev-1/samples",
		SamplesRequest{Samples: samples})
	if appended.Code != http.StatusOK {
		t.Fatalf("samples = %d: %s", appended.Code, appended.Body.String())
	}

	stopped := doJSON(t, router, http.MethodPost, "/api/v1/sessions/dev-1/stop", nil)
	if stopped.Code != http.StatusOK {
		t.Fatalf("stop = %d: %s", stopped.Code, stopped.Body.String())
	}

	var resp SessionResponse
	if err := json.Unmarshal(stopped.Body.Bytes(), &resp); err != nil {
		t.Fatalf("разбор ответа stop: %v", err)
	}
	if resp.SessionID != "0001" {
		t.Errorf("SessionID = %q", resp.SessionID)
	}
	if len(resp.Features) != 18 {
		t.Errorf("признаков %d, ожидалось 18", len(resp.Features))
	}
	if resp.Samples != 300 {
		t.Errorf("отсчетов %d, ожидалось 300", resp.Samples)
	}
	if resp.Heuristic.Sbp < 90 || resp.Heuristic.Sbp > 180 {
		t.Errorf("эвристический SBP вне диапазона: %v", resp.Heuristic.Sbp)
	}

	if _, err := store.GetSession("0001"); err != nil {
		t.Errorf("сессия не сохранена: %v", err)
	}
}

func TestStopRecordingUnusableSignal(t *testing.T) {
	router, store := testRouter(t)

	start := doJSON(t, router, http.MethodPost, "/api/v1/sessions/start", StartRequest{
		DeviceID: "dev-1", Age: 35, HeightCm: 175, WeightKg: 70,
	})
	if start.Code != http.StatusOK {
		t.Fatalf("start = %d", start.Code)
	}

	// сигнал без пульсаций: извлечение признаков восстановимо падает
	flat := make([]models.SignalSample, 50)
	for i := range flat {
		flat[i] = models.SignalSample{TMs: int64(i) * 33, V: 0.0}
	}
	doJSON(t, router, http.MethodPost, "/api/v1/sessions/dev-1/samples",
		SamplesRequest{Samples: flat})

	stopped := doJSON(t, router, http.MethodPost, "/api/v1/sessions/dev-1/stop", nil)
	if stopped.Code != http.StatusUnprocessableEntity {
		t.Fatalf("stop непригодного сигнала = %d, ожидалось 422: %s",
			stopped.Code, stopped.Body.String())
	}

	// непригодная запись не сохраняется
	if _, err := store.GetSession("0001"); err == nil {
		t.Error("сессия с непригодным сигналом не должна сохраняться")
	}
}

func TestStopRecordingUnknownDevice(t *testing.T) {
	router, _ := testRouter(t)

	if rec := doJSON(t, router, http.MethodPost, "/api/v1/sessions/ghost/stop", nil); rec.Code != http.StatusNotFound {
		t.Errorf("stop без записи = %d, ожидалось 404", rec.Code)
	}
}
