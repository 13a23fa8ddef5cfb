package handlers

import (
	"errors"
	"fmt"
	"net/http"
	"time"

	"github.com/gin-contrib/cors"
	"github.com/gin-gonic/gin"
	swaggerfiles "github.com/swaggo/files"
	ginSwagger "github.com/swaggo/gin-swagger"
	"gorm.io/gorm"

	"github.com/rvc-001/PPG-PWA-main/internal/features"
	"github.com/rvc-001/PPG-PWA-main/internal/models"
	"github.com/rvc-001/PPG-PWA-main/internal/services"
)

// @title PPG Vitals API
// @version 1.0
// @description API сервиса оценки витальных показателей по PPG сигналу камеры

// @host localhost:8080
// @BasePath /api/v1

// @tag.name sessions
// @tag.description Записи измерений PPG

// @tag.name calibration
// @tag.description Калибровка выходов модели

// RESTAPIServer обрабатывает REST API запросы
type RESTAPIServer struct {
	sessionManager *SessionManager
	dataService    SessionStore
	mlService      *services.MLService
	calibration    *services.CalibrationService
}

// StartRequest запрос на начало записи
// @Description Демография пациента и устройство для новой записи
type StartRequest struct {
	DeviceID string  `json:"device_id" binding:"required" example:"PPG-CAM-001"` // Идентификатор устройства
	Name     string  `json:"name" example:"Иван"`                                // Имя (необязательно)
	Age      int     `json:"age" binding:"required" example:"35"`                // Возраст, лет
	HeightCm float64 `json:"height_cm" binding:"required" example:"175"`         // Рост, см
	WeightKg float64 `json:"weight_kg" binding:"required" example:"70"`          // Вес, кг
}

// SamplesRequest пакет отсчетов от клиента
type SamplesRequest struct {
	Samples []models.SignalSample `json:"samples" binding:"required"` // Отсчеты сигнала
}

// SessionResponse результат завершенной записи
// @Description Сессия с признаками и витальными показателями
type SessionResponse struct {
	SessionID string    `json:"session_id" example:"0001"` // Номер сессии
	Features  []float64 `json:"features"`                  // Вектор из 18 признаков
	Heuristic Vitals    `json:"heuristic"`                 // Эвристическая оценка
	Model     *Vitals   `json:"model,omitempty"`           // Оценка внешней модели (если готова)
	Samples   int       `json:"samples" example:"900"`     // Количество отсчетов
}

// Vitals тройка показателей
type Vitals struct {
	Sbp     float64 `json:"sbp" example:"121"`     // Систолическое давление
	Dbp     float64 `json:"dbp" example:"79"`      // Диастолическое давление
	Glucose float64 `json:"glucose" example:"98"`  // Глюкоза
}

// CalibrateRequest референсные значения для калибровки
// @Description Измеренные тонометром/глюкометром референсные значения
type CalibrateRequest struct {
	RefSbp float64 `json:"ref_sbp" binding:"required" example:"120"` // Референс SBP
	RefDbp float64 `json:"ref_dbp" binding:"required" example:"80"`  // Референс DBP
	RefGlu float64 `json:"ref_glu" binding:"required" example:"95"`  // Референс глюкозы
}

// ErrorResponse стандартный ответ об ошибке
type ErrorResponse struct {
	Error   string `json:"error" example:"Неверный формат данных"`     // Описание ошибки
	Details string `json:"details,omitempty" example:"field required"` // Дополнительные детали
}

// NewRESTAPIServer создает REST API сервер
func NewRESTAPIServer(
	sessionManager *SessionManager,
	dataService SessionStore,
	mlService *services.MLService,
	calibration *services.CalibrationService,
) *RESTAPIServer {
	return &RESTAPIServer{
		sessionManager: sessionManager,
		dataService:    dataService,
		mlService:      mlService,
		calibration:    calibration,
	}
}

// SetupRoutes настраивает маршруты REST API
func (api *RESTAPIServer) SetupRoutes() *gin.Engine {
	gin.SetMode(gin.ReleaseMode)
	r := gin.New()
	r.Use(gin.Logger())
	r.Use(gin.Recovery())
	r.Use(cors.Default())

	v1 := r.Group("/api/v1")
	{
		sessions := v1.Group("/sessions")
		{
			sessions.POST("/start", api.startRecording)
			// параметр именуется :id во всех маршрутах группы: gin требует
			// одно имя подстановки в одной позиции дерева; на маршрутах
			// записи значением служит идентификатор устройства
			sessions.POST("/:id/samples", api.appendSamples)
			sessions.POST("/:id/stop", api.stopRecording)
			sessions.GET("", api.listSessions)
			sessions.GET("/:id", api.getSession)
			sessions.GET("/:id/export", api.exportSession)
			sessions.POST("/:id/predict", api.predictSession)
		}

		calibration := v1.Group("/calibration")
		{
			calibration.GET("", api.getCalibration)
			calibration.POST("", api.calibrate)
			calibration.DELETE("", api.resetCalibration)
		}

		v1.GET("/health", api.health)
	}

	r.GET("/swagger/*any", ginSwagger.WrapHandler(swaggerfiles.Handler))
	return r
}

// startRecording начинает новую запись
// @Summary Начать запись PPG
// @Tags sessions
// @Accept json
// @Produce json
// @Param request body StartRequest true "Демография и устройство"
// @Success 200 {object} map[string]string
// @Failure 400 {object} ErrorResponse
// @Failure 409 {object} ErrorResponse
// @Router /sessions/start [post]
func (api *RESTAPIServer) startRecording(c *gin.Context) {
	var req StartRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "неверный запрос", "details": err.Error()})
		return
	}

	sessionID, err := api.sessionManager.StartRecording(req.DeviceID, Demographics{
		Name:     req.Name,
		Age:      req.Age,
		HeightCm: req.HeightCm,
		WeightKg: req.WeightKg,
	})
	if err != nil {
		c.JSON(http.StatusConflict, gin.H{"error": "не удалось начать запись", "details": err.Error()})
		return
	}

	c.JSON(http.StatusOK, gin.H{"session_id": sessionID, "device_id": req.DeviceID})
}

// appendSamples принимает пакет отсчетов активной записи
// @Summary Добавить отсчеты сигнала
// @Tags sessions
// @Accept json
// @Produce json
// @Param id path string true "Идентификатор устройства"
// @Param request body SamplesRequest true "Пакет отсчетов"
// @Success 200 {object} map[string]int
// @Failure 400 {object} ErrorResponse
// @Failure 404 {object} ErrorResponse
// @Router /sessions/{id}/samples [post]
func (api *RESTAPIServer) appendSamples(c *gin.Context) {
	deviceID := c.Param("id")

	var req SamplesRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "неверный запрос", "details": err.Error()})
		return
	}

	if err := api.sessionManager.AppendSamples(deviceID, req.Samples); err != nil {
		c.JSON(http.StatusNotFound, gin.H{"error": "нет активной записи", "details": err.Error()})
		return
	}

	c.JSON(http.StatusOK, gin.H{"accepted": len(req.Samples)})
}

// stopRecording завершает запись и запускает конвейер
// @Summary Остановить запись и вычислить показатели
// @Tags sessions
// @Produce json
// @Param id path string true "Идентификатор устройства"
// @Success 200 {object} SessionResponse
// @Failure 404 {object} ErrorResponse
// @Failure 422 {object} ErrorResponse "Сигнал непригоден, нужна перезапись"
// @Router /sessions/{id}/stop [post]
func (api *RESTAPIServer) stopRecording(c *gin.Context) {
	deviceID := c.Param("id")

	session, err := api.sessionManager.StopRecording(deviceID)
	if err != nil {
		if isExtractionError(err) {
			// восстановимая ошибка: пользователю предлагается
			// перезаписать с лучшим контактом пальца и камеры
			c.JSON(http.StatusUnprocessableEntity, gin.H{
				"error":   "сигнал непригоден для анализа",
				"details": err.Error(),
			})
			return
		}
		c.JSON(http.StatusNotFound, gin.H{"error": "не удалось остановить запись", "details": err.Error()})
		return
	}

	c.JSON(http.StatusOK, sessionToResponse(session))
}

// listSessions возвращает все сохраненные сессии
// @Summary Список сессий
// @Tags sessions
// @Produce json
// @Success 200 {array} models.PPGSession
// @Failure 500 {object} ErrorResponse
// @Router /sessions [get]
func (api *RESTAPIServer) listSessions(c *gin.Context) {
	sessions, err := api.dataService.ListSessions()
	if err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"error": "ошибка чтения сессий", "details": err.Error()})
		return
	}
	c.JSON(http.StatusOK, gin.H{"sessions": sessions, "count": len(sessions)})
}

// getSession возвращает сессию по номеру
// @Summary Сессия по номеру
// @Tags sessions
// @Produce json
// @Param id path string true "Номер сессии (0001)"
// @Success 200 {object} models.PPGSession
// @Failure 404 {object} ErrorResponse
// @Router /sessions/{id} [get]
func (api *RESTAPIServer) getSession(c *gin.Context) {
	session, err := api.dataService.GetSession(c.Param("id"))
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			c.JSON(http.StatusNotFound, gin.H{"error": "сессия не найдена"})
			return
		}
		c.JSON(http.StatusInternalServerError, gin.H{"error": "ошибка чтения сессии", "details": err.Error()})
		return
	}
	c.JSON(http.StatusOK, session)
}

// exportSession выгружает сырой сигнал сессии в CSV
// @Summary Экспорт сигнала в CSV
// @Tags sessions
// @Produce text/csv
// @Param id path string true "Номер сессии"
// @Param from query string false "Начало окна (RFC3339)"
// @Param to query string false "Конец окна (RFC3339)"
// @Success 200 {string} string "CSV с колонками Timestamp,PPG"
// @Failure 404 {object} ErrorResponse
// @Router /sessions/{id}/export [get]
func (api *RESTAPIServer) exportSession(c *gin.Context) {
	session, err := api.dataService.GetSession(c.Param("id"))
	if err != nil {
		c.JSON(http.StatusNotFound, gin.H{"error": "сессия не найдена", "details": err.Error()})
		return
	}

	from, err := parseTimeParam(c.Query("from"))
	if err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "неверный параметр from", "details": err.Error()})
		return
	}
	to, err := parseTimeParam(c.Query("to"))
	if err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "неверный параметр to", "details": err.Error()})
		return
	}

	c.Header("Content-Type", "text/csv")
	c.Header("Content-Disposition",
		fmt.Sprintf("attachment; filename=ppg_session_%s.csv", session.ID))

	if err := services.ExportCSV(c.Writer, session, from, to); err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"error": "ошибка экспорта", "details": err.Error()})
	}
}

// predictSession повторно запускает инференс внешней модели для сессии
// @Summary Инференс внешней модели
// @Tags sessions
// @Produce json
// @Param id path string true "Номер сессии"
// @Success 200 {object} Vitals
// @Failure 404 {object} ErrorResponse
// @Failure 502 {object} ErrorResponse "Модель недоступна, эвристика остается в силе"
// @Router /sessions/{id}/predict [post]
func (api *RESTAPIServer) predictSession(c *gin.Context) {
	session, err := api.dataService.GetSession(c.Param("id"))
	if err != nil {
		c.JSON(http.StatusNotFound, gin.H{"error": "сессия не найдена", "details": err.Error()})
		return
	}

	vitals, err := api.mlService.Predict(session.Features.Values,
		session.Age, session.HeightCm, session.WeightKg)
	if err != nil {
		c.JSON(http.StatusBadGateway, gin.H{"error": "инференс не удался", "details": err.Error()})
		return
	}

	if err := api.dataService.UpdateModelVitals(session.ID, *vitals); err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"error": "не удалось сохранить показатели", "details": err.Error()})
		return
	}

	c.JSON(http.StatusOK, Vitals{Sbp: vitals.Sbp, Dbp: vitals.Dbp, Glucose: vitals.Glucose})
}

// getCalibration возвращает текущее смещение
// @Summary Текущее калибровочное смещение
// @Tags calibration
// @Produce json
// @Success 200 {object} Vitals
// @Router /calibration [get]
func (api *RESTAPIServer) getCalibration(c *gin.Context) {
	offset := api.calibration.Offset()
	c.JSON(http.StatusOK, Vitals{Sbp: offset.Sbp, Dbp: offset.Dbp, Glucose: offset.Glucose})
}

// calibrate вычисляет смещение от последнего сырого выхода модели
// @Summary Калибровка по референсным значениям
// @Tags calibration
// @Accept json
// @Produce json
// @Param request body CalibrateRequest true "Референсные значения"
// @Success 200 {object} Vitals "Сохраненное смещение"
// @Failure 409 {object} ErrorResponse "Нет сырого выхода модели"
// @Router /calibration [post]
func (api *RESTAPIServer) calibrate(c *gin.Context) {
	var req CalibrateRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "неверный запрос", "details": err.Error()})
		return
	}

	raw, ok := api.mlService.LastRawOutput()
	if !ok {
		c.JSON(http.StatusConflict, gin.H{
			"error": "калибровка невозможна: модель еще не возвращала результат",
		})
		return
	}

	offset, err := api.calibration.Calibrate(models.Vitals{
		Sbp:     req.RefSbp,
		Dbp:     req.RefDbp,
		Glucose: req.RefGlu,
	}, *raw)
	if err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"error": "не удалось сохранить калибровку", "details": err.Error()})
		return
	}

	c.JSON(http.StatusOK, Vitals{Sbp: offset.Sbp, Dbp: offset.Dbp, Glucose: offset.Glucose})
}

// resetCalibration сбрасывает смещение
// @Summary Сброс калибровки
// @Tags calibration
// @Produce json
// @Success 200 {object} map[string]string
// @Router /calibration [delete]
func (api *RESTAPIServer) resetCalibration(c *gin.Context) {
	if err := api.calibration.Reset(); err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"error": "не удалось сбросить калибровку", "details": err.Error()})
		return
	}
	c.JSON(http.StatusOK, gin.H{"message": "калибровка сброшена"})
}

// health проверка состояния сервиса
// @Summary Проверка состояния
// @Produce json
// @Success 200 {object} map[string]interface{}
// @Router /health [get]
func (api *RESTAPIServer) health(c *gin.Context) {
	c.JSON(http.StatusOK, gin.H{
		"status":            "healthy",
		"service":           "PPG Vitals",
		"timestamp":         time.Now().UTC(),
		"active_recordings": api.sessionManager.ActiveCount(),
	})
}

// isExtractionError различает восстановимые ошибки извлечения признаков
func isExtractionError(err error) bool {
	return errors.Is(err, features.ErrSignalTooShort) ||
		errors.Is(err, features.ErrSignalFlatline) ||
		errors.Is(err, features.ErrInsufficientPeaks) ||
		errors.Is(err, features.ErrNoValleys)
}

// parseTimeParam разбирает необязательный RFC3339 параметр
func parseTimeParam(value string) (time.Time, error) {
	if value == "" {
		return time.Time{}, nil
	}
	return time.Parse(time.RFC3339, value)
}

// sessionToResponse собирает ответ завершенной записи
func sessionToResponse(session *models.PPGSession) SessionResponse {
	resp := SessionResponse{
		SessionID: session.ID,
		Features:  session.Features.Values,
		Heuristic: Vitals{
			Sbp:     session.SbpHeuristic,
			Dbp:     session.DbpHeuristic,
			Glucose: session.GlucoseHeuristic,
		},
		Samples: session.RawData.Count,
	}
	if session.SbpModel != nil && session.DbpModel != nil && session.GlucoseModel != nil {
		resp.Model = &Vitals{
			Sbp:     *session.SbpModel,
			Dbp:     *session.DbpModel,
			Glucose: *session.GlucoseModel,
		}
	}
	return resp
}
