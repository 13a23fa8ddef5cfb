package main

import (
	"fmt"
	"log"
	"net/http"
	"os"
	"os/signal"
	"syscall"

	mqtt "github.com/eclipse/paho.mqtt.golang"
	"github.com/google/uuid"

	"github.com/rvc-001/PPG-PWA-main/configs"
	"github.com/rvc-001/PPG-PWA-main/internal/database"
	"github.com/rvc-001/PPG-PWA-main/internal/handlers"
	"github.com/rvc-001/PPG-PWA-main/internal/services"
)

func main() {
	log.Println("=== PPG VITALS SERVICE ===")

	// 1. Загрузка конфигурации
	cfg := configs.LoadConfig()
	log.Printf("Конфигурация загружена: DB=%s:%s, MQTT=%s, ML=%s",
		cfg.Database.Host, cfg.Database.Port, cfg.MQTT.Broker, cfg.ML.ServiceURL)

	// 2. Инициализация базы данных
	db, err := database.InitDatabase(cfg)
	if err != nil {
		log.Fatalf("Ошибка инициализации БД: %v", err)
	}
	defer database.CloseDatabase()

	if err := database.RunMigrations(db); err != nil {
		log.Fatalf("Ошибка миграций: %v", err)
	}

	// 3. Сервисы
	dataService := services.NewDataService(db)
	calibration := services.NewCalibrationService(services.NewGormCalibrationStore(db))
	mlService := services.NewMLService(cfg.ML.ServiceURL, calibration)

	// 4. Буфер отсчетов и менеджер сессий
	sampleBuffer := handlers.NewSampleBuffer()
	sessionManager := handlers.NewSessionManager(dataService, mlService, sampleBuffer, cfg.PPG.SampleRate)

	// 5. MQTT прием потока отсчетов от устройств
	mqttProcessor := handlers.NewMQTTStreamProcessor(sessionManager)

	mqttClient, err := initMQTT(cfg.MQTT, mqttProcessor)
	if err != nil {
		log.Printf("Ошибка MQTT: %v", err)
		log.Println("Продолжаем работу без MQTT, отсчеты принимаются по REST")
	} else {
		defer mqttClient.Disconnect(250)
	}

	// 6. REST API сервер
	restAPI := handlers.NewRESTAPIServer(sessionManager, dataService, mlService, calibration)
	router := restAPI.SetupRoutes()

	go func() {
		log.Printf("REST API Server запущен на :%s", cfg.App.Port)
		if err := http.ListenAndServe(":"+cfg.App.Port, router); err != nil && err != http.ErrServerClosed {
			log.Fatalf("Ошибка HTTP сервера: %v", err)
		}
	}()

	log.Println("Сервис запущен → Ctrl+C для остановки")

	// 7. Graceful shutdown
	sigChan := make(chan os.Signal, 1)
	signal.Notify(sigChan, os.Interrupt, syscall.SIGTERM)
	<-sigChan

	log.Println("Graceful shutdown...")
	mqttProcessor.Stop()
	log.Println("Сервис полностью остановлен")
}

// initMQTT подключает MQTT клиента и подписывает процессор на топик отсчетов
func initMQTT(cfg configs.MQTTConfig, processor *handlers.MQTTStreamProcessor) (mqtt.Client, error) {
	opts := mqtt.NewClientOptions()
	opts.AddBroker(cfg.Broker)
	opts.SetClientID(fmt.Sprintf("%s-%s", cfg.ClientID, uuid.New().String()[:8]))
	opts.SetAutoReconnect(true)
	if cfg.Username != "" {
		opts.SetUsername(cfg.Username)
		opts.SetPassword(cfg.Password)
	}
	opts.OnConnectionLost = func(client mqtt.Client, err error) {
		log.Printf("MQTT соединение потеряно: %v", err)
	}

	client := mqtt.NewClient(opts)
	if token := client.Connect(); token.Wait() && token.Error() != nil {
		return nil, token.Error()
	}

	topic := "vitals/ppg/+/samples"
	token := client.Subscribe(topic, byte(cfg.QoS), processor.HandleMessage)
	if token.Wait() && token.Error() != nil {
		return nil, token.Error()
	}

	log.Printf("MQTT клиент подключён к %s, топик: %s", cfg.Broker, topic)
	return client, nil
}
