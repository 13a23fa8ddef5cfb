package handlers

import (
	"context"
	"encoding/json"
	"log"
	"strings"
	"sync"

	mqtt "github.com/eclipse/paho.mqtt.golang"

	"github.com/rvc-001/PPG-PWA-main/internal/models"
)

// MQTTStreamProcessor принимает поток отсчетов PPG от устройств.
// Топик: vitals/ppg/{deviceID}/samples
type MQTTStreamProcessor struct {
	sessionManager *SessionManager

	sampleChannel chan *models.PPGSampleMessage

	ctx    context.Context
	cancel context.CancelFunc
	wg     sync.WaitGroup
}

// NewMQTTStreamProcessor создает процессор и запускает воркер
func NewMQTTStreamProcessor(sessionManager *SessionManager) *MQTTStreamProcessor {
	ctx, cancel := context.WithCancel(context.Background())

	processor := &MQTTStreamProcessor{
		sessionManager: sessionManager,
		sampleChannel:  make(chan *models.PPGSampleMessage, 1000),
		ctx:            ctx,
		cancel:         cancel,
	}

	processor.wg.Add(1)
	go processor.sampleWorker()

	log.Println("MQTT Stream Processor запущен")
	return processor
}

// HandleMessage обработчик входящих MQTT сообщений
func (p *MQTTStreamProcessor) HandleMessage(client mqtt.Client, msg mqtt.Message) {
	p.HandleIncoming(msg.Topic(), msg.Payload())
}

// HandleIncoming разбирает топик и ставит отсчет в очередь обработки
func (p *MQTTStreamProcessor) HandleIncoming(topic string, payload []byte) {
	// формат топика: vitals/ppg/{deviceID}/samples
	parts := strings.Split(topic, "/")
	if len(parts) != 4 {
		log.Printf("Неверный формат топика: %s", topic)
		return
	}
	deviceID := parts[2]

	var sample models.PPGSampleMessage
	if err := json.Unmarshal(payload, &sample); err != nil {
		log.Printf("Ошибка разбора MQTT payload: %v", err)
		return
	}
	if sample.DeviceID == "" {
		sample.DeviceID = deviceID
	}

	select {
	case p.sampleChannel <- &sample:
	default:
		log.Println("Канал отсчетов переполнен, сообщение пропущено")
	}
}

// sampleWorker переносит отсчеты из очереди в буфер активной записи
func (p *MQTTStreamProcessor) sampleWorker() {
	defer p.wg.Done()

	for {
		select {
		case sample := <-p.sampleChannel:
			ok := p.sessionManager.AppendSample(sample.DeviceID, models.SignalSample{
				TMs: sample.TimeMs,
				V:   sample.Value,
			})
			if !ok {
				// отсчеты вне активной записи молча отбрасываются:
				// устройство может стримить до нажатия «старт»
				continue
			}
		case <-p.ctx.Done():
			log.Println("Sample worker остановлен")
			return
		}
	}
}

// Stop останавливает процессор
func (p *MQTTStreamProcessor) Stop() {
	log.Println("Остановка MQTT Stream Processor...")
	p.cancel()
	p.wg.Wait()
	log.Println("MQTT Stream Processor остановлен")
}
