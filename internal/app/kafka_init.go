package app

import (
	"strings"

	log "github.com/sirupsen/logrus"

	"github.com/vladislavdragonenkov/glowup/internal/messaging/kafka"
)

// parseBrokers разбирает список брокеров через запятую, отбрасывая пустые значения.
func parseBrokers(raw string) []string {
	var brokers []string
	for _, broker := range strings.Split(raw, ",") {
		if broker = strings.TrimSpace(broker); broker != "" {
			brokers = append(brokers, broker)
		}
	}
	return brokers
}

// initKafkaProducer инициализирует Kafka producer, если список брокеров не пуст.
// Недоступная Kafka не мешает запуску: события просто не публикуются.
func initKafkaProducer(raw string, logger *log.Entry) *kafka.Producer {
	brokers := parseBrokers(raw)
	if len(brokers) == 0 {
		return nil
	}

	producer, err := kafka.NewProducer(brokers)
	if err != nil {
		logger.WithError(err).Warn("failed to create kafka producer, continuing without kafka")
		return nil
	}

	logger.WithField("brokers", brokers).Info("kafka producer initialized")
	return producer
}

// closeKafka закрывает Kafka producer если он не nil.
func closeKafka(producer *kafka.Producer, logger *log.Entry) {
	if producer == nil {
		return
	}

	if err := producer.Close(); err != nil {
		logger.WithError(err).Warn("failed to close kafka producer")
	} else {
		logger.Info("kafka producer closed")
	}
}
