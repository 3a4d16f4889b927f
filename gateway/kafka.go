package gateway

import (
	"strings"

	"github.com/rs/zerolog/log"
	confluentKafka "gopkg.in/confluentinc/confluent-kafka-go.v1/kafka"
)

const (
	producerThreshold = 150000
	flushTimeout      = 3 * 1000
)

// NewKafkaProducer build a batching producer against the given brokers
func NewKafkaProducer(kafkaBrokers []string) (producer *confluentKafka.Producer, err error) {
	kafkaBrokerString := strings.Join(kafkaBrokers, ",")
	log.Info().Msgf("kafkaBrokerString is: %s", kafkaBrokerString)
	producer, err = confluentKafka.NewProducer(&confluentKafka.ConfigMap{
		"bootstrap.servers":            kafkaBrokerString,
		"security.protocol":            "plaintext",
		"queue.buffering.max.messages": 200000,
		"go.batch.producer":            true,
		"linger.ms":                    1000,
		"request.timeout.ms":           100000,
		"compression.type":             "snappy",
		"retries":                      20,
		"retry.backoff.ms":             1000,
		"batch.size":                   1000000,
	})
	if err != nil {
		return nil, err
	}
	log.Info().Msgf("Connect to kafka at %v", kafkaBrokers)

	go func() {
		for e := range producer.Events() {
			switch ev := e.(type) {
			case *confluentKafka.Message:
				if ev.TopicPartition.Error != nil {
					log.Error().Msgf("ev: %v", ev.TopicPartition.Error)
					errorFrames.Inc()
				} else {
					producedFrames.Observe(1)
				}
			}
		}
	}()
	return producer, nil
}

// Produce enqueue a message to kafka, flushing first when the local queue
// has backed up
func Produce(producer *confluentKafka.Producer, topic string, message []byte) error {
	return ProduceWithKey(producer, topic, message, nil)
}

// ProduceWithKey enqueue a keyed message to kafka
func ProduceWithKey(producer *confluentKafka.Producer, topic string, message []byte, key []byte) error {
	if producer.Len() > producerThreshold {
		log.Info().Msgf("size of waiting queue is too big: %v", producer.Len())
		producer.Flush(flushTimeout)
		log.Info().Msgf("after flush: %v", producer.Len())
	}

	return producer.Produce(&confluentKafka.Message{
		TopicPartition: confluentKafka.TopicPartition{
			Topic:     &topic,
			Partition: confluentKafka.PartitionAny,
		},
		Key:   key,
		Value: message,
	}, nil)
}
