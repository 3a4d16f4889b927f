package gateway

import (
	"encoding/json"
	"time"

	"github.com/rs/zerolog/log"
	confluentKafka "gopkg.in/confluentinc/confluent-kafka-go.v1/kafka"
)

// CommitEvent publish a connect/disconnect event for one peer
func CommitEvent(producer *confluentKafka.Producer, topic string, peer string, eventType int) {
	dataMap := map[string]interface{}{
		"peer":      peer,
		"eventType": eventType,
		"timestamp": time.Now().Unix(),
	}
	bs, err := json.Marshal(dataMap)
	if err != nil {
		log.Info().Msgf("marshal event json error: %v", err)
		return
	}

	if err = Produce(producer, topic, bs); err != nil {
		log.Info().Msgf("produce event json error: %v", err)
	}
}
