/*
Copyright 2026 Altaira Labs.

SPDX-License-Identifier: Apache-2.0

Licensed under the Apache License, Version 2.0 (the "License");
you may not use this file except in compliance with the License.
You may obtain a copy of the License at

    http://www.apache.org/licenses/LICENSE-2.0

Unless required by applicable law or agreed to in writing, software
distributed under the License is distributed on an "AS IS" BASIS,
WITHOUT WARRANTIES OR CONDITIONS OF ANY KIND, either express or implied.
See the License for the specific language governing permissions and
limitations under the License.
*/

package events

import (
	"context"
	"crypto/tls"
	"encoding/json"
	"fmt"
	"log/slog"
	"sync"

	"github.com/IBM/sarama"
)

// saramaProducer abstracts sarama.AsyncProducer for testing.
type saramaProducer interface {
	Input() chan<- *sarama.ProducerMessage
	Errors() <-chan *sarama.ProducerError
	AsyncClose()
}

// KafkaPublisher publishes scan events with an async producer.
type KafkaPublisher struct {
	producer saramaProducer
	topic    string
	strategy PartitionStrategy
	logger   *slog.Logger
	onError  func(eventType string)

	mu     sync.RWMutex
	closed bool
	wg     sync.WaitGroup
}

// KafkaOption configures a KafkaPublisher.
type KafkaOption func(*KafkaPublisher)

// WithErrorHandler registers a callback for asynchronous delivery failures.
func WithErrorHandler(f func(eventType string)) KafkaOption {
	return func(kp *KafkaPublisher) {
		kp.onError = f
	}
}

// NewKafkaPublisher connects a KafkaPublisher to cfg.Brokers.
func NewKafkaPublisher(cfg KafkaConfig, logger *slog.Logger, opts ...KafkaOption) (*KafkaPublisher, error) {
	sc, err := buildSaramaConfig(cfg)
	if err != nil {
		return nil, fmt.Errorf("invalid kafka config: %w", err)
	}
	producer, err := sarama.NewAsyncProducer(cfg.Brokers, sc)
	if err != nil {
		return nil, fmt.Errorf("failed to create kafka producer: %w", err)
	}
	return newKafkaPublisherWithProducer(producer, cfg.Topic, cfg.PartitionStrategy, logger, opts...), nil
}

func newKafkaPublisherWithProducer(producer saramaProducer, topic string, strategy PartitionStrategy, logger *slog.Logger, opts ...KafkaOption) *KafkaPublisher {
	if logger == nil {
		logger = slog.Default()
	}
	kp := &KafkaPublisher{
		producer: producer,
		topic:    topic,
		strategy: strategy,
		logger:   logger,
	}
	for _, opt := range opts {
		opt(kp)
	}

	kp.wg.Add(1)
	go kp.drainErrors()
	return kp
}

// Publish enqueues an event. Delivery failures are reported asynchronously.
func (kp *KafkaPublisher) Publish(_ context.Context, event *ScanEvent) error {
	if event == nil {
		return ErrNilEvent
	}

	kp.mu.RLock()
	defer kp.mu.RUnlock()
	if kp.closed {
		return ErrPublisherClosed
	}

	data, err := json.Marshal(event)
	if err != nil {
		return fmt.Errorf("failed to marshal event: %w", err)
	}
	msg := &sarama.ProducerMessage{
		Topic:    kp.topic,
		Value:    sarama.ByteEncoder(data),
		Metadata: event.EventType,
	}
	if kp.strategy != PartitionRoundRobin {
		msg.Key = sarama.StringEncoder(event.Username)
	}
	kp.producer.Input() <- msg
	return nil
}

// Close shuts down the producer and waits for the error drain goroutine.
func (kp *KafkaPublisher) Close() error {
	kp.mu.Lock()
	if kp.closed {
		kp.mu.Unlock()
		return nil
	}
	kp.closed = true
	kp.mu.Unlock()

	kp.producer.AsyncClose()
	kp.wg.Wait()
	return nil
}

func (kp *KafkaPublisher) drainErrors() {
	defer kp.wg.Done()
	for prodErr := range kp.producer.Errors() {
		eventType, _ := prodErr.Msg.Metadata.(string)
		kp.logger.Error("kafka publish failed",
			"topic", prodErr.Msg.Topic,
			"eventType", eventType,
			"error", prodErr.Err.Error(),
		)
		if kp.onError != nil {
			kp.onError(eventType)
		}
	}
}

func buildSaramaConfig(cfg KafkaConfig) (*sarama.Config, error) {
	if len(cfg.Brokers) == 0 {
		return nil, fmt.Errorf("at least one broker is required")
	}
	if cfg.Topic == "" {
		return nil, fmt.Errorf("topic is required")
	}

	sc := sarama.NewConfig()
	sc.Producer.Return.Errors = true
	if cfg.PartitionStrategy == PartitionRoundRobin {
		sc.Producer.Partitioner = sarama.NewRoundRobinPartitioner
	} else {
		sc.Producer.Partitioner = sarama.NewHashPartitioner
	}

	switch cfg.Acks {
	case "0":
		sc.Producer.RequiredAcks = sarama.NoResponse
	case "1":
		sc.Producer.RequiredAcks = sarama.WaitForLocal
	case "all", "":
		sc.Producer.RequiredAcks = sarama.WaitForAll
	default:
		return nil, fmt.Errorf("unsupported acks value: %s", cfg.Acks)
	}

	switch cfg.Compression {
	case "gzip":
		sc.Producer.Compression = sarama.CompressionGZIP
	case "snappy":
		sc.Producer.Compression = sarama.CompressionSnappy
	case "lz4":
		sc.Producer.Compression = sarama.CompressionLZ4
	default:
		sc.Producer.Compression = sarama.CompressionNone
	}

	if cfg.Retries > 0 {
		sc.Producer.Retry.Max = cfg.Retries
	}
	if cfg.TLS != nil {
		sc.Net.TLS.Enable = true
		sc.Net.TLS.Config = cfg.TLS.Clone()
		if sc.Net.TLS.Config.MinVersion == 0 {
			sc.Net.TLS.Config.MinVersion = tls.VersionTLS12
		}
	}
	return sc, nil
}
