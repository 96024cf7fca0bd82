/*
Copyright 2026 Chainguard, Inc.
SPDX-License-Identifier: Apache-2.0
*/

// Package kafkastore publishes audit records to a Kafka topic, keyed by repository.
package kafkastore

import (
	"context"
	"encoding/json"
	"fmt"
	"time"

	"chainguard.dev/docfixer/audit"
	"github.com/confluentinc/confluent-kafka-go/v2/kafka"
)

// producer is the subset of *kafka.Producer the store uses.
type producer interface {
	Produce(msg *kafka.Message, deliveryChan chan kafka.Event) error
	Flush(timeoutMs int) int
	Close()
}

// deliveryTimeout bounds how long the producer keeps retrying one record.
const deliveryTimeout = 10 * time.Second

// Store is an audit.Store that waits for broker acknowledgement of every record.
type Store struct {
	producer producer
	topic    string
}

var _ audit.Store = (*Store)(nil)

// New connects a producer to brokers, a comma-separated bootstrap list.
func New(brokers, topic string) (*Store, error) {
	p, err := kafka.NewProducer(&kafka.ConfigMap{
		"bootstrap.servers":  brokers,
		"acks":               "all",
		"message.timeout.ms": int(deliveryTimeout.Milliseconds()),
	})
	if err != nil {
		return nil, fmt.Errorf("creating kafka producer: %w", err)
	}
	return &Store{producer: p, topic: topic}, nil
}

// Close flushes pending messages and closes the producer.
func (s *Store) Close() error {
	s.producer.Flush(5000)
	s.producer.Close()
	return nil
}

// Append implements audit.Store.
func (s *Store) Append(ctx context.Context, r audit.Record) (audit.Record, error) {
	r = audit.Stamp(r)

	value, err := json.Marshal(r)
	if err != nil {
		return r, fmt.Errorf("encoding audit record: %w", err)
	}

	delivery := make(chan kafka.Event, 1)
	if err := s.producer.Produce(&kafka.Message{
		TopicPartition: kafka.TopicPartition{Topic: &s.topic, Partition: kafka.PartitionAny},
		Key:            []byte(r.Host + "/" + r.Repository),
		Value:          value,
		Headers:        []kafka.Header{{Key: "type", Value: []byte(r.Type)}},
	}, delivery); err != nil {
		return r, fmt.Errorf("producing audit record: %w", err)
	}

	select {
	case <-ctx.Done():
		return r, fmt.Errorf("waiting for audit record delivery: %w", ctx.Err())
	case e := <-delivery:
		m, ok := e.(*kafka.Message)
		if !ok {
			return r, fmt.Errorf("unexpected delivery event %v", e)
		}
		if m.TopicPartition.Error != nil {
			return r, fmt.Errorf("delivering audit record: %w", m.TopicPartition.Error)
		}
	}
	return r, nil
}
