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

// Package events publishes scan notifications for downstream consumers.
// Events carry identifiers and counts only, never text or category names.
package events

import (
	"context"
	"crypto/tls"
	"errors"
	"sync"
	"time"
)

var (
	// ErrPublisherClosed is returned by Publish after Close.
	ErrPublisherClosed = errors.New("publisher is closed")
	// ErrNilEvent is returned for a nil event.
	ErrNilEvent = errors.New("event must not be nil")
)

// ScanEvent announces a completed scan.
type ScanEvent struct {
	EventID       string    `json:"eventId"`
	EventType     string    `json:"eventType"`
	Timestamp     time.Time `json:"timestamp"`
	LogID         string    `json:"logId"`
	Username      string    `json:"username"`
	MaskLevel     int       `json:"maskLevel"`
	CategoryCount int       `json:"categoryCount"`
	Redactions    int       `json:"redactions"`
	Degraded      bool      `json:"degraded,omitempty"`
	Truncated     bool      `json:"truncated,omitempty"`
}

// Publisher publishes scan events.
type Publisher interface {
	// Publish sends an event. It is non-blocking for async implementations.
	Publish(ctx context.Context, event *ScanEvent) error
	// Close flushes pending events and releases resources.
	Close() error
}

// PartitionStrategy determines how events are distributed across partitions.
type PartitionStrategy string

const (
	// PartitionByUsername keeps each user's events ordered on one partition.
	PartitionByUsername PartitionStrategy = "username"
	// PartitionRoundRobin distributes events evenly across partitions.
	PartitionRoundRobin PartitionStrategy = "round_robin"
)

// KafkaConfig holds configuration for the Kafka publisher.
type KafkaConfig struct {
	Brokers           []string
	Topic             string
	PartitionStrategy PartitionStrategy
	// Compression codec: "none", "gzip", "snappy", "lz4".
	Compression string
	// Acks: "0", "1" or "all".
	Acks    string
	Retries int
	// TLS enables TLS when non-nil.
	TLS *tls.Config
}

// Noop discards events.
type Noop struct{}

func (Noop) Publish(context.Context, *ScanEvent) error { return nil }

func (Noop) Close() error { return nil }

// MemoryPublisher records events in memory.
type MemoryPublisher struct {
	mu     sync.Mutex
	events []*ScanEvent
	closed bool
}

// NewMemoryPublisher creates a MemoryPublisher.
func NewMemoryPublisher() *MemoryPublisher {
	return &MemoryPublisher{}
}

// Publish stores an event.
func (m *MemoryPublisher) Publish(_ context.Context, event *ScanEvent) error {
	if event == nil {
		return ErrNilEvent
	}
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.closed {
		return ErrPublisherClosed
	}
	m.events = append(m.events, event)
	return nil
}

// Close marks the publisher as closed.
func (m *MemoryPublisher) Close() error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.closed = true
	return nil
}

// Events returns a copy of all published events.
func (m *MemoryPublisher) Events() []*ScanEvent {
	m.mu.Lock()
	defer m.mu.Unlock()
	out := make([]*ScanEvent, len(m.events))
	copy(out, m.events)
	return out
}
