package events

import (
	"context"
	"encoding/json"
	"fmt"
	"log"
	"strings"
	"time"

	"github.com/redis/go-redis/v9"
)

// Handler processes one decoded event. Returning an error leaves the message
// un-ACKed so the stream redelivers it; handlers must therefore be idempotent.
type Handler func(ctx context.Context, event Event) error

// Subscriber reads events from a Redis stream via a consumer group.
// Delivery is at-least-once.
type Subscriber struct {
	client *redis.Client
	cfg    SubscriberConfig
}

type SubscriberConfig struct {
	Group         string
	Consumer      string
	Stream        string
	Handler       Handler
	BatchSize     int64
	BlockDuration time.Duration
}

func NewSubscriber(client *redis.Client, cfg SubscriberConfig) *Subscriber {
	if cfg.BatchSize <= 0 {
		cfg.BatchSize = 10
	}
	if cfg.BlockDuration <= 0 {
		cfg.BlockDuration = 5 * time.Second
	}
	return &Subscriber{client: client, cfg: cfg}
}

// Start creates the consumer group if needed and loops until ctx is cancelled.
func (s *Subscriber) Start(ctx context.Context) error {
	err := s.client.XGroupCreateMkStream(ctx, s.cfg.Stream, s.cfg.Group, "0").Err()
	if err != nil && !strings.HasPrefix(err.Error(), "BUSYGROUP") {
		return fmt.Errorf("failed to create consumer group %s: %w", s.cfg.Group, err)
	}

	log.Printf("Consuming stream %s as %s/%s", s.cfg.Stream, s.cfg.Group, s.cfg.Consumer)

	for {
		select {
		case <-ctx.Done():
			log.Printf("Stopped consuming stream %s", s.cfg.Stream)
			return ctx.Err()
		default:
			if err := s.consumeBatch(ctx); err != nil {
				log.Printf("Stream %s read failed: %v", s.cfg.Stream, err)
				time.Sleep(time.Second)
			}
		}
	}
}

func (s *Subscriber) consumeBatch(ctx context.Context) error {
	streams, err := s.client.XReadGroup(ctx, &redis.XReadGroupArgs{
		Group:    s.cfg.Group,
		Consumer: s.cfg.Consumer,
		Streams:  []string{s.cfg.Stream, ">"},
		Count:    s.cfg.BatchSize,
		Block:    s.cfg.BlockDuration,
	}).Result()
	if err == redis.Nil {
		return nil
	}
	if err != nil {
		return err
	}

	for _, stream := range streams {
		for _, message := range stream.Messages {
			event, err := decodeStreamEvent(message)
			if err != nil {
				// Undecodable messages can never succeed; ACK and move on.
				log.Printf("Dropping message %s: %v", message.ID, err)
				s.ack(ctx, message.ID)
				continue
			}
			if err := s.cfg.Handler(ctx, event); err != nil {
				// Left un-ACKed, the message is redelivered.
				log.Printf("Handler failed for message %s: %v", message.ID, err)
				continue
			}
			s.ack(ctx, message.ID)
		}
	}
	return nil
}

func (s *Subscriber) ack(ctx context.Context, messageID string) {
	if err := s.client.XAck(ctx, s.cfg.Stream, s.cfg.Group, messageID).Err(); err != nil {
		log.Printf("Failed to ACK message %s: %v", messageID, err)
	}
}

// decodeStreamEvent unpacks the single "event" field the publisher writes.
func decodeStreamEvent(message redis.XMessage) (Event, error) {
	raw, ok := message.Values["event"].(string)
	if !ok {
		return Event{}, fmt.Errorf("message %s carries no event field", message.ID)
	}
	var event Event
	if err := json.Unmarshal([]byte(raw), &event); err != nil {
		return Event{}, fmt.Errorf("failed to unmarshal event: %w", err)
	}
	return event, nil
}
