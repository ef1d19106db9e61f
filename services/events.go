package services

import (
	"context"
	"encoding/json"
	"fmt"
	"strconv"
	"time"

	"taxi-shifts/models"

	"github.com/google/uuid"
	"github.com/segmentio/kafka-go"
	"go.uber.org/zap"
)

const (
	EventShiftStarted   = "shift.started"
	EventShiftPaused    = "shift.paused"
	EventShiftResumed   = "shift.resumed"
	EventShiftEnded     = "shift.ended"
	EventShiftCompleted = "shift.completed"
	EventShiftAbandoned = "shift.abandoned"
)

// ShiftEvent is published after every committed lifecycle change.
type ShiftEvent struct {
	ID            uuid.UUID          `json:"id"`
	Type          string             `json:"type"`
	DriverID      int64              `json:"driver_id"`
	ShiftID       int64              `json:"shift_id"`
	Status        models.ShiftStatus `json:"status"`
	At            time.Time          `json:"at"`
	WorkedSeconds int64              `json:"worked_seconds,omitempty"`
	Cash          *int64             `json:"cash,omitempty"`
}

var eventTypes = map[Operation]string{
	OpStart:   EventShiftStarted,
	OpPause:   EventShiftPaused,
	OpResume:  EventShiftResumed,
	OpEnd:     EventShiftEnded,
	OpSubmit:  EventShiftCompleted,
	OpAbandon: EventShiftAbandoned,
}

func NewShiftEvent(tr *Transition) ShiftEvent {
	typ, ok := eventTypes[tr.Operation]
	if !ok {
		typ = "shift." + string(tr.Operation)
	}
	return ShiftEvent{
		ID:            uuid.New(),
		Type:          typ,
		DriverID:      tr.DriverID,
		ShiftID:       tr.Shift.ID,
		Status:        tr.To,
		At:            tr.At,
		WorkedSeconds: tr.WorkedSeconds,
		Cash:          tr.Shift.Cash,
	}
}

type EventPublisher interface {
	Publish(ctx context.Context, ev ShiftEvent) error
	Close() error
}

type kafkaWriter interface {
	WriteMessages(ctx context.Context, msgs ...kafka.Message) error
	Close() error
}

// KafkaPublisher writes shift events to a topic, keyed by driver so one driver's
// events stay ordered within a partition.
type KafkaPublisher struct {
	writer kafkaWriter
}

func NewKafkaPublisher(brokers []string, topic string) *KafkaPublisher {
	return &KafkaPublisher{
		writer: &kafka.Writer{
			Addr:         kafka.TCP(brokers...),
			Topic:        topic,
			Balancer:     &kafka.Hash{},
			RequiredAcks: kafka.RequireOne,
			BatchTimeout: 50 * time.Millisecond,
		},
	}
}

func (p *KafkaPublisher) Publish(ctx context.Context, ev ShiftEvent) error {
	payload, err := json.Marshal(ev)
	if err != nil {
		return fmt.Errorf("marshal shift event: %w", err)
	}
	msg := kafka.Message{
		Key:   []byte(strconv.FormatInt(ev.DriverID, 10)),
		Value: payload,
		Headers: []kafka.Header{
			{Key: "type", Value: []byte(ev.Type)},
		},
	}
	if err := p.writer.WriteMessages(ctx, msg); err != nil {
		return fmt.Errorf("write shift event: %w", err)
	}
	return nil
}

func (p *KafkaPublisher) Close() error {
	return p.writer.Close()
}

// LogPublisher is used when no brokers are configured.
type LogPublisher struct {
	log *zap.Logger
}

func NewLogPublisher(log *zap.Logger) *LogPublisher {
	return &LogPublisher{log: log}
}

func (p *LogPublisher) Publish(_ context.Context, ev ShiftEvent) error {
	p.log.Info("shift event",
		zap.String("event_id", ev.ID.String()),
		zap.String("type", ev.Type),
		zap.Int64("driver_id", ev.DriverID),
		zap.Int64("shift_id", ev.ShiftID),
		zap.String("status", string(ev.Status)),
	)
	return nil
}

func (p *LogPublisher) Close() error { return nil }
