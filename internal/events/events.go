package events

import (
	"context"
	"encoding/json"
	"time"

	"github.com/google/uuid"
	"github.com/sirupsen/logrus"
)

const (
	InventoryApprovalUpdated = "inventoryApprovalUpdated"
	InventoryOutUpdated      = "inventoryOutUpdated"
	ProcessStatusUpdated     = "processStatusUpdated"
)

// Publisher delivers a named notification. Delivery is best-effort.
type Publisher interface {
	Publish(ctx context.Context, name string, payload any) error
}

type Envelope struct {
	ID         string          `json:"id"`
	Name       string          `json:"name"`
	Payload    json.RawMessage `json:"payload"`
	OccurredAt time.Time       `json:"occurred_at"`
}

func NewEnvelope(name string, payload any) (Envelope, error) {
	data, err := json.Marshal(payload)
	if err != nil {
		return Envelope{}, err
	}
	return Envelope{
		ID:         uuid.NewString(),
		Name:       name,
		Payload:    data,
		OccurredAt: time.Now().UTC(),
	}, nil
}

type ApprovalPayload struct {
	BOMID         uint `json:"bomId"`
	RawMaterialID uint `json:"rawMaterialId"`
	Approved      bool `json:"approved"`
}

type OutForInventoryPayload struct {
	BOMID         uint `json:"bomId"`
	RawMaterialID uint `json:"rawMaterialId"`
	Out           bool `json:"out"`
}

type StatusPayload struct {
	ID     uint   `json:"id"`
	BOMID  uint   `json:"bomId"`
	Status string `json:"status"`
}

// Emit publishes and only logs failures.
func Emit(ctx context.Context, pub Publisher, log logrus.FieldLogger, name string, payload any) {
	if pub == nil {
		return
	}
	if err := pub.Publish(ctx, name, payload); err != nil {
		log.WithError(err).WithField("event", name).Warn("event publish failed")
	}
}

// LogPublisher writes events to the logger only.
type LogPublisher struct {
	Log logrus.FieldLogger
}

func (p LogPublisher) Publish(_ context.Context, name string, payload any) error {
	p.Log.WithFields(logrus.Fields{"event": name, "payload": payload}).Info("event")
	return nil
}
