package events

import (
	"context"
	"encoding/json"
	"errors"
	"testing"

	"mfg-erp-backend/internal/logging"
)

func TestNewEnvelope(t *testing.T) {
	env, err := NewEnvelope(ProcessStatusUpdated, StatusPayload{ID: 3, BOMID: 7, Status: "completed"})
	if err != nil {
		t.Fatalf("NewEnvelope: %v", err)
	}
	if env.ID == "" {
		t.Error("expected an envelope id")
	}
	if env.Name != ProcessStatusUpdated {
		t.Errorf("expected %s, got %s", ProcessStatusUpdated, env.Name)
	}

	var p StatusPayload
	if err := json.Unmarshal(env.Payload, &p); err != nil {
		t.Fatalf("decoding payload: %v", err)
	}
	if p.ID != 3 || p.BOMID != 7 || p.Status != "completed" {
		t.Errorf("unexpected payload %+v", p)
	}
}

func TestEmitSwallowsFailures(t *testing.T) {
	rec := &Recorder{Err: errors.New("transport down")}
	Emit(context.Background(), rec, logging.Discard(), InventoryApprovalUpdated, ApprovalPayload{BOMID: 1})
	if got := len(rec.Events()); got != 0 {
		t.Errorf("expected no recorded events, got %d", got)
	}

	rec.Err = nil
	Emit(context.Background(), rec, logging.Discard(), InventoryApprovalUpdated, ApprovalPayload{BOMID: 1, RawMaterialID: 2, Approved: true})
	got := rec.Named(InventoryApprovalUpdated)
	if len(got) != 1 {
		t.Fatalf("expected 1 event, got %d", len(got))
	}
	if p := got[0].(ApprovalPayload); !p.Approved || p.RawMaterialID != 2 {
		t.Errorf("unexpected payload %+v", p)
	}

	Emit(context.Background(), nil, logging.Discard(), InventoryApprovalUpdated, nil)
}
