package ws

import (
	"context"
	"encoding/json"
	"errors"
	"testing"
	"time"

	"go-inventory-uom/internal/model"
)

func receive(t *testing.T, h *Hub) map[string]any {
	t.Helper()
	select {
	case msg := <-h.Broadcast:
		var event map[string]any
		if err := json.Unmarshal(msg, &event); err != nil {
			t.Fatalf("decode: %v", err)
		}
		return event
	case <-time.After(2 * time.Second):
		t.Fatal("nothing broadcast")
		return nil
	}
}

func TestNotifyTransformationActions(t *testing.T) {
	h := NewHub(nil)
	tests := []struct {
		status model.TransformationStatus
		action string
	}{
		{model.StatusCompleted, "transformation_completed"},
		{model.StatusFailed, "transformation_failed"},
	}
	for _, tt := range tests {
		record := model.TransformationRecord{
			ID:         "trx-1",
			User:       "kasir-01",
			Status:     tt.status,
			SourceItem: model.ItemSnapshot{ID: "AQUA-DUS", Unit: "dus", Quantity: 1},
			TargetItem: model.ItemSnapshot{ID: "AQUA-PCS", Unit: "pcs", Quantity: 12},
		}
		errc := make(chan error, 1)
		go func() { errc <- h.NotifyTransformation(context.Background(), record) }()

		event := receive(t, h)
		if event["type"] != "stock_update" || event["action"] != tt.action {
			t.Fatalf("event = %v", event)
		}
		data := event["data"].(map[string]any)
		if data["id"] != "trx-1" {
			t.Fatalf("data = %v", data)
		}
		if err := <-errc; err != nil {
			t.Fatalf("notify: %v", err)
		}
	}
}

func TestPublishGivesUpWithoutRunner(t *testing.T) {
	h := NewHub(nil)
	ctx, cancel := context.WithTimeout(context.Background(), 20*time.Millisecond)
	defer cancel()
	if err := h.Publish(ctx, Event{Type: "stock_update"}); err == nil {
		t.Fatal("expected context error when nobody reads broadcasts")
	}
}

func TestRunStopsOnCancel(t *testing.T) {
	h := NewHub(nil)
	ctx, cancel := context.WithCancel(context.Background())
	done := make(chan struct{})
	go func() {
		h.Run(ctx)
		close(done)
	}()

	if err := h.Publish(context.Background(), Event{Type: "stock_update"}); err != nil {
		t.Fatalf("publish with no clients: %v", err)
	}
	cancel()
	select {
	case <-done:
	case <-time.After(2 * time.Second):
		t.Fatal("hub did not stop")
	}
	if h.ClientCount() != 0 {
		t.Fatal("clients left after stop")
	}
}

func TestJoinLeaveAfterStop(t *testing.T) {
	h := NewHub(nil)
	ctx, cancel := context.WithCancel(context.Background())
	stopped := make(chan struct{})
	go func() {
		h.Run(ctx)
		close(stopped)
	}()
	cancel()
	<-stopped

	left := make(chan bool, 1)
	go func() {
		h.Leave(nil)
		left <- h.Join(nil)
	}()
	select {
	case joined := <-left:
		if joined {
			t.Fatal("join accepted by a stopped hub")
		}
	case <-time.After(2 * time.Second):
		t.Fatal("leave blocked after hub stopped")
	}
	if err := h.Publish(context.Background(), Event{Type: "stock_update"}); !errors.Is(err, ErrHubStopped) {
		t.Fatalf("publish error = %v, want ErrHubStopped", err)
	}
}
