package notify_test

import (
	"context"
	"encoding/json"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/coder/websocket"

	"github.com/p-n-ai/pai-admin/internal/notify"
)

func TestHub_DeliversToConnectedClient(t *testing.T) {
	hub := notify.NewHub(nil)
	srv := httptest.NewServer(hub)
	defer srv.Close()

	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()

	conn, _, err := websocket.Dial(ctx, "ws"+strings.TrimPrefix(srv.URL, "http"), nil)
	if err != nil {
		t.Fatalf("Dial() error = %v", err)
	}
	defer conn.CloseNow()

	waitFor(t, func() bool { return hub.ClientCount() == 1 })

	if err := hub.Deliver(ctx, notify.Notification{Message: "Subject deleted successfully", Severity: notify.SeverityDestructive}); err != nil {
		t.Fatalf("Deliver() error = %v", err)
	}

	_, data, err := conn.Read(ctx)
	if err != nil {
		t.Fatalf("Read() error = %v", err)
	}
	var got notify.Notification
	if err := json.Unmarshal(data, &got); err != nil {
		t.Fatalf("unmarshal: %v", err)
	}
	if got.Message != "Subject deleted successfully" || got.Severity != notify.SeverityDestructive {
		t.Errorf("got %+v", got)
	}

	conn.Close(websocket.StatusNormalClosure, "")
	waitFor(t, func() bool { return hub.ClientCount() == 0 })
}

func TestHub_DeliverWithoutClients(t *testing.T) {
	hub := notify.NewHub(nil)
	if err := hub.Deliver(context.Background(), notify.Notification{Message: "x"}); err != nil {
		t.Errorf("Deliver() error = %v, want nil", err)
	}
}

func waitFor(t *testing.T, cond func() bool) {
	t.Helper()
	deadline := time.Now().Add(2 * time.Second)
	for time.Now().Before(deadline) {
		if cond() {
			return
		}
		time.Sleep(10 * time.Millisecond)
	}
	t.Fatal("condition not met before deadline")
}
