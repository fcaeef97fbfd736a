package alerting

import (
	"context"
	"encoding/json"
	"io"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/rs/zerolog"
)

func TestWebhookNotifierPostsAlerts(t *testing.T) {
	var (
		gotMethod      string
		gotContentType string
		gotBody        []byte
	)
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		gotMethod = r.Method
		gotContentType = r.Header.Get("Content-Type")
		gotBody, _ = io.ReadAll(r.Body)
		w.WriteHeader(http.StatusOK)
	}))
	defer server.Close()

	n := NewWebhookNotifier(server.URL, 5*time.Second, zerolog.Nop())
	alerts := []Alert{
		{AlertType: TypeBatchAnomaly, TradeID: "T1", AnomalyScore: -0.2, Timestamp: time.Now().UTC()},
		{AlertType: TypeRealTimeAnomaly, TradeID: "T2", AnomalyScore: -0.4, Timestamp: time.Now().UTC()},
	}

	if err := n.Notify(context.Background(), alerts); err != nil {
		t.Fatalf("Notify failed: %v", err)
	}
	if gotMethod != http.MethodPost {
		t.Fatalf("method = %s, want POST", gotMethod)
	}
	if gotContentType != "application/json" {
		t.Fatalf("content type = %s, want application/json", gotContentType)
	}

	var decoded []Alert
	if err := json.Unmarshal(gotBody, &decoded); err != nil {
		t.Fatalf("payload is not valid JSON: %v", err)
	}
	if len(decoded) != 2 || decoded[0].TradeID != "T1" || decoded[1].TradeID != "T2" {
		t.Fatalf("unexpected payload: %+v", decoded)
	}
}

func TestWebhookNotifierRejectsBadStatus(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		http.Error(w, "nope", http.StatusBadGateway)
	}))
	defer server.Close()

	n := NewWebhookNotifier(server.URL, 5*time.Second, zerolog.Nop())
	err := n.Notify(context.Background(), []Alert{{AlertType: TypeBatchAnomaly}})
	if err == nil {
		t.Fatal("Notify should fail on a non-2xx response")
	}
}

func TestWebhookNotifierSkipsEmptyBatch(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		t.Error("no request expected for an empty batch")
	}))
	defer server.Close()

	n := NewWebhookNotifier(server.URL, 5*time.Second, zerolog.Nop())
	if err := n.Notify(context.Background(), nil); err != nil {
		t.Fatalf("Notify of empty batch failed: %v", err)
	}
}
