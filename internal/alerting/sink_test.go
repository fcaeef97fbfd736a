package alerting

import (
	"context"
	"encoding/json"
	"testing"
	"time"

	"github.com/alicebob/miniredis/v2"
	"github.com/redis/go-redis/v9"
	"github.com/rs/zerolog"

	"trade-anomaly-alerts/internal/pattern"
)

func testRedis(t *testing.T) (*miniredis.Miniredis, *redis.Client) {
	t.Helper()
	srv, err := miniredis.Run()
	if err != nil {
		t.Fatalf("failed to start miniredis: %v", err)
	}
	t.Cleanup(srv.Close)

	client := redis.NewClient(&redis.Options{Addr: srv.Addr()})
	t.Cleanup(func() { client.Close() })
	return srv, client
}

func TestRedisSinkPublish(t *testing.T) {
	srv, client := testRedis(t)
	sink := NewRedisSink(client, zerolog.Nop())

	p := pattern.Pattern{
		TradeID:      "T42",
		Timestamp:    time.Date(2024, 1, 2, 11, 0, 0, 0, time.UTC),
		AccountID:    "A1",
		Instrument:   "TCS",
		PatternType:  pattern.TypeGeneralAnomaly,
		AnomalyScore: -0.2,
		Confidence:   0.55,
		Details:      map[string]any{"trade_size": 1000.0},
	}
	alert := FromPattern(p, time.Date(2024, 1, 2, 11, 1, 0, 0, time.UTC))

	if err := sink.Publish(context.Background(), Key(p.TradeID), time.Hour, alert); err != nil {
		t.Fatalf("Publish failed: %v", err)
	}

	raw, err := srv.Get("anomaly_alert:T42")
	if err != nil {
		t.Fatalf("alert key missing: %v", err)
	}
	if ttl := srv.TTL("anomaly_alert:T42"); ttl != time.Hour {
		t.Fatalf("ttl = %v, want 1h", ttl)
	}

	var stored Alert
	if err := json.Unmarshal([]byte(raw), &stored); err != nil {
		t.Fatalf("stored alert is not valid JSON: %v", err)
	}
	if stored.AlertType != TypeBatchAnomaly {
		t.Fatalf("alert_type = %s, want %s", stored.AlertType, TypeBatchAnomaly)
	}
	if stored.PatternType != pattern.TypeGeneralAnomaly {
		t.Fatalf("pattern_type = %s, want %s", stored.PatternType, pattern.TypeGeneralAnomaly)
	}
	if stored.Confidence != 0.55 {
		t.Fatalf("confidence = %v, want 0.55", stored.Confidence)
	}
}

func TestRedisSinkPublishFailure(t *testing.T) {
	srv, client := testRedis(t)
	sink := NewRedisSink(client, zerolog.Nop())
	srv.Close()

	alert := Alert{AlertType: TypeBatchAnomaly, Timestamp: time.Now()}
	if err := sink.Publish(context.Background(), Key("T1"), time.Hour, alert); err == nil {
		t.Fatal("Publish against a closed server should fail")
	}
}
