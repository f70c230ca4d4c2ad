package queue

import (
	"strings"
	"testing"
	"time"
)

func TestStatusChangedPayload(t *testing.T) {
	at := time.Date(2026, time.March, 2, 10, 0, 0, 0, time.FixedZone("CST", -6*3600))
	msg := StatusChanged("prop-1", "pending", "accepted", at)

	payload, err := EncodeMessage(msg)
	if err != nil {
		t.Fatalf("encode message: %v", err)
	}
	for _, want := range []string{`"type":"property.status_changed"`, `"propertyId":"prop-1"`, `"previousStatus":"pending"`, `"occurredAt":"2026-03-02T16:00:00Z"`} {
		if !strings.Contains(string(payload), want) {
			t.Fatalf("payload %s missing %s", payload, want)
		}
	}

	got, err := DecodeMessage(payload)
	if err != nil {
		t.Fatalf("decode message: %v", err)
	}
	if got.Status != "accepted" || !got.OccurredAt.Equal(at) {
		t.Fatalf("unexpected decoded message: %+v", got)
	}
}

func TestDecodeMessageRejectsGarbage(t *testing.T) {
	if _, err := DecodeMessage([]byte("{not json")); err == nil {
		t.Fatalf("expected decode error")
	}
}
