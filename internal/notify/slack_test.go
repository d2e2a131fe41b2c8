package notify

import (
	"context"
	"encoding/json"
	"io"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
)

func TestFormatMessage(t *testing.T) {
	p := Payload{
		Type:        TypeEntrySignal,
		MintAddress: "mint123",
		Timestamp:   1700000000000,
		Data: map[string]string{
			"symbol":     "TEST",
			"entryPrice": "0.0000421",
		},
	}

	msg := FormatMessage(p)

	for _, want := range []string{"*ENTRY_SIGNAL*", "`mint123`", "entryPrice: 0.0000421", "symbol: TEST"} {
		if !strings.Contains(msg, want) {
			t.Errorf("message missing %q:\n%s", want, msg)
		}
	}

	// Data keys render sorted for stable output.
	if strings.Index(msg, "entryPrice") > strings.Index(msg, "symbol") {
		t.Error("data keys not sorted")
	}
}

func TestFormatMessage_NoData(t *testing.T) {
	msg := FormatMessage(Payload{Type: TypeMonitoringStopped, MintAddress: "m", Timestamp: 0})
	if strings.Contains(msg, "```") {
		t.Error("empty data must not render a code block")
	}
}

func TestSlack_Notify(t *testing.T) {
	var gotText string
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		body, _ := io.ReadAll(r.Body)
		var msg map[string]string
		if err := json.Unmarshal(body, &msg); err != nil {
			t.Errorf("bad webhook body: %v", err)
		}
		gotText = msg["text"]
		w.WriteHeader(http.StatusOK)
	}))
	defer server.Close()

	err := NewSlack(server.URL).Notify(context.Background(), Payload{
		Type:        TypeExitSignal,
		MintAddress: "mintX",
		Timestamp:   1700000000000,
		Data:        map[string]string{"reason": "price drop"},
	})
	if err != nil {
		t.Fatalf("Notify: %v", err)
	}
	if !strings.Contains(gotText, "EXIT_SIGNAL") || !strings.Contains(gotText, "mintX") {
		t.Errorf("unexpected webhook text: %s", gotText)
	}
}

func TestSlack_NotifyErrorStatus(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusForbidden)
	}))
	defer server.Close()

	if err := NewSlack(server.URL).Notify(context.Background(), Payload{Type: TypeEntrySignal}); err == nil {
		t.Fatal("expected error on non-200 webhook response")
	}
}
