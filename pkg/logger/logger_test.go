package logx

import (
	"bytes"
	"encoding/json"
	"testing"

	"github.com/rs/zerolog/log"
)

// Not parallel: InitWriter swaps the global logger.

func TestInitWriterJSONInfoLevel(t *testing.T) {
	var buf bytes.Buffer
	InitWriter(&buf, Config{})
	t.Cleanup(func() { Init() })

	log.Debug().Msg("hidden")
	log.Info().Str("session_id", "s1").Msg("visible")

	var entry map[string]any
	if err := json.Unmarshal(bytes.TrimSpace(buf.Bytes()), &entry); err != nil {
		t.Fatalf("expected exactly one json line, got %q: %v", buf.String(), err)
	}
	if entry["message"] != "visible" {
		t.Fatalf("unexpected message: %v", entry["message"])
	}
	if entry["session_id"] != "s1" {
		t.Fatalf("unexpected session_id: %v", entry["session_id"])
	}
	if _, ok := entry["caller"]; !ok {
		t.Fatal("expected caller field")
	}
}

func TestInitWriterDebugLevel(t *testing.T) {
	var buf bytes.Buffer
	InitWriter(&buf, Config{Debug: true})
	t.Cleanup(func() { Init() })

	log.Debug().Msg("shown")
	if !bytes.Contains(buf.Bytes(), []byte("shown")) {
		t.Fatalf("debug line missing: %q", buf.String())
	}
}
