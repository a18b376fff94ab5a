package main

import (
	"bytes"
	"context"
	"testing"

	"github.com/Sternrassler/overfast-proxy/internal/config"
)

func TestRefresh_EmptyStore(t *testing.T) {
	var stdout, stderr bytes.Buffer
	err := newApp(&stdout, &stderr).Run([]string{"cache-refresh", "--store", "memory"})
	if err != nil {
		t.Fatalf("Run failed: %v", err)
	}

	want := "{\n  \"found\": 0,\n  \"updated\": 0,\n  \"failures\": []\n}\n"
	if stdout.String() != want {
		t.Errorf("stdout = %q, want %q", stdout.String(), want)
	}
	if !bytes.Contains(stderr.Bytes(), []byte("Refresh sweep done")) {
		t.Errorf("expected sweep log on stderr, got %q", stderr.String())
	}
}

func TestRefresh_SetupFailure(t *testing.T) {
	cfg := config.Default()
	cfg.RedisURL = "redis://127.0.0.1:1/0"

	var stdout bytes.Buffer
	if err := refresh(context.Background(), cfg, &stdout); err == nil {
		t.Fatal("expected error for unreachable store")
	}
	if stdout.Len() != 0 {
		t.Errorf("nothing should be printed on failure, got %q", stdout.String())
	}
}
