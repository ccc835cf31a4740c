package config

import (
	"context"
	"os"
	"path/filepath"
	"testing"
	"time"
)

func TestReadAddress(t *testing.T) {
	dir := t.TempDir()

	tests := []struct {
		name    string
		content string
		want    string
	}{
		{"plain", "ws://localhost:8080", "ws://localhost:8080"},
		{"trailing newline", "wss://example.com/ws\n", "wss://example.com/ws"},
		{"empty", "", ""},
		{"whitespace only", "  \n\t", ""},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			path := filepath.Join(dir, tt.name)
			if err := os.WriteFile(path, []byte(tt.content), 0644); err != nil {
				t.Fatalf("write: %v", err)
			}
			got, err := ReadAddress(path)
			if err != nil {
				t.Fatalf("ReadAddress failed: %v", err)
			}
			if got != tt.want {
				t.Errorf("ReadAddress() = %q, want %q", got, tt.want)
			}
		})
	}

	if _, err := ReadAddress(filepath.Join(dir, "missing")); err == nil {
		t.Error("ReadAddress of a missing file should fail")
	}
}

func TestWatchAddress(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "address")
	if err := os.WriteFile(path, []byte("ws://first\n"), 0644); err != nil {
		t.Fatalf("write: %v", err)
	}

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	changes := make(chan string, 8)
	errCh := make(chan error, 1)
	go func() {
		errCh <- WatchAddress(ctx, path, func(a string) { changes <- a }, nil)
	}()

	expect := func(want string) {
		t.Helper()
		select {
		case got := <-changes:
			if got != want {
				t.Errorf("onChange(%q), want %q", got, want)
			}
		case <-time.After(2 * time.Second):
			t.Fatalf("timeout waiting for %q", want)
		}
	}

	expect("ws://first")

	if err := os.WriteFile(path, []byte("ws://second\n"), 0644); err != nil {
		t.Fatalf("write: %v", err)
	}
	expect("ws://second")

	// Unchanged content is not reported
	if err := os.WriteFile(path, []byte("ws://second"), 0644); err != nil {
		t.Fatalf("write: %v", err)
	}

	// Atomic replace
	tmp := filepath.Join(dir, "address.tmp")
	if err := os.WriteFile(tmp, []byte("ws://third"), 0644); err != nil {
		t.Fatalf("write: %v", err)
	}
	if err := os.Rename(tmp, path); err != nil {
		t.Fatalf("rename: %v", err)
	}
	expect("ws://third")

	// Other files in the directory are ignored
	if err := os.WriteFile(filepath.Join(dir, "other"), []byte("ws://other"), 0644); err != nil {
		t.Fatalf("write: %v", err)
	}

	cancel()
	select {
	case err := <-errCh:
		if err != nil {
			t.Errorf("WatchAddress returned %v, want nil", err)
		}
	case <-time.After(time.Second):
		t.Fatal("WatchAddress did not return after cancel")
	}

	select {
	case got := <-changes:
		t.Errorf("unexpected onChange(%q)", got)
	default:
	}
}

func TestWatchAddress_MissingFile(t *testing.T) {
	path := filepath.Join(t.TempDir(), "missing")
	err := WatchAddress(context.Background(), path, func(string) {}, nil)
	if err == nil {
		t.Error("WatchAddress on a missing file should fail")
	}
}
