package config

import (
	"os"
	"path/filepath"
	"testing"
	"time"
)

func TestPort(t *testing.T) {
	t.Setenv("TEST_PORT", "8085")
	if p, err := Port("TEST_PORT", "1"); err != nil || p != "8085" {
		t.Fatalf("expected 8085, got %q (%v)", p, err)
	}
	t.Setenv("TEST_PORT", "70000")
	if _, err := Port("TEST_PORT", "1"); err == nil {
		t.Fatal("expected error for out of range port")
	}
}

func TestIntAndDurations(t *testing.T) {
	t.Setenv("TEST_INT", "42")
	if got := Int("TEST_INT", 7, 0); got != 42 {
		t.Fatalf("expected 42, got %d", got)
	}
	t.Setenv("TEST_INT", "-3")
	if got := Int("TEST_INT", 7, 0); got != 7 {
		t.Fatalf("expected fallback 7 for value below min, got %d", got)
	}
	t.Setenv("TEST_INT", "abc")
	if got := Int("TEST_INT", 7, 0); got != 7 {
		t.Fatalf("expected fallback 7 for garbage, got %d", got)
	}

	t.Setenv("TEST_MINUTES", "30")
	if got := Minutes("TEST_MINUTES", 0); got != 30*time.Minute {
		t.Fatalf("expected 30m, got %s", got)
	}
	t.Setenv("TEST_SECONDS", "0")
	if got := Seconds("TEST_SECONDS", 60); got != time.Minute {
		t.Fatalf("expected fallback 60s for zero, got %s", got)
	}
}

func TestBoolAndList(t *testing.T) {
	t.Setenv("TEST_BOOL", "yes")
	if !Bool("TEST_BOOL", false) {
		t.Fatal("expected true")
	}
	t.Setenv("TEST_BOOL", "maybe")
	if Bool("TEST_BOOL", false) {
		t.Fatal("expected fallback false")
	}

	t.Setenv("TEST_LIST", " a, ,b ,c")
	got := List("TEST_LIST", "")
	if len(got) != 3 || got[0] != "a" || got[1] != "b" || got[2] != "c" {
		t.Fatalf("unexpected list: %#v", got)
	}
}

func TestLoad(t *testing.T) {
	if err := Load(filepath.Join(t.TempDir(), "missing.env")); err != nil {
		t.Fatalf("missing file should be ignored: %v", err)
	}

	path := filepath.Join(t.TempDir(), "test.env")
	if err := os.WriteFile(path, []byte("CONFIG_LOAD_TEST_KEY=from-file\n"), 0o600); err != nil {
		t.Fatalf("write env file: %v", err)
	}
	t.Setenv("CONFIG_LOAD_TEST_KEY", "")
	os.Unsetenv("CONFIG_LOAD_TEST_KEY")
	if err := Load(path); err != nil {
		t.Fatalf("load: %v", err)
	}
	if got := String("CONFIG_LOAD_TEST_KEY", ""); got != "from-file" {
		t.Fatalf("expected value from file, got %q", got)
	}
}
