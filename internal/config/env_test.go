package config

import (
	"os"
	"path/filepath"
	"testing"
)

func TestLoadEnv(t *testing.T) {
	unsetEnv(t, "BITHUMB_ACCESS_KEY")
	unsetEnv(t, "BITHUMB_SECRET_KEY")
	unsetEnv(t, "EXPORTED")
	unsetEnv(t, "EMPTY")
	dir := t.TempDir()
	path := filepath.Join(dir, ".env")
	content := "" +
		"# exchange credentials\n" +
		"BITHUMB_ACCESS_KEY=access\n" +
		"BITHUMB_SECRET_KEY=\"secret\"\n" +
		"export EXPORTED='yes'\n" +
		"EMPTY=\n"
	if err := os.WriteFile(path, []byte(content), 0o600); err != nil {
		t.Fatalf("write env: %v", err)
	}
	if err := LoadEnv(path); err != nil {
		t.Fatalf("load env: %v", err)
	}
	if got := os.Getenv("BITHUMB_ACCESS_KEY"); got != "access" {
		t.Fatalf("BITHUMB_ACCESS_KEY expected access, got %q", got)
	}
	if got := os.Getenv("BITHUMB_SECRET_KEY"); got != "secret" {
		t.Fatalf("BITHUMB_SECRET_KEY expected secret, got %q", got)
	}
	if got := os.Getenv("EXPORTED"); got != "yes" {
		t.Fatalf("EXPORTED expected yes, got %q", got)
	}
	if got := os.Getenv("EMPTY"); got != "" {
		t.Fatalf("EMPTY expected empty, got %q", got)
	}
}

func TestLoadEnvDoesNotOverrideExisting(t *testing.T) {
	t.Setenv("BITHUMB_ACCESS_KEY", "existing")
	dir := t.TempDir()
	path := filepath.Join(dir, ".env")
	if err := os.WriteFile(path, []byte("BITHUMB_ACCESS_KEY=file\n"), 0o600); err != nil {
		t.Fatalf("write env: %v", err)
	}
	if err := LoadEnv(path); err != nil {
		t.Fatalf("load env: %v", err)
	}
	if got := os.Getenv("BITHUMB_ACCESS_KEY"); got != "existing" {
		t.Fatalf("expected existing, got %q", got)
	}
}

func TestLoadEnvMissingFile(t *testing.T) {
	if err := LoadEnv(filepath.Join(t.TempDir(), ".env")); err != nil {
		t.Fatalf("missing file must not be an error: %v", err)
	}
}

func unsetEnv(t *testing.T, key string) {
	t.Helper()
	if old, ok := os.LookupEnv(key); ok {
		t.Cleanup(func() { _ = os.Setenv(key, old) })
	} else {
		t.Cleanup(func() { _ = os.Unsetenv(key) })
	}
	_ = os.Unsetenv(key)
}
