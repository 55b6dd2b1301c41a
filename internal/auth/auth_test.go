package auth

import (
	"os"
	"path/filepath"
	"testing"
)

func TestLoadCredentials_Literal(t *testing.T) {
	creds, err := LoadCredentials("tok-abc", "")
	if err != nil {
		t.Fatalf("LoadCredentials failed: %v", err)
	}

	tok, err := creds.Token()
	if err != nil {
		t.Fatalf("Token failed: %v", err)
	}
	if tok != "tok-abc" {
		t.Errorf("Token = %q, want tok-abc", tok)
	}
}

func TestLoadCredentials_File(t *testing.T) {
	path := filepath.Join(t.TempDir(), "token")
	if err := os.WriteFile(path, []byte("tok-from-file\n"), 0o600); err != nil {
		t.Fatalf("write token file: %v", err)
	}

	// File takes precedence over the literal token.
	creds, err := LoadCredentials("tok-literal", path)
	if err != nil {
		t.Fatalf("LoadCredentials failed: %v", err)
	}

	tok, _ := creds.Token()
	if tok != "tok-from-file" {
		t.Errorf("Token = %q, want tok-from-file (trimmed)", tok)
	}
}

func TestLoadCredentials_Missing(t *testing.T) {
	if _, err := LoadCredentials("", ""); err == nil {
		t.Error("expected error for empty token")
	}

	if _, err := LoadCredentials("", "/nonexistent/token"); err == nil {
		t.Error("expected error for missing token file")
	}
}

func TestCredentials_NilToken(t *testing.T) {
	var creds *Credentials
	if _, err := creds.Token(); err == nil {
		t.Error("nil credentials should error")
	}
}
