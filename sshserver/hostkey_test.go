package sshserver

import (
	"path/filepath"
	"testing"
)

func TestEnsureHostKeyGeneratesAndReloads(t *testing.T) {
	path := filepath.Join(t.TempDir(), "ssh", "hostkey")
	signer, err := EnsureHostKey(path)
	if err != nil {
		t.Fatalf("generate host key: %v", err)
	}
	if signer.PublicKey().Type() != "ssh-ed25519" {
		t.Fatalf("expected ed25519 host key, got %s", signer.PublicKey().Type())
	}

	reloaded, err := EnsureHostKey(path)
	if err != nil {
		t.Fatalf("reload host key: %v", err)
	}
	if string(reloaded.PublicKey().Marshal()) != string(signer.PublicKey().Marshal()) {
		t.Fatalf("host key changed across reload")
	}
}

func TestEnsureHostKeyRequiresPath(t *testing.T) {
	if _, err := EnsureHostKey("  "); err == nil {
		t.Fatalf("expected error for blank path")
	}
}
