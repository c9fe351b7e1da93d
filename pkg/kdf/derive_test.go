package kdf

import (
	"errors"
	"testing"
)

func TestDeriveSymmetricKey_Deterministic(t *testing.T) {
	first, err := DeriveSymmetricKey("old1", "alice")
	if err != nil {
		t.Fatalf("DeriveSymmetricKey() error = %v", err)
	}

	second, err := DeriveSymmetricKey("old1", "alice")
	if err != nil {
		t.Fatalf("DeriveSymmetricKey() error = %v", err)
	}

	if first != second {
		t.Error("DeriveSymmetricKey() returned different keys for identical input")
	}
}

func TestDeriveSymmetricKey_InputSensitivity(t *testing.T) {
	base, _ := DeriveSymmetricKey("hunter2", "alice")

	tests := []struct {
		name       string
		password   string
		identifier string
	}{
		{name: "different identifier", password: "hunter2", identifier: "bob"},
		{name: "different password", password: "hunter3", identifier: "alice"},
		{name: "identifier case", password: "hunter2", identifier: "Alice"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			key, err := DeriveSymmetricKey(tt.password, tt.identifier)
			if err != nil {
				t.Fatalf("DeriveSymmetricKey() error = %v", err)
			}
			if key == base {
				t.Errorf("DeriveSymmetricKey(%q, %q) collided with base key", tt.password, tt.identifier)
			}
		})
	}
}

func TestDeriveSymmetricKey_EmptyInput(t *testing.T) {
	tests := []struct {
		name       string
		password   string
		identifier string
	}{
		{name: "empty password", password: "", identifier: "alice"},
		{name: "empty identifier", password: "secret", identifier: ""},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := DeriveSymmetricKey(tt.password, tt.identifier)
			if !errors.Is(err, ErrEmptyInput) {
				t.Errorf("DeriveSymmetricKey() error = %v, want ErrEmptyInput", err)
			}
		})
	}
}

func BenchmarkDeriveSymmetricKey(b *testing.B) {
	for i := 0; i < b.N; i++ {
		if _, err := DeriveSymmetricKey("benchmark-password", "benchmark-user"); err != nil {
			b.Fatalf("DeriveSymmetricKey() error = %v", err)
		}
	}
}
