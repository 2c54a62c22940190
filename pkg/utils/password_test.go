package utils

import (
	"testing"

	"golang.org/x/crypto/bcrypt"
)

func TestHashAndVerifyPassword(t *testing.T) {
	h, err := HashPassword("correct horse", bcrypt.MinCost)
	if err != nil {
		t.Fatalf("hash: %v", err)
	}
	if h == "correct horse" {
		t.Fatalf("hash must not equal the password")
	}
	if !VerifyPassword(h, "correct horse") {
		t.Fatalf("expected password to verify")
	}
	if VerifyPassword(h, "battery staple") {
		t.Fatalf("wrong password must not verify")
	}
	if VerifyPassword("not-a-hash", "correct horse") {
		t.Fatalf("garbage hash must not verify")
	}
}
