package token

import (
	"errors"
	"strings"
	"testing"

	"campus-attendance-svc/src/internal/models"
)

func TestMintDecodeRoundTrip(t *testing.T) {
	codec := NewCodec("unit-test-secret")

	payload, err := codec.Mint("session-1", "nonce-1")
	if err != nil {
		t.Fatalf("mint failed: %v", err)
	}

	sessionID, nonce, err := codec.Decode(payload)
	if err != nil {
		t.Fatalf("decode failed: %v", err)
	}
	if sessionID != "session-1" {
		t.Fatalf("expected session-1, got %s", sessionID)
	}
	if nonce != "nonce-1" {
		t.Fatalf("expected nonce-1, got %s", nonce)
	}
}

func TestDecodeGarbage(t *testing.T) {
	codec := NewCodec("unit-test-secret")

	cases := []string{
		"",
		"not-a-token",
		"a.b",
		"a.b.c",
		strings.Repeat("x", 512),
	}

	for _, raw := range cases {
		if _, _, err := codec.Decode(raw); !errors.Is(err, models.ErrInvalidToken) {
			t.Fatalf("expected ErrInvalidToken for %q, got %v", raw, err)
		}
	}
}

func TestDecodeTamperedPayload(t *testing.T) {
	codec := NewCodec("unit-test-secret")

	payload, err := codec.Mint("session-1", "nonce-1")
	if err != nil {
		t.Fatalf("mint failed: %v", err)
	}

	// Flip a character in the claims segment; the signature no longer matches.
	parts := strings.Split(payload, ".")
	if len(parts) != 3 {
		t.Fatalf("unexpected token shape: %s", payload)
	}
	body := []byte(parts[1])
	if body[0] == 'A' {
		body[0] = 'B'
	} else {
		body[0] = 'A'
	}
	tampered := parts[0] + "." + string(body) + "." + parts[2]

	if _, _, err := codec.Decode(tampered); !errors.Is(err, models.ErrInvalidToken) {
		t.Fatalf("expected ErrInvalidToken for tampered payload, got %v", err)
	}
}

func TestDecodeWrongSecret(t *testing.T) {
	minter := NewCodec("secret-a")
	verifier := NewCodec("secret-b")

	payload, err := minter.Mint("session-1", "nonce-1")
	if err != nil {
		t.Fatalf("mint failed: %v", err)
	}

	if _, _, err := verifier.Decode(payload); !errors.Is(err, models.ErrInvalidToken) {
		t.Fatalf("expected ErrInvalidToken for wrong secret, got %v", err)
	}
}

func TestTamperAndGarbageAreIndistinguishable(t *testing.T) {
	codec := NewCodec("unit-test-secret")

	payload, _ := codec.Mint("session-1", "nonce-1")
	_, _, tamperErr := NewCodec("other-secret").Decode(payload)
	_, _, garbageErr := codec.Decode("garbage")

	if !errors.Is(tamperErr, garbageErr) {
		t.Fatalf("tamper and garbage must map to the same error, got %v vs %v", tamperErr, garbageErr)
	}
}
