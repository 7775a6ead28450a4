package token

import (
	"time"

	"campus-attendance-svc/src/internal/models"

	"github.com/golang-jwt/jwt/v5"
)

const issuer = "campus-attendance-svc"

// Claims carries the decoded redemption payload. The JWT signature is the
// integrity tag; no personal data is embedded.
type Claims struct {
	SessionID string `json:"sid"`
	Nonce     string `json:"non"`
	jwt.RegisteredClaims
}

// Codec mints and decodes redemption payloads. Stateless apart from the
// shared signing secret.
type Codec struct {
	secret []byte
}

func NewCodec(secret string) *Codec {
	return &Codec{secret: []byte(secret)}
}

// Mint produces the opaque URL-safe payload carried inside the rendered code.
func (c *Codec) Mint(sessionID, nonce string) (string, error) {
	claims := Claims{
		SessionID: sessionID,
		Nonce:     nonce,
		RegisteredClaims: jwt.RegisteredClaims{
			Issuer:   issuer,
			IssuedAt: jwt.NewNumericDate(time.Now()),
		},
	}

	signed, err := jwt.NewWithClaims(jwt.SigningMethodHS256, claims).SignedString(c.secret)
	if err != nil {
		return "", models.ErrInvalidToken
	}
	return signed, nil
}

// Decode recovers the session identifier and nonce from a raw payload.
// Malformed input, a bad signature and missing claims all collapse into
// ErrInvalidToken so callers cannot distinguish tampering from garbage.
func (c *Codec) Decode(raw string) (sessionID, nonce string, err error) {
	parsed, err := jwt.ParseWithClaims(raw, &Claims{}, func(t *jwt.Token) (interface{}, error) {
		if _, ok := t.Method.(*jwt.SigningMethodHMAC); !ok {
			return nil, models.ErrInvalidToken
		}
		return c.secret, nil
	})

	if err != nil || !parsed.Valid {
		return "", "", models.ErrInvalidToken
	}

	claims, ok := parsed.Claims.(*Claims)
	if !ok || claims.SessionID == "" || claims.Nonce == "" {
		return "", "", models.ErrInvalidToken
	}

	return claims.SessionID, claims.Nonce, nil
}
