// Package auth validates signed user identity tokens.
//
// Identity is issued by the platform's identity provider as
// "uid.issuedAtMs.signature" where the signature is HMAC-SHA256 over
// "uid.issuedAtMs". This service only verifies; it never mints user
// identities of its own.
package auth

import (
	"crypto/hmac"
	"crypto/sha256"
	"encoding/hex"
	"errors"
	"fmt"
	"strconv"
	"strings"
	"time"
)

// Errors returned by token verification.
var (
	ErrMalformedToken = errors.New("malformed identity token")
	ErrBadSignature   = errors.New("invalid token signature")
	ErrTokenExpired   = errors.New("identity token expired")
)

// DefaultTokenTTL bounds how old an identity token may be.
const DefaultTokenTTL = 24 * time.Hour

// Identity is a verified actor.
type Identity struct {
	UserID   string
	IssuedAt time.Time
}

// Issue mints a signed token for uid at the current time. Used by tests and
// local tooling; production tokens come from the identity provider.
func Issue(uid, secret string) string {
	return IssueAt(uid, time.Now().UnixMilli(), secret)
}

// IssueAt mints a signed token for uid at the given millisecond timestamp.
func IssueAt(uid string, issuedAtMs int64, secret string) string {
	base := uid + "." + strconv.FormatInt(issuedAtMs, 10)
	return base + "." + signature(base, secret)
}

// Verify parses and validates a token against the shared secret.
func Verify(token, secret string) (*Identity, error) {
	return VerifyWithTTL(token, secret, DefaultTokenTTL)
}

// VerifyWithTTL validates a token, rejecting tokens older than ttl.
func VerifyWithTTL(token, secret string, ttl time.Duration) (*Identity, error) {
	parts := strings.Split(token, ".")
	if len(parts) != 3 || parts[0] == "" {
		return nil, ErrMalformedToken
	}

	issuedAtMs, err := strconv.ParseInt(parts[1], 10, 64)
	if err != nil {
		return nil, fmt.Errorf("%w: bad timestamp", ErrMalformedToken)
	}

	base := parts[0] + "." + parts[1]
	if !hmac.Equal([]byte(parts[2]), []byte(signature(base, secret))) {
		return nil, ErrBadSignature
	}

	issuedAt := time.UnixMilli(issuedAtMs)
	if ttl > 0 && time.Since(issuedAt) > ttl {
		return nil, ErrTokenExpired
	}

	return &Identity{UserID: parts[0], IssuedAt: issuedAt}, nil
}

func signature(base, secret string) string {
	mac := hmac.New(sha256.New, []byte(secret))
	mac.Write([]byte(base))
	return hex.EncodeToString(mac.Sum(nil))
}
