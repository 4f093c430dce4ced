// Package clicktoken implements the click-proof token shared between the
// mini-app client and this service.
//
// The legacy encoding (Encode/Verify) is a fixed wire contract with deployed
// clients and must not change: base64 of "linkID_timestamp_secret" with all
// non-alphanumeric bytes stripped. It is tamper-evidence, not cryptography —
// the secret ships inside the client bundle. Sign/VerifySignature provide the
// keyed-MAC alternative for tokens issued server side.
package clicktoken

import (
	"crypto/hmac"
	"crypto/sha256"
	"crypto/subtle"
	"encoding/base64"
	"encoding/hex"
	"strconv"
	"strings"
)

// Encode derives the click token for a link click at the given millisecond
// timestamp. Deterministic: identical inputs always produce identical output.
func Encode(linkID string, ts int64, secret string) string {
	raw := linkID + "_" + strconv.FormatInt(ts, 10) + "_" + secret
	enc := base64.StdEncoding.EncodeToString([]byte(raw))
	return stripNonAlnum(enc)
}

// Verify reports whether token matches the expected encoding for the given
// inputs. Comparison is constant time.
func Verify(token, linkID string, ts int64, secret string) bool {
	want := Encode(linkID, ts, secret)
	return subtle.ConstantTimeCompare([]byte(token), []byte(want)) == 1
}

// Sign computes an HMAC-SHA256 signature over "linkID:timestamp" with the
// given key, hex encoded.
func Sign(linkID string, ts int64, key string) string {
	mac := hmac.New(sha256.New, []byte(key))
	mac.Write([]byte(linkID + ":" + strconv.FormatInt(ts, 10)))
	return hex.EncodeToString(mac.Sum(nil))
}

// VerifySignature checks an HMAC signature produced by Sign.
func VerifySignature(sig, linkID string, ts int64, key string) bool {
	want := Sign(linkID, ts, key)
	return hmac.Equal([]byte(sig), []byte(want))
}

func stripNonAlnum(s string) string {
	var b strings.Builder
	b.Grow(len(s))
	for i := 0; i < len(s); i++ {
		c := s[i]
		if (c >= 'a' && c <= 'z') || (c >= 'A' && c <= 'Z') || (c >= '0' && c <= '9') {
			b.WriteByte(c)
		}
	}
	return b.String()
}
