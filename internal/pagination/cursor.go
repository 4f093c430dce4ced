// Package pagination provides opaque keyset cursors for the admin listing
// endpoints. The violation list is ordered by (created_at, id) descending;
// a cursor names the last row the client has seen.
package pagination

import (
	"encoding/base64"
	"errors"
	"strconv"
	"strings"
	"time"
)

// ErrInvalid is returned for cursors that fail to decode. The handler maps
// it to a 400 without leaking the cursor layout.
var ErrInvalid = errors.New("invalid cursor")

// Cursor is a decoded position in a listing.
type Cursor struct {
	CreatedAt time.Time
	ID        string
}

// Encode packs a (createdAt, id) key into an opaque string.
func Encode(createdAt time.Time, id string) string {
	raw := strconv.FormatInt(createdAt.UnixNano(), 10) + "|" + id
	return base64.URLEncoding.EncodeToString([]byte(raw))
}

// Decode unpacks a cursor. Empty input means "start from the top" and
// yields a nil cursor with no error.
func Decode(s string) (*Cursor, error) {
	if s == "" {
		return nil, nil
	}
	raw, err := base64.URLEncoding.DecodeString(s)
	if err != nil {
		return nil, ErrInvalid
	}
	nanosStr, id, ok := strings.Cut(string(raw), "|")
	if !ok {
		return nil, ErrInvalid
	}
	nanos, err := strconv.ParseInt(nanosStr, 10, 64)
	if err != nil {
		return nil, ErrInvalid
	}
	return &Cursor{CreatedAt: time.Unix(0, nanos).UTC(), ID: id}, nil
}

// ComputePage trims a limit+1 fetch down to one page. extractKey pulls the
// keyset fields from the last kept item for the next cursor.
func ComputePage[T any](items []T, limit int, extractKey func(T) (time.Time, string)) ([]T, string, bool) {
	if len(items) <= limit {
		return items, "", false
	}
	items = items[:limit]
	createdAt, id := extractKey(items[len(items)-1])
	return items, Encode(createdAt, id), true
}
