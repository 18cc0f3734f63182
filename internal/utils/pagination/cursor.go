// Package pagination implements keyset cursors over rows ordered by
// (created_at DESC, id DESC).
package pagination

import (
	"encoding/base64"
	"encoding/json"
	"time"
)

// Cursor marks the last row of a page. CreatedMs is the row's created_at in
// Unix milliseconds, the store's precision.
type Cursor struct {
	ID        uint64 `json:"id"`
	CreatedMs int64  `json:"ts"`
}

// After returns the cursor that resumes right after the row (id, created).
func After(id uint64, created time.Time) Cursor {
	return Cursor{ID: id, CreatedMs: created.UnixMilli()}
}

// IsZero reports whether the cursor points at the first page.
func (c Cursor) IsZero() bool { return c.ID == 0 }

// CreatedAt is the created_at of the row the cursor points at.
func (c Cursor) CreatedAt() time.Time { return time.UnixMilli(c.CreatedMs).UTC() }

// Token renders the cursor as an opaque URL-safe string. The zero cursor
// renders as "".
func (c Cursor) Token() string {
	if c.IsZero() {
		return ""
	}
	b, _ := json.Marshal(c)
	return base64.RawURLEncoding.EncodeToString(b)
}

// Parse decodes a client token. A nil or empty token is the first page.
func Parse(token *string) (Cursor, error) {
	if token == nil || *token == "" {
		return Cursor{}, nil
	}

	b, err := base64.RawURLEncoding.DecodeString(*token)
	if err != nil {
		return Cursor{}, ErrInvalidToken
	}
	var c Cursor
	if err := json.Unmarshal(b, &c); err != nil || c.IsZero() {
		return Cursor{}, ErrInvalidToken
	}
	return c, nil
}
