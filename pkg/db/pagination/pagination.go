package pagination

import (
	"encoding/base64"
	"encoding/json"
	"errors"
	"strings"
	"time"

	"github.com/bwmarrin/snowflake"
)

// ErrInvalidCursor is returned for page tokens that were not produced by Encode.
var ErrInvalidCursor = errors.New("invalid_cursor")

// Pagination is a keyset page request: an opaque token plus a size.
type Pagination struct {
	PageToken string `form:"page_token"`
	PageSize  int    `form:"page_size"`
}

// Size returns PageSize bounded by def when unset and by max.
func (p Pagination) Size(def, max int) int {
	switch {
	case p.PageSize <= 0:
		return def
	case p.PageSize > max:
		return max
	default:
		return p.PageSize
	}
}

// Cursor points at the last row of a page ordered by (created_at, id) descending.
type Cursor struct {
	ID        snowflake.ID
	CreatedAt time.Time
}

type cursorToken struct {
	ID        string `json:"id"`
	CreatedAt string `json:"created_at"`
}

func (c Cursor) Encode() string {
	b, _ := json.Marshal(cursorToken{
		ID:        c.ID.String(),
		CreatedAt: c.CreatedAt.UTC().Format(time.RFC3339Nano),
	})
	return base64.RawURLEncoding.EncodeToString(b)
}

// DecodeCursor parses a page token. An empty token yields a nil cursor.
func DecodeCursor(token string) (*Cursor, error) {
	token = strings.TrimSpace(token)
	if token == "" {
		return nil, nil
	}
	b, err := base64.RawURLEncoding.DecodeString(token)
	if err != nil {
		return nil, ErrInvalidCursor
	}
	var raw cursorToken
	if err := json.Unmarshal(b, &raw); err != nil {
		return nil, ErrInvalidCursor
	}
	id, err := snowflake.ParseString(raw.ID)
	if err != nil || id == 0 {
		return nil, ErrInvalidCursor
	}
	createdAt, err := time.Parse(time.RFC3339Nano, raw.CreatedAt)
	if err != nil {
		return nil, ErrInvalidCursor
	}
	return &Cursor{ID: id, CreatedAt: createdAt}, nil
}

type PageInfo struct {
	NextPageToken string `json:"nextPageToken"`
	HasMore       bool   `json:"hasMore"`
}

// Trim cuts a limit+1 result set down to limit rows and builds the next token from the last kept row.
func Trim[T any](items []*T, limit int, cursorOf func(*T) Cursor) ([]*T, PageInfo) {
	if limit <= 0 || len(items) <= limit {
		return items, PageInfo{}
	}
	items = items[:limit]
	return items, PageInfo{
		HasMore:       true,
		NextPageToken: cursorOf(items[len(items)-1]).Encode(),
	}
}
