package postgres

import (
	"encoding/base64"
	"encoding/json"
	"errors"
	"fmt"
	"time"
)

// ErrInvalidCursor marks a history cursor the client handed back in a shape
// we never produced.
var ErrInvalidCursor = errors.New("invalid cursor")

// historyCursor pins a page boundary in the chat history's
// (created_at, id) ordering. Clients receive it as url-safe base64 and treat
// it as opaque.
type historyCursor struct {
	Ts time.Time `json:"t"`
	ID string    `json:"id"`
}

func encodeHistoryCursor(ts time.Time, id string) string {
	raw, _ := json.Marshal(historyCursor{Ts: ts, ID: id})
	return base64.RawURLEncoding.EncodeToString(raw)
}

// decodeHistoryCursor parses a client-supplied cursor; empty means "from the
// newest message".
func decodeHistoryCursor(s string) (*historyCursor, error) {
	if s == "" {
		return nil, nil
	}
	raw, err := base64.RawURLEncoding.DecodeString(s)
	if err != nil {
		return nil, fmt.Errorf("%w: %v", ErrInvalidCursor, err)
	}
	var c historyCursor
	if err := json.Unmarshal(raw, &c); err != nil {
		return nil, fmt.Errorf("%w: %v", ErrInvalidCursor, err)
	}
	return &c, nil
}
