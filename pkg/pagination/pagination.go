// Package pagination provides the opaque cursor scheme used by registry
// enumeration.
//
// A cursor encodes a position in a registry's stable ordering together with
// the registry version that issued it. A registry mutation bumps the
// version, so an outstanding cursor is detected as stale on its next use and
// enumeration deterministically restarts from the first page instead of
// silently skipping or repeating entries.
package pagination

import (
	"encoding/base64"
	"encoding/json"

	mcperrors "github.com/mcpkit/mcp-engine-go/pkg/errors"
)

const (
	// DefaultLimit is the default page size for paginated results
	DefaultLimit = 50

	// MaxLimit is the maximum allowed page size for paginated results
	MaxLimit = 200
)

// Cursor is the decoded form of a pagination token.
type Cursor struct {
	Offset  int    `json:"offset"`
	Version uint64 `json:"version"`
}

// Encode serializes a cursor into its opaque wire form.
func Encode(c Cursor) string {
	data, _ := json.Marshal(c)
	return base64.RawURLEncoding.EncodeToString(data)
}

// Decode parses an opaque token. An unparseable token fails with
// InvalidCursor; callers map that to a fresh first-page enumeration.
func Decode(token string) (Cursor, error) {
	data, err := base64.RawURLEncoding.DecodeString(token)
	if err != nil {
		return Cursor{}, mcperrors.InvalidCursor("not base64")
	}

	var c Cursor
	if err := json.Unmarshal(data, &c); err != nil {
		return Cursor{}, mcperrors.InvalidCursor("not a cursor payload")
	}
	if c.Offset < 0 {
		return Cursor{}, mcperrors.InvalidCursor("negative offset")
	}
	return c, nil
}

// ClampLimit applies the default and maximum page sizes.
func ClampLimit(limit int) int {
	if limit <= 0 {
		return DefaultLimit
	}
	if limit > MaxLimit {
		return MaxLimit
	}
	return limit
}
