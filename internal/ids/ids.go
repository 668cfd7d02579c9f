// Package ids defines the canonical identifier type used across the data
// model. Every external identifier (JSON payloads, query params, cached
// entries) is normalized to an opaque string ID exactly once at the boundary,
// so equality checks never depend on whether a source encoded the id as a
// string or a number.
package ids

import (
	"encoding/json"
	"fmt"
	"strconv"

	"github.com/google/uuid"
)

// ID is an opaque string identifier.
type ID string

// New mints a fresh identifier.
func New() ID {
	return ID(uuid.New().String())
}

func (id ID) String() string {
	return string(id)
}

// IsZero reports whether the identifier is unset.
func (id ID) IsZero() bool {
	return id == ""
}

// UnmarshalJSON accepts both string-typed and number-typed identifiers.
// Loosely typed sources (the local cache mirrors a client that stored ids as
// numbers) would otherwise fail equality checks silently.
func (id *ID) UnmarshalJSON(data []byte) error {
	var s string
	if err := json.Unmarshal(data, &s); err == nil {
		*id = ID(s)
		return nil
	}
	var n json.Number
	if err := json.Unmarshal(data, &n); err != nil {
		return fmt.Errorf("id must be a string or number: %w", err)
	}
	*id = Norm(n)
	return nil
}

// Norm converts an arbitrarily typed identifier value to its canonical form.
func Norm(v interface{}) ID {
	switch t := v.(type) {
	case ID:
		return t
	case string:
		return ID(t)
	case json.Number:
		if i, err := t.Int64(); err == nil {
			return ID(strconv.FormatInt(i, 10))
		}
		return ID(t.String())
	case int:
		return ID(strconv.Itoa(t))
	case int64:
		return ID(strconv.FormatInt(t, 10))
	case float64:
		if t == float64(int64(t)) {
			return ID(strconv.FormatInt(int64(t), 10))
		}
		return ID(strconv.FormatFloat(t, 'f', -1, 64))
	case fmt.Stringer:
		return ID(t.String())
	default:
		return ID(fmt.Sprint(t))
	}
}

// Equal compares two identifier values after normalization.
func Equal(a, b interface{}) bool {
	return Norm(a) == Norm(b)
}
