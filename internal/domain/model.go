package domain

import (
	"errors"
	"time"
)

const MaxListLimit = 100

var ErrInvalidUUID = errors.New("invalid uuid")

// timeValue renders a timestamp column as an audit value.
func timeValue(t time.Time) Value {
	if t.IsZero() {
		return Null()
	}
	return String(t.UTC().Format(time.RFC3339))
}
