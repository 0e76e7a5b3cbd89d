package service

import (
	"math"
	"regexp"
	"strconv"
	"strings"

	"audit-trail-service/internal/domain"
)

var numericPattern = regexp.MustCompile(`^\s*[+-]?(\d+(\.\d*)?|\.\d+)([eE][+-]?\d+)?\s*$`)

// Normalizer decides whether a before/after pair of attribute values is a
// change worth logging.
type Normalizer struct {
	CaseSensitive     bool
	EmptyStringIsNull bool
}

func isNumericString(v domain.Value) (string, bool) {
	s, ok := v.AsString()
	if !ok || !numericPattern.MatchString(s) {
		return "", false
	}
	return strings.TrimSpace(s), true
}

// coerceString converts the numeric string s into the kind of target.
func coerceString(s string, target domain.Value) (domain.Value, bool) {
	switch target.Kind() {
	case domain.BoolValue:
		f, err := strconv.ParseFloat(s, 64)
		if err != nil {
			return domain.Null(), false
		}
		return domain.Bool(f != 0), true
	case domain.IntValue:
		if i, err := strconv.ParseInt(s, 10, 64); err == nil {
			return domain.Int(i), true
		}
		f, err := strconv.ParseFloat(s, 64)
		if err != nil {
			return domain.Null(), false
		}
		if f == math.Trunc(f) && f >= math.MinInt64 && f < math.MaxInt64 {
			return domain.Int(int64(f)), true
		}
		// keep the fraction rather than hide a real change
		return domain.Float(f), true
	case domain.FloatValue:
		f, err := strconv.ParseFloat(s, 64)
		if err != nil {
			return domain.Null(), false
		}
		return domain.Float(f), true
	}
	return domain.Null(), false
}

// Coerce converts a numeric-looking string newVal into the type of a bool,
// int or float oldVal. Any other combination returns newVal unchanged.
func (n Normalizer) Coerce(oldVal, newVal domain.Value) domain.Value {
	s, ok := isNumericString(newVal)
	if !ok {
		return newVal
	}
	if v, ok := coerceString(s, oldVal); ok {
		return v
	}
	return newVal
}

func (n Normalizer) equal(a, b domain.Value) bool {
	as, aStr := a.AsString()
	bs, bStr := b.AsString()
	if aStr && bStr {
		if n.CaseSensitive {
			return as == bs
		}
		return strings.EqualFold(as, bs)
	}

	if af, ok := numeric(a); ok {
		if bf, ok := numeric(b); ok {
			ai, aInt := a.AsInt()
			bi, bInt := b.AsInt()
			if aInt && bInt {
				return ai == bi
			}
			return af == bf
		}
	}

	// a numeric string on the old side compares by value with the new side
	if s, ok := isNumericString(a); ok {
		if v, ok := coerceString(s, b); ok {
			return v.Equal(b) || (v.Kind() != b.Kind() && n.equal(v, b))
		}
	}

	return a.Equal(b)
}

func numeric(v domain.Value) (float64, bool) {
	if i, ok := v.AsInt(); ok {
		return float64(i), true
	}
	if f, ok := v.AsFloat(); ok {
		return f, true
	}
	return 0, false
}

// Normalize coerces newVal and reports whether the pair is a significant
// change. When it is, the returned value is the one to record as "to".
func (n Normalizer) Normalize(oldVal, newVal domain.Value) (domain.Value, bool) {
	to := n.Coerce(oldVal, newVal)

	if n.equal(oldVal, to) {
		return to, false
	}

	if n.EmptyStringIsNull {
		if to.IsBlank() {
			if oldVal.IsNull() {
				return domain.Null(), false
			}
			to = domain.Null()
		}
		if oldVal.IsBlank() && to.IsNull() {
			return to, false
		}
	}

	return to, true
}

// IsSignificantChange reports whether oldVal -> newVal should be logged.
func (n Normalizer) IsSignificantChange(oldVal, newVal domain.Value) bool {
	_, ok := n.Normalize(oldVal, newVal)
	return ok
}
