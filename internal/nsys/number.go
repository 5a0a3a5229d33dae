package nsys

import (
	"fmt"
	"math"
	"strconv"
	"strings"
)

// Number is a nanosecond timestamp. Nsight exports 64-bit integers either as
// JSON numbers or as quoted decimal strings, so both are accepted.
type Number float64

func (n *Number) UnmarshalJSON(b []byte) error {
	s := string(b)
	if s == "null" {
		return nil
	}
	if s[0] == '"' {
		unquoted, err := strconv.Unquote(s)
		if err != nil {
			return err
		}
		s = strings.TrimSpace(unquoted)
	}
	f, err := strconv.ParseFloat(s, 64)
	if err != nil {
		return fmt.Errorf("invalid timestamp %s: %w", string(b), err)
	}
	// ParseFloat accepts "nan" and "inf", which no exporter writes on purpose.
	if math.IsNaN(f) || math.IsInf(f, 0) {
		return fmt.Errorf("invalid timestamp %s: not a finite number", string(b))
	}
	*n = Number(f)
	return nil
}

// Microseconds converts the nanosecond value to microseconds.
func (n Number) Microseconds() float64 {
	return float64(n) / 1000.0
}

// nameRef is a name or a string table index. Indices show up both as strings
// and as bare numbers depending on the exporter version.
type nameRef struct {
	value string
	set   bool
}

func (r *nameRef) UnmarshalJSON(b []byte) error {
	s := string(b)
	switch {
	case s == "null":
		*r = nameRef{}
	case s[0] == '"':
		v, err := strconv.Unquote(s)
		if err != nil {
			return err
		}
		*r = nameRef{value: v, set: true}
	case s[0] == '-' || (s[0] >= '0' && s[0] <= '9'):
		*r = nameRef{value: s, set: true}
	default:
		return fmt.Errorf("invalid name %s", s)
	}
	return nil
}

func (r nameRef) String() string {
	return r.value
}
