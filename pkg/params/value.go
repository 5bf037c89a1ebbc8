package params

import (
	"strconv"
)

type Kind int

const (
	KindString Kind = iota
	KindBool
	KindInt
)

// Value is an option value typed by the coercion rules of the command
// mini-language.
type Value struct {
	Kind Kind
	Bool bool
	Int  int
	Str  string
}

func Bool(b bool) Value     { return Value{Kind: KindBool, Bool: b} }
func Int(i int) Value       { return Value{Kind: KindInt, Int: i} }
func String(s string) Value { return Value{Kind: KindString, Str: s} }

// Coerce types a raw token: "true"/"false" become booleans, all-digit tokens
// integers, everything else stays a string.
func Coerce(raw string) Value {
	switch raw {
	case "true":
		return Bool(true)
	case "false":
		return Bool(false)
	}
	if isDigits(raw) {
		if i, err := strconv.Atoi(raw); err == nil {
			return Int(i)
		}
	}
	return String(raw)
}

func (v Value) String() string {
	switch v.Kind {
	case KindBool:
		return strconv.FormatBool(v.Bool)
	case KindInt:
		return strconv.Itoa(v.Int)
	default:
		return v.Str
	}
}

func isDigits(s string) bool {
	if s == "" {
		return false
	}
	for _, r := range s {
		if r < '0' || r > '9' {
			return false
		}
	}
	return true
}
