// Package utils provides small parsing helpers for request parameters. They
// carry no domain rules; callers decide what a valid value is.
package utils

import "strconv"

// AtoiDefault converts s with strconv.Atoi, returning def when s is empty or
// not an integer.
//
//	utils.AtoiDefault("42", 0) // 42
//	utils.AtoiDefault("x", 5)  // 5
func AtoiDefault(s string, def int) int {
	if s == "" {
		return def
	}
	if n, err := strconv.Atoi(s); err == nil {
		return n
	}
	return def
}

// Clamp bounds v to [lo, hi].
func Clamp(v, lo, hi int) int {
	switch {
	case v < lo:
		return lo
	case v > hi:
		return hi
	default:
		return v
	}
}

// ParseID parses a decimal int64 identifier. Zero is never a valid id;
// negative values are accepted only when allowNegative is set (channel ids
// carry a -100 prefix).
func ParseID(s string, allowNegative bool) (int64, bool) {
	id, err := strconv.ParseInt(s, 10, 64)
	if err != nil || id == 0 || (id < 0 && !allowNegative) {
		return 0, false
	}
	return id, true
}
