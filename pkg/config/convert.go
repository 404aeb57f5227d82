package config

import (
	"encoding/hex"
	"fmt"
	"strings"
)

// toUint64 accepts the numeric shapes the TOML and YAML parsers
// produce for integer values.
func toUint64(v interface{}) (uint64, error) {
	switch n := v.(type) {
	case int:
		if n < 0 {
			return 0, fmt.Errorf("registry integer value must not be negative, got %d", n)
		}
		return uint64(n), nil
	case int64:
		if n < 0 {
			return 0, fmt.Errorf("registry integer value must not be negative, got %d", n)
		}
		return uint64(n), nil
	case uint64:
		return n, nil
	case float64:
		if n < 0 || n != float64(uint64(n)) {
			return 0, fmt.Errorf("registry integer value must be a non-negative integer, got %v", n)
		}
		return uint64(n), nil
	}
	return 0, fmt.Errorf("registry integer value must be a number, got %T", v)
}

// decodeHex parses a binary value written as hex, with optional
// spaces between bytes ("DE AD BE EF" or "deadbeef").
func decodeHex(s string) ([]byte, error) {
	compact := strings.ReplaceAll(s, " ", "")
	b, err := hex.DecodeString(compact)
	if err != nil {
		return nil, fmt.Errorf("invalid hex in binary value %q: %w", s, err)
	}
	return b, nil
}
