// Package utils provides small shared helpers for symbol handling.
package utils

import "strings"

// NormalizeSymbol canonicalizes a user-supplied stock symbol.
// Symbols are case-insensitive on input and canonical uppercase
// everywhere else in the system.
func NormalizeSymbol(symbol string) string {
	symbol = strings.TrimSpace(strings.ToUpper(symbol))

	// Remove $ prefix if present (common in chat)
	symbol = strings.TrimPrefix(symbol, "$")

	return symbol
}

// ValidSymbol reports whether s looks like a ticker symbol:
// 1-12 characters drawn from uppercase letters, digits, '.' and '-'.
func ValidSymbol(s string) bool {
	if len(s) == 0 || len(s) > 12 {
		return false
	}
	for _, r := range s {
		switch {
		case r >= 'A' && r <= 'Z':
		case r >= '0' && r <= '9':
		case r == '.' || r == '-':
		default:
			return false
		}
	}
	return true
}
