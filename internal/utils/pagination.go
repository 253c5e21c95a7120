// Package utils provides small helpers shared across layers, with no
// domain knowledge of their own.
package utils

import "strconv"

// AtoiDefault parses s as an int, returning def when s is empty or not
// a valid integer. Handy for query parameters.
func AtoiDefault(s string, def int) int {
	if s == "" {
		return def
	}
	n, err := strconv.Atoi(s)
	if err != nil {
		return def
	}
	return n
}

// ClampPage normalizes 1-based pagination inputs: pages below 1 become
// 1, perPage below 1 becomes def, and perPage above max is capped.
func ClampPage(page, perPage, def, max int) (int, int) {
	if page < 1 {
		page = 1
	}
	if perPage < 1 {
		perPage = def
	}
	if perPage > max {
		perPage = max
	}
	return page, perPage
}
