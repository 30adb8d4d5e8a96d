package common

import (
	"fmt"
	"strconv"
	"strings"
)

// ParseIndexList parses a comma separated list of output indices ("0,2,5").
// An empty string yields a nil slice.
func ParseIndexList(val string) ([]int, error) {
	val = strings.TrimSpace(val)
	if val == "" {
		return nil, nil
	}

	parts := strings.Split(val, ",")
	out := make([]int, 0, len(parts))
	for _, p := range parts {
		n, err := strconv.Atoi(strings.TrimSpace(p))
		if err != nil {
			return nil, fmt.Errorf("invalid output index %q: %w", p, err)
		}
		if n < 0 {
			return nil, fmt.Errorf("invalid output index %d: must not be negative", n)
		}
		out = append(out, n)
	}

	return out, nil
}

const bytesInMB = 1024 * 1024

func BytesToMB(bytes uint64) uint64 {
	return bytes / bytesInMB
}

func ToLowerWithTrim(s string) string {
	return strings.ToLower(strings.TrimSpace(s))
}
