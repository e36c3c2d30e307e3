package tokens

import (
	"fmt"
	"strconv"
	"strings"
	"time"
)

const day = 24 * time.Hour

// Parse token lifetime
// Accepts time.ParseDuration format with optional leading days: "1d", "36h", "1d12h"
func ParseTTL(value string) (time.Duration, error) {
	s := strings.TrimSpace(value)
	if s == "" {
		return 0, fmt.Errorf("empty ttl")
	}

	var ttl time.Duration

	if i := strings.IndexByte(s, 'd'); i >= 0 {
		days, err := strconv.ParseInt(s[:i], 10, 64)
		if err != nil {
			return 0, fmt.Errorf("invalid ttl %q: %w", value, err)
		}
		ttl = time.Duration(days) * day
		s = s[i+1:]
	}

	if s != "" {
		rest, err := time.ParseDuration(s)
		if err != nil {
			return 0, fmt.Errorf("invalid ttl %q: %w", value, err)
		}
		ttl += rest
	}

	if ttl <= 0 {
		return 0, fmt.Errorf("ttl must be positive, got %q", value)
	}

	return ttl, nil
}
