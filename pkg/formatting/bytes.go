package formatting

import (
	"errors"
	"fmt"
	"math"
	"regexp"
	"slices"
	"strconv"
	"strings"
)

// ErrInvalidSize is returned by ParseBytes for sizes it cannot read or that
// do not fit in an int64.
var ErrInvalidSize = errors.New("invalid byte size")

// Base-1024 units. EB is the largest that fits in an int64.
var units = []string{"B", "KB", "MB", "GB", "TB", "PB", "EB"}

var bytesPattern = regexp.MustCompile(`^(\d+(?:\.\d+)?)\s*([A-Za-z]*)$`)

// FormatBytes renders n in the largest unit that keeps the value at or above
// one, with at most precision decimals and trailing zeros dropped, so upload
// limits read as "10 MB" rather than "10.00 MB".
func FormatBytes(n int64, precision int) string {
	precision = max(precision, 0)
	if n < 1024 && n > -1024 {
		return strconv.FormatInt(n, 10) + " B"
	}

	size := math.Abs(float64(n))
	i := 0
	for size >= 1024 && i < len(units)-1 {
		size /= 1024
		i++
	}

	formatted := strconv.FormatFloat(size, 'f', precision, 64)
	if strings.Contains(formatted, ".") {
		formatted = strings.TrimRight(strings.TrimRight(formatted, "0"), ".")
	}
	if n < 0 {
		formatted = "-" + formatted
	}
	return formatted + " " + units[i]
}

// ParseBytes reads a size such as "50MB", "1.5 GiB", "512k" or a bare byte
// count. Units are base-1024 and case-insensitive; the IEC spelling (KiB)
// and the single-letter form (K) are accepted as aliases.
func ParseBytes(s string) (int64, error) {
	s = strings.TrimSpace(s)
	if s == "" {
		return 0, fmt.Errorf("%w: empty", ErrInvalidSize)
	}

	matches := bytesPattern.FindStringSubmatch(s)
	if matches == nil {
		return 0, fmt.Errorf("%w: %q", ErrInvalidSize, s)
	}

	value, err := strconv.ParseFloat(matches[1], 64)
	if err != nil {
		return 0, fmt.Errorf("%w: %w", ErrInvalidSize, err)
	}

	idx := unitIndex(matches[2])
	if idx < 0 {
		return 0, fmt.Errorf("%w: unknown unit %q", ErrInvalidSize, matches[2])
	}

	n := value * math.Pow(1024, float64(idx))
	if n >= math.MaxInt64 {
		return 0, fmt.Errorf("%w: %q overflows", ErrInvalidSize, s)
	}
	return int64(n), nil
}

func unitIndex(unit string) int {
	u := strings.ToUpper(unit)
	switch {
	case u == "":
		return 0
	case len(u) == 3 && strings.HasSuffix(u, "IB"):
		u = u[:1] + "B"
	case len(u) == 1 && u != "B":
		u += "B"
	}
	return slices.Index(units, u)
}
