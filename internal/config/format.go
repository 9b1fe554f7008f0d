package config

import (
	"fmt"
	"strconv"
	"strings"
)

var sizeUnits = map[byte]int64{
	'K': 1 << 10,
	'M': 1 << 20,
	'G': 1 << 30,
}

// ParseMemorySize parses sizes like "1024M", "512K", "2G" or a plain byte
// count. Empty means no limit.
func ParseMemorySize(s string) (int64, error) {
	raw := strings.TrimSpace(s)
	if raw == "" {
		return 0, nil
	}

	digits, mult := raw, int64(1)
	if unit, ok := sizeUnits[strings.ToUpper(raw[len(raw)-1:])[0]]; ok {
		digits, mult = raw[:len(raw)-1], unit
	}

	n, err := strconv.ParseInt(digits, 10, 64)
	if err != nil || n < 0 {
		return 0, fmt.Errorf("invalid memory size %q", s)
	}
	return n * mult, nil
}

// moment.js tokens, longest first so "YYYY" is not read as two "YY"
var momentTokens = []struct {
	token, layout string
}{
	{"YYYY", "2006"},
	{"SSS", "000"},
	{"MMM", "Jan"},
	{"ddd", "Mon"},
	{"YY", "06"},
	{"MM", "01"},
	{"DD", "02"},
	{"HH", "15"},
	{"hh", "03"},
	{"mm", "04"},
	{"ss", "05"},
	{"ZZ", "-0700"},
	{"Z", "-07:00"},
	{"A", "PM"},
	{"a", "pm"},
}

// MomentToLayout converts a moment.js style date format, as used by
// process managers for log_date_format, to a Go time layout. Unknown
// characters are copied through.
func MomentToLayout(format string) string {
	if format == "" {
		return ""
	}

	var b strings.Builder
	for i := 0; i < len(format); {
		matched := false
		for _, t := range momentTokens {
			if strings.HasPrefix(format[i:], t.token) {
				b.WriteString(t.layout)
				i += len(t.token)
				matched = true
				break
			}
		}
		if !matched {
			b.WriteByte(format[i])
			i++
		}
	}
	return b.String()
}
