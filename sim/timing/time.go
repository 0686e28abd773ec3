package timing

import (
	"fmt"
	"math"
	"strconv"
	"strings"
)

// VTime is a point in, or a span of, simulated time in picoseconds.
type VTime uint64

// Units of simulated time.
const (
	PS  VTime = 1
	NS        = 1000 * PS
	US        = 1000 * NS
	MS        = 1000 * US
	Sec       = 1000 * MS
)

var timeUnits = []struct {
	suffix string
	unit   VTime
}{
	{"s", Sec},
	{"ms", MS},
	{"us", US},
	{"ns", NS},
	{"ps", PS},
}

// Seconds converts the time to seconds.
func (t VTime) Seconds() float64 {
	return float64(t) / float64(Sec)
}

// String renders the time with the largest unit that represents it exactly.
func (t VTime) String() string {
	if t == 0 {
		return "0s"
	}

	for _, u := range timeUnits {
		if t%u.unit == 0 {
			return strconv.FormatUint(uint64(t/u.unit), 10) + u.suffix
		}
	}

	return strconv.FormatUint(uint64(t), 10) + "ps"
}

// ParseTime parses a time such as "10ns", "1.5us" or "0x20ps". A number
// without a suffix is taken as a raw picosecond count.
func ParseTime(s string) (VTime, error) {
	str := strings.ToLower(strings.TrimSpace(s))
	if str == "" {
		return 0, fmt.Errorf("invalid time %q", s)
	}

	num, suffix := splitNumber(str)
	if num == "" {
		return 0, fmt.Errorf("invalid time %q", s)
	}

	unit := PS
	if suffix != "" {
		found := false
		for _, u := range timeUnits {
			if suffix == u.suffix {
				unit = u.unit
				found = true
				break
			}
		}

		if !found {
			return 0, fmt.Errorf("invalid time unit %q in %q", suffix, s)
		}
	}

	value, err := scaleNumber(num, float64(unit))
	if err != nil {
		return 0, fmt.Errorf("invalid time %q: %w", s, err)
	}

	return VTime(value), nil
}

// splitNumber separates a leading number (decimal, fractional, or with a
// 0x/0b/0o prefix) from its unit suffix.
func splitNumber(s string) (num, suffix string) {
	if len(s) > 2 && s[0] == '0' && strings.ContainsRune("xbo", rune(s[1])) {
		end := 2
		for end < len(s) && isHexDigit(s[end]) {
			end++
		}

		return s[:end], s[end:]
	}

	end := 0
	for end < len(s) && (s[end] >= '0' && s[end] <= '9' || s[end] == '.') {
		end++
	}

	return s[:end], s[end:]
}

func isHexDigit(c byte) bool {
	return c >= '0' && c <= '9' || c >= 'a' && c <= 'f'
}

func scaleNumber(num string, scale float64) (uint64, error) {
	if strings.Contains(num, ".") {
		f, err := strconv.ParseFloat(num, 64)
		if err != nil {
			return 0, err
		}

		return uint64(math.Round(f * scale)), nil
	}

	v, err := strconv.ParseUint(num, 0, 64)
	if err != nil {
		return 0, err
	}

	return v * uint64(scale), nil
}
