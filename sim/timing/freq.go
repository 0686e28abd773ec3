package timing

import (
	"fmt"
	"log"
	"math"
	"strconv"
	"strings"
)

// Freq defines the type of frequency in Hz.
type Freq float64

// Defines the unit of frequency
const (
	Hz  Freq = 1
	KHz Freq = 1e3
	MHz Freq = 1e6
	GHz Freq = 1e9
)

// Period returns the time between two consecutive ticks.
func (f Freq) Period() VTime {
	if f <= 0 {
		log.Panic("frequency must be positive")
	}

	return VTime(math.Round(float64(Sec) / float64(f)))
}

// Cycles converts a time span to the number of full cycles it contains.
func (f Freq) Cycles(t VTime) uint64 {
	return uint64(t / f.Period())
}

// NCycles returns the time span of n cycles.
func (f Freq) NCycles(n uint64) VTime {
	return VTime(n) * f.Period()
}

// String renders the frequency with the largest fitting unit.
func (f Freq) String() string {
	switch {
	case f >= GHz:
		return fmt.Sprintf("%gGHz", float64(f/GHz))
	case f >= MHz:
		return fmt.Sprintf("%gMHz", float64(f/MHz))
	case f >= KHz:
		return fmt.Sprintf("%gkHz", float64(f/KHz))
	default:
		return fmt.Sprintf("%gHz", float64(f))
	}
}

// ParseFreq parses a frequency such as "100MHz" or "1.5GHz". A number
// without a unit is taken as Hz.
func ParseFreq(s string) (Freq, error) {
	str := strings.ToLower(strings.TrimSpace(s))

	units := []struct {
		suffix string
		unit   Freq
	}{
		{"ghz", GHz},
		{"mhz", MHz},
		{"khz", KHz},
		{"hz", Hz},
	}

	unit := Hz
	for _, u := range units {
		if strings.HasSuffix(str, u.suffix) {
			unit = u.unit
			str = strings.TrimSuffix(str, u.suffix)
			break
		}
	}

	value, err := strconv.ParseFloat(strings.TrimSpace(str), 64)
	if err != nil || value <= 0 {
		return 0, fmt.Errorf("invalid frequency %q", s)
	}

	return Freq(value) * unit, nil
}
