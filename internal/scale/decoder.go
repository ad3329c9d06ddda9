package scale

import (
	"strconv"
	"strings"
)

const unitMarker = "kg"

// ParseWeight extracts a weight in kilograms from one raw scale line.
// Typical frames look like "ST,GS,+012.34kg": the value is the last
// comma-separated field, with the unit suffix and an optional leading plus
// sign stripped. Lines without the unit marker, or with a malformed numeric
// field, report no reading; that is an expected outcome of scale-protocol
// noise, never an error.
func ParseWeight(line string) (float64, bool) {
	if !strings.Contains(line, unitMarker) {
		return 0, false
	}
	field := line
	if i := strings.LastIndex(field, ","); i >= 0 {
		field = field[i+1:]
	}
	field = strings.ReplaceAll(field, unitMarker, "")
	field = strings.ReplaceAll(field, "+", "")
	field = strings.TrimSpace(field)

	w, err := strconv.ParseFloat(field, 64)
	if err != nil {
		return 0, false
	}
	return w, true
}
