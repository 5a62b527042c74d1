package telemetry

import (
	"math"
	"strconv"
	"time"

	"github.com/jgoulah/binpusher/pkg/models"
)

// Status thresholds are exclusive: a fill level of exactly 80 is still partial
const (
	fullAbove    = 80
	partialAbove = 20
)

// FillLevel converts a lid-to-contents distance into a fill percentage in [0, 100].
// The percentage is truncated toward zero, not rounded.
func FillLevel(distance, binHeight float64) int {
	if !(binHeight > 0) || math.IsInf(binHeight, 0) || math.IsNaN(distance) {
		return 0
	}
	pct := (binHeight - distance) / binHeight * 100
	switch {
	case math.IsNaN(pct):
		return 0
	case pct >= 100:
		return 100
	case pct <= 0:
		return 0
	}
	return int(pct)
}

// StatusFor maps a fill level onto the coarse bin status
func StatusFor(fillLevel int) models.Status {
	switch {
	case fillLevel > fullAbove:
		return models.StatusFull
	case fillLevel > partialAbove:
		return models.StatusPartial
	default:
		return models.StatusEmpty
	}
}

// RoundWeight rounds a weight to 2 decimal places. Negative readings become 0.
// Rounding works on the exact decimal value of kg, so 2.675 (stored as
// 2.67499...) rounds down to 2.67.
func RoundWeight(kg float64) float64 {
	if !(kg > 0) || math.IsInf(kg, 0) {
		return 0
	}
	rounded, err := strconv.ParseFloat(strconv.FormatFloat(kg, 'f', 2, 64), 64)
	if err != nil {
		return 0
	}
	return rounded
}

// timestampLayout is ISO-8601 local time without a zone offset
const timestampLayout = "2006-01-02T15:04:05"

// FormatTimestamp renders t in local time as ISO-8601 with microseconds,
// dropping the fraction when it is zero.
func FormatTimestamp(t time.Time) string {
	t = t.Local()
	if t.Nanosecond()/int(time.Microsecond) == 0 {
		return t.Format(timestampLayout)
	}
	return t.Format(timestampLayout + ".000000")
}

// ParseTimestamp reads a timestamp written by FormatTimestamp back as local time
func ParseTimestamp(s string) (time.Time, error) {
	return time.ParseInLocation(timestampLayout+".999999", s, time.Local)
}
