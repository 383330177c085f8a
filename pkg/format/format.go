// Package format renders byte counts and timestamps the way the document
// table, stats panel and chat transcript display them.
package format

import (
	"math"
	"strconv"
	"time"
)

var byteUnits = []string{"Bytes", "KB", "MB", "GB"}

// Bytes renders n using base-1024 units with at most two decimals,
// e.g. 0 -> "0 Bytes", 1024 -> "1 KB", 1536 -> "1.5 KB".
func Bytes(n int64) string {
	if n <= 0 {
		return "0 Bytes"
	}

	i := int(math.Floor(math.Log(float64(n)) / math.Log(1024)))
	if i >= len(byteUnits) {
		i = len(byteUnits) - 1
	}

	value := float64(n) / math.Pow(1024, float64(i))
	// Round to two places first so 1.999 becomes "2", not "2.00".
	value = math.Round(value*100) / 100

	return strconv.FormatFloat(value, 'f', -1, 64) + " " + byteUnits[i]
}

// Clock renders the local wall-clock time of t as HH:MM.
func Clock(t time.Time) string {
	return t.Local().Format("15:04")
}

// Date renders the calendar date of t.
func Date(t time.Time) string {
	if t.IsZero() {
		return "-"
	}
	return t.Local().Format("2006-01-02")
}
