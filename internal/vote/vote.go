// Package vote reconciles noisy numeric extractions into one value.
package vote

import (
	"encoding/json"
	"math"
	"strconv"
	"strings"

	"github.com/mr1hm/go-incident-dedupe/internal/normalize"
)

// Vote returns the most frequent integer among observations and the share of
// surviving observations that agree with it, as a percentage.
//
// Observations that cannot be read as integers are dropped. Equal counts are
// resolved toward the larger value, since under-reporting casualties is the
// worse error. With nothing to count the result is (0, 0).
func Vote(observations []any) (value, confidence int) {
	counts := make(map[int]int)
	total := 0
	for _, o := range observations {
		n, ok := toInt(o)
		if !ok {
			continue
		}
		counts[n]++
		total++
	}
	if total == 0 {
		return 0, 0
	}

	winner, freq := 0, 0
	for v, c := range counts {
		if c > freq || (c == freq && v > winner) {
			winner, freq = v, c
		}
	}

	confidence = int(math.RoundToEven(100 * float64(freq) / float64(total)))
	return winner, confidence
}

// Ints is Vote for already-parsed values.
func Ints(values []int) (value, confidence int) {
	obs := make([]any, len(values))
	for i, v := range values {
		obs[i] = v
	}
	return Vote(obs)
}

func toInt(v any) (int, bool) {
	switch n := v.(type) {
	case nil:
		return 0, false
	case int:
		return n, true
	case int8:
		return int(n), true
	case int16:
		return int(n), true
	case int32:
		return int(n), true
	case int64:
		return int(n), true
	case uint:
		return int(n), true
	case uint8:
		return int(n), true
	case uint16:
		return int(n), true
	case uint32:
		return int(n), true
	case uint64:
		if n > math.MaxInt64 {
			return 0, false
		}
		return int(n), true
	case float32:
		return fromFloat(float64(n))
	case float64:
		return fromFloat(n)
	case json.Number:
		return fromString(n.String())
	case string:
		return fromString(n)
	default:
		return 0, false
	}
}

// fromFloat accepts only integral values; JSON decoding turns every number into float64.
func fromFloat(f float64) (int, bool) {
	if math.IsNaN(f) || math.IsInf(f, 0) || f != math.Trunc(f) {
		return 0, false
	}
	if f > math.MaxInt64 || f < math.MinInt64 {
		return 0, false
	}
	return int(f), true
}

func fromString(s string) (int, bool) {
	s = strings.TrimSpace(normalize.Digits(s))
	if s == "" {
		return 0, false
	}
	n, err := strconv.Atoi(s)
	if err != nil {
		return 0, false
	}
	return n, true
}
