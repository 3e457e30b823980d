package taskboard

import (
	"errors"
	"fmt"
	"strconv"
	"strings"
)

// ErrBadDuration reports a time value not in H:MM[:SS] form.
var ErrBadDuration = errors.New("taskboard: bad duration")

// Band is the colour tier of a progress value.
type Band string

const (
	BandSuccess Band = "success"
	BandWarning Band = "warning"
	BandOrange  Band = "orange"
	BandError   Band = "error"
)

// Band thresholds are SLA tiers; a value equal to a threshold belongs to the higher band.
const (
	errorThreshold   = 96
	orangeThreshold  = 81
	warningThreshold = 61
)

var componentWeights = [...]float64{60, 1, 1.0 / 60}

// ParseMinutes converts "H", "H:MM" or "H:MM:SS" into minutes. An empty value is zero.
func ParseMinutes(value string) (float64, error) {
	value = strings.TrimSpace(value)
	if value == "" {
		return 0, nil
	}
	parts := strings.Split(value, ":")
	if len(parts) > len(componentWeights) {
		return 0, fmt.Errorf("%w: %q", ErrBadDuration, value)
	}
	var total float64
	for i, part := range parts {
		part = strings.TrimSpace(part)
		if !isDecimal(part) {
			return 0, fmt.Errorf("%w: %q", ErrBadDuration, value)
		}
		n, err := strconv.ParseFloat(part, 64)
		if err != nil {
			return 0, fmt.Errorf("%w: %q", ErrBadDuration, value)
		}
		total += n * componentWeights[i]
	}
	return total, nil
}

// isDecimal accepts digits with at most one dot. ParseFloat alone would also take NaN,
// Inf, exponents and hex floats.
func isDecimal(s string) bool {
	if s == "" || s == "." {
		return false
	}
	dot := false
	for _, r := range s {
		switch {
		case r >= '0' && r <= '9':
		case r == '.' && !dot:
			dot = true
		default:
			return false
		}
	}
	return true
}

// Progress returns spent/estimated as a percentage clamped to [0, 100]. Unparseable
// values count as zero, and a zero estimate yields zero.
func Progress(estimated, spent string) float64 {
	est, err := ParseMinutes(estimated)
	if err != nil || est <= 0 {
		return 0
	}
	sum, err := ParseMinutes(spent)
	if err != nil {
		return 0
	}
	p := sum / est * 100
	switch {
	case p < 0:
		return 0
	case p > 100:
		return 100
	default:
		return p
	}
}

// BandFor maps a progress percentage to its colour tier.
func BandFor(progress float64) Band {
	switch {
	case progress >= errorThreshold:
		return BandError
	case progress >= orangeThreshold:
		return BandOrange
	case progress >= warningThreshold:
		return BandWarning
	default:
		return BandSuccess
	}
}

// NewCard decorates t with its progress and band.
func NewCard(t Task) Card {
	p := Progress(t.EstimatedTime, t.SumTime)
	return Card{Task: t, Progress: p, Band: BandFor(p)}
}
