package quality

import (
	"errors"
	"fmt"
	"strconv"
	"strings"
)

var (
	ErrInvalidQualityCode = errors.New("invalid quality code")
	ErrUnknownGranularity = errors.New("unknown granularity")
)

// FillCode marks quality cells where the product recorded nothing. Those cells are always missing.
const FillCode = 255

type Granularity int

const (
	Daily Granularity = iota + 1
	MonthlyAnnual
)

func (g Granularity) String() string {
	switch g {
	case Daily:
		return "daily"
	case MonthlyAnnual:
		return "monthly_annual"
	default:
		return "unknown"
	}
}

func ParseGranularity(s string) (Granularity, error) {
	switch strings.ToLower(strings.TrimSpace(s)) {
	case "daily", "day":
		return Daily, nil
	case "monthly", "annual", "yearly", "monthly_annual", "monthly-annual":
		return MonthlyAnnual, nil
	default:
		return 0, fmt.Errorf("%w: %q", ErrUnknownGranularity, s)
	}
}

type Category string

const (
	HighQualityPersistent Category = "high_quality_persistent"
	HighQualityEphemeral  Category = "high_quality_ephemeral"
	PoorQuality           Category = "poor_quality"
	GoodQuality           Category = "good_quality"
	GapFilled             Category = "gap_filled"
)

// The same raw codes mean different things per granularity, so lookups are always keyed by both.
var categories = map[Granularity][]Category{
	Daily:         {HighQualityPersistent, HighQualityEphemeral, PoorQuality},
	MonthlyAnnual: {GoodQuality, PoorQuality, GapFilled},
}

var descriptions = map[Category]string{
	HighQualityPersistent: "high-quality, persistent nighttime lights",
	HighQualityEphemeral:  "high-quality, ephemeral nighttime lights",
	PoorQuality:           "poor-quality retrieval",
	GoodQuality:           "good-quality, more than 3 observations",
	GapFilled:             "gap filled from historical data",
}

// Classify maps a raw quality code to its category for the given granularity.
func Classify(code int, g Granularity) (Category, error) {
	cats, ok := categories[g]
	if !ok {
		return "", fmt.Errorf("%w: %d", ErrUnknownGranularity, int(g))
	}
	if code < 0 || code >= len(cats) {
		return "", fmt.Errorf("%w: %d is not valid for %s products", ErrInvalidQualityCode, code, g)
	}
	return cats[code], nil
}

// Codes lists the valid codes for g in ascending order.
func Codes(g Granularity) []int {
	codes := make([]int, len(categories[g]))
	for i := range codes {
		codes[i] = i
	}
	return codes
}

// ValidateCodes fails on the first code outside the domain of g.
func ValidateCodes(codes []int, g Granularity) error {
	for _, code := range codes {
		if _, err := Classify(code, g); err != nil {
			return err
		}
	}
	return nil
}

// Describe returns a human-readable label, used by the CLI.
func Describe(code int, g Granularity) (string, error) {
	cat, err := Classify(code, g)
	if err != nil {
		return "", err
	}
	desc := descriptions[cat]
	if cat == PoorQuality && g == MonthlyAnnual {
		desc = "poor-quality, 3 or fewer observations"
	}
	return desc, nil
}

// ParseCodes parses a comma separated list such as "1,2".
func ParseCodes(s string) ([]int, error) {
	s = strings.TrimSpace(s)
	if s == "" {
		return nil, nil
	}
	var codes []int
	for _, part := range strings.Split(s, ",") {
		code, err := strconv.Atoi(strings.TrimSpace(part))
		if err != nil {
			return nil, fmt.Errorf("%w: %q", ErrInvalidQualityCode, part)
		}
		codes = append(codes, code)
	}
	return codes, nil
}
