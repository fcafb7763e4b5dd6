// Package service implements the synchronization pipeline: batch fetching,
// enrichment and the scheduled jobs that keep the vehicle cache current.
package service

import (
	"regexp"
	"strings"
	"unicode"

	cacheDomain "github.com/msiav/vehicle-cache/internal/cache/domain"
)

// cepPattern matches Brazilian postal codes with an optional "CEP" label.
var cepPattern = regexp.MustCompile(`(?i)\b(cep:?\s*)?\d{5}-?\d{3}\b`)

// stateCodePattern matches two-letter state abbreviations such as SP or RJ.
var stateCodePattern = regexp.MustCompile(`^[A-Z]{2}$`)

// ExtractCity pulls the city name out of a free-text Brazilian address.
//
// The format is not standardized upstream, so this is best effort: postal
// codes are stripped, then the address is split on " - " and the
// second-to-last segment is taken when it does not look like a state
// abbreviation. Addresses that do not fit that shape fall back to a comma
// split scanned from the end. Input that yields nothing usable returns the
// sentinel rather than an error.
func ExtractCity(address string) string {
	cleaned := strings.TrimSpace(cepPattern.ReplaceAllString(address, ""))
	cleaned = strings.Trim(cleaned, " ,-")
	if cleaned == "" {
		return cacheDomain.Sentinel
	}

	segments := splitAndTrim(cleaned, " - ")
	if len(segments) >= 3 {
		candidate := segments[len(segments)-2]
		if usableCitySegment(candidate) {
			return candidate
		}
	}

	// Comma fallback: the city usually sits near the end, after street and
	// number and before the state abbreviation.
	parts := splitAndTrim(cleaned, ",")
	for i := len(parts) - 1; i >= 0; i-- {
		if usableCitySegment(parts[i]) {
			return parts[i]
		}
	}

	return cacheDomain.Sentinel
}

func splitAndTrim(value, sep string) []string {
	raw := strings.Split(value, sep)
	segments := make([]string, 0, len(raw))
	for _, s := range raw {
		s = strings.Trim(strings.TrimSpace(s), ",")
		if s != "" {
			segments = append(segments, s)
		}
	}
	return segments
}

// usableCitySegment reports whether a segment can plausibly be a city name:
// longer than two characters, free of digits, and not a state abbreviation.
func usableCitySegment(segment string) bool {
	if len([]rune(segment)) <= 2 {
		return false
	}
	if stateCodePattern.MatchString(segment) {
		return false
	}
	for _, r := range segment {
		if unicode.IsDigit(r) {
			return false
		}
	}
	return true
}
