package sanitizer

import (
	"regexp"
	"strings"
	"unicode"
)

type Strategy func(string) string

type Pipeline []Strategy

func (p Pipeline) Apply(s string) string {
	for _, fn := range p {
		s = fn(s)
	}
	return s
}

var (
	reKeepLettersOnly       = regexp.MustCompile(`[^\p{L}]+`)
	reKeepLettersDigitsOnly = regexp.MustCompile(`[^\p{L}0-9]+`)
	reTrimUnderscores       = regexp.MustCompile(`_+`)
)

func trimAndLower(s string) string {
	return strings.ToLower(strings.TrimSpace(s))
}

func collapseUnderscores(s string) string {
	s = reTrimUnderscores.ReplaceAllString(s, "_")
	return strings.Trim(s, "_")
}

// SanitizeText trims and collapses runs of whitespace into a single space.
func SanitizeText(s string) string {
	s = strings.TrimSpace(s)
	if s == "" {
		return ""
	}

	var result strings.Builder
	var lastWasSpace bool
	for _, r := range s {
		if unicode.IsSpace(r) {
			if !lastWasSpace {
				result.WriteRune(' ')
				lastWasSpace = true
			}
			continue
		}
		result.WriteRune(r)
		lastWasSpace = false
	}
	return result.String()
}

// SanitizeCityKey returns the key used to match cities regardless of case,
// spacing or punctuation.
func SanitizeCityKey(city string) string {
	p := Pipeline{
		trimAndLower,
		func(s string) string { return reKeepLettersOnly.ReplaceAllString(s, "_") },
		collapseUnderscores,
	}
	return p.Apply(city)
}

func SanitizeVehicleNumber(number string) string {
	p := Pipeline{
		strings.TrimSpace,
		strings.ToUpper,
		func(s string) string { return reKeepLettersDigitsOnly.ReplaceAllString(s, "") },
	}
	return p.Apply(number)
}

func SanitizeEmail(email string) string {
	return trimAndLower(email)
}

// SanitizeSlice applies strategy to every value, dropping empties and
// duplicates while keeping the first occurrence order.
func SanitizeSlice(values []string, strategy Strategy) []string {
	seen := make(map[string]struct{})
	out := []string{}

	for _, v := range values {
		s := strategy(v)
		if s == "" {
			continue
		}
		if _, ok := seen[s]; ok {
			continue
		}
		seen[s] = struct{}{}
		out = append(out, s)
	}
	return out
}
