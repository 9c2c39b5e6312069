package sentence

import (
	"regexp"
	"strings"
)

// Known abbreviations that end with a period without ending a sentence.
// Stored without the trailing period.
var abbreviations = map[string]struct{}{
	// Titles
	"Dr": {}, "Mr": {}, "Mrs": {}, "Ms": {}, "Prof": {}, "Rev": {},
	"Gen": {}, "Sen": {}, "Rep": {}, "Gov": {}, "Lt": {}, "Maj": {},
	"Col": {}, "Capt": {}, "Sgt": {}, "St": {},

	// Corporate
	"Inc": {}, "Corp": {}, "Ltd": {}, "Co": {}, "LLC": {},

	// Latin
	"etc": {}, "vs": {}, "al": {}, "cf": {}, "ca": {},
	"e.g": {}, "i.e": {}, "et": {},

	// Measurements and streets
	"oz": {}, "lb": {}, "lbs": {}, "ft": {}, "in": {}, "mi": {},
	"Ave": {}, "Blvd": {}, "Rd": {},

	// Months
	"Jan": {}, "Feb": {}, "Mar": {}, "Apr": {}, "Jun": {}, "Jul": {},
	"Aug": {}, "Sep": {}, "Sept": {}, "Oct": {}, "Nov": {}, "Dec": {},

	// Times and degrees
	"a.m": {}, "p.m": {}, "Ph.D": {}, "M.D": {}, "B.A": {}, "B.S": {},
	"M.A": {}, "M.S": {}, "D.D.S": {},

	// Countries
	"U.S": {}, "U.K": {}, "U.S.A": {}, "U.N": {},
}

// acronymPattern matches dotted all-caps acronyms like "U.S.A." or "F.B.I".
var acronymPattern = regexp.MustCompile(`^[A-Z](\.[A-Z])+\.?$`)

// isAbbreviation reports whether a period-terminated token is a known
// abbreviation rather than a sentence end. The token may carry surrounding
// quotes but must end with its period.
func isAbbreviation(token string) bool {
	token = strings.Trim(token, `"'`)
	if !strings.HasSuffix(token, ".") {
		return false
	}
	bare := strings.TrimSuffix(token, ".")
	if bare == "" {
		return false
	}

	if _, ok := abbreviations[bare]; ok {
		return true
	}

	// Single capital initial, as in "J. K. Rowling".
	if len(bare) == 1 && bare[0] >= 'A' && bare[0] <= 'Z' {
		return true
	}

	return acronymPattern.MatchString(token)
}
