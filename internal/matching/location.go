package matching

import "strings"

// LocationMatch: 1.0 on substring containment either way, 0.8 on
// token overlap, 0.4 otherwise. A job with no location always
// matches fully.
func LocationMatch(jobLocation, candidateLocation string) float64 {
	jobLocation = strings.TrimSpace(jobLocation)
	if jobLocation == "" {
		return 1.0
	}
	candidateLocation = strings.TrimSpace(candidateLocation)
	if candidateLocation == "" {
		return 0.4
	}
	jl := strings.ToLower(jobLocation)
	cl := strings.ToLower(candidateLocation)
	if strings.Contains(cl, jl) || strings.Contains(jl, cl) {
		return 1.0
	}
	if tokenOverlap(jl, cl) {
		return 0.8
	}
	return 0.4
}

func tokenOverlap(a, b string) bool {
	set := make(map[string]bool)
	for _, tok := range strings.FieldsFunc(a, isSeparator) {
		if tok != "" {
			set[tok] = true
		}
	}
	for _, tok := range strings.FieldsFunc(b, isSeparator) {
		if tok != "" && set[tok] {
			return true
		}
	}
	return false
}

func isSeparator(r rune) bool {
	return r == ',' || r == ' ' || r == '/' || r == '-'
}

// LanguageMatch: 1.0 on any overlap (or no preferred languages at
// all), 0.3 otherwise.
func LanguageMatch(preferred, candidateLangs []string) float64 {
	if len(preferred) == 0 {
		return 1.0
	}
	set := make(map[string]bool, len(candidateLangs))
	for _, l := range candidateLangs {
		set[strings.ToLower(strings.TrimSpace(l))] = true
	}
	for _, l := range preferred {
		if set[strings.ToLower(strings.TrimSpace(l))] {
			return 1.0
		}
	}
	return 0.3
}
