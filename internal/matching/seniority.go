package matching

import "strings"

// SeniorityBand is a target experience range for a job.
type SeniorityBand struct {
	Name   string
	MinYrs float64
	MaxYrs float64
}

var seniorityBands = map[string]SeniorityBand{
	"lead":   {Name: "lead", MinYrs: 8, MaxYrs: 99},
	"senior": {Name: "senior", MinYrs: 5, MaxYrs: 99},
	"middle": {Name: "middle", MinYrs: 2, MaxYrs: 7},
	"junior": {Name: "junior", MinYrs: 0, MaxYrs: 3},
}

var seniorityKeywords = []struct {
	band     string
	keywords []string
}{
	{"lead", []string{"lead", "staff", "principal", "head of"}},
	{"senior", []string{"senior", "sr."}},
	{"junior", []string{"junior", "jr.", "entry level", "entry-level", "graduate"}},
	{"middle", []string{"mid-level", "mid level", "middle"}},
}

// ResolveSeniorityBand returns the explicit band on the job when set,
// else infers one from JD keyword bands, defaulting to "middle".
func ResolveSeniorityBand(explicit, jdText string) SeniorityBand {
	explicit = strings.ToLower(strings.TrimSpace(explicit))
	if b, ok := seniorityBands[explicit]; ok {
		return b
	}
	lower := strings.ToLower(jdText)
	for _, kb := range seniorityKeywords {
		for _, kw := range kb.keywords {
			if strings.Contains(lower, kw) {
				return seniorityBands[kb.band]
			}
		}
	}
	return seniorityBands["middle"]
}

// SeniorityMatch scores years-of-experience fit against a band: 1.0
// inside the band, 0.7 within one year of either edge, else 0.3.
func SeniorityMatch(band SeniorityBand, years float64) float64 {
	if years >= band.MinYrs && years <= band.MaxYrs {
		return 1.0
	}
	if years >= band.MinYrs-1 && years <= band.MaxYrs+1 {
		return 0.7
	}
	return 0.3
}
