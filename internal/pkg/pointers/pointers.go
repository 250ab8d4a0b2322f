// Package pointers holds the one-liner helpers for the nullable
// score fields (agent assessments, overall scores) that the domain
// models as *float64.
package pointers

// Float64 returns a pointer to v.
func Float64(v float64) *float64 { return &v }
