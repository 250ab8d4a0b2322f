package matching

import "strings"

// skillDictionary is the curated set of recognizable technical skill
// tokens the deterministic matcher intersects against JD text. It is
// seeded here and may be enriched per-job by an optional job_architect
// assessment (see EnrichDictionary) but is never replaced wholesale —
// the deterministic core always has a non-empty baseline.
var skillDictionary = []string{
	"go", "golang", "python", "java", "javascript", "typescript", "c++", "c#", "rust",
	"ruby", "php", "scala", "kotlin", "swift", "elixir",
	"react", "vue", "angular", "node", "nodejs", "django", "flask", "fastapi",
	"spring", "rails", "laravel", "express",
	"postgres", "postgresql", "mysql", "sqlite", "mongodb", "redis", "cassandra",
	"kafka", "rabbitmq", "sqs", "grpc", "graphql", "rest",
	"docker", "kubernetes", "terraform", "ansible", "aws", "gcp", "azure",
	"ci/cd", "jenkins", "github actions",
	"machine learning", "deep learning", "nlp", "llm", "pytorch", "tensorflow",
	"data engineering", "spark", "airflow", "etl",
	"microservices", "distributed systems", "system design",
}

// RequiredSkills intersects the curated dictionary with lowercased JD
// text, returning each dictionary term present as a substring.
func RequiredSkills(dict []string, jdText string) []string {
	lower := strings.ToLower(jdText)
	out := make([]string, 0, 8)
	for _, term := range dict {
		if strings.Contains(lower, term) {
			out = append(out, term)
		}
	}
	return out
}

// EnrichDictionary appends extra terms surfaced by an LLM-assisted JD
// parse (job_architect assessment) to the baseline dictionary. The
// baseline is never dropped; extras only ever add candidate matches.
func EnrichDictionary(extra []string) []string {
	out := make([]string, 0, len(skillDictionary)+len(extra))
	out = append(out, skillDictionary...)
	seen := make(map[string]bool, len(out))
	for _, t := range out {
		seen[strings.ToLower(t)] = true
	}
	for _, t := range extra {
		t = strings.ToLower(strings.TrimSpace(t))
		if t == "" || seen[t] {
			continue
		}
		seen[t] = true
		out = append(out, t)
	}
	return out
}
