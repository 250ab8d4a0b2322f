package matching

import (
	"testing"

	"github.com/stretchr/testify/require"
)

func testConfig() Config {
	return Config{
		SkillsWeight:      0.45,
		SeniorityWeight:   0.25,
		LocationWeight:    0.15,
		LanguageWeight:    0.15,
		VerifiedThreshold: 0.65,
		RulesVersion:      "v1",
	}
}

func TestVerify_MissingMandatoryFields(t *testing.T) {
	e := NewEngine(testConfig())
	score, status, notes := e.Verify(JobInput{Title: "Backend Engineer"}, Profile{})
	require.Equal(t, 0.0, score)
	require.Equal(t, StatusRejected, status)
	require.Equal(t, "missing_mandatory_fields", notes.Reason)
	require.Contains(t, notes.Missing, "provider_id")
	require.Contains(t, notes.Missing, "full_name")
}

func TestVerify_StrongMatchIsVerified(t *testing.T) {
	e := NewEngine(testConfig())
	job := JobInput{
		Title:              "Senior Go Engineer",
		JDText:             "We need a senior engineer with go, postgres and kubernetes experience.",
		Location:           "Berlin",
		PreferredLanguages: []string{"en"},
		SeniorityBand:      "",
	}
	p := Profile{
		ProviderID:      "abc123",
		FullName:        "Jane Doe",
		Location:        "Berlin, Germany",
		Languages:       []string{"en", "de"},
		Skills:          []string{"Go", "Postgres", "Kubernetes", "Docker"},
		YearsExperience: 6,
	}
	score, status, notes := e.Verify(job, p)
	require.Equal(t, StatusVerified, status)
	require.GreaterOrEqual(t, score, testConfig().VerifiedThreshold)
	require.Contains(t, notes.Explanation, "score")
	require.ElementsMatch(t, notes.RequiredSkills, []string{"go", "postgres", "kubernetes"})
}

func TestVerify_NoRequiredSkillsUsesBroadRoleDefault(t *testing.T) {
	e := NewEngine(testConfig())
	job := JobInput{Title: "Generalist", JDText: "We are hiring a generalist for a growing team."}
	p := Profile{ProviderID: "p1", FullName: "Sam Lee", YearsExperience: 3}
	_, _, notes := e.Verify(job, p)
	require.Equal(t, 0.6, notes.Components["skills_match"])
}

func TestVerify_WeakMatchIsRejected(t *testing.T) {
	e := NewEngine(testConfig())
	job := JobInput{
		Title:              "Senior Go Engineer",
		JDText:             "We need a senior engineer with go, kafka and kubernetes experience.",
		Location:           "Berlin",
		PreferredLanguages: []string{"de"},
	}
	p := Profile{
		ProviderID:      "p2",
		FullName:        "No Match",
		Location:        "Tokyo",
		Languages:       []string{"ja"},
		Skills:          []string{"php"},
		YearsExperience: 0.5,
	}
	score, status, _ := e.Verify(job, p)
	require.Equal(t, StatusRejected, status)
	require.Less(t, score, testConfig().VerifiedThreshold)
}

func TestLocationMatch(t *testing.T) {
	require.Equal(t, 1.0, LocationMatch("", "anywhere"))
	require.Equal(t, 1.0, LocationMatch("Berlin", "Berlin, Germany"))
	require.Equal(t, 0.8, LocationMatch("Berlin, Germany", "Munich, Germany"))
	require.Equal(t, 0.4, LocationMatch("Berlin", "Tokyo"))
	require.Equal(t, 0.4, LocationMatch("Berlin", ""))
}

func TestSeniorityMatch(t *testing.T) {
	band := ResolveSeniorityBand("senior", "")
	require.Equal(t, 1.0, SeniorityMatch(band, 6))
	require.Equal(t, 0.7, SeniorityMatch(band, 4))
	require.Equal(t, 0.3, SeniorityMatch(band, 1))
}

func TestResolveSeniorityBand_InferredFromJD(t *testing.T) {
	band := ResolveSeniorityBand("", "Looking for a junior developer to join our team")
	require.Equal(t, "junior", band.Name)
}
