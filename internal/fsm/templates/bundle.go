package templates

import (
	"embed"
	"fmt"
	"os"
	"strings"
	"sync/atomic"

	"gopkg.in/yaml.v3"
)

const bundlePathEnv = "PRE_RESUME_TEMPLATES_YAML"

//go:embed default.yaml
var defaultBundleFS embed.FS

type yamlTemplate struct {
	Purpose  string `yaml:"purpose"`
	Language string `yaml:"language"`
	Text     string `yaml:"text"`
}

type yamlBundle struct {
	Version   int            `yaml:"version"`
	Templates []yamlTemplate `yaml:"templates"`
}

// Template is one rendered message template, keyed by purpose and
// language.
type Template struct {
	Purpose  string
	Language string
	Text     string
}

// Bundle is an immutable, loaded set of templates grouped by
// (purpose, language). A Bundle is never mutated after construction;
// Manager.Reload swaps in a new one atomically.
type Bundle struct {
	byKey           map[string]string
	defaultLanguage string
}

func newBundle(raw yamlBundle, defaultLanguage string) *Bundle {
	b := &Bundle{byKey: make(map[string]string, len(raw.Templates)), defaultLanguage: defaultLanguage}
	for _, t := range raw.Templates {
		key := bundleKey(t.Purpose, t.Language)
		b.byKey[key] = t.Text
	}
	return b
}

func bundleKey(purpose, language string) string {
	return strings.ToLower(strings.TrimSpace(purpose)) + "|" + strings.ToLower(strings.TrimSpace(language))
}

// Render looks up the template for (purpose, language), falling back
// to the bundle's default language, then any available language for
// that purpose. Supported placeholders: name, job_title,
// scope_summary, core_profile_summary.
func (b *Bundle) Render(purpose, language string, vars map[string]string) (string, bool) {
	text, ok := b.lookup(purpose, language)
	if !ok {
		return "", false
	}
	return substitute(text, vars), true
}

func (b *Bundle) lookup(purpose, language string) (string, bool) {
	if text, ok := b.byKey[bundleKey(purpose, language)]; ok {
		return text, true
	}
	if text, ok := b.byKey[bundleKey(purpose, b.defaultLanguage)]; ok {
		return text, true
	}
	prefix := strings.ToLower(strings.TrimSpace(purpose)) + "|"
	for key, text := range b.byKey {
		if strings.HasPrefix(key, prefix) {
			return text, true
		}
	}
	return "", false
}

func substitute(text string, vars map[string]string) string {
	out := text
	for k, v := range vars {
		out = strings.ReplaceAll(out, "{{"+k+"}}", v)
	}
	return out
}

// Manager holds the currently active Bundle behind an atomic pointer
// so reloads never race a concurrent Render call.
type Manager struct {
	current atomic.Pointer[Bundle]
}

// NewManager loads the bundle from PRE_RESUME_TEMPLATES_YAML when set
// and readable, else the embedded default.
func NewManager(defaultLanguage string) (*Manager, error) {
	m := &Manager{}
	if err := m.Reload(defaultLanguage); err != nil {
		return nil, err
	}
	return m, nil
}

// Reload re-reads the template source and atomically swaps the active
// bundle. The previous bundle remains valid for any in-flight Render
// call holding its own reference.
func (m *Manager) Reload(defaultLanguage string) error {
	data, err := read()
	if err != nil {
		return err
	}
	var raw yamlBundle
	if err := yaml.Unmarshal(data, &raw); err != nil {
		return fmt.Errorf("templates: parse bundle: %w", err)
	}
	m.current.Store(newBundle(raw, defaultLanguage))
	return nil
}

func (m *Manager) Current() *Bundle {
	return m.current.Load()
}

func read() ([]byte, error) {
	if path := strings.TrimSpace(os.Getenv(bundlePathEnv)); path != "" {
		if data, err := os.ReadFile(path); err == nil {
			return data, nil
		}
	}
	return defaultBundleFS.ReadFile("default.yaml")
}
