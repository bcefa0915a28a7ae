package rules

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestDefaultRulesParse(t *testing.T) {
	s := Default()
	assert.NotEmpty(t, s.Roles)
	assert.NotEmpty(t, s.Dependencies)
	assert.NotEmpty(t, s.Coverage)
}

func TestLoadEmptyPathReturnsDefaults(t *testing.T) {
	s, err := Load("")
	require.NoError(t, err)
	assert.Equal(t, len(Default().Roles), len(s.Roles))
}

func TestLoadFromFile(t *testing.T) {
	content := `
roles:
  - name: queue
    tools: [RabbitMQ, Kafka]
dependencies:
  - tool: Spring Boot
    requires: Java
    version: "^17"
coverage:
  - category: Monitoring
    warning: nothing watches production
`
	path := filepath.Join(t.TempDir(), "rules.yaml")
	require.NoError(t, os.WriteFile(path, []byte(content), 0644))

	s, err := Load(path)
	require.NoError(t, err)
	require.Len(t, s.Roles, 1)
	assert.True(t, s.Roles[0].Matches("kafka", ""))
	require.Len(t, s.Dependencies, 1)
	assert.Equal(t, "Java ^17", s.Dependencies[0].Target())
	assert.Equal(t, "Monitoring", s.Coverage[0].Category)
}

func TestLoadMissingFile(t *testing.T) {
	_, err := Load("/nonexistent/rules.yaml")
	assert.Error(t, err)
}

func TestParseRejectsInvalidRules(t *testing.T) {
	tests := []struct {
		name string
		yaml string
	}{
		{"bad yaml", "roles: [unterminated"},
		{"role without name", "roles:\n  - tools: [a]"},
		{"role without members", "roles:\n  - name: empty"},
		{"dependency without tool", "dependencies:\n  - requires: React"},
		{"dependency with both targets", "dependencies:\n  - tool: A\n    requires: B\n    requires_category: C"},
		{"dependency with neither target", "dependencies:\n  - tool: A"},
		{"version on category rule", "dependencies:\n  - tool: A\n    requires_category: C\n    version: '>=1'"},
		{"bad constraint", "dependencies:\n  - tool: A\n    requires: B\n    version: 'not-a-version'"},
		{"coverage without category", "coverage:\n  - warning: x"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := Parse([]byte(tt.yaml))
			assert.Error(t, err)
		})
	}
}

func TestRoleMatches(t *testing.T) {
	r := Role{Name: "deploy", Categories: []string{"Deployment"}, Tools: []string{"Fly.io"}}
	assert.True(t, r.Matches("Vercel", "deployment"))
	assert.True(t, r.Matches("fly.io", "Hosting"))
	assert.False(t, r.Matches("React", "Frontend"))
	assert.False(t, r.Matches("React", ""))
}

func TestDependencySatisfiedBy(t *testing.T) {
	s, err := Parse([]byte("dependencies:\n  - tool: Next.js\n    requires: React\n    version: '>=18.0.0'"))
	require.NoError(t, err)
	d := s.Dependencies[0]

	assert.True(t, d.AppliesTo("next.js"))
	assert.False(t, d.AppliesTo("Nuxt"))

	ok, err := d.SatisfiedBy("18.2.0")
	require.NoError(t, err)
	assert.True(t, ok)

	ok, err = d.SatisfiedBy("17.0.2")
	require.NoError(t, err)
	assert.False(t, ok)

	ok, err = d.SatisfiedBy("")
	require.NoError(t, err)
	assert.True(t, ok, "unknown versions get the benefit of the doubt")

	_, err = d.SatisfiedBy("latest-ish")
	assert.Error(t, err)
}

func TestDependencyTarget(t *testing.T) {
	assert.Equal(t, "a Database tool", Dependency{Tool: "Prisma", RequiresCategory: "Database"}.Target())
	assert.Equal(t, "React", Dependency{Tool: "Redux", Requires: "React"}.Target())
}

func TestDependencyWithoutConstraintAlwaysSatisfied(t *testing.T) {
	ok, err := Dependency{Tool: "Redux", Requires: "React"}.SatisfiedBy("not-semver")
	require.NoError(t, err)
	assert.True(t, ok)
}
