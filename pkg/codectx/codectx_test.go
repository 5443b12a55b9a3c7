package codectx_test

import (
	"testing"

	. "github.com/canarysec/canary-scanner/pkg/codectx"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestAnalyzeTestsDirectory(t *testing.T) {
	analyzer := NewAnalyzer()

	// Fire
	response := analyzer.Analyze("project/tests/helpers.py", "")

	assert.Equal(t, Test, response.Type)
	assert.NotEmpty(t, response.Reasons)
}

func TestAnalyzeExamplesDirectory(t *testing.T) {
	analyzer := NewAnalyzer()

	// Fire
	response := analyzer.Analyze("repo/examples/main.go", "")

	assert.Equal(t, Example, response.Type)
}

func TestAnalyzeDirectorySignalPerContextType(t *testing.T) {
	analyzer := NewAnalyzer()

	cases := map[string]ContextType{
		"project/tests/helpers.py":    Test,
		"repo/examples/main.go":       Example,
		"repo/docs/setup.py":          Documentation,
		"svc/config/loader.go":        Config,
		"gen/templates/handler.go":    Template,
		"src/internal/billing/pay.go": Production,
	}

	for filePath, expected := range cases {
		// Fire
		response := analyzer.Analyze(filePath, "")

		assert.Equal(t, expected, response.Type, filePath)
	}
}

func TestAnalyzeNoSignalDefaultsToProduction(t *testing.T) {
	analyzer := NewAnalyzer()

	// Fire
	response := analyzer.Analyze("src/server/handler.go", "")

	assert.Equal(t, Production, response.Type)
	assert.Equal(t, 0.5, response.Confidence)
}

func TestAnalyzeTestFilename(t *testing.T) {
	analyzer := NewAnalyzer()

	// Fire
	response := analyzer.Analyze("pkg/server/handler_test.go", "")

	assert.Equal(t, Test, response.Type)
}

func TestAnalyzeContentSignal(t *testing.T) {
	analyzer := NewAnalyzer()
	content := "import unittest\n\nclass HandlerTest(unittest.TestCase):\n    def test_ok(self):\n        assert True\n"

	// Fire
	response := analyzer.Analyze("src/handler.py", content)

	assert.Equal(t, Test, response.Type)
}

func TestAnalyzeDocumentationFile(t *testing.T) {
	analyzer := NewAnalyzer()

	// Fire
	response := analyzer.Analyze("README.md", "# Getting started\n\n```\napi_key = \"abc\"\n```\n")

	assert.Equal(t, Documentation, response.Type)
}

func TestAnalyzeDeterministic(t *testing.T) {
	analyzer := NewAnalyzer()
	content := "describe('login', () => { it('works', () => {}) })"

	first := analyzer.Analyze("web/auth/login.spec.js", content)
	second := analyzer.Analyze("web/auth/login.spec.js", content)

	require.Equal(t, first.Type, second.Type)
	require.Equal(t, first.Confidence, second.Confidence)
	require.Equal(t, first.Reasons, second.Reasons)
}

func TestAnalyzeReasonsCapped(t *testing.T) {
	analyzer := NewAnalyzer()
	content := "# Title\n\n```\nexample\n```\n**bold** [link](x) TODO: later\n"

	// Fire
	response := analyzer.Analyze("docs/examples/tests/sample_test_demo.md", content)

	assert.True(t, len(response.Reasons) <= 5)
}

func TestAnalyzeConfidenceBounds(t *testing.T) {
	analyzer := NewAnalyzer()

	paths := []string{
		"tests/unit/test_auth.py",
		"examples/demo.rb",
		"config/settings.yml",
		"main.go",
	}
	for _, path := range paths {
		response := analyzer.Analyze(path, "")

		assert.True(t, response.Confidence >= 0.0 && response.Confidence <= 1.0, path)
	}
}

func TestIsLikelyPlaceholder(t *testing.T) {
	analyzer := NewAnalyzer()

	assert.True(t, analyzer.IsLikelyPlaceholder("your-api-key"))
	assert.True(t, analyzer.IsLikelyPlaceholder("xxxxxxxx"))
	assert.True(t, analyzer.IsLikelyPlaceholder("123456"))
	assert.True(t, analyzer.IsLikelyPlaceholder("dummy-value"))
	assert.False(t, analyzer.IsLikelyPlaceholder("wJalrXUtnFEMI/K7MDENG/bPxRfiCYzQ"))
}
