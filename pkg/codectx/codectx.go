package codectx

import (
	"fmt"
	"path/filepath"
	"regexp"
	"strings"

	"github.com/canarysec/canary-scanner/pkg/manip"
)

// Classifies a file into a semantic context so downstream stages can tell
// a secret in production code apart from one in a test fixture or a README.
// Classification is deterministic for a given path and content sample.

type (
	ContextType string

	// ContextInfo is recomputed per file and never persisted
	ContextInfo struct {
		Type       ContextType
		Confidence float64
		Reasons    []string
	}

	Analyzer struct {
		dirSets      map[ContextType]*manip.BasicSet
		filenameRes  map[ContextType][]*regexp.Regexp
		contentRes   map[ContextType][]*regexp.Regexp
		placeholders *manip.RegexpSet
	}
)

const (
	Production    ContextType = "production"
	Test          ContextType = "test"
	Example       ContextType = "example"
	Documentation ContextType = "documentation"
	Config        ContextType = "config"
	Template      ContextType = "template"
	Unknown       ContextType = "unknown"
)

const (
	contentSampleLen = 2000

	directoryWeight = 1.0
	filenameWeight  = 1.5
	contentWeight   = 1.2

	maxReasons = 5
)

// Iteration order doubles as the tie-break order when two context types
// end up with the same combined score.
func ContextTypes() []ContextType {
	return []ContextType{Production, Test, Example, Documentation, Config, Template, Unknown}
}

func NewAnalyzer() *Analyzer {
	return &Analyzer{
		dirSets: map[ContextType]*manip.BasicSet{
			Test: manip.NewBasicSet([]string{
				"test", "tests", "testing", "__tests__", "spec", "specs",
				"unit_tests", "integration_tests", "e2e_tests", "cypress",
			}),
			Example: manip.NewBasicSet([]string{
				"example", "examples", "demo", "demos", "sample", "samples",
				"tutorial", "tutorials", "playground", "quickstart",
			}),
			Documentation: manip.NewBasicSet([]string{
				"docs", "doc", "documentation", "readme", "wiki", "guides",
				"manual", "reference", "help",
			}),
			Config: manip.NewBasicSet([]string{
				"config", "configuration", "settings", "conf", ".github",
				"deploy", "deployment", "ci", "cd", "pipeline",
			}),
			Template: manip.NewBasicSet([]string{
				"template", "templates", "scaffolding", "boilerplate",
				"skeleton", "starter",
			}),
		},
		filenameRes: map[ContextType][]*regexp.Regexp{
			Test: compileAll(
				`(?i).*test.*\.(py|js|ts|java|rb|go|php|cs)$`,
				`(?i).*spec\.(py|js|ts|java|rb|go|php|cs)$`,
				`(?i)test_.*\.(py|js|ts|java|rb|go|php|cs)$`,
				`(?i).*_test\.(py|js|ts|java|rb|go|php|cs)$`,
				`.*Test\.(java|cs)$`,
			),
			Example: compileAll(
				`(?i)example.*\.(py|js|ts|java|rb|go|php|cs)$`,
				`(?i)demo.*\.(py|js|ts|java|rb|go|php|cs)$`,
				`(?i)sample.*\.(py|js|ts|java|rb|go|php|cs)$`,
			),
			Documentation: compileAll(
				`(?i).*\.(md|rst|txt|adoc)$`,
				`(?i)README.*`,
				`(?i)CHANGELOG.*`,
			),
			Config: compileAll(
				`(?i).*\.(yml|yaml|json|toml|ini|cfg|conf)$`,
				`(?i)Dockerfile.*`,
				`(?i)docker-compose.*`,
				`(?i)\.env.*`,
				`(?i).*\.config\.(js|ts)$`,
			),
		},
		contentRes: map[ContextType][]*regexp.Regexp{
			Test: compileAll(
				`(?i)import\s+(?:unittest|pytest|jest|mocha|jasmine|rspec)`,
				`(?i)from\s+\w+\s+import\s+(?:TestCase|Test)`,
				`@Test\b`,
				`(?i)describe\s*\(`,
				`(?i)it\s*\(`,
				`(?i)test\s*\(`,
				`(?i)def\s+test_`,
				`(?i)class\s+\w*Test\w*`,
				`(?i)assert\s+`,
				`(?i)expect\s*\(`,
				`(?i)should\s*\.`,
			),
			Example: compileAll(
				`(?i)#\s*(?:example|demo|sample)`,
				`(?i)//\s*(?:example|demo|sample)`,
				`(?i)/\*.*?(?:example|demo|sample).*?\*/`,
				`(?i)print\s*\(.*(?:example|demo).*\)`,
				`(?i)console\.log\s*\(.*(?:example|demo).*\)`,
			),
			Documentation: compileAll(
				"(?im)^#+ ",
				"```",
				`\*\*.*?\*\*`,
				`\[.*?\]\(.*?\)`,
				`TODO:`,
				`FIXME:`,
				`NOTE:`,
			),
		},
		placeholders: manip.NewRegexpSetFromStringsMustCompile([]string{
			`(?i)(?:your|my|test|demo|example|sample)[-_]?(?:api[-_]?key|token|secret|password)`,
			`(?i)(?:replace|change|insert|put|add)[-_\s]+(?:your|this)`,
			`(?i)(?:placeholder|dummy|fake|mock|stub)`,
			`(?i)xxx+`,
			`(?i)yyy+`,
			`(?i)zzz+`,
			`123456`,
			`(?i)password`,
			`(?i)secret`,
			`(?i)token`,
		}),
	}
}

func compileAll(patterns ...string) (result []*regexp.Regexp) {
	result = make([]*regexp.Regexp, len(patterns))
	for i, p := range patterns {
		result[i] = regexp.MustCompile(p)
	}
	return
}

// Analyze classifies a file from its path and an optional content sample.
// Three signal sources are combined with fixed weights; the winning type
// is the one with the highest combined score. No signal at all defaults
// to production at 0.5 since unmarked files are most likely real code.
func (a *Analyzer) Analyze(filePath, contentSample string) (result ContextInfo) {
	scores := map[ContextType]float64{}
	var dirReasons, filenameReasons, contentReasons []string

	dirScores, dirReasons := a.directorySignal(filePath)
	for contextType, score := range dirScores {
		scores[contextType] += score * directoryWeight
	}

	filenameScores, filenameReasons := a.filenameSignal(filepath.Base(filePath))
	for contextType, score := range filenameScores {
		scores[contextType] += score * filenameWeight
	}

	if contentSample != "" {
		var contentScores map[ContextType]float64
		contentScores, contentReasons = a.contentSignal(contentSample)
		for contextType, score := range contentScores {
			scores[contextType] += score * contentWeight
		}
	}

	winner := Production
	var maxScore float64
	for _, contextType := range ContextTypes() {
		if scores[contextType] > maxScore {
			maxScore = scores[contextType]
			winner = contextType
		}
	}

	var confidence float64
	if maxScore == 0 {
		winner = Production
		confidence = 0.5
	} else {
		confidence = maxScore / 3.0
		if confidence > 1.0 {
			confidence = 1.0
		}
	}

	// Strongly suppressive contexts get a confidence boost
	if winner == Test || winner == Example || winner == Documentation {
		confidence *= 1.2
		if confidence > 1.0 {
			confidence = 1.0
		}
	}

	// Most specific signals first: directory, then filename, then content
	reasons := append(dirReasons, filenameReasons...)
	reasons = append(reasons, contentReasons...)
	if len(reasons) > maxReasons {
		reasons = reasons[:maxReasons]
	}

	result = ContextInfo{Type: winner, Confidence: confidence, Reasons: reasons}
	return
}

// IsLikelyPlaceholder reports whether a secret literal looks like a
// placeholder value regardless of where it was found.
func (a *Analyzer) IsLikelyPlaceholder(secretValue string) bool {
	return a.placeholders.MatchAny(secretValue)
}

func (a *Analyzer) directorySignal(filePath string) (scores map[ContextType]float64, reasons []string) {
	scores = map[ContextType]float64{}

	segments := strings.FieldsFunc(filepath.ToSlash(filePath), func(r rune) bool { return r == '/' })
	lowered := make([]string, len(segments))
	for i, segment := range segments {
		lowered[i] = strings.ToLower(segment)
	}

	for _, contextType := range ContextTypes() {
		dirSet, ok := a.dirSets[contextType]
		if !ok {
			continue
		}
		for _, segment := range lowered {
			if dirSet.Contains(segment) {
				scores[contextType]++
				reasons = append(reasons, fmt.Sprintf("directory %q indicates %s", segment, contextType))
			}
		}
	}

	return
}

func (a *Analyzer) filenameSignal(filename string) (scores map[ContextType]float64, reasons []string) {
	scores = map[ContextType]float64{}

	for _, contextType := range ContextTypes() {
		for _, re := range a.filenameRes[contextType] {
			if re.MatchString(filename) {
				scores[contextType]++
				reasons = append(reasons, fmt.Sprintf("filename %q matches %s pattern", filename, contextType))
				break
			}
		}
	}

	return
}

func (a *Analyzer) contentSignal(content string) (scores map[ContextType]float64, reasons []string) {
	scores = map[ContextType]float64{}

	if len(content) > contentSampleLen {
		content = content[:contentSampleLen]
	}

	for _, contextType := range ContextTypes() {
		for _, re := range a.contentRes[contextType] {
			matches := re.FindAllStringIndex(content, -1)
			if len(matches) > 0 {
				scores[contextType] += float64(len(matches))
				reasons = append(reasons, fmt.Sprintf("content contains %s indicators (%d matches)", contextType, len(matches)))
				break
			}
		}
	}

	return
}
