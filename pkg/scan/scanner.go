package scan

import (
	"bufio"
	"os"
	"path/filepath"
	"strings"
	"sync"
	"time"
	"unicode/utf8"

	"github.com/canarysec/canary-scanner/pkg/codectx"
	"github.com/canarysec/canary-scanner/pkg/entropy"
	"github.com/canarysec/canary-scanner/pkg/errors"
	interactpkg "github.com/canarysec/canary-scanner/pkg/interact"
	"github.com/canarysec/canary-scanner/pkg/logg"
	"github.com/canarysec/canary-scanner/pkg/manip"
	"github.com/canarysec/canary-scanner/pkg/rule"
	"github.com/canarysec/canary-scanner/pkg/validate"

	"github.com/sirsean/go-pool"
)

const (
	maxFileSize = 10 * 1024 * 1024

	// Longest line the reader tolerates before treating the file as
	// non-text (minified bundles, embedded blobs)
	maxLineSize = 1024 * 1024

	contextSampleSize = 2000

	// Kept for the comment heuristic, truncated so findings stay small
	maxLineContentLen = 200
)

type (
	Scanner struct {
		rules       []*rule.Rule
		analyzer    *codectx.Analyzer
		workerCount int
		skipExts    *manip.BasicSet
		skipDirs    *manip.BasicSet
		interact    interactpkg.Interactish
		log         logg.Logg
	}

	// Provenance is attached verbatim to every finding of a scan run
	Provenance struct {
		CommitHash  string
		BranchName  string
		AuthorEmail string
		SourceType  string
	}

	// Run holds the findings and counters of one completed scan
	Run struct {
		Target   string
		Findings []*Finding
		Stats    *Stats
	}
)

func NewScanner(rules []*rule.Rule, analyzer *codectx.Analyzer, workerCount int, interact interactpkg.Interactish,
	log logg.Logg) *Scanner {

	if workerCount < 1 {
		workerCount = 1
	}

	return &Scanner{
		rules:       rules,
		analyzer:    analyzer,
		workerCount: workerCount,
		skipExts: manip.NewBasicSet([]string{
			".pyc", ".pyo", ".class", ".jar", ".exe", ".dll", ".so", ".dylib",
			".bin", ".dat", ".db", ".sqlite", ".pdf", ".doc", ".docx", ".xls",
			".xlsx", ".ppt", ".pptx", ".zip", ".tar", ".gz", ".rar", ".7z",
			".jpg", ".jpeg", ".png", ".gif", ".bmp", ".svg", ".ico", ".mp3",
			".mp4", ".avi", ".mov", ".wav", ".flac", ".ogg", ".woff", ".woff2",
			".ttf", ".eot", ".map", ".lock",
		}),
		skipDirs: manip.NewBasicSet([]string{
			".git", ".svn", ".hg", ".bzr", "node_modules", "__pycache__",
			".pytest_cache", ".coverage", ".tox", ".venv", "venv", "env",
			"dist", "build", ".idea", ".vscode",
		}),
		interact: interact,
		log:      log,
	}
}

// Scan walks the target and emits raw findings. The target may be a
// single file or a directory tree. A scan never aborts because one file
// is unreadable; per-file errors are logged and the scan moves on.
// Finding order is not deterministic when files are scanned
// concurrently.
func (s *Scanner) Scan(target string, prov Provenance) (result *Run, err error) {
	stats := NewStats()
	stats.ScanStartTime = time.Now()

	var info os.FileInfo
	info, err = os.Stat(target)
	if err != nil {
		err = errors.Wrapv(err, "unable to stat scan target", target)
		return
	}

	var findings []*Finding
	if info.IsDir() {
		findings = s.scanDirectory(target, prov, stats)
	} else {
		if s.shouldSkip(target, info) {
			stats.IncrFilesSkipped()
		} else {
			findings = s.scanFileLogged(target, prov, stats)
		}
	}

	stats.ScanEndTime = time.Now()
	stats.AddFindings(int64(len(findings)))

	result = &Run{Target: target, Findings: findings, Stats: stats}
	return
}

func (s *Scanner) scanDirectory(dir string, prov Provenance, stats *Stats) (result []*Finding) {
	paths := s.collectFilePaths(dir, stats)

	sink := &findingSink{}

	p := pool.NewPool(len(paths), s.workerCount)
	p.Start()

	var prog *progressWrapper
	if s.interact != nil {
		prog = newProgressWrapper(s.interact.NewProgress(), filepath.Base(dir), len(paths))
	}

	for _, path := range paths {
		p.Add(newFileWorker(s, path, prov, stats, sink, prog, s.log.WithField("file", path)))
	}

	p.Close()
	if prog != nil {
		prog.Wait()
	}

	result = sink.findings()
	return
}

func (s *Scanner) collectFilePaths(dir string, stats *Stats) (result []string) {
	walkErr := filepath.Walk(dir, func(path string, info os.FileInfo, err error) error {
		if err != nil {
			s.log.WithField("path", path).WithError(err).Warn("unable to access path, skipping")
			return nil
		}

		if info.IsDir() {
			if s.skipDirs.Contains(strings.ToLower(info.Name())) {
				return filepath.SkipDir
			}
			return nil
		}

		if s.shouldSkip(path, info) {
			stats.IncrFilesSkipped()
			return nil
		}

		result = append(result, path)
		return nil
	})
	if walkErr != nil {
		s.log.WithError(walkErr).Warn("directory walk ended early")
	}

	return
}

func (s *Scanner) shouldSkip(path string, info os.FileInfo) bool {
	if s.skipExts.Contains(strings.ToLower(filepath.Ext(path))) {
		return true
	}

	for _, segment := range strings.Split(filepath.ToSlash(path), "/") {
		if s.skipDirs.Contains(strings.ToLower(segment)) {
			return true
		}
	}

	return info.Size() > maxFileSize
}

func (s *Scanner) scanFileLogged(path string, prov Provenance, stats *Stats) (result []*Finding) {
	var err error
	result, err = s.scanFile(path, prov, stats)
	if err != nil {
		errors.ErrLog(s.log.WithField("file", path), err).Warn("unable to scan file, continuing")
	}
	return
}

func (s *Scanner) scanFile(path string, prov Provenance, stats *Stats) (result []*Finding, err error) {
	var file *os.File
	file, err = os.Open(path)
	if err != nil {
		err = errors.Wrapv(err, "unable to open file", path)
		return
	}
	defer file.Close()

	reader := bufio.NewReaderSize(file, 64*1024)

	sample, sampleErr := reader.Peek(contextSampleSize)
	if sampleErr != nil && len(sample) == 0 {
		sample = nil
	}
	if !looksLikeText(sample) {
		// Binary content, skip silently
		return
	}

	contextInfo := s.analyzer.Analyze(path, string(sample))

	stats.IncrFilesScanned()

	lineScanner := bufio.NewScanner(reader)
	lineScanner.Buffer(make([]byte, 64*1024), maxLineSize)

	lineNum := 0
	for lineScanner.Scan() {
		lineNum++
		stats.AddLinesScanned(1)

		line := lineScanner.Text()
		result = append(result, s.scanLine(path, line, lineNum, contextInfo, prov)...)
	}

	if scanErr := lineScanner.Err(); scanErr != nil {
		// Treat unreadable remainder like a decode failure; keep what
		// was already found
		s.log.WithField("file", path).WithError(scanErr).Debug("stopped reading file early")
	}

	return
}

// scanLine tries every rule against one line. First match per rule per
// line wins; separate rules may each contribute a finding.
func (s *Scanner) scanLine(path, line string, lineNum int, contextInfo codectx.ContextInfo,
	prov Provenance) (result []*Finding) {

	for _, r := range s.rules {
		match := r.Pattern.FindString(line)
		if match == "" {
			continue
		}

		entropyScore := entropy.Shannon(match)
		if entropyScore < r.EntropyThreshold {
			continue
		}

		result = append(result, &Finding{
			RuleID:            r.ID,
			Description:       r.Description,
			FilePath:          path,
			LineNumber:        lineNum,
			Confidence:        r.Confidence,
			SecretValue:       match,
			LineContent:       manip.Truncate(line, maxLineContentLen),
			EntropyScore:      entropyScore,
			ContextType:       contextInfo.Type,
			ContextConfidence: contextInfo.Confidence,
			ValidationStatus:  validate.Unvalidated,
			CommitHash:        prov.CommitHash,
			BranchName:        prov.BranchName,
			AuthorEmail:       prov.AuthorEmail,
			SourceType:        prov.SourceType,
		})
	}

	return
}

// Rules exposes the loaded rule list for eligibility decisions made by
// the pipeline.
func (s *Scanner) Rules() []*rule.Rule {
	return s.rules
}

func looksLikeText(sample []byte) bool {
	if len(sample) == 0 {
		return true
	}

	for _, b := range sample {
		if b == 0 {
			return false
		}
	}

	// Tolerate a rune cut off at the end of the sample
	for i := 0; i < 3 && len(sample) > 0; i++ {
		if utf8.Valid(sample) {
			return true
		}
		sample = sample[:len(sample)-1]
	}

	return utf8.Valid(sample)
}

type findingSink struct {
	mutex sync.Mutex
	items []*Finding
}

func (s *findingSink) add(findings []*Finding) {
	if len(findings) == 0 {
		return
	}
	s.mutex.Lock()
	defer s.mutex.Unlock()
	s.items = append(s.items, findings...)
}

func (s *findingSink) findings() []*Finding {
	s.mutex.Lock()
	defer s.mutex.Unlock()
	return s.items
}
