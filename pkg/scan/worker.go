package scan

import (
	"fmt"

	"github.com/canarysec/canary-scanner/pkg/interact/progress"
	"github.com/canarysec/canary-scanner/pkg/logg"
)

// fileWorker scans one file inside the worker pool.
type fileWorker struct {
	scanner *Scanner
	path    string
	prov    Provenance
	stats   *Stats
	sink    *findingSink
	prog    *progressWrapper
	log     logg.Logg
}

func newFileWorker(scanner *Scanner, path string, prov Provenance, stats *Stats, sink *findingSink,
	prog *progressWrapper, log logg.Logg) *fileWorker {

	return &fileWorker{
		scanner: scanner,
		path:    path,
		prov:    prov,
		stats:   stats,
		sink:    sink,
		prog:    prog,
		log:     log,
	}
}

func (w *fileWorker) Perform() {
	findings := w.scanner.scanFileLogged(w.path, w.prov, w.stats)
	w.sink.add(findings)

	if w.prog != nil {
		w.prog.Incr()
	}
}

// progressWrapper hides the nil-progress case from the workers.
type progressWrapper struct {
	prog *progress.Progress
	bar  *progress.Bar
}

func newProgressWrapper(prog *progress.Progress, name string, total int) *progressWrapper {
	if prog == nil || total == 0 {
		return nil
	}

	bar := prog.AddBar(fmt.Sprintf("scanning %s", name), total)
	bar.Start()

	return &progressWrapper{prog: prog, bar: bar}
}

func (p *progressWrapper) Incr() {
	p.bar.Incr()
}

func (p *progressWrapper) Wait() {
	p.bar.Finished("scan complete")
	p.prog.Wait()
}
