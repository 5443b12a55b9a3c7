package interact

import (
	"github.com/canarysec/canary-scanner/pkg/interact/progress"
)

type (
	Interact struct {
		Enabled   bool
		logWriter progress.LogWriter
	}
	Dummy       struct{}
	Interactish interface {
		NewProgress() *progress.Progress
		SpinWhile(message string, fnc func())
	}
)

func New(enabled bool, logWriter progress.LogWriter) *Interact {
	return &Interact{
		Enabled:   enabled,
		logWriter: logWriter,
	}
}

func (f *Interact) NewProgress() *progress.Progress {
	if !f.Enabled {
		return nil
	}
	return progress.New(f.logWriter)
}

// SpinWhile shows a spinner until fnc returns. With interaction
// disabled it just runs fnc.
func (f *Interact) SpinWhile(message string, fnc func()) {
	if !f.Enabled {
		fnc()
		return
	}

	prog := progress.New(f.logWriter)
	spinner := prog.AddSpinner(message)
	fnc()
	spinner.Incr()
	prog.Wait()
}

func (d *Dummy) NewProgress() *progress.Progress {
	return nil
}

func (d *Dummy) SpinWhile(message string, fnc func()) {
	fnc()
}
