package progress

import (
	"fmt"
	"io"
	"sync"

	"github.com/vbauerster/mpb/v5"
	"github.com/vbauerster/mpb/v5/decor"
)

type Bar struct {
	barName  string
	progress *Progress
	uiBar    *mpb.Bar
	total    int
	mutex    *sync.Mutex
}

func newBar(progress *Progress, barName string, total int) *Bar {
	return &Bar{
		barName:  barName,
		progress: progress,
		total:    total,
		mutex:    &sync.Mutex{},
	}
}

func (b *Bar) Start() {
	b.mutex.Lock()
	defer b.mutex.Unlock()

	if b.uiBar != nil {
		return
	}

	b.uiBar = b.progress.uiProgress.AddBar(int64(b.total),
		mpb.BarNoPop(),
		mpb.BarRemoveOnComplete(),
		mpb.PrependDecorators(
			decor.Name(b.barName, decor.WC{W: 50, C: decor.DidentRight}),
		),
		mpb.AppendDecorators(
			decor.CountersNoUnit("%d / %d"),
		),
	)
}

func (b *Bar) Incr() {
	b.mutex.Lock()
	defer b.mutex.Unlock()

	b.progress.DisableStdout()

	b.uiBar.Increment()
}

// Finished replaces the bar with a one-line done message.
func (b *Bar) Finished(perensMessage string) {
	b.progress.Add(0, mpb.BarFillerFunc(func(writer io.Writer, width int, st *decor.Statistics) {
		_, _ = fmt.Fprintf(writer, "- %s", b.barName)
		if perensMessage != "" {
			_, _ = fmt.Fprintf(writer, " (%s)", perensMessage)
		}
	})).SetTotal(0, true)
}

func (b *Bar) BustThrough(fnc func()) {
	b.progress.BustThrough(fnc)
}
