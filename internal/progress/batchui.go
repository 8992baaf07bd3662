package progress

import (
	"fmt"
	"io"
	"os"
	"path/filepath"
	"strings"
	"sync/atomic"
	"time"

	"github.com/vbauerster/mpb/v8"
	"github.com/vbauerster/mpb/v8/decor"
	"golang.org/x/term"
)

// BatchUI manages multiple item progress bars during batch acquisition.
// On a TTY it renders mpb bars; otherwise it falls back to line output.
type BatchUI struct {
	progress   *mpb.Progress
	isTerminal bool
	totalItems int
	completed  int32
}

// ItemBar tracks a single submission item within a BatchUI.
type ItemBar struct {
	bar       *mpb.Bar
	ui        *BatchUI
	index     int
	name      string
	size      int64
	startTime time.Time
}

// NewBatchUI creates a batch progress UI for the given number of items.
func NewBatchUI(totalItems int) *BatchUI {
	isTerminal := term.IsTerminal(int(os.Stderr.Fd()))

	var p *mpb.Progress
	if isTerminal {
		p = mpb.New(
			mpb.WithOutput(os.Stderr),
			mpb.WithRefreshRate(300*time.Millisecond),
			mpb.WithWidth(100),
		)
	} else {
		p = mpb.New(mpb.WithOutput(io.Discard))
	}

	return &BatchUI{
		progress:   p,
		isTerminal: isTerminal,
		totalItems: totalItems,
	}
}

// AddItem creates a progress bar for one item. size may be zero when the
// content length is not known up front.
func (u *BatchUI) AddItem(index int, name string, size int64) *ItemBar {
	ib := &ItemBar{
		ui:        u,
		index:     index,
		name:      name,
		size:      size,
		startTime: time.Now(),
	}

	if u.isTerminal {
		ib.bar = u.progress.New(size,
			mpb.BarStyle().
				Lbound("[").
				Filler("█").
				Tip("█").
				Padding("░").
				Rbound("]"),
			mpb.PrependDecorators(
				decor.Any(func(s decor.Statistics) string {
					return fmt.Sprintf("[%d/%d] %s", ib.index, u.totalItems, shortName(name, 40))
				}, decor.WCSyncSpace),
			),
			mpb.AppendDecorators(
				decor.CountersKibiByte("% .1f / % .1f", decor.WCSyncSpace),
				decor.Name("  "),
				decor.Percentage(decor.WCSyncSpace),
			),
			mpb.BarRemoveOnComplete(),
		)
	} else {
		fmt.Fprintf(os.Stderr, "[%d/%d] %s\n", index, u.totalItems, name)
	}

	return ib
}

// SetCurrent updates the byte count for the item.
func (b *ItemBar) SetCurrent(current int64) {
	if b.bar != nil {
		b.bar.SetCurrent(current)
	}
}

// SetTotal adjusts the total once the content length becomes known.
func (b *ItemBar) SetTotal(total int64) {
	b.size = total
	if b.bar != nil {
		b.bar.SetTotal(total, false)
	}
}

// Complete marks the item finished or failed and prints a summary line.
func (b *ItemBar) Complete(err error) {
	elapsed := time.Since(b.startTime)

	var msg string
	if err == nil {
		if b.bar != nil {
			b.bar.SetCurrent(b.size)
			b.bar.SetTotal(b.size, true)
		}
		msg = fmt.Sprintf("✓ %s (%.1f MiB, %s)\n",
			b.name, float64(b.size)/(1024*1024), elapsed.Round(time.Second))
	} else {
		if b.bar != nil {
			b.bar.Abort(false)
		}
		msg = fmt.Sprintf("✗ %s: %v\n", b.name, err)
	}

	if b.ui.isTerminal && b.ui.progress != nil {
		b.ui.progress.Write([]byte(msg))
	} else {
		fmt.Fprint(os.Stderr, msg)
	}

	atomic.AddInt32(&b.ui.completed, 1)
}

// Wait blocks until all bars have finished rendering.
func (u *BatchUI) Wait() {
	if u.progress != nil {
		u.progress.Wait()
	}
}

// LogWriter returns a writer that prints above the bars without corrupting
// the terminal.
func (u *BatchUI) LogWriter() io.Writer {
	if u.progress != nil && u.isTerminal {
		return u.progress
	}
	return os.Stderr
}

// Completed returns how many items have finished, including failures.
func (u *BatchUI) Completed() int {
	return int(atomic.LoadInt32(&u.completed))
}

func shortName(name string, max int) string {
	base := filepath.Base(name)
	if len(base) <= max {
		return base
	}
	ext := filepath.Ext(base)
	keep := max - len(ext) - 1
	if keep < 1 {
		return base[:max]
	}
	return strings.TrimSpace(base[:keep]) + "…" + ext
}
