package cli

import (
	"fmt"
	"io"
	"os"
	"sync"
	"time"

	"github.com/dustin/go-humanize"
)

// Progress renders the running record count of the batch being extracted.
// Updates closer together than the refresh interval are coalesced.
type Progress struct {
	mu       sync.Mutex
	writer   io.Writer
	interval time.Duration
	now      func() time.Time

	started  time.Time
	rendered time.Time
	batch    int
	written  int
	total    int
}

// NewProgress creates a progress line that writes to w.
// If w is nil, it defaults to os.Stderr.
func NewProgress(w io.Writer) *Progress {
	if w == nil {
		w = os.Stderr
	}
	return &Progress{
		writer:   w,
		interval: 200 * time.Millisecond,
		now:      time.Now,
	}
}

// Update records that written records of batch seq are on disk. A new
// sequence number folds the previous batch into the total.
func (p *Progress) Update(seq, written int) {
	p.mu.Lock()
	defer p.mu.Unlock()

	now := p.now()
	if p.started.IsZero() {
		p.started = now
	}
	if seq != p.batch {
		p.total += p.written
		p.batch, p.written = seq, 0
	}
	p.written = written

	if now.Sub(p.rendered) < p.interval {
		return
	}
	p.rendered = now
	p.render(now)
}

// Finish prints the final line and a newline.
func (p *Progress) Finish() {
	p.mu.Lock()
	defer p.mu.Unlock()

	if p.started.IsZero() {
		return
	}
	p.render(p.now())
	fmt.Fprintln(p.writer)
}

func (p *Progress) render(now time.Time) {
	records := p.total + p.written
	rate := 0.0
	if elapsed := now.Sub(p.started).Seconds(); elapsed > 0 {
		rate = float64(records) / elapsed
	}
	fmt.Fprintf(p.writer, "\rbatch %d: %s records (%s total, %s/s)",
		p.batch,
		humanize.Comma(int64(p.written)),
		humanize.Comma(int64(records)),
		humanize.SIWithDigits(rate, 1, ""),
	)
}
