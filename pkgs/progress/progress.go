// Package progress renders download progress events as a terminal
// progress bar.
package progress

import (
	"io"
	"os"
	"sync"

	"github.com/pterm/pterm"

	"github.com/emx-mail/attachfetch/pkgs/event"
)

// Bar is an event.Sink drawing one step per processed message.
type Bar struct {
	mu    sync.Mutex
	pb    *pterm.ProgressbarPrinter
	out   io.Writer
	total int
	done  int
	files int
}

// NewBar returns a Bar writing to stderr. The bar appears on the first
// searching event.
func NewBar() *Bar {
	return NewBarWriter(os.Stderr)
}

// NewBarWriter returns a Bar writing to w.
func NewBarWriter(w io.Writer) *Bar {
	return &Bar{out: w}
}

// Emit implements event.Sink.
func (b *Bar) Emit(p event.Progress) {
	b.mu.Lock()
	defer b.mu.Unlock()

	switch p.Status {
	case event.StatusSearching:
		b.total = p.Total
		if p.Total == 0 {
			return
		}
		pb, err := pterm.DefaultProgressbar.
			WithTotal(p.Total).
			WithTitle("Downloading attachments").
			WithWriter(b.out).
			Start()
		if err == nil {
			b.pb = pb
		}

	case event.StatusDownloading:
		b.files++
		if b.pb == nil {
			return
		}
		if p.Filename != "" {
			title := p.Filename
			if len(title) > 40 {
				title = title[:37] + "..."
			}
			b.pb.UpdateTitle("Saved " + title)
		}
		if p.Current > b.done {
			b.pb.Add(p.Current - b.done)
			b.done = p.Current
		}
	}
}

// Files returns the number of attachments reported so far.
func (b *Bar) Files() int {
	b.mu.Lock()
	defer b.mu.Unlock()
	return b.files
}

// Stop completes and removes the bar.
func (b *Bar) Stop() {
	b.mu.Lock()
	defer b.mu.Unlock()
	if b.pb == nil {
		return
	}
	if b.done < b.total {
		b.pb.Add(b.total - b.done)
		b.done = b.total
	}
	b.pb.Stop()
	b.pb = nil
}
