package cli

import (
	"fmt"
	"io"
	"math"
	"os"
	"time"

	"golang.org/x/term"

	"github.com/user-none/opn2/ui"
)

// progressInterval throttles progress line updates.
const progressInterval = 100 * time.Millisecond

// Progress prints a one-line status to a terminal. It stays silent when the
// output is not a terminal.
type Progress struct {
	w       io.Writer
	enabled bool
	rate    int
	total   uint64
	last    time.Time
}

// NewProgress reports on f for output at rate with total frames expected
// (0 if unknown).
func NewProgress(f *os.File, rate int, total uint64) *Progress {
	return newProgress(f, term.IsTerminal(int(f.Fd())), rate, total)
}

func newProgress(w io.Writer, enabled bool, rate int, total uint64) *Progress {
	return &Progress{w: w, enabled: enabled, rate: rate, total: total}
}

// Update redraws the line from the shared meter, at most every
// progressInterval.
func (p *Progress) Update(level *ui.SharedLevel) {
	if !p.enabled || time.Since(p.last) < progressInterval {
		return
	}
	p.last = time.Now()
	p.draw(level)
}

func (p *Progress) draw(level *ui.SharedLevel) {
	peakL, peakR, frames := level.Read()
	pos := fmt.Sprintf("%7.1fs", float64(frames)/float64(p.rate))
	if p.total > 0 {
		pos += fmt.Sprintf(" / %.1fs", float64(p.total)/float64(p.rate))
	}
	fmt.Fprintf(p.w, "\r%s  L %s  R %s ", pos, dBFS(peakL), dBFS(peakR))
}

// Finish ends the progress line.
func (p *Progress) Finish(level *ui.SharedLevel) {
	if !p.enabled {
		return
	}
	p.draw(level)
	fmt.Fprintln(p.w)
}

// dBFS formats a peak as decibels relative to full scale.
func dBFS(peak int16) string {
	if peak <= 0 {
		return "  -inf dBFS"
	}
	return fmt.Sprintf("%6.1f dBFS", 20*math.Log10(float64(peak)/32768))
}
