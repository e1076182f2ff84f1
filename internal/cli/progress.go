package cli

import (
	"fmt"
	"io"
	"log/slog"
	"sync"
	"time"

	"github.com/schollz/progressbar/v3"
)

// BatchOutcome is how one batch item ended.
type BatchOutcome int

// Batch outcomes.
const (
	// BatchSaved means the analysis was accepted and saved.
	BatchSaved BatchOutcome = iota
	// BatchNeedsReview means the item fell back to manual entry and was not saved.
	BatchNeedsReview
	// BatchFailed means the item could not be captured or saved.
	BatchFailed
)

// BatchProgress tracks an unattended batch capture on a progress bar.
type BatchProgress struct {
	start       time.Time
	writer      io.Writer
	bar         *progressbar.ProgressBar
	needsReview []string
	total       int
	saved       int
	failed      int
	mu          sync.Mutex
}

// NewBatchProgress starts a progress bar for total items.
func NewBatchProgress(w io.Writer, total int) *BatchProgress {
	return &BatchProgress{
		start:  time.Now(),
		writer: w,
		total:  total,
		bar: progressbar.NewOptions(total,
			progressbar.OptionSetWriter(w),
			progressbar.OptionEnableColorCodes(true),
			progressbar.OptionShowCount(),
			progressbar.OptionSetWidth(40),
			progressbar.OptionSetDescription("[cyan][bold]Capturing transactions...[reset]"),
			progressbar.OptionSetTheme(progressbar.Theme{
				Saucer:        "[green]=[reset]",
				SaucerHead:    "[green]>[reset]",
				SaucerPadding: " ",
				BarStart:      "[",
				BarEnd:        "]",
			}),
		),
	}
}

// Record counts one finished item.
func (p *BatchProgress) Record(item string, outcome BatchOutcome) {
	p.mu.Lock()
	switch outcome {
	case BatchSaved:
		p.saved++
	case BatchNeedsReview:
		p.needsReview = append(p.needsReview, item)
	case BatchFailed:
		p.failed++
	}
	p.mu.Unlock()

	if err := p.bar.Add(1); err != nil {
		slog.Warn("Failed to update progress bar", "error", err)
	}
}

// Counts returns saved, needs-review and failed totals.
func (p *BatchProgress) Counts() (saved, needsReview, failed int) {
	p.mu.Lock()
	defer p.mu.Unlock()
	return p.saved, len(p.needsReview), p.failed
}

// Finish closes the bar and prints a summary.
func (p *BatchProgress) Finish() {
	if err := p.bar.Finish(); err != nil {
		slog.Warn("Failed to finish progress bar", "error", err)
	}

	p.mu.Lock()
	defer p.mu.Unlock()

	summary := fmt.Sprintf("  • Items: %d\n", p.total) +
		fmt.Sprintf("  • Saved: %d\n", p.saved) +
		fmt.Sprintf("  • Need manual entry: %d\n", len(p.needsReview)) +
		fmt.Sprintf("  • Failed: %d\n", p.failed) +
		fmt.Sprintf("  • Time taken: %s", time.Since(p.start).Round(time.Second))
	for _, item := range p.needsReview {
		summary += "\n    " + SubtleStyle.Render(item)
	}

	if _, err := fmt.Fprintln(p.writer, "\n"+RenderBox("Batch complete", summary)); err != nil {
		slog.Warn("Failed to write batch summary", "error", err)
	}
}
