package main

import (
	"fmt"
	"io"
	"strings"

	"github.com/ZebulonRouseFrantzich/prokit/internal/install"
)

const defaultBarWidth = 30

// event is one status update passed from the install worker to the
// rendering goroutine.
type event struct {
	stage    install.Stage
	message  string
	link     string
	percent  int
	progress bool
}

// renderer prints events as status lines and a single-line progress bar.
type renderer struct {
	out      io.Writer
	barWidth int
	inBar    bool
}

func newRenderer(out io.Writer) *renderer {
	return &renderer{out: out, barWidth: defaultBarWidth}
}

func (r *renderer) handle(ev event) {
	switch {
	case ev.progress:
		fmt.Fprintf(r.out, "\r%s", barStyle.Render(progressBar(ev.percent, r.barWidth)))
		r.inBar = ev.percent < 100
		if !r.inBar {
			fmt.Fprintln(r.out)
		}
	case ev.link != "":
		r.endBar()
		fmt.Fprintln(r.out, infoStyle.Render("Authorize this install in your browser:"))
		fmt.Fprintf(r.out, "  %s\n", ev.link)
	default:
		r.endBar()
		fmt.Fprintln(r.out, stageLine(ev.stage, ev.message))
	}
}

// endBar moves off an unfinished progress line.
func (r *renderer) endBar() {
	if r.inBar {
		fmt.Fprintln(r.out)
		r.inBar = false
	}
}

func stageLine(stage install.Stage, message string) string {
	switch stage {
	case install.StageComplete:
		return successStyle.Render("✓ " + message)
	case install.StageFailed:
		return errorStyle.Render("✗ " + message)
	case install.StageCancelled:
		return warningStyle.Render("! " + message)
	default:
		return infoStyle.Render("•") + " " + message
	}
}

// progressBar renders percent (clamped to 0..100) as a fixed-width bar.
func progressBar(percent, width int) string {
	if percent < 0 {
		percent = 0
	}
	if percent > 100 {
		percent = 100
	}
	if width < 1 {
		width = defaultBarWidth
	}

	filled := percent * width / 100
	return fmt.Sprintf("[%s%s] %3d%%",
		strings.Repeat("#", filled),
		strings.Repeat("-", width-filled),
		percent)
}

// formatBytes renders n in binary units, e.g. "12.3 MiB".
func formatBytes(n uint64) string {
	const unit = 1024
	if n < unit {
		return fmt.Sprintf("%d B", n)
	}
	div, exp := uint64(unit), 0
	for m := n / unit; m >= unit; m /= unit {
		div *= unit
		exp++
	}
	return fmt.Sprintf("%.1f %ciB", float64(n)/float64(div), "KMGTPE"[exp])
}
