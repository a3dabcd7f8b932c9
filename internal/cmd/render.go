package cmd

import (
	"fmt"
	"io"
	"strings"

	"github.com/adamancini/betterfox-updater/internal/output"
	"github.com/adamancini/betterfox-updater/internal/workflow"
)

// renderer prints workflow events for a terminal or a log.
type renderer struct {
	w        io.Writer
	color    bool
	tty      bool
	quiet    bool
	verbose  bool
	progress *output.Progress
}

func newRenderer(w io.Writer, color, tty, quiet, verbose bool) *renderer {
	return &renderer{w: w, color: color, tty: tty, quiet: quiet, verbose: verbose}
}

func (r *renderer) handle(e workflow.Event) {
	switch e.Kind {
	case workflow.KindLog:
		if r.quiet && !strings.HasPrefix(e.Message, workflow.MarkErr) {
			return
		}
		r.endProgress()
		_, _ = fmt.Fprintln(r.w, output.LogLine(e.Message, r.color))
	case workflow.KindProgress:
		if r.quiet {
			return
		}
		if r.progress == nil {
			r.progress = output.NewProgress(r.w, r.tty, "Downloading")
		}
		r.progress.Add(e.Bytes, e.Total)
	case workflow.KindStatus:
		if r.verbose {
			r.endProgress()
			_, _ = fmt.Fprintf(r.w, "%s %s\n", output.Status(e.Status, r.color), e.Phase)
		}
	}
}

func (r *renderer) endProgress() {
	if r.progress != nil {
		r.progress.Done()
		r.progress = nil
	}
}

func (r *renderer) finish() {
	r.endProgress()
}
