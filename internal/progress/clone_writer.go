package progress

import (
	"bytes"
	"context"
	"log"
)

// CloneWriter is an io.Writer for the clone subprocess/transport progress
// stream. Each line is classified by PhaseForCloneLine and reported at most
// once per phase, in increasing percentage order; git rewrites progress lines
// in place with carriage returns, so \r and \n both terminate a line.
type CloneWriter struct {
	ctx         context.Context
	reporter    *Reporter
	buf         bytes.Buffer
	lastPercent int
}

func NewCloneWriter(ctx context.Context, reporter *Reporter) *CloneWriter {
	return &CloneWriter{ctx: ctx, reporter: reporter}
}

func (w *CloneWriter) Write(p []byte) (int, error) {
	for _, b := range p {
		if b == '\n' || b == '\r' {
			w.flushLine()
			continue
		}
		w.buf.WriteByte(b)
	}
	return len(p), nil
}

// Flush reports any trailing unterminated line.
func (w *CloneWriter) Flush() {
	w.flushLine()
}

// LastPercent is the highest percentage reported so far, 0 when none.
func (w *CloneWriter) LastPercent() int {
	return w.lastPercent
}

func (w *CloneWriter) flushLine() {
	line := w.buf.String()
	w.buf.Reset()
	if line == "" {
		return
	}
	phase, ok := PhaseForCloneLine(line)
	if !ok {
		return
	}
	percent, err := Map(phase)
	if err != nil || percent <= w.lastPercent {
		return
	}
	w.lastPercent = percent
	if err := w.reporter.Report(w.ctx, phase); err != nil {
		log.Printf("progress: report clone phase %s: %v", phase, err)
	}
}
