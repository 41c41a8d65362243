// Package stream provides the shared plumbing for the pipeline stages:
// buffered line scanning with position tracking, buffered line emission,
// and the per-record error policy (skip-with-diagnostic or strict abort).
package stream

import (
	"bufio"
	"errors"
	"io"
	"log/slog"

	pkgerrors "github.com/cjdd3b/car-datascience-toolkit/pkg/errors"
	"github.com/cjdd3b/car-datascience-toolkit/pkg/metrics"
)

// maxLineSize bounds a single input line. Documents arrive one per line, so
// this is effectively the maximum document size.
const maxLineSize = 16 * 1024 * 1024

// Scanner reads newline-delimited records and tracks the 1-based line
// number for diagnostics.
type Scanner struct {
	s    *bufio.Scanner
	line int64
}

func NewScanner(r io.Reader) *Scanner {
	s := bufio.NewScanner(r)
	s.Buffer(make([]byte, 0, 64*1024), maxLineSize)
	return &Scanner{s: s}
}

func (s *Scanner) Scan() bool {
	if !s.s.Scan() {
		return false
	}
	s.line++
	return true
}

func (s *Scanner) Text() string { return s.s.Text() }

// Line returns the line number of the record most recently returned by Scan.
func (s *Scanner) Line() int64 { return s.line }

func (s *Scanner) Err() error { return s.s.Err() }

// Writer emits newline-terminated records through a buffered writer. The
// buffer must be flushed before the stage exits.
type Writer struct {
	w *bufio.Writer
}

func NewWriter(w io.Writer) *Writer {
	return &Writer{w: bufio.NewWriterSize(w, 64*1024)}
}

func (w *Writer) WriteLine(line string) error {
	if _, err := w.w.WriteString(line); err != nil {
		return err
	}
	return w.w.WriteByte('\n')
}

func (w *Writer) WriteRecord(r interface{ Format() string }) error {
	return w.WriteLine(r.Format())
}

func (w *Writer) Flush() error { return w.w.Flush() }

// Policy decides what happens when a stage hits a bad input record. The
// default is skip-and-continue so one bad line does not halt a large
// corpus; strict mode aborts the stream instead.
type Policy struct {
	Stage   string
	Strict  bool
	Logger  *slog.Logger
	Metrics *metrics.Metrics
}

// HandleRecordError deals with an error raised by a single input record.
// It returns nil when the stage should skip the record and continue, or
// the error when the stage must abort. Errors that do not concern a single
// record (configuration mismatches, write failures) always abort.
func (p Policy) HandleRecordError(err error, line int64) error {
	if err == nil {
		return nil
	}
	if !pkgerrors.IsRecordError(err) {
		return err
	}
	if p.Strict {
		if se, ok := err.(*pkgerrors.StageError); ok {
			return se.AtLine(line)
		}
		return err
	}
	if p.Logger != nil {
		p.Logger.Warn("skipping bad record", "line", line, "error", err)
	}
	if p.Metrics != nil {
		p.Metrics.RecordsSkippedTotal.WithLabelValues(p.Stage, reason(err)).Inc()
	}
	return nil
}

// CountIn increments the stage's input-record counter.
func (p Policy) CountIn() {
	if p.Metrics != nil {
		p.Metrics.RecordsInTotal.WithLabelValues(p.Stage).Inc()
	}
}

// CountOut increments the stage's output-record counter by n.
func (p Policy) CountOut(n int) {
	if p.Metrics != nil {
		p.Metrics.RecordsOutTotal.WithLabelValues(p.Stage).Add(float64(n))
	}
}

// CountGroup increments the stage's flushed-group counter.
func (p Policy) CountGroup() {
	if p.Metrics != nil {
		p.Metrics.GroupsFlushedTotal.WithLabelValues(p.Stage).Inc()
	}
}

func reason(err error) string {
	if errors.Is(err, pkgerrors.ErrEmptyDocument) {
		return "empty_document"
	}
	return "malformed"
}
