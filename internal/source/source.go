// Package source supplies decoded frame lines to the pipeline, one
// line per telemetry frame, with abstraction for testing.
package source

import (
	"bufio"
	"io"
)

// maxLineBytes bounds one frame line. Dictionary-mode frames run a few
// kilobytes at most; anything bigger is garbage upstream.
const maxLineBytes = 256 * 1024

// Reader yields frame lines in arrival order.
type Reader interface {
	// ReadLine returns the next line without its trailing newline.
	// io.EOF marks the end of the stream.
	ReadLine() (string, error)
}

// Scanner reads newline-delimited frames from an io.Reader (stdin in
// production, fed by the upstream decoder).
type Scanner struct {
	s *bufio.Scanner
}

// NewScanner creates a Scanner over r.
func NewScanner(r io.Reader) *Scanner {
	s := bufio.NewScanner(r)
	s.Buffer(make([]byte, 0, 64*1024), maxLineBytes)
	return &Scanner{s: s}
}

// ReadLine returns the next frame line.
func (sc *Scanner) ReadLine() (string, error) {
	if sc.s.Scan() {
		return sc.s.Text(), nil
	}
	if err := sc.s.Err(); err != nil {
		return "", err
	}
	return "", io.EOF
}
