package source

import "io"

// FakeReader replays a fixed sequence of lines, then reports io.EOF.
type FakeReader struct {
	lines []string
	pos   int
}

// NewFakeReader creates a FakeReader over the given lines.
func NewFakeReader(lines []string) *FakeReader {
	return &FakeReader{lines: lines}
}

// ReadLine returns the next canned line.
func (f *FakeReader) ReadLine() (string, error) {
	if f.pos >= len(f.lines) {
		return "", io.EOF
	}
	line := f.lines[f.pos]
	f.pos++
	return line, nil
}
