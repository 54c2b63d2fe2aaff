package relay

// FakeRelay records relayed lines for test assertions.
type FakeRelay struct {
	// Lines contains every relayed line, in order.
	Lines [][]byte

	// SendError, if set, will be returned by Send.
	SendError error

	// Closed tracks if Close was called.
	Closed bool
}

// NewFakeRelay creates a FakeRelay for testing.
func NewFakeRelay() *FakeRelay {
	return &FakeRelay{}
}

// Send records the line.
func (f *FakeRelay) Send(line []byte) error {
	if f.SendError != nil {
		return f.SendError
	}
	cp := make([]byte, len(line))
	copy(cp, line)
	f.Lines = append(f.Lines, cp)
	return nil
}

// Close marks the relay as closed.
func (f *FakeRelay) Close() error {
	f.Closed = true
	return nil
}
