package mqtt

// FakePublisher records published batches for test assertions.
type FakePublisher struct {
	// Topics expands batches into messages, mirroring the real
	// publisher's emissions.
	Topics Topics

	// Batches contains all signal batches that were published.
	Batches []Batch

	// Messages contains the per-topic emissions of every batch, in order.
	Messages []Message

	// SystemEvents contains all lifecycle events that were published.
	SystemEvents []SystemEvent

	// PublishError, if set, will be returned by PublishBatch.
	PublishError error

	// PublishSystemError, if set, will be returned by PublishSystem.
	PublishSystemError error

	// Closed tracks if Close was called.
	Closed bool

	// Connected controls the return value of IsConnected.
	Connected bool
}

// NewFakePublisher creates a FakePublisher for testing.
func NewFakePublisher() *FakePublisher {
	return &FakePublisher{Topics: DefaultTopics("")}
}

// PublishBatch records the batch and its expanded messages.
func (f *FakePublisher) PublishBatch(b Batch) error {
	if f.PublishError != nil {
		return f.PublishError
	}
	f.Batches = append(f.Batches, b)
	f.Messages = append(f.Messages, f.Topics.Messages(b)...)
	return nil
}

// PublishSystem records the lifecycle event.
func (f *FakePublisher) PublishSystem(event SystemEvent) error {
	if f.PublishSystemError != nil {
		return f.PublishSystemError
	}
	f.SystemEvents = append(f.SystemEvents, event)
	return nil
}

// Close marks the publisher as closed.
func (f *FakePublisher) Close() error {
	f.Closed = true
	return nil
}

// IsConnected reports whether the fake publisher is "connected".
func (f *FakePublisher) IsConnected() bool {
	return f.Connected
}

// Reset clears recorded events.
func (f *FakePublisher) Reset() {
	f.Batches = nil
	f.Messages = nil
	f.SystemEvents = nil
	f.Closed = false
	f.PublishError = nil
	f.PublishSystemError = nil
	f.Connected = false
}
