package mqtt

import (
	"github.com/sweeney/sigtrack/internal/logic"
)

// FakePublisher records what the daemon would have sent to the broker.
// The exported fields are read by tests after the publishing goroutine has
// stopped; it is not safe for concurrent use.
type FakePublisher struct {
	Prefix string

	Events         []logic.Event
	Payloads       [][]byte
	SystemEvents   []SystemEvent
	SystemPayloads [][]byte

	// Topics lists the topic of every recorded message, tracker and system
	// alike, in publish order.
	Topics []string

	PublishError       error
	PublishSystemError error

	Closed    bool
	Connected bool

	// Queued and Discarded are reported as the outbox depth and drop count.
	Queued    int
	Discarded int
}

// NewFakePublisher returns a FakePublisher using the default topic prefix.
func NewFakePublisher() *FakePublisher {
	return &FakePublisher{Prefix: "sigtrack"}
}

// Publish formats and records a tracker event unless PublishError is set.
func (f *FakePublisher) Publish(event logic.Event) error {
	if f.PublishError != nil {
		return f.PublishError
	}
	payload, err := FormatPayload(event)
	if err != nil {
		return err
	}
	f.Events = append(f.Events, event)
	f.Payloads = append(f.Payloads, payload)
	f.Topics = append(f.Topics, EventsTopic(f.Prefix))
	return nil
}

// PublishSystem formats and records a lifecycle event unless
// PublishSystemError is set.
func (f *FakePublisher) PublishSystem(event SystemEvent) error {
	if f.PublishSystemError != nil {
		return f.PublishSystemError
	}
	payload, err := FormatSystemPayload(event)
	if err != nil {
		return err
	}
	f.SystemEvents = append(f.SystemEvents, event)
	f.SystemPayloads = append(f.SystemPayloads, payload)
	f.Topics = append(f.Topics, SystemTopic(f.Prefix))
	return nil
}

// EventsFor returns the recorded events of one tracker.
func (f *FakePublisher) EventsFor(tracker string) []logic.Event {
	var out []logic.Event
	for _, e := range f.Events {
		if e.Tracker == tracker {
			out = append(out, e)
		}
	}
	return out
}

func (f *FakePublisher) Close() error {
	f.Closed = true
	return nil
}

func (f *FakePublisher) IsConnected() bool { return f.Connected }

func (f *FakePublisher) Buffered() int { return f.Queued }

func (f *FakePublisher) Dropped() int { return f.Discarded }

// Reset drops everything recorded and clears injected errors and flags.
func (f *FakePublisher) Reset() {
	*f = FakePublisher{Prefix: f.Prefix}
}
