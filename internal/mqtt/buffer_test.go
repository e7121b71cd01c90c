package mqtt

import (
	"slices"
	"testing"

	paho "github.com/eclipse/paho.mqtt.golang"
)

func TestOutboxKeepsNewest(t *testing.T) {
	tests := []struct {
		name        string
		limit       int
		add         int
		wantKept    []int
		wantDropped int
	}{
		{"empty", 4, 0, nil, 0},
		{"below limit", 4, 3, []int{0, 1, 2}, 0},
		{"at limit", 4, 4, []int{0, 1, 2, 3}, 0},
		{"over limit", 4, 7, []int{3, 4, 5, 6}, 3},
		{"wraps twice", 3, 10, []int{7, 8, 9}, 7},
		{"no room", 0, 2, nil, 2},
		{"negative limit", -1, 1, nil, 1},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			o := newOutbox[int](tt.limit)
			for i := 0; i < tt.add; i++ {
				o.add(i)
			}
			if o.pending() != len(tt.wantKept) {
				t.Errorf("pending: got %d, want %d", o.pending(), len(tt.wantKept))
			}
			if got := o.take(); !slices.Equal(got, tt.wantKept) {
				t.Errorf("take: got %v, want %v", got, tt.wantKept)
			}
			if o.dropped != tt.wantDropped {
				t.Errorf("dropped: got %d, want %d", o.dropped, tt.wantDropped)
			}
			if o.pending() != 0 {
				t.Errorf("pending after take: got %d", o.pending())
			}
		})
	}
}

func TestOutboxReusableAfterTake(t *testing.T) {
	o := newOutbox[int](3)
	for i := 0; i < 5; i++ {
		o.add(i)
	}
	if !o.warned {
		t.Error("expected overflow warning to be recorded")
	}
	o.take()
	if o.warned {
		t.Error("take should rearm the overflow warning")
	}

	o.add(10)
	o.add(11)
	if got := o.take(); !slices.Equal(got, []int{10, 11}) {
		t.Errorf("second cycle: got %v", got)
	}
	if got := o.take(); got != nil {
		t.Errorf("expected nil from empty outbox, got %v", got)
	}
}

func TestOutboxKeepsMessageFields(t *testing.T) {
	o := newOutbox[message](2)
	o.add(message{
		topic:    SystemTopic("sigtrack"),
		payload:  []byte(`{"status":{}}`),
		qos:      1,
		retained: true,
	})

	got := o.take()
	if len(got) != 1 {
		t.Fatalf("expected 1 message, got %d", len(got))
	}
	m := got[0]
	if m.topic != "sigtrack/system" || string(m.payload) != `{"status":{}}` || m.qos != 1 || !m.retained {
		t.Errorf("unexpected message: %+v", m)
	}
}

type recorder struct {
	sent []string
}

func (r *recorder) send(m message) paho.Token {
	r.sent = append(r.sent, m.topic)
	return nil
}

func always() bool { return true }

func TestGateQueuesUntilReplayed(t *testing.T) {
	g := newGate(8)
	var r recorder

	for _, topic := range []string{"a", "b"} {
		if _, sent := g.submit(message{topic: topic}, always, r.send); sent {
			t.Fatalf("%s: sent before the gate opened", topic)
		}
	}
	if n := g.replay(func(m message) { r.send(m) }); n != 2 {
		t.Errorf("replayed: got %d, want 2", n)
	}
	if _, sent := g.submit(message{topic: "c"}, always, r.send); !sent {
		t.Error("expected c to go straight out once open")
	}
	if !slices.Equal(r.sent, []string{"a", "b", "c"}) {
		t.Errorf("order: got %v", r.sent)
	}
}

func TestGateKeepsOrderWhenPublishingDuringReplay(t *testing.T) {
	g := newGate(8)
	var r recorder
	for _, topic := range []string{"1", "2", "3"} {
		g.submit(message{topic: topic}, always, r.send)
	}

	// The run loop publishes while the first replayed message is in flight.
	injected := false
	n := g.replay(func(m message) {
		r.send(m)
		if !injected {
			injected = true
			if _, sent := g.submit(message{topic: "4"}, always, r.send); sent {
				t.Error("message published during replay overtook the outbox")
			}
		}
	})

	if n != 4 {
		t.Errorf("replayed: got %d, want 4", n)
	}
	if !slices.Equal(r.sent, []string{"1", "2", "3", "4"}) {
		t.Errorf("order: got %v", r.sent)
	}
	if pending, _ := g.counts(); pending != 0 {
		t.Errorf("pending after replay: got %d", pending)
	}
}

func TestGateQueuesWhenLinkIsDown(t *testing.T) {
	g := newGate(1)
	g.replay(func(message) {})
	var r recorder

	down := func() bool { return false }
	g.submit(message{topic: "x"}, down, r.send)
	g.submit(message{topic: "y"}, down, r.send)
	if len(r.sent) != 0 {
		t.Errorf("sent while down: %v", r.sent)
	}
	if pending, dropped := g.counts(); pending != 1 || dropped != 1 {
		t.Errorf("counts: got pending=%d dropped=%d, want 1/1", pending, dropped)
	}

	g.shut()
	if _, sent := g.submit(message{topic: "z"}, always, r.send); sent {
		t.Error("shut gate should queue even if the client reports a link")
	}
}
