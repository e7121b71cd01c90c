package web

import (
	"context"
	"encoding/json"
	"io"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/prometheus/common/expfmt"

	"github.com/sweeney/sigtrack/internal/logic"
	"github.com/sweeney/sigtrack/internal/mqtt"
	"github.com/sweeney/sigtrack/internal/status"
	"github.com/sweeney/sigtrack/internal/stream"
	"github.com/sweeney/sigtrack/pkg/tracker"
)

func newTestServer(t *testing.T) (*httptest.Server, *status.Tracker) {
	t.Helper()
	start := time.Date(2026, 1, 1, 0, 0, 0, 0, time.UTC)
	cfg := status.Config{
		SourceType:  "fake",
		Source:      "bench supply",
		Unit:        "ms",
		PollMs:      100,
		FrameSize:   10,
		HeartbeatMs: 900000,
		Broker:      "tcp://192.168.1.200:1883",
		Topic:       "sigtrack",
		HTTPAddr:    ":8080",
	}
	tr := status.NewTracker(start, cfg)
	srv := New(":0", tr)
	ts := httptest.NewServer(srv.Handler())
	t.Cleanup(ts.Close)
	return ts, tr
}

// attach gives the tracker a live stream and a connected broker link.
func attach(tr *status.Tracker) (*stream.Stream, *mqtt.FakePublisher) {
	src := stream.New("bench supply", 10, 100*time.Millisecond, tracker.Millisecond)
	tr.SetSource(src)
	link := mqtt.NewFakePublisher()
	link.Connected = true
	tr.SetLink(link)
	return src, link
}

func sampleStates() []logic.TrackerState {
	return []logic.TrackerState{
		{Name: "level", Kind: logic.KindChange, Phase: "idle", Last: 12.5, Events: 5},
		{Name: "comfort", Kind: logic.KindRange, Phase: "pending", Last: 1, Events: 2},
	}
}

func get(t *testing.T, url string) (*http.Response, string) {
	t.Helper()
	resp, err := http.Get(url)
	if err != nil {
		t.Fatalf("GET %s: %v", url, err)
	}
	defer resp.Body.Close()
	body, err := io.ReadAll(resp.Body)
	if err != nil {
		t.Fatalf("read body: %v", err)
	}
	return resp, string(body)
}

func TestJSONEndpoint(t *testing.T) {
	ts, tr := newTestServer(t)
	tr.Update(sampleStates(), true, 4, logic.EventCounts{logic.EventChange: 5, logic.EventRangeEnter: 2})
	_, link := attach(tr)
	link.Queued, link.Discarded = 2, 7

	resp, body := get(t, ts.URL+"/index.json")
	if resp.StatusCode != 200 {
		t.Errorf("status: got %d, want 200", resp.StatusCode)
	}
	if ct := resp.Header.Get("Content-Type"); ct != "application/json" {
		t.Errorf("Content-Type: got %q, want application/json", ct)
	}

	var sj status.StatusJSON
	if err := json.Unmarshal([]byte(body), &sj); err != nil {
		t.Fatalf("decode JSON: %v", err)
	}
	if !sj.Status.Ready {
		t.Error("expected Ready=true")
	}
	if !sj.Status.MQTT.Connected {
		t.Error("expected MQTT.Connected=true")
	}
	if sj.Status.MQTT.Pending != 2 || sj.Status.MQTT.Dropped != 7 {
		t.Errorf("MQTT outbox: got %d pending, %d dropped", sj.Status.MQTT.Pending, sj.Status.MQTT.Dropped)
	}
	if sj.Status.Source.Observers != 1 {
		t.Errorf("Source.Observers: got %d, want 1", sj.Status.Source.Observers)
	}
	if sj.Status.MQTT.Broker != "tcp://192.168.1.200:1883" {
		t.Errorf("MQTT.Broker: got %q", sj.Status.MQTT.Broker)
	}
	if sj.Status.Counts["CHANGE"] != 5 {
		t.Errorf("Counts[CHANGE]: got %d, want 5", sj.Status.Counts["CHANGE"])
	}
	if len(sj.Status.Trackers) != 2 {
		t.Errorf("Trackers: got %d, want 2", len(sj.Status.Trackers))
	}
	if sj.Status.Config.PollMs != 100 {
		t.Errorf("Config.PollMs: got %d, want 100", sj.Status.Config.PollMs)
	}
}

func TestTrackerEndpoint(t *testing.T) {
	ts, tr := newTestServer(t)
	tr.Update(sampleStates(), true, 4, nil)

	for _, path := range []string{"/trackers/comfort", "/trackers/comfort.json"} {
		resp, body := get(t, ts.URL+path)
		if resp.StatusCode != 200 {
			t.Fatalf("%s: status %d", path, resp.StatusCode)
		}
		var tj status.TrackerJSON
		if err := json.Unmarshal([]byte(body), &tj); err != nil {
			t.Fatalf("%s: decode JSON: %v", path, err)
		}
		if tj.Name != "comfort" || tj.Kind != "range" || tj.Phase != "pending" || tj.Events != 2 {
			t.Errorf("%s: got %+v", path, tj)
		}
	}

	resp, _ := get(t, ts.URL+"/trackers/nope")
	if resp.StatusCode != 404 {
		t.Errorf("unknown tracker: got %d, want 404", resp.StatusCode)
	}
}

func TestHTMLEndpointRoot(t *testing.T) {
	ts, tr := newTestServer(t)
	tr.Update(sampleStates(), true, 4, logic.EventCounts{logic.EventChange: 5})
	src, _ := attach(tr)
	src.Push(12.5, time.Now())

	resp, body := get(t, ts.URL+"/")
	if resp.StatusCode != 200 {
		t.Errorf("status: got %d, want 200", resp.StatusCode)
	}
	ct := resp.Header.Get("Content-Type")
	if !strings.HasPrefix(ct, "text/html") {
		t.Errorf("Content-Type: got %q, want text/html", ct)
	}
	for _, want := range []string{"bench supply", `href="/trackers/level"`, "12.5", "CHANGE", "10 x 100ms"} {
		if !strings.Contains(body, want) {
			t.Errorf("page missing %q", want)
		}
	}
}

func TestHTMLEndpointIndexHTML(t *testing.T) {
	ts, _ := newTestServer(t)

	resp, body := get(t, ts.URL+"/index.html")
	if resp.StatusCode != 200 {
		t.Errorf("status: got %d, want 200", resp.StatusCode)
	}
	if !strings.Contains(body, "no trackers configured") {
		t.Error("expected empty tracker table")
	}
}

func TestNotFoundForUnknownPath(t *testing.T) {
	ts, _ := newTestServer(t)

	resp, _ := get(t, ts.URL+"/nonexistent")
	if resp.StatusCode != 404 {
		t.Errorf("status: got %d, want 404", resp.StatusCode)
	}
}

func TestMetricsEndpoint(t *testing.T) {
	ts, tr := newTestServer(t)
	tr.Update(sampleStates(), true, 4, logic.EventCounts{logic.EventChange: 5, logic.EventRangeEnter: 2})
	src, link := attach(tr)
	src.Push(3.25, time.Now())
	link.Queued, link.Discarded = 3, 9

	resp, body := get(t, ts.URL+"/metrics")
	if resp.StatusCode != 200 {
		t.Fatalf("status: got %d, want 200", resp.StatusCode)
	}

	var parser expfmt.TextParser
	mfs, err := parser.TextToMetricFamilies(strings.NewReader(body))
	if err != nil {
		t.Fatalf("metrics do not parse: %v\n%s", err, body)
	}

	if got := mfs["sigtrack_frames_total"].GetMetric()[0].GetGauge().GetValue(); got != 4 {
		t.Errorf("frames: got %v, want 4", got)
	}
	if got := mfs["sigtrack_mqtt_connected"].GetMetric()[0].GetGauge().GetValue(); got != 1 {
		t.Errorf("mqtt_connected: got %v, want 1", got)
	}
	if got := mfs["sigtrack_source_last_value"].GetMetric()[0].GetGauge().GetValue(); got != 3.25 {
		t.Errorf("source_last_value: got %v, want 3.25", got)
	}

	if got := mfs["sigtrack_mqtt_outbox_pending"].GetMetric()[0].GetGauge().GetValue(); got != 3 {
		t.Errorf("mqtt_outbox_pending: got %v, want 3", got)
	}
	if got := mfs["sigtrack_mqtt_dropped_total"].GetMetric()[0].GetCounter().GetValue(); got != 9 {
		t.Errorf("mqtt_dropped_total: got %v, want 9", got)
	}
	if got := mfs["sigtrack_source_observers"].GetMetric()[0].GetGauge().GetValue(); got != 1 {
		t.Errorf("source_observers: got %v, want 1", got)
	}

	events := mfs["sigtrack_events_total"].GetMetric()
	if len(events) != 2 {
		t.Fatalf("events_total: got %d series, want 2", len(events))
	}
	// Series are sorted by type.
	if events[0].GetLabel()[0].GetValue() != "CHANGE" || events[0].GetCounter().GetValue() != 5 {
		t.Errorf("events_total[0]: got %v", events[0])
	}

	last := mfs["sigtrack_tracker_last_value"].GetMetric()
	if len(last) != 2 {
		t.Fatalf("tracker_last_value: got %d series, want 2", len(last))
	}
}

func TestMetricsSkipUnsetFamilies(t *testing.T) {
	mfs := metricFamilies(status.Snapshot{})
	for _, mf := range mfs {
		switch mf.GetName() {
		case "sigtrack_source_last_value", "sigtrack_events_total", "sigtrack_tracker_last_value":
			t.Errorf("unexpected family %s without data", mf.GetName())
		}
	}
	if len(mfs) != 7 {
		t.Errorf("families: got %d, want 7", len(mfs))
	}
}

func TestStateChangesReflectedInResponse(t *testing.T) {
	ts, tr := newTestServer(t)

	_, body := get(t, ts.URL+"/index.json")
	var sj1 status.StatusJSON
	json.Unmarshal([]byte(body), &sj1)
	if sj1.Status.Ready {
		t.Error("expected Ready=false initially")
	}

	tr.Update(sampleStates(), true, 1, logic.EventCounts{logic.EventChange: 1})
	attach(tr)

	_, body = get(t, ts.URL+"/index.json")
	var sj2 status.StatusJSON
	json.Unmarshal([]byte(body), &sj2)

	if !sj2.Status.Ready {
		t.Error("expected Ready=true after update")
	}
	if !sj2.Status.MQTT.Connected {
		t.Error("expected MQTT connected after update")
	}
}

func TestRejectsNonGET(t *testing.T) {
	ts, _ := newTestServer(t)

	resp, err := http.Post(ts.URL+"/index.json", "application/json", strings.NewReader("{}"))
	if err != nil {
		t.Fatalf("POST: %v", err)
	}
	resp.Body.Close()
	if resp.StatusCode != http.StatusMethodNotAllowed {
		t.Errorf("status: got %d, want 405", resp.StatusCode)
	}
}

func TestServerObservesSourceUntilShutdown(t *testing.T) {
	tr := status.NewTracker(time.Now(), status.Config{})
	src := stream.New("bench supply", 10, 100*time.Millisecond, tracker.Millisecond)
	tr.SetSource(src)

	srv := New(":0", tr)
	if got := src.LastValueObservers(); got != 1 {
		t.Fatalf("observers after New: got %d, want 1", got)
	}
	if err := srv.Shutdown(context.Background()); err != nil {
		t.Fatalf("Shutdown: %v", err)
	}
	if got := src.LastValueObservers(); got != 0 {
		t.Errorf("observers after Shutdown: got %d, want 0", got)
	}
}
