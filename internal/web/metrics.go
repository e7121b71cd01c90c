package web

import (
	"io"
	"log/slog"
	"math"
	"net/http"

	dto "github.com/prometheus/client_model/go"
	"github.com/prometheus/common/expfmt"

	"github.com/sweeney/sigtrack/internal/logic"
	"github.com/sweeney/sigtrack/internal/status"
)

func (s *Server) handleMetrics(w http.ResponseWriter, r *http.Request) {
	format := expfmt.NewFormat(expfmt.TypeTextPlain)
	w.Header().Set("Content-Type", string(format))
	if err := writeMetrics(w, format, s.tracker.Snapshot()); err != nil {
		slog.Warn("web: encode metrics", "err", err)
	}
}

func writeMetrics(w io.Writer, format expfmt.Format, snap status.Snapshot) error {
	enc := expfmt.NewEncoder(w, format)
	for _, mf := range metricFamilies(snap) {
		if err := enc.Encode(mf); err != nil {
			return err
		}
	}
	return nil
}

// metricFamilies renders the snapshot as Prometheus metric families.
func metricFamilies(snap status.Snapshot) []*dto.MetricFamily {
	events := family("sigtrack_events_total", "Tracker events emitted since startup, by type.", dto.MetricType_COUNTER)
	for _, typ := range status.SortedCounts(snap) {
		n := snap.Counts[logic.EventType(typ)]
		events.Metric = append(events.Metric, counter(float64(n), label("type", typ)))
	}

	trackerEvents := family("sigtrack_tracker_events_total", "Events emitted by each tracker.", dto.MetricType_COUNTER)
	trackerLast := family("sigtrack_tracker_last_value", "Last value reported by each tracker.", dto.MetricType_GAUGE)
	for _, ts := range snap.Trackers {
		labels := []*dto.LabelPair{label("tracker", ts.Name), label("kind", string(ts.Kind))}
		trackerEvents.Metric = append(trackerEvents.Metric, counter(float64(ts.Events), labels...))
		if !math.IsNaN(ts.Last) {
			trackerLast.Metric = append(trackerLast.Metric, gauge(ts.Last, labels...))
		}
	}

	out := []*dto.MetricFamily{
		single("sigtrack_uptime_seconds", "Seconds since the daemon started.", snap.Uptime().Seconds()),
		single("sigtrack_frames_total", "Frames delivered to the trackers.", float64(snap.Frames)),
		single("sigtrack_source_active", "Whether the source is delivering readings.", boolGauge(snap.Active)),
		single("sigtrack_source_observers", "Views watching the source's last value.", float64(snap.Observers)),
		single("sigtrack_mqtt_connected", "Whether the MQTT broker connection is up.", boolGauge(snap.MQTTConnected)),
		single("sigtrack_mqtt_outbox_pending", "Messages waiting for the broker.", float64(snap.MQTTPending)),
		total("sigtrack_mqtt_dropped_total", "Messages discarded because the outbox was full.", float64(snap.MQTTDropped)),
	}
	if snap.HasValue {
		out = append(out, single("sigtrack_source_last_value", "Most recent raw reading.", snap.LastValue))
	}
	for _, mf := range []*dto.MetricFamily{events, trackerEvents, trackerLast} {
		if len(mf.Metric) > 0 {
			out = append(out, mf)
		}
	}
	return out
}

func family(name, help string, typ dto.MetricType) *dto.MetricFamily {
	return &dto.MetricFamily{Name: &name, Help: &help, Type: typ.Enum()}
}

func single(name, help string, v float64) *dto.MetricFamily {
	mf := family(name, help, dto.MetricType_GAUGE)
	mf.Metric = []*dto.Metric{gauge(v)}
	return mf
}

func total(name, help string, v float64) *dto.MetricFamily {
	mf := family(name, help, dto.MetricType_COUNTER)
	mf.Metric = []*dto.Metric{counter(v)}
	return mf
}

func label(name, value string) *dto.LabelPair {
	return &dto.LabelPair{Name: &name, Value: &value}
}

func gauge(v float64, labels ...*dto.LabelPair) *dto.Metric {
	return &dto.Metric{Label: labels, Gauge: &dto.Gauge{Value: &v}}
}

func counter(v float64, labels ...*dto.LabelPair) *dto.Metric {
	return &dto.Metric{Label: labels, Counter: &dto.Counter{Value: &v}}
}

func boolGauge(b bool) float64 {
	if b {
		return 1
	}
	return 0
}
