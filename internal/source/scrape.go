package source

import (
	"context"
	"fmt"
	"io"
	"net/http"
	"time"

	dto "github.com/prometheus/client_model/go"
	"github.com/prometheus/common/expfmt"
)

const defaultScrapeTimeout = 10 * time.Second

// ScrapeReader reads one series from a Prometheus text exposition endpoint.
type ScrapeReader struct {
	client   *http.Client
	endpoint string
	metric   string
	labels   map[string]string
}

// NewScrapeReader returns a reader for the first series of metric whose
// labels include every pair in labels.
func NewScrapeReader(endpoint, metric string, labels map[string]string) *ScrapeReader {
	return &ScrapeReader{
		client:   &http.Client{Timeout: defaultScrapeTimeout},
		endpoint: endpoint,
		metric:   metric,
		labels:   labels,
	}
}

// Read scrapes the endpoint once.
func (r *ScrapeReader) Read() (float64, error) {
	return r.ReadContext(context.Background())
}

// ReadContext scrapes the endpoint once, honouring ctx.
func (r *ScrapeReader) ReadContext(ctx context.Context) (float64, error) {
	mfs, err := fetchMetrics(ctx, r.client, r.endpoint)
	if err != nil {
		return 0, fmt.Errorf("scrape %s: %w", r.endpoint, err)
	}
	mf, ok := mfs[r.metric]
	if !ok {
		return 0, fmt.Errorf("metric %q: %w", r.metric, ErrNoSamples)
	}
	for _, m := range mf.GetMetric() {
		if !matchLabels(m.GetLabel(), r.labels) {
			continue
		}
		return metricValue(m)
	}
	return 0, fmt.Errorf("metric %q with labels %v: %w", r.metric, r.labels, ErrNoSamples)
}

// Close releases idle connections.
func (r *ScrapeReader) Close() error {
	r.client.CloseIdleConnections()
	return nil
}

func fetchMetrics(ctx context.Context, client *http.Client, url string) (map[string]*dto.MetricFamily, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, url, nil)
	if err != nil {
		return nil, fmt.Errorf("build request: %w", err)
	}
	req.Header.Set("Accept", string(expfmt.NewFormat(expfmt.TypeTextPlain)))

	resp, err := client.Do(req)
	if err != nil {
		return nil, fmt.Errorf("http get: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return nil, fmt.Errorf("unexpected status %d", resp.StatusCode)
	}
	return parseMetrics(resp.Body)
}

// parseMetrics decodes a text exposition. A partial parse still succeeds.
func parseMetrics(r io.Reader) (map[string]*dto.MetricFamily, error) {
	var parser expfmt.TextParser
	mfs, err := parser.TextToMetricFamilies(r)
	if err != nil && len(mfs) == 0 {
		return nil, fmt.Errorf("parse prometheus text: %w", err)
	}
	return mfs, nil
}

func matchLabels(pairs []*dto.LabelPair, want map[string]string) bool {
	for name, value := range want {
		found := false
		for _, p := range pairs {
			if p.GetName() == name && p.GetValue() == value {
				found = true
				break
			}
		}
		if !found {
			return false
		}
	}
	return true
}

func metricValue(m *dto.Metric) (float64, error) {
	switch {
	case m.Gauge != nil:
		return m.Gauge.GetValue(), nil
	case m.Counter != nil:
		return m.Counter.GetValue(), nil
	case m.Untyped != nil:
		return m.Untyped.GetValue(), nil
	default:
		return 0, fmt.Errorf("histogram or summary series: %w", ErrNotSupported)
	}
}
