package prometheus

import (
	"context"
	"net/http"
	"strconv"
	"strings"

	chainAuth "github.com/MrEthical07/chainAuth"
	"github.com/MrEthical07/chainAuth/metrics/export/internaldefs"
)

type metricsSource interface {
	MetricsSnapshot() chainAuth.MetricsSnapshot
	AuditDropped() uint64
}

// PrometheusExporter renders engine metrics in Prometheus text exposition format.
type PrometheusExporter struct {
	source metricsSource
}

// NewPrometheusExporter creates a Prometheus exporter that reads from the given [chainAuth.Engine].
func NewPrometheusExporter(engine *chainAuth.Engine) *PrometheusExporter {
	return &PrometheusExporter{source: engine}
}

// NewPrometheusExporterFromSource creates a Prometheus exporter from any
// snapshot source. Sources that also report the number of pending
// registrations get an extra gauge.
func NewPrometheusExporterFromSource(source metricsSource) *PrometheusExporter {
	return &PrometheusExporter{source: source}
}

// Handler returns an http.Handler that serves Prometheus metrics.
func (p *PrometheusExporter) Handler() http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Type", "text/plain; version=0.0.4; charset=utf-8")
		_, _ = w.Write([]byte(p.RenderContext(r.Context())))
	})
}

// Render writes the current metrics in Prometheus text exposition format.
// The output is empty while engine metrics are disabled.
func (p *PrometheusExporter) Render() string {
	return p.RenderContext(context.Background())
}

// RenderContext is Render with a context bounding the pending-registration
// query.
func (p *PrometheusExporter) RenderContext(ctx context.Context) string {
	if p == nil || p.source == nil {
		return ""
	}

	snapshot := p.source.MetricsSnapshot()
	dropped := p.source.AuditDropped()
	if len(snapshot.Counters) == 0 && len(snapshot.Histograms) == 0 && dropped == 0 {
		return ""
	}

	var b strings.Builder
	b.Grow(8192)

	for _, def := range internaldefs.CounterDefs {
		header(&b, def.Name, def.Help, "counter")
		sample(&b, def.Name, "", snapshot.Counters[def.ID])
	}

	for _, def := range internaldefs.HistogramDefs {
		buckets := internaldefs.CumulativeBuckets(internaldefs.NormalizeBuckets(snapshot.Histograms[def.ID]))
		header(&b, def.Name, def.Help, "histogram")
		for i, le := range internaldefs.HistogramBounds {
			sample(&b, def.Name+"_bucket", `le="`+le+`"`, buckets[i])
		}
		sample(&b, def.Name+"_count", "", buckets[len(buckets)-1])
		// Snapshots carry bucket counts only.
		sample(&b, def.Name+"_sum", "", 0)
	}

	header(&b, internaldefs.AuditDroppedName, internaldefs.AuditDroppedHelp, "counter")
	sample(&b, internaldefs.AuditDroppedName, "", dropped)

	if counter, ok := p.source.(internaldefs.IncompleteCounter); ok {
		if n, err := counter.IncompleteRegistrationCount(ctx); err == nil && n >= 0 {
			header(&b, internaldefs.IncompleteRegistrationsName, internaldefs.IncompleteRegistrationsHelp, "gauge")
			sample(&b, internaldefs.IncompleteRegistrationsName, "", uint64(n))
		}
	}

	return b.String()
}

func header(b *strings.Builder, name, help, kind string) {
	b.WriteString("# HELP " + name + " " + escapeHelp(help) + "\n")
	b.WriteString("# TYPE " + name + " " + kind + "\n")
}

func sample(b *strings.Builder, name, labels string, value uint64) {
	b.WriteString(name)
	if labels != "" {
		b.WriteString("{" + labels + "}")
	}
	b.WriteByte(' ')
	b.WriteString(strconv.FormatUint(value, 10))
	b.WriteByte('\n')
}

func escapeHelp(help string) string {
	help = strings.ReplaceAll(help, "\\", "\\\\")
	help = strings.ReplaceAll(help, "\n", "\\n")
	return help
}
