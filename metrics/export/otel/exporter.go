package otel

import (
	"context"
	"errors"
	"fmt"

	chainAuth "github.com/MrEthical07/chainAuth"
	"github.com/MrEthical07/chainAuth/metrics/export/internaldefs"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/metric"
)

var (
	ErrNilMeter  = errors.New("nil meter")
	ErrNilSource = errors.New("nil metrics source")
)

type metricsSource interface {
	MetricsSnapshot() chainAuth.MetricsSnapshot
	AuditDropped() uint64
}

type counterInstrument struct {
	id         chainAuth.MetricID
	instrument metric.Int64ObservableCounter
}

// histogramInstrument reports cumulative buckets as one gauge keyed by "le".
type histogramInstrument struct {
	id      chainAuth.MetricID
	buckets metric.Int64ObservableGauge
	count   metric.Int64ObservableGauge
}

// OTelExporter publishes engine metrics through observable OTel instruments.
type OTelExporter struct {
	source       metricsSource
	incomplete   internaldefs.IncompleteCounter
	registration metric.Registration

	counters     []counterInstrument
	histograms   []histogramInstrument
	auditDropped metric.Int64ObservableCounter
	pending      metric.Int64ObservableGauge
}

// NewOTelExporter registers instruments on meter that read from engine on
// every collection.
func NewOTelExporter(meter metric.Meter, engine *chainAuth.Engine) (*OTelExporter, error) {
	return NewOTelExporterFromSource(meter, engine)
}

func NewOTelExporterFromSource(meter metric.Meter, source metricsSource) (*OTelExporter, error) {
	if meter == nil {
		return nil, ErrNilMeter
	}
	if source == nil {
		return nil, ErrNilSource
	}

	e := &OTelExporter{source: source}
	e.incomplete, _ = source.(internaldefs.IncompleteCounter)

	instruments, err := e.createInstruments(meter)
	if err != nil {
		return nil, err
	}

	e.registration, err = meter.RegisterCallback(e.observe, instruments...)
	if err != nil {
		return nil, fmt.Errorf("register callback: %w", err)
	}
	return e, nil
}

func (e *OTelExporter) createInstruments(meter metric.Meter) ([]metric.Observable, error) {
	var all []metric.Observable

	for _, def := range internaldefs.CounterDefs {
		c, err := meter.Int64ObservableCounter(def.Name, metric.WithDescription(def.Help))
		if err != nil {
			return nil, fmt.Errorf("create counter %s: %w", def.Name, err)
		}
		e.counters = append(e.counters, counterInstrument{id: def.ID, instrument: c})
		all = append(all, c)
	}

	for _, def := range internaldefs.HistogramDefs {
		buckets, err := meter.Int64ObservableGauge(def.Name+"_bucket", metric.WithDescription(def.Help+" Cumulative bucket counts."))
		if err != nil {
			return nil, fmt.Errorf("create histogram buckets %s: %w", def.Name, err)
		}
		count, err := meter.Int64ObservableGauge(def.Name+"_count", metric.WithDescription(def.Help+" Sample count."))
		if err != nil {
			return nil, fmt.Errorf("create histogram count %s: %w", def.Name, err)
		}
		e.histograms = append(e.histograms, histogramInstrument{id: def.ID, buckets: buckets, count: count})
		all = append(all, buckets, count)
	}

	dropped, err := meter.Int64ObservableCounter(internaldefs.AuditDroppedName, metric.WithDescription(internaldefs.AuditDroppedHelp))
	if err != nil {
		return nil, fmt.Errorf("create audit dropped counter: %w", err)
	}
	e.auditDropped = dropped
	all = append(all, dropped)

	if e.incomplete != nil {
		pending, err := meter.Int64ObservableGauge(internaldefs.IncompleteRegistrationsName, metric.WithDescription(internaldefs.IncompleteRegistrationsHelp))
		if err != nil {
			return nil, fmt.Errorf("create incomplete registrations gauge: %w", err)
		}
		e.pending = pending
		all = append(all, pending)
	}

	return all, nil
}

func (e *OTelExporter) observe(ctx context.Context, o metric.Observer) error {
	snapshot := e.source.MetricsSnapshot()
	for _, c := range e.counters {
		o.ObserveInt64(c.instrument, int64(snapshot.Counters[c.id]))
	}

	for _, h := range e.histograms {
		cumulative := internaldefs.CumulativeBuckets(internaldefs.NormalizeBuckets(snapshot.Histograms[h.id]))
		for i, le := range internaldefs.HistogramBounds {
			o.ObserveInt64(h.buckets, int64(cumulative[i]), metric.WithAttributes(attribute.String("le", le)))
		}
		o.ObserveInt64(h.count, int64(cumulative[len(cumulative)-1]))
	}

	o.ObserveInt64(e.auditDropped, int64(e.source.AuditDropped()))

	if e.pending != nil {
		// A failed count skips the gauge for this cycle only.
		if n, err := e.incomplete.IncompleteRegistrationCount(ctx); err == nil {
			o.ObserveInt64(e.pending, n)
		}
	}
	return nil
}

// Close unregisters the collection callback.
func (e *OTelExporter) Close() error {
	if e == nil || e.registration == nil {
		return nil
	}
	return e.registration.Unregister()
}
