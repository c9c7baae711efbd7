package chainAuth

import (
	"io"

	internalaudit "github.com/MrEthical07/chainAuth/internal/audit"
	"github.com/sirupsen/logrus"
)

// AuditEvent defines a public type used by chainAuth APIs.
//
// AuditEvent instances are intended to be configured during initialization and then treated as immutable unless documented otherwise.
type AuditEvent = internalaudit.Event

// AuditSink receives audit events from the engine's dispatcher goroutine.
type AuditSink = internalaudit.Sink

type NoOpSink = internalaudit.NoOpSink

// ChannelSink buffers events in a channel. Useful in tests.
type ChannelSink = internalaudit.ChannelSink

// JSONWriterSink writes one JSON object per event line.
type JSONWriterSink = internalaudit.JSONWriterSink

// LogrusSink writes events as structured logrus entries.
type LogrusSink = internalaudit.LogrusSink

func NewChannelSink(buffer int) *ChannelSink {
	return internalaudit.NewChannelSink(buffer)
}

func NewJSONWriterSink(w io.Writer) *JSONWriterSink {
	return internalaudit.NewJSONWriterSink(w)
}

func NewLogrusSink(logger logrus.FieldLogger) *LogrusSink {
	return internalaudit.NewLogrusSink(logger)
}
