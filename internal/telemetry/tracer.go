// Package telemetry exports session lifecycle spans to a SkyWalking OAP
// collector, adapting the segment/span builders the teacher ships for
// SIP dialog tracing (plugins/reporter/skywalkingtracing/sniffdata, see
// segment.go) to feed from the orchestrator's OFFER/TERMINATE lifecycle
// instead of a sniffed SIP transaction.
package telemetry

import (
	"context"
	"sync/atomic"
	"time"

	"github.com/sirupsen/logrus"
	"google.golang.org/grpc"
	"google.golang.org/grpc/credentials/insecure"
	agent "skywalking.apache.org/repo/goapi/collect/language/agent/v3"
)

// Tracer exports one single-span SkyWalking trace segment per Export
// call, over the TraceSegmentReportService gRPC stream. No package in
// this repository calls Export: internal/daemon only dials the Tracer
// at start and closes it at shutdown, and internal/session does not
// produce spans.
type Tracer struct {
	serviceName     string
	serviceInstance string
	log             *logrus.Entry

	conn   *grpc.ClientConn
	client agent.TraceSegmentReportServiceClient
	stream agent.TraceSegmentReportService_CollectClient

	nextSpanID int32
}

// Dial connects to the OAP collector at addr (e.g. "oap:11800").
func Dial(addr, serviceName, serviceInstance string, log *logrus.Entry) (*Tracer, error) {
	if log == nil {
		log = logrus.NewEntry(logrus.StandardLogger())
	}
	conn, err := grpc.NewClient(addr, grpc.WithTransportCredentials(insecure.NewCredentials()))
	if err != nil {
		return nil, err
	}
	client := agent.NewTraceSegmentReportServiceClient(conn)
	return &Tracer{
		serviceName:     serviceName,
		serviceInstance: serviceInstance,
		log:             log.WithField("component", "telemetry"),
		conn:            conn,
		client:          client,
	}, nil
}

// Close tears down the gRPC stream and connection.
func (t *Tracer) Close() error {
	if t.stream != nil {
		_, _ = t.stream.CloseAndRecv()
	}
	if t.conn != nil {
		return t.conn.Close()
	}
	return nil
}

// SessionSpan is one span-worth of session lifecycle timing, exported
// as a single-span trace segment by Export.
type SessionSpan struct {
	SessionID string
	Operation string // e.g. "mrcp.session"
	Start     time.Time
	End       time.Time
	Tags      map[string]string
	IsError   bool
}

// Export builds a segment for span and sends it on the streaming RPC,
// opening the stream lazily on first use. A send failure is logged and
// swallowed: trace export is best-effort observability, never a reason
// to fail session processing.
func (t *Tracer) Export(ctx context.Context, span SessionSpan) {
	if err := t.ensureStream(ctx); err != nil {
		t.log.WithError(err).Warn("trace export: stream unavailable")
		return
	}

	segment := newSegmentBuilder(t.serviceName, t.serviceInstance).
		withTraceID(span.SessionID)

	sb := newSpanBuilder().
		withSpanID(atomic.AddInt32(&t.nextSpanID, 1) - 1).
		withParentSpanID(-1).
		withStartTime(span.Start.UnixMilli()).
		withEndTime(span.End.UnixMilli()).
		withOperationName(span.Operation).
		withSpanType(agent.SpanType_Entry).
		withSpanLayer(agent.SpanLayer_Unknown).
		withIsError(span.IsError)
	for k, v := range span.Tags {
		sb.withTag(k, v)
	}
	segment.withSpan(sb.build())

	if err := t.stream.Send(segment.build()); err != nil {
		t.log.WithError(err).Warn("trace export: send failed")
		t.stream = nil // force re-open on next export
	}
}

func (t *Tracer) ensureStream(ctx context.Context) error {
	if t.stream != nil {
		return nil
	}
	stream, err := t.client.Collect(ctx)
	if err != nil {
		return err
	}
	t.stream = stream
	return nil
}
