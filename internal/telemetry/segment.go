package telemetry

import (
	"fmt"
	"runtime"
	"sync"
	"time"

	common "skywalking.apache.org/repo/goapi/collect/common/v3"
	agent "skywalking.apache.org/repo/goapi/collect/language/agent/v3"
)

// segmentBuilder and spanBuilder are adapted from the teacher's
// plugins/reporter/skywalkingtracing/sniffdata segment/span builders,
// trimmed to the fields Export actually sets (no cross-process
// SegmentReference, no logs) since a session trace is always a single
// local span, never a child of a sniffed SIP transaction.
type segmentBuilder struct {
	serviceName     string
	serviceInstance string
	segmentID       string
	traceID         string
	spans           []*agent.SpanObject
}

func newSegmentBuilder(serviceName, serviceInstance string) *segmentBuilder {
	return &segmentBuilder{
		serviceName:     serviceName,
		serviceInstance: serviceInstance,
		segmentID:       newSegmentID(serviceInstance),
	}
}

func (b *segmentBuilder) withTraceID(traceID string) *segmentBuilder {
	b.traceID = traceID
	return b
}

func (b *segmentBuilder) withSpan(span *agent.SpanObject) *segmentBuilder {
	b.spans = append(b.spans, span)
	return b
}

func (b *segmentBuilder) build() *agent.SegmentObject {
	return &agent.SegmentObject{
		TraceId:         b.traceID,
		TraceSegmentId:  b.segmentID,
		Spans:           b.spans,
		Service:         b.serviceName,
		ServiceInstance: b.serviceInstance,
		IsSizeLimited:   true,
	}
}

type spanBuilder struct {
	spanID        int32
	parentSpanID  int32
	startTime     int64
	endTime       int64
	operationName string
	spanType      agent.SpanType
	spanLayer     agent.SpanLayer
	isError       bool
	tags          []*common.KeyStringValuePair
}

func newSpanBuilder() *spanBuilder {
	return &spanBuilder{
		parentSpanID: -1,
		spanType:     agent.SpanType_Local,
		spanLayer:    agent.SpanLayer_Unknown,
	}
}

func (b *spanBuilder) withSpanID(id int32) *spanBuilder {
	b.spanID = id
	return b
}

func (b *spanBuilder) withParentSpanID(id int32) *spanBuilder {
	b.parentSpanID = id
	return b
}

func (b *spanBuilder) withStartTime(t int64) *spanBuilder {
	b.startTime = t
	return b
}

func (b *spanBuilder) withEndTime(t int64) *spanBuilder {
	b.endTime = t
	return b
}

func (b *spanBuilder) withOperationName(name string) *spanBuilder {
	b.operationName = name
	return b
}

func (b *spanBuilder) withSpanType(t agent.SpanType) *spanBuilder {
	b.spanType = t
	return b
}

func (b *spanBuilder) withSpanLayer(l agent.SpanLayer) *spanBuilder {
	b.spanLayer = l
	return b
}

func (b *spanBuilder) withIsError(isError bool) *spanBuilder {
	b.isError = isError
	return b
}

func (b *spanBuilder) withTag(key, value string) *spanBuilder {
	b.tags = append(b.tags, &common.KeyStringValuePair{Key: key, Value: value})
	return b
}

func (b *spanBuilder) build() *agent.SpanObject {
	return &agent.SpanObject{
		SpanId:        b.spanID,
		ParentSpanId:  b.parentSpanID,
		StartTime:     b.startTime,
		EndTime:       b.endTime,
		OperationName: b.operationName,
		SpanType:      b.spanType,
		SpanLayer:     b.spanLayer,
		IsError:       b.isError,
		Tags:          b.tags,
	}
}

var segmentIDMu sync.Mutex
var segmentIDSeq int64

// newSegmentID mirrors the teacher's SegmentIDGenerator: instance,
// goroutine count, millisecond timestamp, and a monotonic sequence,
// joined the same way.
func newSegmentID(instanceID string) string {
	segmentIDMu.Lock()
	defer segmentIDMu.Unlock()

	id := fmt.Sprintf("%s.%d.%d.%d", instanceID, runtime.NumGoroutine(), time.Now().UnixNano()/1e6, segmentIDSeq)
	segmentIDSeq++
	return id
}
