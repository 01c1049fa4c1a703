package otel

import (
	"context"

	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/trace"
)

// Standard attribute keys for engine spans.
var (
	AttrAgentID       = attribute.Key("lcm.agent.id")
	AttrSessionID     = attribute.Key("lcm.session.id")
	AttrSummaryID     = attribute.Key("lcm.summary.id")
	AttrSummaryLevel  = attribute.Key("lcm.summary.level")
	AttrToolName      = attribute.Key("lcm.tool.name")
	AttrModel         = attribute.Key("lcm.llm.model")
	AttrTokensInput   = attribute.Key("lcm.llm.tokens.input")
	AttrTokensOutput  = attribute.Key("lcm.llm.tokens.output")
	AttrEscalationLvl = attribute.Key("lcm.escalation.level")
	AttrCompactBlocks = attribute.Key("lcm.compaction.blocks")
	AttrMapItemCount  = attribute.Key("lcm.parallelmap.items")
	AttrMapConcurrent = attribute.Key("lcm.parallelmap.concurrency")
)

// StartSpan is a convenience wrapper that starts an internal span with common attributes.
func StartSpan(ctx context.Context, tracer trace.Tracer, name string, attrs ...attribute.KeyValue) (context.Context, trace.Span) {
	return tracer.Start(ctx, name,
		trace.WithAttributes(attrs...),
		trace.WithSpanKind(trace.SpanKindInternal),
	)
}

// StartServerSpan starts a span for an inbound request (retrieval, injection).
func StartServerSpan(ctx context.Context, tracer trace.Tracer, name string, attrs ...attribute.KeyValue) (context.Context, trace.Span) {
	return tracer.Start(ctx, name,
		trace.WithAttributes(attrs...),
		trace.WithSpanKind(trace.SpanKindServer),
	)
}

// StartClientSpan starts a span for an outbound call (LLM gateway, store).
func StartClientSpan(ctx context.Context, tracer trace.Tracer, name string, attrs ...attribute.KeyValue) (context.Context, trace.Span) {
	return tracer.Start(ctx, name,
		trace.WithAttributes(attrs...),
		trace.WithSpanKind(trace.SpanKindClient),
	)
}
