package otel

import (
	"context"
	"sync"
	"time"

	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
	"go.opentelemetry.io/otel/exporters/otlp/otlptrace/otlptracegrpc"
	"go.opentelemetry.io/otel/sdk/resource"
	sdktrace "go.opentelemetry.io/otel/sdk/trace"
	semconv "go.opentelemetry.io/otel/semconv/v1.17.0"
	"go.opentelemetry.io/otel/trace"
	"google.golang.org/grpc"
	"google.golang.org/grpc/credentials/insecure"

	"github.com/hanpama/graphkit/internal/eventbus"
	"github.com/hanpama/graphkit/internal/events"
	"github.com/hanpama/graphkit/internal/reqid"
)

// Setup configures OpenTelemetry and attaches eventbus subscribers.
// If endpoint is empty, no telemetry is configured.
func Setup(endpoint, service string) (func(context.Context) error, error) {
	if endpoint == "" {
		return func(context.Context) error { return nil }, nil
	}
	exp, err := otlptracegrpc.New(context.Background(),
		otlptracegrpc.WithEndpoint(endpoint),
		otlptracegrpc.WithDialOption(grpc.WithTransportCredentials(insecure.NewCredentials())))
	if err != nil {
		return nil, err
	}
	tp := sdktrace.NewTracerProvider(
		sdktrace.WithBatcher(exp),
		sdktrace.WithResource(resource.NewWithAttributes(
			semconv.SchemaURL,
			semconv.ServiceName(service),
		)),
	)
	otel.SetTracerProvider(tp)

	unsubscribe := Subscribe(eventbus.Current(), otel.Tracer("graphkit"))

	return func(ctx context.Context) error {
		unsubscribe()
		return tp.Shutdown(ctx)
	}, nil
}

// Subscribe records spans for the events published on bus.
//
// Operations are spanned from start to finish. Batch fetches and
// compilations are recorded when they finish, backdated by their duration;
// fetches become children of their request's operation.
func Subscribe(bus *eventbus.Bus, tracer trace.Tracer) (unsubscribe func()) {
	s := &subscriber{tracer: tracer}
	return s.register(bus)
}

type subscriber struct {
	tracer   trace.Tracer
	gqlSpans sync.Map // rid -> trace.Span
}

func (s *subscriber) register(bus *eventbus.Bus) func() {
	offs := []func(){
		eventbus.On(bus, func(ctx context.Context, e events.OperationStart) {
			_, span := s.tracer.Start(ctx, "graphql.operation")
			span.SetAttributes(
				attribute.String("graphql.operation.name", e.OperationName),
				attribute.String("graphql.operation.type", e.OperationType),
			)
			s.gqlSpans.Store(e.RequestID, span)
		}),

		eventbus.On(bus, func(_ context.Context, e events.OperationFinish) {
			v, ok := s.gqlSpans.LoadAndDelete(e.RequestID)
			if !ok {
				return
			}
			span := v.(trace.Span)
			span.SetAttributes(attribute.Int("graphql.error_count", len(e.Errors)))
			if len(e.Errors) > 0 {
				span.SetStatus(codes.Error, e.Errors[0].Error())
			}
			span.End()
		}),

		eventbus.On(bus, func(ctx context.Context, e events.BatchFetchFinish) {
			parent := ctx
			if rid, ok := reqid.FromContext(ctx); ok {
				if v, ok := s.gqlSpans.Load(rid); ok {
					parent = trace.ContextWithSpan(ctx, v.(trace.Span))
				}
			}
			end := time.Now()
			_, span := s.tracer.Start(parent, "graphkit.batch_fetch", trace.WithTimestamp(end.Add(-e.Duration)))
			span.SetAttributes(
				attribute.String("graphkit.loader", e.Loader),
				attribute.Int("graphkit.keys", e.Keys),
				attribute.Int("graphkit.found", e.Found),
			)
			if e.Err != nil {
				span.RecordError(e.Err)
				span.SetStatus(codes.Error, e.Err.Error())
			}
			span.End(trace.WithTimestamp(end))
		}),

		eventbus.On(bus, func(ctx context.Context, e events.CompileFinish) {
			end := time.Now()
			_, span := s.tracer.Start(ctx, "graphkit.compile", trace.WithTimestamp(end.Add(-e.Duration)))
			span.SetAttributes(
				attribute.Int("graphkit.types", e.Types),
				attribute.Int("graphkit.violations", e.Violations),
			)
			if e.Err != nil {
				span.SetStatus(codes.Error, e.Err.Error())
			}
			span.End(trace.WithTimestamp(end))
		}),
	}
	return func() {
		for _, off := range offs {
			off()
		}
	}
}
