// Package engine executes GraphQL requests against a compiled schema.
//
// Every request gets its own request id, services scope and loader
// dispatcher. The executor hands the engine one wave of asynchronous fields
// at a time; the engine calls their resolvers, flushes the loads they queued
// and settles the results before the next wave starts.
package engine

import (
	"context"
	"fmt"
	"time"

	"github.com/sirupsen/logrus"

	"github.com/hanpama/graphkit/internal/eventbus"
	"github.com/hanpama/graphkit/internal/events"
	"github.com/hanpama/graphkit/internal/executor"
	"github.com/hanpama/graphkit/internal/gql"
	"github.com/hanpama/graphkit/internal/introspection"
	"github.com/hanpama/graphkit/internal/loader"
	"github.com/hanpama/graphkit/internal/logging"
	"github.com/hanpama/graphkit/internal/reqid"
	"github.com/hanpama/graphkit/internal/schema"
	"github.com/hanpama/graphkit/internal/services"
)

// Request is one GraphQL request.
type Request struct {
	Query         string         `json:"query"`
	OperationName string         `json:"operationName,omitempty"`
	Variables     map[string]any `json:"variables,omitempty"`
}

type Option func(*Engine)

func WithLogger(l *logrus.Entry) Option { return func(e *Engine) { e.log = l } }

// WithMaxBatch splits fetches larger than n keys.
func WithMaxBatch(n int) Option { return func(e *Engine) { e.maxBatch = n } }

// WithConcurrency limits the fetches running at once within a wave.
func WithConcurrency(n int) Option { return func(e *Engine) { e.concurrency = n } }

// WithIntrospection toggles the __schema and __type root fields. They are
// served by default.
func WithIntrospection(enabled bool) Option { return func(e *Engine) { e.introspection = enabled } }

// WithRoot sets the value resolvers of root fields receive as parent.
func WithRoot(v any) Option { return func(e *Engine) { e.root = v } }

// Engine executes requests. It is safe for concurrent use.
type Engine struct {
	schema   *schema.Schema
	document *gql.Schema
	services *services.Registry
	log      *logrus.Entry
	root     any
	// exec is schema plus the introspection types when enabled.
	exec     *schema.Schema

	introspection bool
	maxBatch      int
	concurrency   int
}

// New prepares s for execution. Resolvers obtain their services from reg.
func New(s *schema.Schema, reg *services.Registry, opts ...Option) (*Engine, error) {
	doc, err := gql.LoadSchema("schema.graphql", schema.Render(s))
	if err != nil {
		return nil, fmt.Errorf("engine: load schema: %w", err)
	}
	if reg == nil {
		reg = services.NewRegistry()
	}
	e := &Engine{schema: s, document: doc, services: reg, log: logging.Nop(), introspection: true}
	for _, opt := range opts {
		opt(e)
	}
	e.exec = s
	if e.introspection {
		e.exec = introspection.Extend(s)
	}
	return e, nil
}

// Schema returns the compiled schema the engine serves.
func (e *Engine) Schema() *schema.Schema { return e.schema }

// Execute validates and runs req. Validation failures are reported as
// errors without data.
func (e *Engine) Execute(ctx context.Context, req Request) *executor.ExecutionResult {
	ctx, rid := requestID(ctx)
	log := e.log.WithField("request_id", rid)

	doc, errs := gql.LoadQuery(e.document, req.Query)
	if len(errs) > 0 {
		log.WithField("errors", len(errs)).Debug("query rejected")
		return rejected(errs)
	}
	opType := ""
	if op := operation(doc, req.OperationName); op != nil {
		opType = string(op.Operation)
	}

	d := loader.NewDispatcher(
		loader.WithMaxBatch(e.maxBatch),
		loader.WithConcurrency(e.concurrency),
		loader.WithLogger(log),
	)
	ctx = services.WithScope(ctx, e.services.NewScope())
	ctx = loader.WithDispatcher(ctx, d)

	start := time.Now()
	eventbus.Publish(ctx, events.OperationStart{RequestID: rid, OperationName: req.OperationName, OperationType: opType})
	rt := &runtime{schema: e.exec, dispatcher: d}
	res := executor.NewExecutor(rt, e.exec).ExecuteRequest(ctx, doc, req.OperationName, req.Variables, e.root)

	finish := events.OperationFinish{
		RequestID:     rid,
		OperationName: req.OperationName,
		OperationType: opType,
		Duration:      time.Since(start),
	}
	for _, err := range res.Errors {
		finish.Errors = append(finish.Errors, err)
	}
	eventbus.Publish(ctx, finish)

	log.WithFields(logrus.Fields{
		"operation": opType,
		"errors":    len(res.Errors),
		"fetches":   d.Fetches(),
		"duration":  finish.Duration,
	}).Debug("operation executed")
	return res
}

// requestID keeps an id the caller already attached.
func requestID(ctx context.Context) (context.Context, string) {
	if id, ok := reqid.FromContext(ctx); ok {
		return ctx, id
	}
	return reqid.NewContext(ctx)
}

func operation(doc *gql.QueryDocument, name string) *gql.OperationDefinition {
	if name == "" && len(doc.Operations) == 1 {
		return doc.Operations[0]
	}
	return doc.Operations.ForName(name)
}

func rejected(errs gql.ErrorList) *executor.ExecutionResult {
	res := &executor.ExecutionResult{}
	for _, err := range errs {
		res.Errors = append(res.Errors, executor.GraphQLError{Message: err.Message})
	}
	return res
}
