package executor

import "context"

// Runtime connects the executor to the resolvers of a schema.
type Runtime interface {
	// ResolveSync resolves a field whose schema definition is not Async.
	ResolveSync(ctx context.Context, objectType, field string, source any, args map[string]any) (any, error)

	// BatchResolveAsync resolves every asynchronous field queued at one depth.
	// It must return exactly one result per task, in task order. A failed task
	// does not affect the others.
	BatchResolveAsync(ctx context.Context, tasks []AsyncResolveTask) []AsyncResolveResult

	// ResolveType names the concrete object type of value for the abstract
	// type abstractType.
	ResolveType(ctx context.Context, abstractType string, value any) (string, error)

	// SerializeLeafValue turns a scalar or enum value into its output form.
	SerializeLeafValue(ctx context.Context, typeName string, value any) (any, error)

	// ParseLeafValue turns an input literal or variable of a custom scalar
	// into the value handed to resolvers.
	ParseLeafValue(ctx context.Context, typeName string, value any) (any, error)
}

// AsyncResolveTask is one asynchronous field awaiting resolution.
type AsyncResolveTask struct {
	ObjectType string
	Field      string
	Source     any
	Args       map[string]any
}

// AsyncResolveResult is the outcome of one AsyncResolveTask.
type AsyncResolveResult struct {
	Value any
	Error error
}
