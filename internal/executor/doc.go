// Package executor runs validated GraphQL operations breadth first.
//
// Fields are split in two by schema.Field.Async. Synchronous fields are
// resolved and completed as soon as they are reached, so purely synchronous
// descents never add depth. Asynchronous fields are queued instead, and every
// field queued while expanding one depth is handed to
// Runtime.BatchResolveAsync in a single call. Completing those results
// queues the asynchronous fields of the next depth. For an operation whose
// deepest chain crosses d asynchronous fields, BatchResolveAsync is called
// exactly d times.
//
// # Completion
//
// Values are completed the usual way: lists element by element, leaves through
// Runtime.SerializeLeafValue, interfaces through Runtime.ResolveType and
// objects by collecting their sub-selections. A null or failed Non-Null field
// nulls its parent object; a failed asynchronous Non-Null field nulls the
// root field it belongs to. Nulled paths are remembered so queued work below
// them is dropped before the next batch.
//
// Errors are collected with the response path of the failing field and never
// abort the operation once execution started. Variable coercion errors are
// reported before any field runs.
//
// # Mutations
//
// Root fields of a mutation run one after another. Each root field, with
// every asynchronous field below it, is completed before the next one starts.
package executor
