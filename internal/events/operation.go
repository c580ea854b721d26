package events

import "time"

// OperationStart is emitted before executing a GraphQL operation.
type OperationStart struct {
	RequestID     string
	OperationName string
	OperationType string
}

// OperationFinish is emitted after executing a GraphQL operation.
type OperationFinish struct {
	RequestID     string
	OperationName string
	OperationType string
	Errors        []error
	Duration      time.Duration
}
