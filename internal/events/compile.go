package events

import "time"

// CompileStart is emitted before a schema configuration is compiled.
type CompileStart struct {
	Query    string
	Mutation string
}

// CompileFinish is emitted after compilation, successful or not.
type CompileFinish struct {
	Types      int
	Violations int
	Err        error
	Duration   time.Duration
}
