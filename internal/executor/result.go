package executor

// GraphQLError is an error located at a response path.
type GraphQLError struct {
	Message    string         `json:"message"`
	Path       Path           `json:"path,omitempty"`
	Extensions map[string]any `json:"extensions,omitempty"`
}

func (e GraphQLError) Error() string {
	return e.Message
}

// ExecutionResult is the response of one operation.
type ExecutionResult struct {
	Data   map[string]any `json:"data"`
	Errors []GraphQLError `json:"errors,omitempty"`
}

// failed builds a result carrying errors only.
func failed(messages ...string) *ExecutionResult {
	errs := make([]GraphQLError, len(messages))
	for i, m := range messages {
		errs[i] = GraphQLError{Message: m}
	}
	return &ExecutionResult{Errors: errs}
}
