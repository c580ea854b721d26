package resolve

import (
	"fmt"

	"github.com/goccy/go-json"
)

// decodeArgs converts coerced field arguments into A. Field names of A are
// matched through their json tags.
func decodeArgs[A any](raw map[string]any) (A, error) {
	var args A
	if len(raw) == 0 {
		return args, nil
	}
	b, err := json.Marshal(raw)
	if err != nil {
		return args, fmt.Errorf("encode arguments: %w", err)
	}
	if err := json.Unmarshal(b, &args); err != nil {
		return args, fmt.Errorf("decode arguments into %T: %w", args, err)
	}
	return args, nil
}

// fingerprint is the canonical encoding of raw used to tell batches apart.
// Map keys are emitted in sorted order.
func fingerprint(raw map[string]any) (string, error) {
	if len(raw) == 0 {
		return "", nil
	}
	b, err := json.Marshal(raw)
	if err != nil {
		return "", fmt.Errorf("encode arguments: %w", err)
	}
	return string(b), nil
}
