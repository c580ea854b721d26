package events

import "time"

// BatchFetchStart is emitted before a batch loader issues its fetch.
type BatchFetchStart struct {
	Loader string
	Keys   int
}

// BatchFetchFinish is emitted after the fetch returns.
type BatchFetchFinish struct {
	Loader   string
	Keys     int
	Found    int
	Err      error
	Duration time.Duration
}

// AuthorizationDenied is emitted when a guard rejects a field.
type AuthorizationDenied struct {
	Type  string
	Field string
}
