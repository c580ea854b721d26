package reqid

import (
	"context"
	"testing"

	"github.com/google/uuid"
)

func TestContextRoundTrip(t *testing.T) {
	ctx, id := NewContext(context.Background())
	got, ok := FromContext(ctx)
	if !ok || got != id {
		t.Fatalf("expected %s from context, got %s ok=%v", id, got, ok)
	}
	if _, err := uuid.Parse(got); err != nil {
		t.Fatalf("request id %q is not a uuid: %v", got, err)
	}
	if _, ok := FromContext(context.Background()); ok {
		t.Fatalf("unexpected id in empty context")
	}
}

func TestWithID(t *testing.T) {
	ctx := WithID(context.Background(), "upstream-1")
	if got, _ := FromContext(ctx); got != "upstream-1" {
		t.Fatalf("expected upstream-1, got %q", got)
	}
}
