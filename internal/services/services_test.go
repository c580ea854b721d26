package services

import (
	"context"
	"errors"
	"sync"
	"sync/atomic"
	"testing"

	"github.com/stretchr/testify/require"
)

type counter struct{ n int }

func TestScopeConstructsOncePerRequest(t *testing.T) {
	reg := NewRegistry()
	key := NewKey[*counter]("counter")
	var built atomic.Int32
	Provide(reg, key, func(ctx context.Context, s *Scope) (*counter, error) {
		built.Add(1)
		return &counter{}, nil
	})

	scope := reg.NewScope()
	ctx := WithScope(context.Background(), scope)

	var wg sync.WaitGroup
	results := make([]*counter, 16)
	errs := make([]error, len(results))
	for i := range results {
		wg.Add(1)
		go func(i int) {
			defer wg.Done()
			results[i], errs[i] = From(ctx, key)
		}(i)
	}
	wg.Wait()
	for _, err := range errs {
		require.NoError(t, err)
	}

	require.Equal(t, int32(1), built.Load())
	for _, c := range results {
		require.Same(t, results[0], c)
	}

	other, err := Resolve(context.Background(), reg.NewScope(), key)
	require.NoError(t, err)
	require.NotSame(t, results[0], other)
	require.Equal(t, int32(2), built.Load())
}

func TestResolveErrors(t *testing.T) {
	reg := NewRegistry()
	_, err := Resolve(context.Background(), reg.NewScope(), NewKey[string]("missing"))
	require.ErrorContains(t, err, `no provider for "missing"`)

	_, err = From(context.Background(), NewKey[string]("x"))
	require.ErrorContains(t, err, "no request scope")

	boom := errors.New("boom")
	failing := NewKey[int]("failing")
	Provide(reg, failing, func(context.Context, *Scope) (int, error) { return 0, boom })
	_, err = Resolve(context.Background(), reg.NewScope(), failing)
	require.ErrorIs(t, err, boom)
}

func TestMissingRequirements(t *testing.T) {
	reg := NewRegistry()
	Provide(reg, NewKey[int]("present"), Value(1))
	var req Requirements
	req.Require("present", "Query.a")
	req.Require("absent", "Query.c")
	req.Require("absent", "Query.b")

	require.Equal(t, []Requirement{
		{Name: "absent", By: "Query.b"},
		{Name: "absent", By: "Query.c"},
	}, req.Missing(reg))

	var other Requirements
	require.Empty(t, other.Missing(reg))
}
