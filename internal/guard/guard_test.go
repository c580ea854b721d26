package guard

import (
	"context"
	"errors"
	"testing"

	"github.com/stretchr/testify/require"

	"github.com/hanpama/graphkit/internal/eventbus"
	"github.com/hanpama/graphkit/internal/events"
	"github.com/hanpama/graphkit/internal/services"
)

type roles struct{ admin bool }

var rolesKey = services.NewKey[*roles]("roles")

func adminOnly(_ context.Context, r *roles, _ any) (bool, error) { return r.admin, nil }

func scoped(admin bool) context.Context {
	reg := services.NewRegistry()
	services.Provide(reg, rolesKey, services.Value(&roles{admin: admin}))
	return services.WithScope(context.Background(), reg.NewScope())
}

func TestWrapDenies(t *testing.T) {
	bus := eventbus.New()
	eventbus.Use(bus)
	defer eventbus.Use(nil)
	var denied []events.AuthorizationDenied
	eventbus.On(bus, func(_ context.Context, e events.AuthorizationDenied) { denied = append(denied, e) })

	called := false
	next := func(context.Context, any, map[string]any) (any, error) {
		called = true
		return "secret", nil
	}
	wrapped := Wrap(For(rolesKey, adminOnly), "Customer", "email", next)

	v, err := wrapped(scoped(false), nil, nil)
	require.Nil(t, v)
	require.ErrorIs(t, err, ErrNotAuthorized)
	require.Equal(t, "Not authorized", err.Error())
	require.False(t, called)
	require.Equal(t, []events.AuthorizationDenied{{Type: "Customer", Field: "email"}}, denied)

	v, err = wrapped(scoped(true), nil, nil)
	require.NoError(t, err)
	require.Equal(t, "secret", v)
}

func TestWrapPropagatesAuthorizerErrors(t *testing.T) {
	wrapped := Wrap(For(rolesKey, adminOnly), "Customer", "email", func(context.Context, any, map[string]any) (any, error) {
		return nil, nil
	})
	_, err := wrapped(context.Background(), nil, nil)
	require.ErrorContains(t, err, "no request scope")

	boom := errors.New("backend down")
	failing := Wrap(For(rolesKey, func(context.Context, *roles, any) (bool, error) { return false, boom }),
		"Customer", "email", func(context.Context, any, map[string]any) (any, error) { return nil, nil })
	_, err = failing(scoped(true), nil, nil)
	require.ErrorIs(t, err, boom)
}

func TestRegisterRecordsRequirement(t *testing.T) {
	reg := services.NewRegistry()
	var req services.Requirements
	For(rolesKey, adminOnly).Register(&req, "Customer.email")
	require.Equal(t, []services.Requirement{{Name: "roles", By: "Customer.email"}}, req.Missing(reg))

	Null.Register(&req, "Customer.name")
	require.Len(t, req.Missing(reg), 1)
	require.False(t, Null.Active())
}
