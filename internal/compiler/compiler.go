// Package compiler links a schema configuration into the compiled graph.
//
// Compilation walks from the root types through a cache holding one node per
// modeled type. Problems do not stop the walk; they are collected and
// reported together as a ValidationError once everything reachable was
// visited.
package compiler

import (
	"context"
	"errors"
	"fmt"
	"maps"
	"slices"
	"time"

	"github.com/sirupsen/logrus"

	"github.com/hanpama/graphkit/internal/descriptor"
	"github.com/hanpama/graphkit/internal/eventbus"
	"github.com/hanpama/graphkit/internal/events"
	"github.com/hanpama/graphkit/internal/gql"
	"github.com/hanpama/graphkit/internal/logging"
	"github.com/hanpama/graphkit/internal/model"
	"github.com/hanpama/graphkit/internal/schema"
	"github.com/hanpama/graphkit/internal/services"
)

// ErrNoQueryRoot is returned when the configuration has no Query type.
var ErrNoQueryRoot = errors.New("compiler: no query root type configured")

type options struct {
	services *services.Registry
	logger   *logrus.Entry
}

// Option configures Compile.
type Option func(*options)

// WithServices checks the services every strategy and guard needs against
// reg. Requirements without a registered provider fail the compilation.
func WithServices(reg *services.Registry) Option {
	return func(o *options) { o.services = reg }
}

func WithLogger(l *logrus.Entry) Option {
	return func(o *options) { o.logger = l }
}

// Compile builds the schema described by cfg.
func Compile(cfg model.SchemaConfig, opts ...Option) (*schema.Schema, error) {
	o := options{logger: logging.Nop()}
	for _, opt := range opts {
		opt(&o)
	}
	if cfg.Query == "" {
		return nil, ErrNoQueryRoot
	}

	ctx := context.Background()
	start := time.Now()
	eventbus.Publish(ctx, events.CompileStart{Query: string(cfg.Query), Mutation: string(cfg.Mutation)})

	s, err := compile(cfg, o)

	finish := events.CompileFinish{Err: err, Duration: time.Since(start)}
	if s != nil {
		finish.Types = len(s.Types)
	}
	var verr ValidationError
	if errors.As(err, &verr) {
		finish.Violations = len(verr)
	}
	eventbus.Publish(ctx, finish)

	if err != nil {
		o.logger.WithError(err).Error("schema compilation failed")
		return nil, err
	}
	o.logger.WithFields(logrus.Fields{
		"types":    len(s.Types),
		"duration": finish.Duration,
	}).Info("schema compiled")
	return s, nil
}

func compile(cfg model.SchemaConfig, o options) (*schema.Schema, error) {
	req := &services.Requirements{}
	c := newCache(cfg, req, o.logger)

	reach := Analyze(cfg)
	for _, id := range reach.Unknown {
		c.violate(violationUnknownType(id))
	}
	o.logger.WithFields(logrus.Fields{
		"output": len(reach.Output),
		"input":  len(reach.Input),
	}).Debug("reachable types")

	roots := []descriptor.TypeID{cfg.Query}
	if cfg.Mutation != "" {
		roots = append(roots, cfg.Mutation)
	}
	nodes := make([]*schema.Type, len(roots))
	for i, id := range roots {
		t, err := c.output(id)
		if err != nil {
			// unknown roots were reported by Analyze
			if _, known := cfg.Type(id); known {
				c.violate(violationType(id, err))
			}
			continue
		}
		if t.Kind != schema.TypeKindObject {
			c.violate(violationType(id, errors.New("root type must be an object type")))
		}
		nodes[i] = t
	}
	for _, id := range slices.Sorted(maps.Keys(reach.Output)) {
		_, _ = c.output(id)
	}

	if o.services != nil {
		for _, m := range req.Missing(o.services) {
			c.violate(violationMissingService(m.Name, m.By))
		}
	}
	c.violate(c.duplicates()...)
	if len(c.violations) > 0 {
		return nil, ValidationError(c.violations)
	}

	s := schema.NewSchema("")
	for _, t := range c.nodes() {
		s.AddType(t)
	}
	s.AddBuiltins()
	s.SetQueryType(nodes[0].Name)
	if len(nodes) > 1 {
		s.SetMutationType(nodes[1].Name)
	}

	if _, err := gql.LoadSchema("schema.graphql", schema.Render(s)); err != nil {
		return nil, fmt.Errorf("compiler: compiled schema is invalid: %w", err)
	}
	return s, nil
}
