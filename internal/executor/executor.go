package executor

import (
	"context"
	"fmt"

	"github.com/hanpama/graphkit/internal/gql"
	"github.com/hanpama/graphkit/internal/schema"
)

// Executor runs operations of validated documents against one schema.
type Executor struct {
	runtime Runtime
	schema  *schema.Schema
}

func NewExecutor(runtime Runtime, s *schema.Schema) *Executor {
	return &Executor{runtime: runtime, schema: s}
}

// ExecuteRequest runs the operation named operationName, or the only
// operation of doc when the name is empty.
func (e *Executor) ExecuteRequest(ctx context.Context, doc *gql.QueryDocument, operationName string, variables map[string]any, rootValue any) *ExecutionResult {
	op, err := selectOperation(doc, operationName)
	if err != nil {
		return failed(err.Error())
	}

	var root *schema.Type
	switch op.Operation {
	case gql.Query:
		root = e.schema.GetQueryType()
	case gql.Mutation:
		root = e.schema.GetMutationType()
		if root == nil {
			return failed("schema does not support mutations")
		}
	default:
		return failed(fmt.Sprintf("unsupported operation type %q", op.Operation))
	}
	if root == nil {
		return failed("schema has no query type")
	}

	st := &executionState{
		ctx:       ctx,
		runtime:   e.runtime,
		schema:    e.schema,
		document:  doc,
		nullified: map[string]struct{}{},
		required:  map[string]struct{}{},
	}
	if st.variables, err = st.coerceVariableValues(op, variables); err != nil {
		return failed(err.Error())
	}

	data := map[string]any{}
	groups := st.collectFields(root, op.SelectionSet)
	if op.Operation == gql.Mutation {
		for _, g := range groups {
			st.executeField(root, rootValue, g, nil, data)
			st.drain(data)
		}
	} else {
		for _, g := range groups {
			st.executeField(root, rootValue, g, nil, data)
		}
		st.drain(data)
	}
	return &ExecutionResult{Data: data, Errors: st.errors}
}

func selectOperation(doc *gql.QueryDocument, name string) (*gql.OperationDefinition, error) {
	if doc == nil || len(doc.Operations) == 0 {
		return nil, fmt.Errorf("document contains no operations")
	}
	if name == "" {
		if len(doc.Operations) > 1 {
			return nil, fmt.Errorf("operation name is required when the document has several operations")
		}
		return doc.Operations[0], nil
	}
	if op := doc.Operations.ForName(name); op != nil {
		return op, nil
	}
	return nil, fmt.Errorf("unknown operation %q", name)
}

// executionState is the mutable state of one operation.
type executionState struct {
	ctx       context.Context
	runtime   Runtime
	schema    *schema.Schema
	document  *gql.QueryDocument
	variables map[string]any
	errors    []GraphQLError

	queue     []asyncTask
	nullified map[string]struct{}
	// required holds the response positions that may not be null.
	required map[string]struct{}
}

type asyncTask struct {
	task   AsyncResolveTask
	path   Path
	typ    *schema.TypeRef
	fields []*gql.Field
}

// pending marks response slots awaiting an asynchronous result.
type pending struct{}

func (s *executionState) addError(message string, path Path) {
	s.errors = append(s.errors, GraphQLError{Message: message, Path: path.clone()})
}

// executeSelectionSet resolves the grouped fields of one object. A nil map
// means a Non-Null field of the object came back null.
func (s *executionState) executeSelectionSet(objectType *schema.Type, source any, set gql.SelectionSet, path Path) map[string]any {
	out := map[string]any{}
	for _, g := range s.collectFields(objectType, set) {
		if !s.executeField(objectType, source, g, path, out) {
			s.nullify(path)
			return nil
		}
	}
	return out
}

// executeField resolves one response key into out. It returns false when a
// synchronous Non-Null field completed to null.
func (s *executionState) executeField(objectType *schema.Type, source any, g fieldGroup, parent Path, out map[string]any) bool {
	first := g.fields[0]
	path := parent.with(g.key)

	if first.Name == "__typename" {
		out[g.key] = objectType.Name
		return true
	}
	def := objectType.Field(first.Name)
	if def == nil {
		s.addError(fmt.Sprintf("cannot query field %q on type %q", first.Name, objectType.Name), path)
		out[g.key] = nil
		return true
	}
	if def.Type.IsNonNull() {
		s.require(path)
	}
	args := s.argumentValues(def, first.Arguments, path)

	if def.Async {
		out[g.key] = pending{}
		s.queue = append(s.queue, asyncTask{
			task: AsyncResolveTask{
				ObjectType: objectType.Name,
				Field:      def.Name,
				Source:     source,
				Args:       args,
			},
			path:   path,
			typ:    def.Type,
			fields: g.fields,
		})
		return true
	}

	value, err := s.runtime.ResolveSync(s.ctx, objectType.Name, def.Name, source, args)
	if err != nil {
		s.addError(err.Error(), path)
		out[g.key] = nil
		return !def.Type.IsNonNull()
	}
	completed := s.completeValue(def.Type, g.fields, value, path)
	out[g.key] = completed
	return !(isNullish(completed) && def.Type.IsNonNull())
}

// drain resolves queued asynchronous fields one depth at a time until no
// work is left.
func (s *executionState) drain(data map[string]any) {
	for len(s.queue) > 0 {
		batch := s.queue[:0:0]
		for _, t := range s.queue {
			if !s.isNullified(t.path) {
				batch = append(batch, t)
			}
		}
		s.queue = nil
		if len(batch) == 0 {
			return
		}

		tasks := make([]AsyncResolveTask, len(batch))
		for i, t := range batch {
			tasks[i] = t.task
		}
		results := s.runtime.BatchResolveAsync(s.ctx, tasks)
		for i, t := range batch {
			r := AsyncResolveResult{Error: fmt.Errorf("no result for %s.%s", t.task.ObjectType, t.task.Field)}
			if i < len(results) {
				r = results[i]
			}
			s.completeAsync(t, r, data)
		}
	}
}

func (s *executionState) completeAsync(t asyncTask, r AsyncResolveResult, data map[string]any) {
	if s.isNullified(t.path) {
		return
	}
	var value any
	if r.Error != nil {
		s.addError(r.Error.Error(), t.path)
	} else {
		value = s.completeValue(t.typ, t.fields, r.Value, t.path)
	}
	if isNullish(value) && t.typ.IsNonNull() {
		at := s.nullableAncestor(t.path)
		setValueAtPath(data, at, nil)
		s.nullify(at)
		return
	}
	setValueAtPath(data, t.path, value)
}
