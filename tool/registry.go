package tool

import (
	"context"
	"errors"
	"fmt"
	"sort"
	"strings"
	"sync"

	"github.com/xeipuuv/gojsonschema"

	"github.com/hupe1980/finsight/core"
	"github.com/hupe1980/finsight/logging"
)

// Handler executes a tool with already-validated arguments. Handlers that
// perform network I/O must respect ctx cancellation; pure in-memory handlers
// may ignore it.
type Handler func(ctx context.Context, args map[string]any) (map[string]any, error)

type registered struct {
	schema   Schema
	handler  Handler
	compiled *gojsonschema.Schema
}

// Registry maps tool names to handlers and their declared schemas, and
// tracks per-agent allow-lists. Registration happens during startup
// initialization; afterwards the registry is effectively read-only, the
// mutex only guards against misuse.
type Registry struct {
	mu     sync.RWMutex
	tools  map[string]registered
	allow  map[string][]string // agent type -> allowed tool names
	logger logging.Logger
}

// RegistryOptions configures a Registry.
type RegistryOptions struct {
	Logger logging.Logger
}

// NewRegistry constructs an empty registry.
func NewRegistry(optFns ...func(o *RegistryOptions)) *Registry {
	opts := RegistryOptions{}
	for _, fn := range optFns {
		fn(&opts)
	}
	return &Registry{
		tools:  make(map[string]registered),
		allow:  make(map[string][]string),
		logger: logging.OrNoOp(opts.Logger),
	}
}

// Register adds a tool. It fails with DuplicateToolError when the name is
// already present and with InvalidRequestError when the schema is malformed.
func (r *Registry) Register(schema Schema, handler Handler) error {
	if err := schema.Validate(); err != nil {
		return err
	}
	if handler == nil {
		return &core.InvalidRequestError{Reason: fmt.Sprintf("tool %s has a nil handler", schema.Name)}
	}
	compiled, err := schema.compile()
	if err != nil {
		return err
	}

	r.mu.Lock()
	defer r.mu.Unlock()
	if _, exists := r.tools[schema.Name]; exists {
		return &core.DuplicateToolError{Name: schema.Name}
	}
	r.tools[schema.Name] = registered{schema: schema, handler: handler, compiled: compiled}
	r.logger.Debug("tool.registered", "tool", schema.Name, "params", len(schema.Parameters))
	return nil
}

// Get returns the handler for a tool name or UnknownToolError.
func (r *Registry) Get(name string) (Handler, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	reg, ok := r.tools[name]
	if !ok {
		return nil, &core.UnknownToolError{Name: name}
	}
	return reg.handler, nil
}

// Schema returns the declaration for a tool name or UnknownToolError.
func (r *Registry) Schema(name string) (Schema, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	reg, ok := r.tools[name]
	if !ok {
		return Schema{}, &core.UnknownToolError{Name: name}
	}
	return reg.schema, nil
}

// Allow restricts an agent type to the named subset of tools. Tools must be
// registered first; unknown names fail fast to catch wiring mistakes at
// startup.
func (r *Registry) Allow(agentType string, names ...string) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	for _, n := range names {
		if _, ok := r.tools[n]; !ok {
			return &core.UnknownToolError{Name: n}
		}
	}
	r.allow[agentType] = append([]string(nil), names...)
	return nil
}

// ListFor returns the schemas an agent is allowed to expose to the model.
// Agents without an allow-list get nothing: the action space is always an
// explicit subset, never the full registry.
func (r *Registry) ListFor(agentType string) []Schema {
	r.mu.RLock()
	defer r.mu.RUnlock()
	names := r.allow[agentType]
	schemas := make([]Schema, 0, len(names))
	for _, n := range names {
		if reg, ok := r.tools[n]; ok {
			schemas = append(schemas, reg.schema)
		}
	}
	return schemas
}

// Names returns all registered tool names sorted for stable output.
func (r *Registry) Names() []string {
	r.mu.RLock()
	defer r.mu.RUnlock()
	names := make([]string, 0, len(r.tools))
	for n := range r.tools {
		names = append(names, n)
	}
	sort.Strings(names)
	return names
}

// ValidateArgs checks the supplied arguments against the registered schema.
// Violations surface as InvalidRequestError.
func (r *Registry) ValidateArgs(name string, args map[string]any) error {
	r.mu.RLock()
	reg, ok := r.tools[name]
	r.mu.RUnlock()
	if !ok {
		return &core.UnknownToolError{Name: name}
	}

	if args == nil {
		args = map[string]any{}
	}
	result, err := reg.compiled.Validate(gojsonschema.NewGoLoader(args))
	if err != nil {
		return &core.InvalidRequestError{Reason: fmt.Sprintf("arguments for tool %s are not validatable", name), Err: err}
	}
	if !result.Valid() {
		details := make([]string, 0, len(result.Errors()))
		for _, e := range result.Errors() {
			details = append(details, e.String())
		}
		return &core.InvalidRequestError{Reason: fmt.Sprintf("invalid arguments for tool %s: %s", name, strings.Join(details, "; "))}
	}
	return nil
}

// Execute validates arguments and invokes the handler, wrapping handler
// failures as ToolExecutionError. The agent loop converts these into
// tool-result turns rather than aborting.
func (r *Registry) Execute(ctx context.Context, name string, args map[string]any) (map[string]any, error) {
	handler, err := r.Get(name)
	if err != nil {
		return nil, err
	}
	if err := r.ValidateArgs(name, args); err != nil {
		return nil, &core.ToolExecutionError{Tool: name, Err: err}
	}

	out, err := handler(ctx, args)
	if err != nil {
		var execErr *core.ToolExecutionError
		if errors.As(err, &execErr) {
			return nil, execErr
		}
		return nil, &core.ToolExecutionError{Tool: name, Err: err}
	}
	return out, nil
}
