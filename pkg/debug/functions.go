package debug

import (
	"context"
	"errors"
	"fmt"
	"sort"
	"strconv"
	"strings"
	"sync"
)

var (
	// ErrUnknownFunction is returned when calling a name that was never registered.
	ErrUnknownFunction = errors.New("debug: unknown function")

	// ErrBadArgument is returned for missing, extra or unparsable arguments.
	ErrBadArgument = errors.New("debug: bad argument")
)

// ArgumentError describes which argument of which function was rejected.
type ArgumentError struct {
	Function string
	Arg      string
	Err      error
}

func (e *ArgumentError) Error() string {
	return fmt.Sprintf("%s(%s): %v", e.Function, e.Arg, e.Err)
}

func (e *ArgumentError) Unwrap() error {
	return e.Err
}

// Kind is the type of a function argument.
type Kind string

const (
	Float Kind = "float"
	Bool  Kind = "bool"
)

// Arg declares one named argument.
type Arg struct {
	Name string `json:"name"`
	Kind Kind   `json:"kind"`
}

// Args holds parsed argument values. Handlers only see arguments that were
// declared and successfully parsed.
type Args struct {
	floats map[string]float64
	bools  map[string]bool
}

// Float returns a float argument.
func (a Args) Float(name string) float64 {
	return a.floats[name]
}

// Bool returns a bool argument.
func (a Args) Bool(name string) bool {
	return a.bools[name]
}

// Handler runs a debug function.
type Handler func(ctx context.Context, args Args) error

// Function describes a registered function for listings.
type Function struct {
	Name string `json:"name"`
	Args []Arg  `json:"args"`
}

type entry struct {
	fn      Function
	handler Handler
}

// Registry maps function names to handlers and their argument schemas.
type Registry struct {
	mu      sync.RWMutex
	entries map[string]entry
}

// NewRegistry creates an empty Registry.
func NewRegistry() *Registry {
	return &Registry{entries: make(map[string]entry)}
}

// Register adds or replaces a function.
func (r *Registry) Register(name string, args []Arg, h Handler) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.entries[name] = entry{fn: Function{Name: name, Args: args}, handler: h}
}

// List returns every function sorted by name.
func (r *Registry) List() []Function {
	r.mu.RLock()
	defer r.mu.RUnlock()
	out := make([]Function, 0, len(r.entries))
	for _, e := range r.entries {
		out = append(out, e.fn)
	}
	sort.Slice(out, func(i, j int) bool { return out[i].Name < out[j].Name })
	return out
}

// Call validates raw against the function's schema and runs it.
func (r *Registry) Call(ctx context.Context, name string, raw map[string]string) error {
	r.mu.RLock()
	e, ok := r.entries[name]
	r.mu.RUnlock()
	if !ok {
		return fmt.Errorf("%w: %q", ErrUnknownFunction, name)
	}

	args, err := parseArgs(e.fn, raw)
	if err != nil {
		return err
	}
	return e.handler(ctx, args)
}

func parseArgs(fn Function, raw map[string]string) (Args, error) {
	args := Args{floats: map[string]float64{}, bools: map[string]bool{}}
	declared := make(map[string]bool, len(fn.Args))

	for _, a := range fn.Args {
		declared[a.Name] = true
		s, ok := raw[a.Name]
		if !ok {
			return args, &ArgumentError{Function: fn.Name, Arg: a.Name, Err: fmt.Errorf("%w: missing", ErrBadArgument)}
		}
		switch a.Kind {
		case Float:
			v, err := strconv.ParseFloat(strings.TrimSpace(s), 64)
			if err != nil {
				return args, &ArgumentError{Function: fn.Name, Arg: a.Name, Err: fmt.Errorf("%w: %v", ErrBadArgument, err)}
			}
			args.floats[a.Name] = v
		case Bool:
			v, err := strconv.ParseBool(strings.TrimSpace(s))
			if err != nil {
				return args, &ArgumentError{Function: fn.Name, Arg: a.Name, Err: fmt.Errorf("%w: %v", ErrBadArgument, err)}
			}
			args.bools[a.Name] = v
		default:
			return args, &ArgumentError{Function: fn.Name, Arg: a.Name, Err: fmt.Errorf("%w: unknown kind %q", ErrBadArgument, a.Kind)}
		}
	}

	for k := range raw {
		if !declared[k] {
			return args, &ArgumentError{Function: fn.Name, Arg: k, Err: fmt.Errorf("%w: unexpected", ErrBadArgument)}
		}
	}
	return args, nil
}

// ParseArgList parses the compact "name=value,name=value" form used by the
// operator console. An empty string or "x" means no arguments.
func ParseArgList(s string) (map[string]string, error) {
	out := map[string]string{}
	s = strings.TrimSpace(s)
	if s == "" || s == "x" {
		return out, nil
	}
	for _, part := range strings.Split(s, ",") {
		k, v, ok := strings.Cut(part, "=")
		k = strings.TrimSpace(k)
		if !ok || k == "" {
			return nil, fmt.Errorf("%w: %q", ErrBadArgument, part)
		}
		out[k] = strings.TrimSpace(v)
	}
	return out, nil
}
