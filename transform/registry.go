package transform

import (
	"fmt"
	"sort"
	"strings"
	"sync"

	json "github.com/goccy/go-json"

	"github.com/kbukum/bufferstream/bufferstream"
	"github.com/kbukum/bufferstream/encryption"
	"github.com/kbukum/bufferstream/errors"
)

// Factory builds a transform from the argument part of a spec.
type Factory func(arg string) (bufferstream.TransformFunc, error)

// Definition describes a registered transform.
type Definition struct {
	Name        string
	ObjectMode  bool
	RequiresArg bool
	Description string
	Factory     Factory
}

// Step is one parsed "name:arg" spec, ready to become a stage.
type Step struct {
	Name       string
	Arg        string
	ObjectMode bool
	Transform  bufferstream.TransformFunc
}

// Stage creates a stage for the step. name and mode come from the step
// unless opts override them.
func (s Step) Stage(opts ...bufferstream.Option) (*bufferstream.Stage, error) {
	base := []bufferstream.Option{
		bufferstream.WithName(s.Name),
		bufferstream.WithObjectMode(s.ObjectMode),
	}
	return bufferstream.New(s.Transform, append(base, opts...)...)
}

// Registry maps transform names to definitions.
type Registry struct {
	mu   sync.RWMutex
	defs map[string]Definition
}

// NewRegistry creates an empty Registry.
func NewRegistry() *Registry {
	return &Registry{defs: make(map[string]Definition)}
}

// Register adds or replaces a definition.
func (r *Registry) Register(def Definition) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.defs[def.Name] = def
}

// Lookup returns the definition registered under name.
func (r *Registry) Lookup(name string) (Definition, bool) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	def, ok := r.defs[name]
	return def, ok
}

// List returns all definitions sorted by name.
func (r *Registry) List() []Definition {
	r.mu.RLock()
	defer r.mu.RUnlock()
	out := make([]Definition, 0, len(r.defs))
	for _, def := range r.defs {
		out = append(out, def)
	}
	sort.Slice(out, func(i, j int) bool { return out[i].Name < out[j].Name })
	return out
}

// Parse builds a Step from a single "name" or "name:arg" spec.
func (r *Registry) Parse(spec string) (Step, error) {
	name, arg, _ := strings.Cut(strings.TrimSpace(spec), ":")
	name = strings.TrimSpace(name)
	if name == "" {
		return Step{}, errors.MissingField("transform name")
	}
	def, ok := r.Lookup(name)
	if !ok {
		return Step{}, errors.NotFound("transform", name)
	}
	if def.RequiresArg && arg == "" {
		return Step{}, errors.InvalidInput(name, "argument required")
	}
	fn, err := def.Factory(arg)
	if err != nil {
		return Step{}, fmt.Errorf("transform %s: %w", name, err)
	}
	return Step{Name: name, Arg: arg, ObjectMode: def.ObjectMode, Transform: fn}, nil
}

// ParseChain parses a comma-separated list of specs. Commas nested inside
// brackets, braces, parentheses or quotes do not split.
func (r *Registry) ParseChain(chain string) ([]Step, error) {
	parts := splitChain(chain)
	if len(parts) == 0 {
		return nil, errors.MissingField("chain")
	}
	steps := make([]Step, 0, len(parts))
	for _, part := range parts {
		step, err := r.Parse(part)
		if err != nil {
			return nil, err
		}
		steps = append(steps, step)
	}
	return steps, nil
}

// BuildChain parses chain and returns its stages piped in order. Stage
// names are prefixed with their position. opts apply to every stage.
func (r *Registry) BuildChain(chain string, opts ...bufferstream.Option) ([]*bufferstream.Stage, error) {
	steps, err := r.ParseChain(chain)
	if err != nil {
		return nil, err
	}
	stages := make([]*bufferstream.Stage, 0, len(steps))
	for i, step := range steps {
		stageOpts := append([]bufferstream.Option{bufferstream.WithName(fmt.Sprintf("%d:%s", i, step.Name))}, opts...)
		stage, err := step.Stage(stageOpts...)
		if err != nil {
			return nil, err
		}
		stages = append(stages, stage)
	}
	bufferstream.Chain(stages...)
	return stages, nil
}

func splitChain(chain string) []string {
	var (
		parts []string
		depth int
		quote rune
		start int
	)
	flush := func(end int) {
		if p := strings.TrimSpace(chain[start:end]); p != "" {
			parts = append(parts, p)
		}
	}
	for i, c := range chain {
		switch {
		case quote != 0:
			if c == quote {
				quote = 0
			}
		case c == '"' || c == '\'' || c == '`':
			quote = c
		case c == '(' || c == '[' || c == '{':
			depth++
		case c == ')' || c == ']' || c == '}':
			if depth > 0 {
				depth--
			}
		case c == ',' && depth == 0:
			flush(i)
			start = i + 1
		}
	}
	flush(len(chain))
	return parts
}

// value decodes arg as JSON, falling back to the raw string.
func value(arg string) any {
	var v any
	if err := json.Unmarshal([]byte(arg), &v); err == nil {
		return v
	}
	return arg
}

func cipherFor(arg string) (encryption.Cipher, error) {
	key := arg
	var opts []encryption.Option
	if algName, rest, ok := strings.Cut(arg, ":"); ok {
		if alg, err := encryption.ParseAlgorithm(algName); err == nil && algName != "" {
			opts = append(opts, encryption.WithAlgorithm(alg))
			key = rest
		}
	}
	if key == "" {
		return nil, errors.MissingField("key")
	}
	return encryption.New(key, opts...)
}

func noArg(fn func() bufferstream.TransformFunc) Factory {
	return func(string) (bufferstream.TransformFunc, error) { return fn(), nil }
}

// Builtins registers the transforms shipped with this package.
func Builtins(r *Registry) {
	defs := []Definition{
		{Name: "identity", Description: "pass the binary aggregate through", Factory: noArg(Identity)},
		{Name: "identity-object", ObjectMode: true, Description: "pass the object aggregate through", Factory: noArg(Identity)},
		{Name: "prefix", RequiresArg: true, Description: "prepend the argument", Factory: func(arg string) (bufferstream.TransformFunc, error) {
			return Prefix([]byte(arg)), nil
		}},
		{Name: "suffix", RequiresArg: true, Description: "append the argument", Factory: func(arg string) (bufferstream.TransformFunc, error) {
			return Suffix([]byte(arg)), nil
		}},
		{Name: "upper", Description: "upper-case the aggregate", Factory: noArg(Upper)},
		{Name: "lower", Description: "lower-case the aggregate", Factory: noArg(Lower)},
		{Name: "yaml2json", Description: "convert a YAML document to JSON", Factory: noArg(YAMLToJSON)},
		{Name: "json2yaml", Description: "convert a JSON document to YAML", Factory: noArg(JSONToYAML)},
		{Name: "diff", Description: "emit a patch from the argument to the aggregate", Factory: func(arg string) (bufferstream.TransformFunc, error) {
			return Diff(arg), nil
		}},
		{Name: "seal", RequiresArg: true, Description: "encrypt with [algorithm:]passphrase", Factory: func(arg string) (bufferstream.TransformFunc, error) {
			c, err := cipherFor(arg)
			if err != nil {
				return nil, err
			}
			return Seal(c), nil
		}},
		{Name: "open", RequiresArg: true, Description: "decrypt with [algorithm:]passphrase", Factory: func(arg string) (bufferstream.TransformFunc, error) {
			c, err := cipherFor(arg)
			if err != nil {
				return nil, err
			}
			return Open(c), nil
		}},
		{Name: "recover", Description: "emit nothing instead of an upstream error", Factory: func(string) (bufferstream.TransformFunc, error) {
			return Recover(Identity(), bufferstream.NoResult()), nil
		}},
		{Name: "prepend", ObjectMode: true, RequiresArg: true, Description: "prepend a JSON value", Factory: func(arg string) (bufferstream.TransformFunc, error) {
			return PrependObject(value(arg)), nil
		}},
		{Name: "append", ObjectMode: true, RequiresArg: true, Description: "append a JSON value", Factory: func(arg string) (bufferstream.TransformFunc, error) {
			return AppendObject(value(arg)), nil
		}},
		{Name: "reverse", ObjectMode: true, Description: "reverse the values", Factory: noArg(Reverse)},
		{Name: "expr", ObjectMode: true, RequiresArg: true, Description: "evaluate an expression over items", Factory: Expr},
	}
	for _, def := range defs {
		r.Register(def)
	}
}

// Default is the registry holding the builtin transforms.
var Default = func() *Registry {
	r := NewRegistry()
	Builtins(r)
	return r
}()

// Parse parses spec against the Default registry.
func Parse(spec string) (Step, error) { return Default.Parse(spec) }

// ParseChain parses chain against the Default registry.
func ParseChain(chain string) ([]Step, error) { return Default.ParseChain(chain) }

// BuildChain builds chain against the Default registry.
func BuildChain(chain string, opts ...bufferstream.Option) ([]*bufferstream.Stage, error) {
	return Default.BuildChain(chain, opts...)
}
