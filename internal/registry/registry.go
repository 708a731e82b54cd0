// Package registry holds the ordered set of compiler definitions.
//
// Entries are keyed by source extension and iterated in registration order, so a
// batch pass over a registry like
//
//	coffee -> "coffee -c -p" -> js
//	js     -> "uglifyjs"     -> js
//
// compiles CoffeeScript first and then minifies every JavaScript file, including
// the ones the first entry just produced.
package registry

import (
	"errors"
	"fmt"
	"strings"
)

// ErrInvalidSpec is returned for a spec that lacks a command or output extension
var ErrInvalidSpec = errors.New("compiler spec requires a command and an output extension")

// CompilerSpec is one registered transformation step
type CompilerSpec struct {
	// SourceExtension selects this spec, without the leading dot (e.g. "coffee")
	SourceExtension string `mapstructure:"ext" json:"ext" yaml:"ext"`

	// Command is the invocation template; the source path is appended as the last argument
	Command string `mapstructure:"cmd" json:"cmd" yaml:"cmd"`

	// OutputExtension is the suffix of the generated artifact (e.g. "js")
	OutputExtension string `mapstructure:"output" json:"output" yaml:"output"`
}

// Validate reports whether the spec can be used to compile anything
func (s CompilerSpec) Validate() error {
	if strings.TrimSpace(s.Command) == "" || strings.TrimSpace(s.OutputExtension) == "" {
		return fmt.Errorf("%w (ext %q)", ErrInvalidSpec, s.SourceExtension)
	}

	return nil
}

// Registry is an ordered mapping from source extension to CompilerSpec.
//
// It is populated at configuration time and only read once compilation starts;
// it performs no locking.
type Registry struct {
	order []string
	specs map[string]CompilerSpec
}

// New creates an empty registry
func New() *Registry {
	return &Registry{
		specs: make(map[string]CompilerSpec),
	}
}

// NormalizeExtension strips surrounding whitespace and a single leading dot
func NormalizeExtension(ext string) string {
	return strings.TrimPrefix(strings.TrimSpace(ext), ".")
}

// Register appends a spec for ext, or replaces the existing one in place.
// Replacing keeps the original registration position.
func (r *Registry) Register(ext, command, outputExt string) error {
	ext = NormalizeExtension(ext)
	if ext == "" {
		return fmt.Errorf("compiler source extension is empty")
	}

	spec := CompilerSpec{
		SourceExtension: ext,
		Command:         strings.TrimSpace(command),
		OutputExtension: NormalizeExtension(outputExt),
	}

	if err := spec.Validate(); err != nil {
		return err
	}

	if _, ok := r.specs[ext]; !ok {
		r.order = append(r.order, ext)
	}

	r.specs[ext] = spec

	return nil
}

// RegisterSpec is Register for an already built spec
func (r *Registry) RegisterSpec(spec CompilerSpec) error {
	return r.Register(spec.SourceExtension, spec.Command, spec.OutputExtension)
}

// Lookup returns the spec registered for ext
func (r *Registry) Lookup(ext string) (CompilerSpec, bool) {
	if r == nil {
		return CompilerSpec{}, false
	}

	spec, ok := r.specs[NormalizeExtension(ext)]
	return spec, ok
}

// Specs returns all specs in registration order
func (r *Registry) Specs() []CompilerSpec {
	if r == nil {
		return nil
	}

	specs := make([]CompilerSpec, 0, len(r.order))
	for _, ext := range r.order {
		specs = append(specs, r.specs[ext])
	}

	return specs
}

// Len returns the number of registered specs
func (r *Registry) Len() int {
	if r == nil {
		return 0
	}

	return len(r.order)
}
