// Package mod defines the contract between workflow steps and the modules
// that execute them.
package mod

import (
	"context"
	"encoding/json"
	"fmt"
	"reflect"
	"sort"
	"sync"
)

// Module defines the interface that all modules must implement
type Module interface {
	// Name returns the module's unique identifier
	Name() string

	// GetIO returns the module's input/output specification
	GetIO() ModuleIO

	// Validate checks if the parameters are valid
	Validate(params map[string]interface{}) error

	// Execute runs the module with the given parameters
	Execute(ctx context.Context, params map[string]interface{}) (ModuleResult, error)
}

// ModuleIO defines the expected inputs and outputs for a module
type ModuleIO struct {
	RequiredInputs  []ModuleInput
	OptionalInputs  []ModuleInput
	ProducedOutputs []ModuleOutput
}

// ModuleInput defines an input parameter of a module
type ModuleInput struct {
	Name        string   // parameter name, e.g. "input", "audioFile"
	Description string   // what the input is used for
	Patterns    []string // accepted file extensions
	Type        string   // file, directory or data
}

// ModuleOutput defines an output produced by a module. Later steps refer to
// it as ${<step>.<Name>}.
type ModuleOutput struct {
	Name        string
	Description string
	Patterns    []string
	Type        string
}

// HasOutput reports whether io declares an output called name
func (io ModuleIO) HasOutput(name string) bool {
	for _, o := range io.ProducedOutputs {
		if o.Name == name {
			return true
		}
	}
	return false
}

// ModuleResult contains the results of a module execution
type ModuleResult struct {
	Outputs    map[string]string      // output name to file/directory path
	Metadata   map[string]interface{} // additional metadata about the execution
	Statistics map[string]interface{} // counters and timings
}

// InputType defines the valid types of module inputs
type InputType string

const (
	InputTypeFile      InputType = "file"
	InputTypeDirectory InputType = "directory"
	InputTypeData      InputType = "data"
)

// OutputType defines the valid types of module outputs
type OutputType string

const (
	OutputTypeFile      OutputType = "file"
	OutputTypeDirectory OutputType = "directory"
	OutputTypeData      OutputType = "data"
)

// ValidateIO validates a module's I/O specification
func ValidateIO(io ModuleIO) error {
	check := func(kind string, i int, name, typ string) error {
		if name == "" {
			return fmt.Errorf("%s %d has empty name", kind, i)
		}
		switch typ {
		case string(InputTypeFile), string(InputTypeDirectory), string(InputTypeData):
			return nil
		case "":
			return fmt.Errorf("%s %s has empty type", kind, name)
		default:
			return fmt.Errorf("%s %s has invalid type: %s", kind, name, typ)
		}
	}

	for i, in := range io.RequiredInputs {
		if err := check("required input", i, in.Name, in.Type); err != nil {
			return err
		}
	}
	for i, in := range io.OptionalInputs {
		if err := check("optional input", i, in.Name, in.Type); err != nil {
			return err
		}
	}
	for i, out := range io.ProducedOutputs {
		if err := check("output", i, out.Name, out.Type); err != nil {
			return err
		}
		if out.Type != string(OutputTypeData) && len(out.Patterns) == 0 {
			return fmt.Errorf("output %s has no patterns defined", out.Name)
		}
	}
	return nil
}

// ModuleRegistry stores all available modules
type ModuleRegistry struct {
	mu      sync.RWMutex
	modules map[string]Module
}

// NewModuleRegistry creates a new module registry
func NewModuleRegistry() *ModuleRegistry {
	return &ModuleRegistry{
		modules: make(map[string]Module),
	}
}

// Register adds a module to the registry
func (r *ModuleRegistry) Register(m Module) error {
	if m == nil {
		return fmt.Errorf("cannot register nil module")
	}

	name := m.Name()
	if name == "" {
		return fmt.Errorf("module name cannot be empty")
	}
	if err := ValidateIO(m.GetIO()); err != nil {
		return fmt.Errorf("invalid I/O specification for module %s: %w", name, err)
	}

	r.mu.Lock()
	defer r.mu.Unlock()

	if _, exists := r.modules[name]; exists {
		return fmt.Errorf("module %s is already registered", name)
	}
	r.modules[name] = m
	return nil
}

// Get retrieves a module by name
func (r *ModuleRegistry) Get(name string) (Module, error) {
	if name == "" {
		return nil, fmt.Errorf("module name cannot be empty")
	}

	r.mu.RLock()
	defer r.mu.RUnlock()

	module, exists := r.modules[name]
	if !exists {
		return nil, fmt.Errorf("module %s not found", name)
	}
	return module, nil
}

// Names returns the registered module names in sorted order
func (r *ModuleRegistry) Names() []string {
	r.mu.RLock()
	defer r.mu.RUnlock()

	names := make([]string, 0, len(r.modules))
	for name := range r.modules {
		names = append(names, name)
	}
	sort.Strings(names)
	return names
}

// ParseParams converts a generic parameter map into a module's Params
// struct through a JSON round trip.
func ParseParams(params map[string]interface{}, target interface{}) error {
	if params == nil {
		return fmt.Errorf("params cannot be nil")
	}
	if target == nil {
		return fmt.Errorf("target cannot be nil")
	}

	v := reflect.ValueOf(target)
	if v.Kind() != reflect.Ptr || v.Elem().Kind() != reflect.Struct {
		return fmt.Errorf("target must be a pointer to a struct")
	}

	data, err := json.Marshal(params)
	if err != nil {
		return fmt.Errorf("error marshaling params: %w", err)
	}
	if err := json.Unmarshal(data, target); err != nil {
		return fmt.Errorf("error unmarshaling params: %w", err)
	}
	return nil
}
