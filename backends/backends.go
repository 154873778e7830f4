// Package backends defines the interface the IR layer lowers to: an abstract
// op-builder that a computation building and execution system needs to
// implement.
//
// The IR core (package github.com/gomlx/lazyir/ir) only consumes this
// interface -- it walks a node DAG and drives a Builder to emit one backend
// op per node output. Execution of the compiled program is owned by the
// backend, not by the IR.
//
// Backends register themselves with Register (usually during package
// initialization), and are instantiated with New or MustNew.
package backends

import (
	"os"
	"strings"

	"github.com/pkg/errors"
	"k8s.io/klog/v2"
)

// Backend is the API that needs to be implemented by a lazyir backend.
type Backend interface {
	// Name returns the short name of the backend, e.g. "trace".
	Name() string

	// Description is a longer description of the Backend that can be used to pretty-print.
	Description() string

	// Capabilities returns what operations and dtypes this backend supports.
	Capabilities() Capabilities

	// Builder creates a new builder used to define a new named computation.
	Builder(name string) Builder
}

// Constructor takes a config string (optionally empty) and returns a Backend.
type Constructor func(config string) (Backend, error)

// ConfigEnvVar is the environment variable with the default backend
// configuration: its value is formatted as "<backend_name>[:<backend_config>]".
const ConfigEnvVar = "LAZYIR_BACKEND"

var (
	registeredConstructors = make(map[string]Constructor)
	firstRegistered        string
)

// Register a backend constructor under the given name.
//
// To be safe, call Register during initialization of a package.
func Register(name string, constructor Constructor) {
	if _, found := registeredConstructors[name]; found {
		klog.Errorf("backend %q being registered more than once, previous registration being overwritten", name)
	}
	if len(registeredConstructors) == 0 {
		firstRegistered = name
	}
	registeredConstructors[name] = constructor
}

// List returns the names of the registered backends.
func List() []string {
	names := make([]string, 0, len(registeredConstructors))
	for name := range registeredConstructors {
		names = append(names, name)
	}
	return names
}

// NewWithConfig takes a configuration string formatted as
// "<backend_name>[:<backend_config>]" and returns a new Backend.
func NewWithConfig(config string) (Backend, error) {
	parts := strings.SplitN(config, ":", 2)
	name := parts[0]
	var backendConfig string
	if len(parts) > 1 {
		backendConfig = parts[1]
	}
	if name == "" {
		name = firstRegistered
	}
	constructor, found := registeredConstructors[name]
	if !found {
		return nil, errors.Errorf("backend %q not registered -- registered backends: %v", name, List())
	}
	return constructor(backendConfig)
}

// New returns a new Backend, configured from the LAZYIR_BACKEND environment
// variable if set, otherwise using the first registered backend.
func New() (Backend, error) {
	if len(registeredConstructors) == 0 {
		return nil, errors.Errorf("no backends registered -- import one, e.g. github.com/gomlx/lazyir/backends/trace")
	}
	return NewWithConfig(os.Getenv(ConfigEnvVar))
}

// MustNew is like New, but panics in case of error.
func MustNew() Backend {
	backend, err := New()
	if err != nil {
		panic(err)
	}
	return backend
}
