package functions

import (
	"fmt"
	"strings"
	"sync"

	"github.com/mandelsoft/fxengine/pkg/utils"
)

var ErrUnknownFunction = fmt.Errorf("unknown function")
var ErrArity = fmt.Errorf("invalid number of arguments")
var ErrDuplicate = fmt.Errorf("function already registered")

// Registry maps function names (case-insensitive) to functions.
type Registry struct {
	lock      sync.RWMutex
	functions map[string]Function
}

func NewRegistry() *Registry {
	return &Registry{functions: map[string]Function{}}
}

// NewDefaultRegistry returns a new registry with
// all built-in functions.
func NewDefaultRegistry() *Registry {
	r := NewRegistry()
	for _, f := range Builtins() {
		if err := r.Register(f); err != nil {
			panic(err)
		}
	}
	return r
}

func (r *Registry) Register(f Function) error {
	r.lock.Lock()
	defer r.lock.Unlock()

	name := strings.ToUpper(f.Name())
	if _, ok := r.functions[name]; ok {
		return fmt.Errorf("%s: %w", name, ErrDuplicate)
	}
	r.functions[name] = f
	return nil
}

func (r *Registry) Lookup(name string) (Function, bool) {
	r.lock.RLock()
	defer r.lock.RUnlock()

	f, ok := r.functions[strings.ToUpper(name)]
	return f, ok
}

func (r *Registry) Names() []string {
	r.lock.RLock()
	defer r.lock.RUnlock()
	return utils.OrderedMapKeys(r.functions)
}

// CheckArity validates the argument count for a function.
func CheckArity(f Function, n int) error {
	min, max := f.Arity()
	if n < min || (max >= 0 && n > max) {
		switch {
		case max < 0:
			return fmt.Errorf("%s requires at least %d arguments, but got %d: %w", f.Name(), min, n, ErrArity)
		case min == max:
			return fmt.Errorf("%s requires %d arguments, but got %d: %w", f.Name(), min, n, ErrArity)
		default:
			return fmt.Errorf("%s requires %d to %d arguments, but got %d: %w", f.Name(), min, max, n, ErrArity)
		}
	}
	return nil
}
