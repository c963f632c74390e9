package metrics

import (
	"fmt"
	"reflect"
	"sort"
	"strings"
	"sync"
)

// DuplicateMetric is the error returned by Registry.Register when the
// named metric already exists.
type DuplicateMetric string

func (err DuplicateMetric) Error() string {
	return fmt.Sprintf("duplicate metric: %s", string(err))
}

// A Registry holds references to a set of metrics by name and can iterate
// over them, calling callback functions provided by the user.
//
// This is an interface so as to encourage other structs to implement the
// Registry API as appropriate.
type Registry interface {
	// Each calls the given function for each registered metric.
	Each(func(string, interface{}))

	// Get the metric by the given name or nil if none is registered.
	Get(string) interface{}

	// GetOrRegister gets an existing metric or registers the given one.
	// The interface can be the metric to register if not found in
	// registry, or a function returning the metric for lazy
	// instantiation.
	GetOrRegister(string, interface{}) interface{}

	// Register the given metric under the given name.
	Register(string, interface{}) error

	// RunHealthchecks runs all registered healthchecks.
	RunHealthchecks()

	// Unregister the metric with the given name.
	Unregister(string)
}

// stoppable is implemented by metrics that need to deregister themselves
// from the arbiter goroutine when removed from a registry.
type stoppable interface {
	Stop()
}

// StandardRegistry is the standard implementation of a Registry, backed
// by a sync.Map.
type StandardRegistry struct {
	metrics sync.Map
}

// NewRegistry creates a new empty registry.
func NewRegistry() Registry {
	return &StandardRegistry{}
}

// Each calls the given function for each registered metric, in
// ascending order by name: callers like the prometheus exporter depend
// on a deterministic traversal order.
func (r *StandardRegistry) Each(f func(string, interface{})) {
	all := r.registered()
	names := make([]string, 0, len(all))
	for name := range all {
		names = append(names, name)
	}
	sort.Strings(names)
	for _, name := range names {
		f(name, all[name])
	}
}

// Get the metric by the given name or nil if none is registered.
func (r *StandardRegistry) Get(name string) interface{} {
	item, ok := r.metrics.Load(name)
	if !ok {
		return nil
	}
	return item
}

// GetOrRegister gets an existing metric or registers the given one. The
// interface can be the metric to register if not found in registry, or a
// function returning the metric for lazy instantiation.
func (r *StandardRegistry) GetOrRegister(name string, i interface{}) interface{} {
	if metric, ok := r.metrics.Load(name); ok {
		return metric
	}
	if v := reflect.ValueOf(i); v.Kind() == reflect.Func {
		i = v.Call(nil)[0].Interface()
	}
	item, _ := r.metrics.LoadOrStore(name, i)
	registerArbiter(item)
	return item
}

// Register the given metric under the given name. Returns a
// DuplicateMetric if the name is already taken.
func (r *StandardRegistry) Register(name string, i interface{}) error {
	if v := reflect.ValueOf(i); v.Kind() == reflect.Func {
		i = v.Call(nil)[0].Interface()
	}
	if _, ok := r.metrics.LoadOrStore(name, i); ok {
		return DuplicateMetric(name)
	}
	registerArbiter(i)
	return nil
}

// RunHealthchecks is a placeholder for API parity; this registry carries
// no Healthcheck metric type.
func (r *StandardRegistry) RunHealthchecks() {}

// Unregister the metric with the given name.
func (r *StandardRegistry) Unregister(name string) {
	item, ok := r.metrics.LoadAndDelete(name)
	if !ok {
		return
	}
	if s, ok := item.(stoppable); ok {
		s.Stop()
	}
}

func (r *StandardRegistry) registered() map[string]interface{} {
	out := make(map[string]interface{})
	r.metrics.Range(func(k, v interface{}) bool {
		out[k.(string)] = v
		return true
	})
	return out
}

// registerArbiter lets a Meter or Timer start ticking as soon as it is
// added to any registry.
func registerArbiter(i interface{}) {
	switch m := i.(type) {
	case *StandardMeter:
		arbiterRegister(m)
	case *StandardTimer:
		arbiterRegister(m.meter)
	}
}

// PrefixedRegistry wraps a StandardRegistry so every name Register/Get
// sees is transparently prefixed.
type PrefixedRegistry struct {
	underlying Registry
	prefix     string
}

// NewPrefixedRegistry creates a new registry with the given prefix.
func NewPrefixedRegistry(prefix string) Registry {
	return &PrefixedRegistry{
		underlying: NewRegistry(),
		prefix:     prefix,
	}
}

// NewPrefixedChildRegistry creates a new registry with the given prefix,
// delegating to parent (which may itself be prefixed).
func NewPrefixedChildRegistry(parent Registry, prefix string) Registry {
	return &PrefixedRegistry{
		underlying: parent,
		prefix:     prefix,
	}
}

// Each calls the given function for each registered metric.
func (r *PrefixedRegistry) Each(fn func(string, interface{})) {
	wrappedFn := func(prefix string) func(string, interface{}) {
		return func(name string, iface interface{}) {
			if strings.HasPrefix(name, prefix) {
				fn(name, iface)
			}
		}
	}

	baseRegistry, prefix := findPrefix(r, "")
	baseRegistry.Each(wrappedFn(prefix))
}

func findPrefix(registry Registry, prefix string) (Registry, string) {
	switch r := registry.(type) {
	case *PrefixedRegistry:
		return findPrefix(r.underlying, r.prefix+prefix)
	case *StandardRegistry:
		return r, prefix
	}
	return registry, prefix
}

// Get the metric by the given name or nil if none is registered.
func (r *PrefixedRegistry) Get(name string) interface{} {
	realName := r.prefix + name
	return r.underlying.Get(realName)
}

// GetOrRegister gets an existing metric or registers the given one under
// the prefixed name.
func (r *PrefixedRegistry) GetOrRegister(name string, metric interface{}) interface{} {
	realName := r.prefix + name
	return r.underlying.GetOrRegister(realName, metric)
}

// Register the given metric under the prefixed name.
func (r *PrefixedRegistry) Register(name string, metric interface{}) error {
	realName := r.prefix + name
	return r.underlying.Register(realName, metric)
}

// RunHealthchecks runs all healthchecks, delegated through to the
// underlying registry.
func (r *PrefixedRegistry) RunHealthchecks() {
	r.underlying.RunHealthchecks()
}

// Unregister the metric with the given (unprefixed) name.
func (r *PrefixedRegistry) Unregister(name string) {
	realName := r.prefix + name
	r.underlying.Unregister(realName)
}

// DefaultRegistry is the default registry used by package-level
// Register/GetOrRegister calls, and by CollectProcessMetrics.
var DefaultRegistry Registry = NewRegistry()

// Register the given metric under the given name on the default
// registry.
func Register(name string, metric interface{}) error {
	return DefaultRegistry.Register(name, metric)
}

// MustRegister registers the given metric, panicking on failure: for
// metrics that can't fail (fresh names at init time) rather than forcing
// every caller to check an error that will never occur.
func MustRegister(name string, metric interface{}) {
	if err := Register(name, metric); err != nil {
		panic(err)
	}
}

// GetOrRegister gets an existing metric or registers the given one on the
// default registry.
func GetOrRegister(name string, metric interface{}) interface{} {
	return DefaultRegistry.GetOrRegister(name, metric)
}

// Unregister the metric with the given name on the default registry.
func Unregister(name string) {
	DefaultRegistry.Unregister(name)
}

// eachSorted calls fn once per metric in r, in name order; used by
// WriteOnce.
func eachSorted(r Registry, fn func(name string, i interface{})) {
	var names []string
	all := make(map[string]interface{})
	r.Each(func(name string, i interface{}) {
		names = append(names, name)
		all[name] = i
	})
	sort.Strings(names)
	for _, name := range names {
		fn(name, all[name])
	}
}
