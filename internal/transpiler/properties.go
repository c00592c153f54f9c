// Package transpiler runs compiler passes in sequence over a circuit graph,
// sharing analysis results through a write-once property set.
package transpiler

import (
	"errors"
	"fmt"
	"sort"
	"sync"
)

// LayoutKey is the property holding the logical→physical qubit Layout.
const LayoutKey = "layout"

// ErrPropertyExists is returned when a stage writes a key twice.
var ErrPropertyExists = errors.New("property already set")

// Layout maps logical qubit i (in graph wire order) to a physical qubit.
type Layout []int

// Physical returns the physical qubit for logical qubit q.
func (l Layout) Physical(q int) (int, bool) {
	if q < 0 || q >= len(l) {
		return 0, false
	}
	return l[q], true
}

// TrivialLayout maps every logical qubit to the physical qubit of the same
// index.
func TrivialLayout(n int) Layout {
	l := make(Layout, n)
	for i := range l {
		l[i] = i
	}
	return l
}

// Properties is the read-only view passes receive.
type Properties interface {
	Get(key string) (any, bool)
	Layout() (Layout, bool)
}

// PropertySet stores values written by analysis stages. Each key can be
// written once per pipeline run.
type PropertySet struct {
	mu     sync.RWMutex
	values map[string]any
}

func NewPropertySet() *PropertySet {
	return &PropertySet{values: make(map[string]any)}
}

// Set stores value under key.
func (p *PropertySet) Set(key string, value any) error {
	p.mu.Lock()
	defer p.mu.Unlock()
	if _, ok := p.values[key]; ok {
		return fmt.Errorf("%w: %q", ErrPropertyExists, key)
	}
	p.values[key] = value
	return nil
}

func (p *PropertySet) Get(key string) (any, bool) {
	p.mu.RLock()
	defer p.mu.RUnlock()
	v, ok := p.values[key]
	return v, ok
}

// Layout returns the layout property when present and well-typed.
func (p *PropertySet) Layout() (Layout, bool) {
	v, ok := p.Get(LayoutKey)
	if !ok {
		return nil, false
	}
	l, ok := v.(Layout)
	return l, ok
}

// Keys returns the stored keys in sorted order.
func (p *PropertySet) Keys() []string {
	p.mu.RLock()
	defer p.mu.RUnlock()
	keys := make([]string, 0, len(p.values))
	for k := range p.values {
		keys = append(keys, k)
	}
	sort.Strings(keys)
	return keys
}

// View hides Set from transformation passes.
func (p *PropertySet) View() Properties { return readOnly{p} }

type readOnly struct{ p *PropertySet }

func (r readOnly) Get(key string) (any, bool) { return r.p.Get(key) }
func (r readOnly) Layout() (Layout, bool)     { return r.p.Layout() }
