package mcmc

import (
	"fmt"
	"sort"
)

// Param is one sampled parameter: its initial value, hard bounds and the
// proposal width used to seed the walker ball.
type Param struct {
	Name  string
	Val   float64
	Min   float64
	Max   float64
	Width float64
}

// Params is the ordered, immutable set of sampled parameters of a chain.
// Names are unique; order is the declaration order.
type Params struct {
	order  []string
	byName map[string]Param
}

// NewParams builds a parameter set from params in the given order. Duplicate
// names and empty bounds are rejected.
func NewParams(params ...Param) (*Params, error) {
	p := &Params{byName: make(map[string]Param, len(params))}
	for _, pr := range params {
		if pr.Name == "" {
			return nil, configErrorf("parameter with empty name")
		}
		if _, ok := p.byName[pr.Name]; ok {
			return nil, configErrorf("duplicate parameter name %q", pr.Name)
		}
		if pr.Min > pr.Max {
			return nil, configErrorf("parameter %q has min %v > max %v", pr.Name, pr.Min, pr.Max)
		}
		p.order = append(p.order, pr.Name)
		p.byName[pr.Name] = pr
	}
	return p, nil
}

// Parameters is the sampled-parameter input RunMCMC accepts: either a
// pre-built *Params set or the plain ParamMapping form.
type Parameters interface {
	toParams() (*Params, error)
}

func (p *Params) toParams() (*Params, error) { return p, nil }

// ParamMapping is the plain name → (initial, min, max, width) mapping form.
type ParamMapping map[string][4]float64

func (m ParamMapping) toParams() (*Params, error) { return ParamsFromMap(m) }

// ParamsFromMap accepts the plain name → (val, min, max, width) mapping form.
// Map iteration order is not stable, so names are sorted to keep the chain
// deterministic across runs.
func ParamsFromMap(m map[string][4]float64) (*Params, error) {
	names := make([]string, 0, len(m))
	for k := range m {
		names = append(names, k)
	}
	sort.Strings(names)
	params := make([]Param, 0, len(names))
	for _, n := range names {
		v := m[n]
		params = append(params, Param{Name: n, Val: v[0], Min: v[1], Max: v[2], Width: v[3]})
	}
	return NewParams(params...)
}

// Len returns the number of sampled parameters.
func (p *Params) Len() int {
	if p == nil {
		return 0
	}
	return len(p.order)
}

// Names returns the parameter names in declaration order.
func (p *Params) Names() []string {
	if p == nil {
		return nil
	}
	out := make([]string, len(p.order))
	copy(out, p.order)
	return out
}

// Get returns the declaration of the named parameter.
func (p *Params) Get(name string) (Param, bool) {
	if p == nil {
		return Param{}, false
	}
	pr, ok := p.byName[name]
	return pr, ok
}

// Initial returns the initial-guess vector, ordered like Names.
func (p *Params) Initial() []float64 {
	if p == nil {
		return nil
	}
	out := make([]float64, len(p.order))
	for i, n := range p.order {
		out[i] = p.byName[n].Val
	}
	return out
}

// Vector pairs the parameter names with one sampled value per parameter.
func (p *Params) Vector(values []float64) (ParamValues, error) {
	if p.Len() != len(values) {
		return ParamValues{}, fmt.Errorf("parameter vector has %d values, want %d", len(values), p.Len())
	}
	pv := ParamValues{order: p.Names(), values: make(map[string]float64, len(values))}
	for i, n := range pv.order {
		pv.values[n] = values[i]
	}
	return pv, nil
}

// ParamValues is the current iteration's sampled-parameter values, exposed to
// stages through Context.GetParams.
type ParamValues struct {
	order  []string
	values map[string]float64
}

// Names returns the parameter names in declaration order.
func (pv ParamValues) Names() []string {
	out := make([]string, len(pv.order))
	copy(out, pv.order)
	return out
}

// Value returns the sampled value of the named parameter.
func (pv ParamValues) Value(name string) (float64, bool) {
	v, ok := pv.values[name]
	return v, ok
}

// AsMap returns a fresh name → value map of the sampled values.
func (pv ParamValues) AsMap() map[string]float64 {
	out := make(map[string]float64, len(pv.values))
	for k, v := range pv.values {
		out[k] = v
	}
	return out
}
