package mcmc

import "github.com/google/uuid"

// Context is the iteration-local data carrier between stages. A fresh one is
// created for every sampler iteration and is never shared between
// concurrently evaluated parameter vectors.
//
// Access is through Add/Get only, never raw subscripting, so stages stay
// agnostic of the storage representation.
type Context struct {
	id     string
	params ParamValues
	data   map[string]any
}

// NewContext creates an empty context carrying the iteration's sampled
// parameter values.
func NewContext(params ParamValues) *Context {
	return &Context{
		id:     uuid.NewString(),
		params: params,
		data:   make(map[string]any),
	}
}

// ID is a unique identifier of this iteration, used for log correlation.
func (c *Context) ID() string { return c.id }

// Add stores a named value. Stages overwrite an existing entry only when
// layering mock noise onto their own model data.
func (c *Context) Add(name string, value any) {
	c.data[name] = value
}

// Get returns the named value, reporting whether it exists.
func (c *Context) Get(name string) (any, bool) {
	v, ok := c.data[name]
	return v, ok
}

// GetParams returns the current iteration's sampled-parameter values.
func (c *Context) GetParams() ParamValues { return c.params }
