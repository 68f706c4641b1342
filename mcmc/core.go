package mcmc

import (
	"github.com/pkg/errors"
)

// StoreFunc extracts one serializable value from the iteration context for
// persistent chain storage. Store functions are transferred to sampler worker
// processes, so they must not capture unshareable local state; prefer named
// top-level functions over closures and bound methods.
type StoreFunc func(*Context) (any, error)

// Storage is the per-iteration output mapping filled by PrepareStorage.
type Storage map[string]any

// Core is a pipeline stage: a unit producing or transforming simulated data
// within one chain iteration.
type Core interface {
	Module

	// BuildModelData deterministically produces model predictions from the
	// context's current parameters and writes them into the context.
	BuildModelData(ctx *Context) error

	// ConvertModelToMock layers one stochastic draw over model data already
	// present in the context. It must not run before BuildModelData has
	// populated its inputs.
	ConvertModelToMock(ctx *Context) error

	// SimulateMock composes BuildModelData then ConvertModelToMock.
	SimulateMock(ctx *Context) error

	// PrepareStorage evaluates every store entry against the context and
	// writes the results into storage.
	PrepareStorage(ctx *Context, storage Storage) error
}

// CoreBase implements the storage and mock plumbing shared by every core.
// Concrete cores embed it and override BuildModelData/ConvertModelToMock.
type CoreBase struct {
	ModuleBase

	// Store maps output names to extraction functions evaluated each
	// iteration; default empty.
	Store map[string]StoreFunc
}

// BuildModelData is a no-op by default.
func (c *CoreBase) BuildModelData(ctx *Context) error { return nil }

// ConvertModelToMock is a no-op by default: no stochasticity unless a
// concrete core implements it and the caller explicitly asks for a mock.
func (c *CoreBase) ConvertModelToMock(ctx *Context) error { return nil }

// PrepareStorage runs every store function against the context. An extraction
// failure is logged with the failing entry's name and then propagated: it is
// fatal to the current iteration.
func (c *CoreBase) PrepareStorage(ctx *Context, storage Storage) error {
	for name, fn := range c.Store {
		val, err := fn(ctx)
		if err != nil {
			pkgLog.WithField("iteration", ctx.ID()).
				Errorf("evaluating storage function %s: %v", name, err)
			return errors.Wrapf(err, "evaluating storage function %s", name)
		}
		storage[name] = val
	}
	return nil
}

// SimulateMock runs BuildModelData then ConvertModelToMock, in that order,
// unconditionally. Dispatch goes through the chain-attached module handle so
// the concrete core's implementations run, not the base no-ops.
func (c *CoreBase) SimulateMock(ctx *Context) error {
	core, ok := c.self.(Core)
	if !ok {
		return ErrNotAChain
	}
	if err := core.BuildModelData(ctx); err != nil {
		return err
	}
	return core.ConvertModelToMock(ctx)
}
