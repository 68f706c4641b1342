package mcmc

import (
	"reflect"
	"strings"

	"github.com/sirupsen/logrus"
)

// pkgLog is the default diagnostic sink. Chains carry their own *logrus.Entry
// (see NewChain); package-level helpers such as ModulesEqual fall back to this.
var pkgLog = logrus.WithField("component", "mcmc")

// Attributes is the explicit set of defining fields a module exports for
// structural equality. Each concrete module merges its own entries over its
// embedded base's.
type Attributes map[string]any

// CoreMatch matches loaded cores against one acceptable kind. Satisfaction is
// interface/type assertion, the Go analog of "instance of A or a subclass".
type CoreMatch struct {
	Name  string
	Match func(Module) bool
}

// MatchCore builds a CoreMatch for the concrete or interface type T.
func MatchCore[T any]() CoreMatch {
	t := reflect.TypeOf((*T)(nil)).Elem()
	return CoreMatch{
		Name: t.String(),
		Match: func(m Module) bool {
			_, ok := any(m).(T)
			return ok
		},
	}
}

// CoreGroup is an OR-group of acceptable core kinds: any one satisfying core
// loaded in the chain satisfies the group.
type CoreGroup []CoreMatch

// Requires is a convenience constructor for a CoreGroup.
func Requires(matches ...CoreMatch) CoreGroup { return CoreGroup(matches) }

// String renders the group for error messages, e.g. "(CoreCoeval | CoreLightCone)".
func (g CoreGroup) String() string {
	names := make([]string, len(g))
	for i, m := range g {
		names[i] = m.Name
	}
	return "(" + strings.Join(names, " | ") + ")"
}

func (g CoreGroup) satisfiedBy(cores []Core) bool {
	for _, c := range cores {
		for _, m := range g {
			if m.Match(c) {
				return true
			}
		}
	}
	return false
}

// Module is the shared identity/lifecycle contract of every pipeline stage
// and likelihood stage. Concrete modules embed ModuleBase, which supplies the
// unexported handle methods; the chain owns attachment and setup sequencing.
type Module interface {
	// Setup runs module-specific initialization. The chain invokes it after
	// validating RequiredCores; implementations may use the chain handle.
	Setup() error

	// RequiredCores declares the stage kinds this module depends on. All
	// groups must be satisfied; within a group any one match suffices.
	RequiredCores() []CoreGroup

	// DefiningAttributes exports the fields that define structural equality.
	DefiningAttributes() Attributes

	base() *ModuleBase
}

// ModuleBase carries the chain back-reference and lifecycle flags. The chain
// handle is set exactly once, by Chain.AddCore/AddLikelihood.
type ModuleBase struct {
	chain     *Chain
	self      Module
	setupDone bool
}

func (m *ModuleBase) base() *ModuleBase { return m }

// Setup is a no-op by default; variants override it.
func (m *ModuleBase) Setup() error { return nil }

// RequiredCores declares no dependencies by default.
func (m *ModuleBase) RequiredCores() []CoreGroup { return nil }

// DefiningAttributes exports nothing by default.
func (m *ModuleBase) DefiningAttributes() Attributes { return Attributes{} }

// attach binds the module to its owning chain. Called exactly once.
func (m *ModuleBase) attach(chain *Chain, self Module) error {
	if m.chain != nil {
		return ErrAlreadyAttached
	}
	m.chain = chain
	m.self = self
	return nil
}

// Chain returns the owning chain, or ErrNotAChain before attachment.
func (m *ModuleBase) Chain() (*Chain, error) {
	if m.chain == nil {
		return nil, ErrNotAChain
	}
	return m.chain, nil
}

// ParameterNames returns the names of the chain's sampled parameters (empty
// when the chain declares none).
func (m *ModuleBase) ParameterNames() ([]string, error) {
	chain, err := m.Chain()
	if err != nil {
		return nil, err
	}
	return chain.Params().Names(), nil
}

// IsSetup reports whether chain setup has completed for this module.
func (m *ModuleBase) IsSetup() bool { return m.setupDone }

func (m *ModuleBase) markSetup() { m.setupDone = true }

// ensureSetup gates chain-dependent behaviour that requires completed setup.
func (m *ModuleBase) ensureSetup() error {
	if m.chain == nil {
		return ErrNotAChain
	}
	if !m.setupDone {
		return ErrNotSetup
	}
	return nil
}

// LoadedCores returns all cores loaded in the owning chain.
func (m *ModuleBase) LoadedCores() ([]Core, error) {
	chain, err := m.Chain()
	if err != nil {
		return nil, err
	}
	return chain.CoreModules(), nil
}

// RequiredLoaded returns the loaded cores matching any of this module's
// required groups, in requirement declaration order.
func (m *ModuleBase) RequiredLoaded() ([]Core, error) {
	cores, err := m.LoadedCores()
	if err != nil {
		return nil, err
	}
	var out []Core
	for _, group := range m.self.RequiredCores() {
		for _, match := range group {
			for _, c := range cores {
				if match.Match(c) {
					out = append(out, c)
				}
			}
		}
	}
	return out, nil
}

// PrimaryCore returns the first required core, or the first loaded core when
// the module declares no requirements.
func (m *ModuleBase) PrimaryCore() (Core, error) {
	rq, err := m.RequiredLoaded()
	if err != nil {
		return nil, err
	}
	if len(rq) > 0 {
		return rq[0], nil
	}
	cores, err := m.LoadedCores()
	if err != nil {
		return nil, err
	}
	if len(cores) == 0 {
		return nil, configErrorf("chain has no core modules loaded")
	}
	return cores[0], nil
}

// checkRequiredCores validates that every declared group has at least one
// satisfying core among the loaded ones.
func checkRequiredCores(m Module, cores []Core) error {
	for _, group := range m.RequiredCores() {
		if !group.satisfiedBy(cores) {
			return &MissingCoreError{Module: moduleName(m), Group: group.String()}
		}
	}
	return nil
}

func moduleName(m Module) string {
	t := reflect.TypeOf(m)
	for t.Kind() == reflect.Ptr {
		t = t.Elem()
	}
	return t.Name()
}

// ModulesEqual compares two modules structurally. Modules of different
// concrete types are never equal; otherwise every defining attribute present
// in both must compare equal. Attributes missing from one side or holding
// values that do not allow comparison (functions, maps of functions) are
// logged as warnings and skipped rather than disqualifying, so stages holding
// non-comparable extras can still participate in deduplication.
func ModulesEqual(a, b Module) bool {
	if reflect.TypeOf(a) != reflect.TypeOf(b) {
		return false
	}
	attrsA := a.DefiningAttributes()
	attrsB := b.DefiningAttributes()
	for name, va := range attrsA {
		vb, ok := attrsB[name]
		if !ok {
			pkgLog.Warnf("attribute %s not found on compared instance of %s", name, moduleName(b))
			continue
		}
		if !comparableValue(va) || !comparableValue(vb) {
			pkgLog.Warnf("attribute %s of %s has a type which does not allow comparison", name, moduleName(a))
			continue
		}
		if !reflect.DeepEqual(va, vb) {
			return false
		}
	}
	return true
}

// comparableValue reports whether DeepEqual is meaningful for v. Function
// values (and containers of them) compare unequal even when logically the
// same, so they are treated as incomparable.
func comparableValue(v any) bool {
	if v == nil {
		return true
	}
	rv := reflect.ValueOf(v)
	switch rv.Kind() {
	case reflect.Func:
		return false
	case reflect.Map:
		return rv.Type().Elem().Kind() != reflect.Func
	case reflect.Slice, reflect.Array:
		return rv.Type().Elem().Kind() != reflect.Func
	default:
		return true
	}
}
