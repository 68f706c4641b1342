package engine

import (
	"fmt"
	"sort"

	"github.com/mitchellh/mapstructure"
)

// UserParams fix the overall dimensions and resolution of the simulated
// boxes. They never vary within a chain.
type UserParams struct {
	BoxLen float64 `mapstructure:"BOX_LEN"`
	Dim    int     `mapstructure:"DIM"`
	HIIDim int     `mapstructure:"HII_DIM"`
}

// DefaultUserParams returns the fiducial box configuration used when the
// caller supplies nothing.
func DefaultUserParams() UserParams {
	return UserParams{BoxLen: 300, Dim: 600, HIIDim: 200}
}

// FlagOptions select between physical treatments inside the engine.
type FlagOptions struct {
	UseMassDependentZeta bool `mapstructure:"USE_MASS_DEPENDENT_ZETA"`
	InhomoReco           bool `mapstructure:"INHOMO_RECO"`
	UseTsFluct           bool `mapstructure:"USE_TS_FLUCT"`
}

// CosmoParams are the fiducial cosmological parameters. Any of them may be
// overridden per iteration when its name appears in the sampled-parameter
// set.
type CosmoParams struct {
	Sigma8     float64 `mapstructure:"SIGMA_8"`
	Hlittle    float64 `mapstructure:"hlittle"`
	OmegaM     float64 `mapstructure:"OMm"`
	OmegaB     float64 `mapstructure:"OMb"`
	PowerIndex float64 `mapstructure:"POWER_INDEX"`
}

// DefaultCosmoParams returns Planck-like fiducial values.
func DefaultCosmoParams() CosmoParams {
	return CosmoParams{Sigma8: 0.810, Hlittle: 0.6774, OmegaM: 0.3075, OmegaB: 0.0486, PowerIndex: 0.97}
}

// AstroParams are the fiducial astrophysical parameters of reionization.
type AstroParams struct {
	HIIEffFactor float64 `mapstructure:"HII_EFF_FACTOR"`
	IonTvirMin   float64 `mapstructure:"ION_Tvir_MIN"`
	RBubbleMax   float64 `mapstructure:"R_BUBBLE_MAX"`
	LX           float64 `mapstructure:"L_X"`
	NuXThresh    float64 `mapstructure:"NU_X_THRESH"`
	FStar10      float64 `mapstructure:"F_STAR10"`
	AlphaStar    float64 `mapstructure:"ALPHA_STAR"`
	FEsc10       float64 `mapstructure:"F_ESC10"`
	AlphaEsc     float64 `mapstructure:"ALPHA_ESC"`
	TStar        float64 `mapstructure:"t_STAR"`
	MTurn        float64 `mapstructure:"M_TURN"`
}

// DefaultAstroParams returns the fiducial astrophysical model.
func DefaultAstroParams() AstroParams {
	return AstroParams{
		HIIEffFactor: 30.0,
		IonTvirMin:   4.69897,
		RBubbleMax:   15.0,
		LX:           40.5,
		NuXThresh:    500.0,
		FStar10:      -1.3,
		AlphaStar:    0.5,
		FEsc10:       -1.0,
		AlphaEsc:     -0.5,
		TStar:        0.5,
		MTurn:        8.7,
	}
}

// Overlay returns a copy of fiducial with every field whose parameter name
// appears in values replaced by the sampled value. Names in values that do
// not correspond to a field are ignored. The returned slice lists the names
// that were consumed, in sorted order.
func Overlay[T any](fiducial T, values map[string]float64) (T, []string, error) {
	out := fiducial
	md := mapstructure.Metadata{}
	dec, err := mapstructure.NewDecoder(&mapstructure.DecoderConfig{
		Metadata:         &md,
		Result:           &out,
		WeaklyTypedInput: true,
	})
	if err != nil {
		return out, nil, fmt.Errorf("building overlay decoder: %w", err)
	}
	if err := dec.Decode(values); err != nil {
		return out, nil, fmt.Errorf("applying parameter overlay: %w", err)
	}
	sort.Strings(md.Keys)
	return out, md.Keys, nil
}

// FieldNames returns the parameter names (mapstructure tags) of a parameter
// struct, sorted.
func FieldNames(params any) []string {
	m := map[string]any{}
	if err := mapstructure.Decode(params, &m); err != nil {
		return nil
	}
	names := make([]string, 0, len(m))
	for k := range m {
		names = append(names, k)
	}
	sort.Strings(names)
	return names
}

// Fingerprint renders a parameter struct into a stable string form, suitable
// as a component of a cache key.
func Fingerprint(params any) string {
	return fmt.Sprintf("%+v", params)
}
