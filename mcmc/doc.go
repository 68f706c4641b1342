// Package mcmc orchestrates parameter-dependent simulations inside a Monte
// Carlo likelihood-evaluation loop: per sampled parameter vector it decides
// which expensive simulation products can be reused across iterations, stages
// the simulation pipeline, optionally injects stochastic noise for synthetic
// mock observations, and exposes selected results for likelihood evaluation
// and persistent chain storage.
//
// # Reading Guide
//
// Start with these three files to understand the orchestration layer:
//   - module.go: stage identity, attach-once chain ownership, required-core
//     OR-groups and structural equality
//   - core.go: the build/mock/store contract every pipeline stage implements
//   - chain.go: attachment, setup sequencing and per-iteration evaluation
//
// # Architecture
//
// The mcmc package owns the caching/invalidation policy; the physics lives
// behind the engine.Simulator interface:
//   - engine/: the external-engine interface and parameter structs
//   - engine/synthetic/: a deterministic stand-in engine with its own
//     parameter-and-seed-keyed disk cache
//
// The three staged pipeline variants (CoreCoeval, CoreLightCone,
// CoreLuminosityFunction) share one pipeline kernel (coeval.go) that holds
// the parameter-overlay and seed-management policy; each variant supplies
// only its build step.
//
// # Concurrency
//
// Stage execution within one iteration is synchronous. The owning sampler may
// evaluate many parameter vectors concurrently (Chain.EvaluateBatch); each
// evaluation gets its own Context, and the only cross-iteration in-memory
// state is the read-only artifact pair pinned at setup.
package mcmc
