// register.go wires the synthetic engine into the engine package's
// registration variable (NewSimulatorFunc). This init() runs when any package
// imports engine/synthetic, so code depending only on the engine interface
// can still obtain a default implementation.
package synthetic

import "github.com/reionmc/reionmc/engine"

func init() {
	engine.NewSimulatorFunc = func(cells int) engine.Simulator {
		return New(cells)
	}
}
