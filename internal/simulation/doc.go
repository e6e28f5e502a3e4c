// Package simulation provides a test harness for validating the numeric
// behavior of the simulator against small, fully specified pathways.
//
// The harness exercises the real Simulator, SQLiteGraphStore, LP solver and
// integrators with no mocks. A Scenario describes a pathway and a sequence of
// steps; each step clones the base config, applies its changes (or a what-if
// perturbation) and records the run, so assertions can compare outcomes
// across steps as well as within a single run.
//
// Each test gets an isolated SQLite database via t.TempDir() and a sandboxed
// HOME to prevent touching user data.
//
// Usage:
//
//	func TestKnockoutSweep(t *testing.T) {
//	    r := simulation.NewRunner(t)
//	    result := r.Run(simulation.Scenario{
//	        Name:    "hk-sweep",
//	        Pathway: simulation.HexokinasePathway(),
//	        Mode:    simulate.ModeFBA,
//	        Steps:   simulation.ActivitySweep(simulation.EnzymeHK, 0, 0.5, 1),
//	    })
//	    simulation.AssertFluxMonotonic(t, result, simulation.ReactionHK, simulation.Increasing)
//	}
package simulation
