// Package simulate runs metabolic simulations over the reactions stored in a
// knowledge graph.
//
// Three analyses are provided:
//   - Flux balance analysis (RunFBA): a steady-state linear program over the
//     stoichiometric matrix.
//   - Kinetic simulation (RunODE): Michaelis-Menten rate laws integrated over
//     time from initial concentrations.
//   - What-if comparison (RunWhatIf, RunWhatIfBatch): a baseline run against a
//     run perturbed by enzyme knockouts, activity factors, and concentration
//     overrides.
//
// Every run returns a result record with a status field. Go errors are reserved
// for caller misuse such as an unknown mode or a malformed scenario.
package simulate
