// Package solver provides the numeric backends used by the simulator:
// a bounded linear-program solver for flux balance analysis and adaptive
// ODE integrators for kinetic simulation.
//
// Both are expressed as small capability interfaces (LinearProgramSolver,
// Integrator) so alternate backends can be substituted without touching
// matrix construction or rate-law code.
package solver
