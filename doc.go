// Package ipctk is a continuous collision detection and barrier-potential
// engine for incremental potential contact simulation.
//
// Given two snapshots of a surface mesh (positions at t=0 and t=1) and a set
// of active proximity constraints, it answers three questions:
//
//   - the largest fraction of the step that keeps every primitive pair
//     outside its minimum separation (ComputeCollisionFreeStepsize);
//   - the value, gradient, and Hessian of a log-barrier potential over the
//     constraint set (ComputeBarrierPotential and friends);
//   - whether a configuration self-intersects (HasIntersections).
//
// Positions are gonum matrices with one row per vertex and 2 or 3 columns.
// The potential, gradient, Hessian, minimum-distance, step-size and
// step-check queries run in parallel over constraints or candidates;
// HasIntersections and the weight-gradient term of the shape derivative run
// serially. No query holds state between calls.
package ipctk
