// Package vector derives the fixed-shape numeric arrays attached to every
// encoded step: a 7-element state (pose plus normalized gripper) and a
// 7-element action holding the delta to the next state. The delta convention
// encodes cartesian-delta control, the standard target for manipulation
// policy training, and fixes a deterministic rule at the episode boundary.
package vector
