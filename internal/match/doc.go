// Package match aligns an episode's image set to its trace sample sequence.
//
// The distribution algorithm runs as two explicit passes. Proportional
// computes the global evenly-spread assignment that guarantees full coverage
// of the image set without drift, and Refine performs a bounded local search
// for the nearest capture timestamp to absorb bursty capture and dropped
// frames. A final offset gate turns steps whose nearest image is still too
// far away into tagged placeholder steps.
//
// The passes are separate functions so their determinism, tie-break, and
// monotonicity rules stay independently testable.
package match
