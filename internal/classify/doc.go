// Package classify labels episodes by their naming scheme and derives the
// language instruction attached to each encoded episode.
//
// Two schemes exist in practice: operator-named numeric identifiers ("1",
// "23") and automatically recorded episodes named with a YYYYMMDDHHMMSS
// timestamp. Classification routes an episode into its output corpora and
// selects the instruction rule; anything unrecognized is treated as numbered
// so no episode is ever dropped for its name alone.
package classify
