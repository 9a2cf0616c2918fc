package main

import "testing"

func TestVersionCommand(t *testing.T) {
	stdout, _, err := runCLI(t, []string{"version"}, "")
	if err != nil {
		t.Fatalf("version: %v", err)
	}
	requireContains(t, stdout, "loom "+version)
}
