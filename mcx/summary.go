package main

import (
	"bitbucket.org/Davydov/mcx/chain"
	"bitbucket.org/Davydov/mcx/rng"
)

// RunSummary is storing mcx run summary information.
type RunSummary struct {
	// Version stores mcx version.
	Version string `json:"version"`
	// CommandLine is an array storing binary name and all command-line parameters.
	CommandLine []string `json:"commandLine"`
	// Seed is the seed used for random number generation initialization.
	Seed int64 `json:"seed"`
	// Key is the initial random key derived from the seed.
	Key    rng.Key `json:"key"`
	Target string  `json:"target"`
	Kernel string  `json:"kernel"`
	// Time is the computations time in seconds.
	Time  float64       `json:"time"`
	Chain chain.Summary `json:"chain"`
}
