// Package config holds the run settings of mcx, which can be read
// from a YAML file.
package config

import (
	"bytes"
	"errors"
	"fmt"
	"math"
	"os"
	"path/filepath"

	"gopkg.in/yaml.v3"
)

// HMCSettings configures the HMC kernel.
type HMCSettings struct {
	StepSize            float64 `yaml:"step_size"`
	NSteps              int     `yaml:"n_steps"`
	Jitter              float64 `yaml:"jitter"`
	DivergenceThreshold float64 `yaml:"divergence_threshold"`
	// Metric is unit, diagonal or dense.
	Metric string `yaml:"metric"`
	// InvMass is the diagonal or the row-major dense inverse mass
	// matrix.
	InvMass []float64 `yaml:"inv_mass,omitempty"`
}

// RWMSettings configures the Random Walk Metropolis kernel.
type RWMSettings struct {
	SD float64 `yaml:"sd"`
	// Proposal is normal, uniform or mvnormal.
	Proposal string `yaml:"proposal"`
	// Cov is the row-major covariance of the mvnormal proposal.
	Cov []float64 `yaml:"cov,omitempty"`
}

// OutputSettings configures the output files.
type OutputSettings struct {
	Trajectory        string  `yaml:"trajectory,omitempty"`
	JSON              string  `yaml:"json,omitempty"`
	Checkpoint        string  `yaml:"checkpoint,omitempty"`
	CheckpointSeconds float64 `yaml:"checkpoint_seconds"`
}

// Settings are the run settings.
type Settings struct {
	Target string `yaml:"target"`
	Dim    int    `yaml:"dim"`
	// Data is a file with whitespace separated observations.
	Data       string `yaml:"data,omitempty"`
	Kernel     string `yaml:"kernel"`
	Iterations int    `yaml:"iterations"`
	Report     int    `yaml:"report"`
	Accept     int    `yaml:"accept"`
	// Seed < 0 is time based.
	Seed int64 `yaml:"seed"`
	// Init is zero, map or a trajectory/JSON file name.
	Init string `yaml:"init"`

	HMC    HMCSettings    `yaml:"hmc"`
	RWM    RWMSettings    `yaml:"rwm"`
	Output OutputSettings `yaml:"output"`
}

// Default returns the default settings.
func Default() *Settings {
	return &Settings{
		Target:     "normal",
		Dim:        2,
		Kernel:     "hmc",
		Iterations: 10000,
		Report:     10,
		Accept:     200,
		Seed:       -1,
		Init:       "zero",
		HMC: HMCSettings{
			StepSize:            0.1,
			NSteps:              10,
			DivergenceThreshold: 1000,
			Metric:              "unit",
		},
		RWM: RWMSettings{
			SD:       0.5,
			Proposal: "normal",
		},
		Output: OutputSettings{
			CheckpointSeconds: 60,
		},
	}
}

// Load reads the settings from a YAML file. Values missing from the
// file keep their defaults and unknown keys are an error.
func Load(path string) (*Settings, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("failed to read config: %w", err)
	}

	s := Default()
	dec := yaml.NewDecoder(bytes.NewReader(data))
	dec.KnownFields(true)
	if err := dec.Decode(s); err != nil {
		return nil, fmt.Errorf("failed to parse config: %w", err)
	}

	return s, nil
}

// Save writes the settings to a YAML file.
func (s *Settings) Save(path string) error {
	if err := os.MkdirAll(filepath.Dir(path), 0755); err != nil {
		return fmt.Errorf("failed to create config directory: %w", err)
	}

	data, err := yaml.Marshal(s)
	if err != nil {
		return fmt.Errorf("failed to marshal config: %w", err)
	}

	if err := os.WriteFile(path, data, 0644); err != nil {
		return fmt.Errorf("failed to write config file: %w", err)
	}
	return nil
}

// Validate checks the settings.
func (s *Settings) Validate() error {
	var errs []error
	add := func(format string, a ...interface{}) {
		errs = append(errs, fmt.Errorf(format, a...))
	}

	if s.Dim < 1 {
		add("dim should be >= 1, got %d", s.Dim)
	}
	if s.Iterations < 0 {
		add("iterations should be >= 0, got %d", s.Iterations)
	}
	if s.Report < 1 {
		add("report should be >= 1, got %d", s.Report)
	}
	if s.Accept < 1 {
		add("accept should be >= 1, got %d", s.Accept)
	}

	switch s.Kernel {
	case "hmc":
		h := s.HMC
		if !(h.StepSize > 0) || math.IsInf(h.StepSize, 0) {
			add("hmc step size should be > 0, got %v", h.StepSize)
		}
		if h.NSteps < 1 {
			add("hmc number of steps should be >= 1, got %d", h.NSteps)
		}
		if !(h.Jitter >= 0 && h.Jitter < 1) {
			add("hmc jitter should be in [0, 1), got %v", h.Jitter)
		}
		if !(h.DivergenceThreshold > 0) {
			add("divergence threshold should be > 0, got %v", h.DivergenceThreshold)
		}
		switch h.Metric {
		case "unit":
		case "diagonal", "dense":
			if len(h.InvMass) == 0 {
				add("%s metric requires inv_mass", h.Metric)
			}
		default:
			add("unknown metric: %s", h.Metric)
		}
	case "rwm":
		if !(s.RWM.SD > 0) {
			add("rwm sd should be > 0, got %v", s.RWM.SD)
		}
		switch s.RWM.Proposal {
		case "normal", "uniform":
		case "mvnormal":
			if len(s.RWM.Cov) == 0 {
				add("mvnormal proposal requires cov")
			}
		default:
			add("unknown proposal: %s", s.RWM.Proposal)
		}
	default:
		add("unknown kernel: %s", s.Kernel)
	}

	if s.Output.CheckpointSeconds < 0 {
		add("checkpoint seconds should be >= 0, got %v", s.Output.CheckpointSeconds)
	}

	return errors.Join(errs...)
}
