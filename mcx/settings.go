package main

import (
	"bufio"
	"encoding/json"
	"errors"
	"fmt"
	"os"
	"strings"

	"gonum.org/v1/gonum/mat"

	"bitbucket.org/Davydov/mcx/chain"
	"bitbucket.org/Davydov/mcx/config"
	"bitbucket.org/Davydov/mcx/hamiltonian"
	"bitbucket.org/Davydov/mcx/kernel"
	"bitbucket.org/Davydov/mcx/optimize"
	"bitbucket.org/Davydov/mcx/proposal"
	"bitbucket.org/Davydov/mcx/ravel"
	"bitbucket.org/Davydov/mcx/target"
)

// applyFlags overrides the settings by the command line parameters
// (global variables) which were given.
func applyFlags(s *config.Settings) {
	setString := func(dst *string, v string) {
		if v != "" {
			*dst = v
		}
	}
	setInt := func(dst *int, v int) {
		if v >= 0 {
			*dst = v
		}
	}
	setFloat := func(dst *float64, v float64) {
		if v >= 0 {
			*dst = v
		}
	}

	setString(&s.Target, *targetName)
	setInt(&s.Dim, *dim)
	setString(&s.Data, *dataF)
	setString(&s.Kernel, *kernelName)
	setInt(&s.Iterations, *iterations)
	setInt(&s.Report, *report)
	setInt(&s.Accept, *accept)
	if *seed >= 0 {
		s.Seed = *seed
	}
	setString(&s.Init, *initPos)

	setFloat(&s.HMC.StepSize, *stepSize)
	setInt(&s.HMC.NSteps, *nSteps)
	setFloat(&s.HMC.Jitter, *jitter)
	setFloat(&s.HMC.DivergenceThreshold, *divergence)
	setString(&s.HMC.Metric, *metric)
	if *invMass != "" {
		v, err := readMatrix(*invMass)
		if err != nil {
			log.Fatal("Error parsing inverse mass matrix:", err)
		}
		s.HMC.InvMass = v
	}

	setFloat(&s.RWM.SD, *sd)
	setString(&s.RWM.Proposal, *proposalName)
	if *cov != "" {
		v, err := readMatrix(*cov)
		if err != nil {
			log.Fatal("Error parsing covariance matrix:", err)
		}
		s.RWM.Cov = v
	}

	setString(&s.Output.Trajectory, *outF)
	setString(&s.Output.JSON, *jsonF)
	setString(&s.Output.Checkpoint, *checkF)
	setFloat(&s.Output.CheckpointSeconds, *checkSec)
}

// readMatrix parses comma or space separated matrix values.
func readMatrix(v string) ([]float64, error) {
	return ravel.ReadFloats(strings.ReplaceAll(v, ",", " "))
}

// readData reads whitespace separated observations.
func readData(fn string) ([]float64, error) {
	b, err := os.ReadFile(fn)
	if err != nil {
		return nil, err
	}
	data, err := ravel.ReadFloats(string(b))
	if err != nil {
		return nil, fmt.Errorf("error reading data from %s: %v", fn, err)
	}
	if len(data) == 0 {
		return nil, fmt.Errorf("no data in %s", fn)
	}
	return data, nil
}

// newTarget returns a target from the settings.
func newTarget(s *config.Settings) (target.Target, error) {
	switch s.Target {
	case "normal":
		log.Info("Using standard normal target")
		return target.NewStdNormal(s.Dim), nil
	case "mvnormal":
		log.Info("Using correlated normal target (rho=0.9)")
		return newCorrelatedNormal(s.Dim, 0.9)
	case "banana":
		if s.Dim < 2 {
			return nil, errors.New("banana target requires dim >= 2")
		}
		log.Info("Using banana target")
		return target.NewBanana(s.Dim), nil
	case "funnel":
		if s.Dim < 2 {
			return nil, errors.New("funnel target requires dim >= 2")
		}
		log.Info("Using funnel target")
		return target.NewFunnel(s.Dim), nil
	case "flat":
		log.Warning("Flat target is improper, the chain does not converge")
		return target.Flat{N: s.Dim}, nil
	case "normmodel":
		if s.Data == "" {
			return nil, errors.New("normmodel target requires data")
		}
		data, err := readData(s.Data)
		if err != nil {
			return nil, err
		}
		log.Infof("Using normal model, %d observations", len(data))
		return target.NewNormalModel(data), nil
	}
	return nil, fmt.Errorf("Unknown target: %s", s.Target)
}

// newCorrelatedNormal creates a normal distribution with covariance
// rho^|i-j|.
func newCorrelatedNormal(n int, rho float64) (*target.MVNormal, error) {
	cov := mat.NewSymDense(n, nil)
	for i := 0; i < n; i++ {
		v := 1.0
		for j := i; j < n; j++ {
			cov.SetSym(i, j, v)
			v *= rho
		}
	}
	return target.NewMVNormal(make([]float64, n), cov)
}

// lastLine returns the last line of a file content.
func lastLine(fn string) (line string, err error) {
	f, err := os.Open(fn)
	if err != nil {
		return line, err
	}
	defer f.Close()
	scanner := bufio.NewScanner(f)
	for scanner.Scan() {
		line = scanner.Text()
	}
	err = scanner.Err()
	return line, err
}

// readStart reads parameter values from the last line of a trajectory
// or from a JSON record.
func readStart(fn string, names []string) ([]float64, error) {
	var pars ravel.Parameters
	for _, n := range names {
		pars.Append(&ravel.Parameter{Name: n})
	}
	l, err := lastLine(fn)
	if err == nil {
		var x []float64
		if x, err = pars.ReadLine(l); err == nil {
			return x, nil
		}
	}
	log.Debug("Reading start file as JSON")
	b, err2 := os.ReadFile(fn)
	if err2 == nil {
		var r ravel.Record
		if err2 = json.Unmarshal(b, &r); err2 == nil {
			return pars.FromRecord(r)
		}
	}
	// fn is neither trajectory nor correct JSON
	log.Error("Error reading start position from JSON:", err2)
	return nil, fmt.Errorf("error reading start position from trajectory file: %v", err)
}

// startPosition returns the starting point of the chain.
func startPosition(s *config.Settings, t target.Target) (kernel.Position, error) {
	switch s.Init {
	case "zero":
		if m, ok := t.(*target.Model); ok && s.Target == "normmodel" {
			data, err := readData(s.Data)
			if err != nil {
				return nil, err
			}
			return target.NormalModelStart(m, data), nil
		}
		return make(kernel.Position, t.Dim()), nil
	case "map":
		log.Info("Searching for the MAP starting point")
		m := optimize.NewMAP(t)
		m.SetReportPeriod(s.Report)
		pos, lp := m.Run(make(kernel.Position, t.Dim()))
		log.Infof("MAP lnP=%v", lp)
		return pos, nil
	}
	x, err := readStart(s.Init, target.Names(t))
	if err != nil {
		return nil, err
	}
	return target.Unconstrain(t, x), nil
}

// newStepper creates the chain stepper from the settings.
func newStepper(s *config.Settings, t target.Target, start kernel.Position) (chain.Stepper, error) {
	n := t.Dim()
	if len(start) != n {
		return nil, fmt.Errorf("start position has %d values, expected %d", len(start), n)
	}
	switch s.Kernel {
	case "hmc":
		h := s.HMC
		var m hamiltonian.Metric
		switch h.Metric {
		case "unit":
			m = hamiltonian.NewUnitMetric(n)
		case "diagonal":
			if len(h.InvMass) != n {
				return nil, fmt.Errorf("diagonal inverse mass should have %d values, got %d", n, len(h.InvMass))
			}
			m = hamiltonian.NewDiagonalMetric(h.InvMass)
		case "dense":
			if len(h.InvMass) != n*n {
				return nil, fmt.Errorf("dense inverse mass should have %d values, got %d", n*n, len(h.InvMass))
			}
			dm, err := hamiltonian.NewDenseMetric(mat.NewSymDense(n, h.InvMass))
			if err != nil {
				return nil, err
			}
			m = dm
		default:
			return nil, fmt.Errorf("Unknown metric: %s", h.Metric)
		}
		log.Infof("HMC step size=%v, steps=%d, jitter=%v, metric=%s", h.StepSize, h.NSteps, h.Jitter, h.Metric)
		ld := target.LogDensityGrad(t)
		k := hamiltonian.Kernel(ld, m, h.StepSize, h.NSteps, h.Jitter, h.DivergenceThreshold)
		return chain.NewHMCStepper(k, ld, start), nil
	case "rwm":
		var prop kernel.ProposalGenerator
		switch s.RWM.Proposal {
		case "normal":
			prop = proposal.Normal(s.RWM.SD, n)
		case "uniform":
			prop = proposal.Uniform(s.RWM.SD, n)
		case "mvnormal":
			if len(s.RWM.Cov) != n*n {
				return nil, fmt.Errorf("proposal covariance should have %d values, got %d", n*n, len(s.RWM.Cov))
			}
			var err error
			prop, err = proposal.MultivariateNormal(mat.NewSymDense(n, s.RWM.Cov))
			if err != nil {
				return nil, err
			}
		default:
			return nil, fmt.Errorf("Unknown proposal: %s", s.RWM.Proposal)
		}
		if s.RWM.Proposal == "mvnormal" {
			log.Infof("RWM mvnormal proposal, cov=%v", s.RWM.Cov)
		} else {
			log.Infof("RWM %s proposal, sd=%v", s.RWM.Proposal, s.RWM.SD)
		}
		ld := target.LogDensity(t)
		return chain.NewRWMStepper(kernel.NewRWM(ld, prop), ld, start), nil
	}
	return nil, fmt.Errorf("Unknown kernel: %s", s.Kernel)
}
