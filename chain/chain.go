// Package chain runs a Markov chain with a transition kernel, writes
// its trajectory, and saves checkpoints.
package chain

import (
	"errors"
	"fmt"
	"io"
	"math"
	"os"
	"os/signal"
	"strings"

	"github.com/op/go-logging"

	"bitbucket.org/Davydov/mcx/checkpoint"
	"bitbucket.org/Davydov/mcx/kernel"
	"bitbucket.org/Davydov/mcx/ravel"
	"bitbucket.org/Davydov/mcx/rng"
	"bitbucket.org/Davydov/mcx/stats"
)

// log is the global logging variable.
var log = logging.MustGetLogger("chain")

// Chain is a single Markov chain.
type Chain struct {
	stepper   Stepper
	target    string
	kernel    string
	names     []string
	constrain func(kernel.Position) []float64
	key       rng.Key

	// AccPeriod is how often the acceptance rate is logged.
	AccPeriod int
	repPeriod int
	// Quiet disables the trajectory output.
	Quiet bool
	out   io.Writer
	sig   chan os.Signal
	cio   *checkpoint.CheckpointIO

	i            int
	lastReported int
	steps        int
	accepted  int
	divergent int
	sumPAcc   float64
	maxLP     float64
	maxLPPar  []float64
	samples   [][]float64
}

// NewChain creates a new chain. names and constrain convert the flat
// position to the named parameter values written to the trajectory.
func NewChain(stepper Stepper, names []string, constrain func(kernel.Position) []float64, key rng.Key) *Chain {
	if !finite(stepper) {
		panic("starting position has zero probability")
	}
	if len(names) != len(stepper.Position()) {
		panic("incorrect number of parameter names")
	}
	c := &Chain{
		stepper:   stepper,
		names:     names,
		constrain: constrain,
		key:       key,
		AccPeriod:    10,
		repPeriod:    10,
		out:          os.Stdout,
		lastReported: -1,
	}
	c.resetMax()
	return c
}

func (c *Chain) resetMax() {
	c.maxLP = c.stepper.LogProb()
	c.maxLPPar = c.constrain(c.stepper.Position())
}

// SetReportPeriod sets how often the trajectory is written.
func (c *Chain) SetReportPeriod(period int) {
	if period < 1 {
		panic("report period should be >= 1")
	}
	c.repPeriod = period
}

// SetOutput sets the trajectory writer.
func (c *Chain) SetOutput(w io.Writer) {
	c.out = w
}

// WatchSignals makes the chain stop on signals.
func (c *Chain) WatchSignals(sigs ...os.Signal) {
	c.sig = make(chan os.Signal, 1)
	signal.Notify(c.sig, sigs...)
}

// SetModel names the target and the kernel. Checkpoints of another
// model are not resumed.
func (c *Chain) SetModel(target, kernel string) {
	c.target = target
	c.kernel = kernel
}

// SetCheckpointIO enables checkpoints.
func (c *Chain) SetCheckpointIO(cio *checkpoint.CheckpointIO) {
	c.cio = cio
}

// Iter returns the number of iterations done.
func (c *Chain) Iter() int {
	return c.i
}

// Key returns the key of the next iteration.
func (c *Chain) Key() rng.Key {
	return c.key
}

// Position returns the current position.
func (c *Chain) Position() kernel.Position {
	return c.stepper.Position()
}

// Resume restores the chain from the checkpoint. It returns false if
// there is no checkpoint.
func (c *Chain) Resume() (bool, error) {
	if c.cio == nil {
		return false, nil
	}
	data, err := c.cio.Load()
	if err != nil || data == nil {
		return false, err
	}
	if data.Target != c.target || data.Kernel != c.kernel {
		return false, fmt.Errorf("checkpoint is for target %q with kernel %q, not %q with %q",
			data.Target, data.Kernel, c.target, c.kernel)
	}
	if len(data.Position) != len(c.names) {
		return false, fmt.Errorf("checkpoint has %d parameters, expected %d", len(data.Position), len(c.names))
	}
	c.stepper.SetPosition(data.Position)
	if !finite(c.stepper) {
		return false, errors.New("checkpoint position has zero probability")
	}
	c.key = data.Key
	c.i = data.Iter
	c.accepted = data.Accepted
	c.divergent = data.Divergent
	c.lastReported = -1
	if data.Reported {
		c.lastReported = data.Iter
	}
	c.resetMax()
	return true, nil
}

// SaveCheckpoint saves the current state. A chain resumed from it
// continues exactly like this one.
func (c *Chain) SaveCheckpoint(final bool) {
	if c.cio == nil {
		return
	}
	c.cio.Save(&checkpoint.CheckpointData{
		Target:    c.target,
		Kernel:    c.kernel,
		Position:  c.stepper.Position(),
		LogProb:   c.stepper.LogProb(),
		Key:       c.key,
		Iter:      c.i,
		Accepted:  c.accepted,
		Divergent: c.divergent,
		Reported:  c.lastReported == c.i,
		Final:     final,
	})
}

func (c *Chain) printHeader() {
	if !c.Quiet {
		fmt.Fprintf(c.out, "iteration\tlnP\t%s\n", strings.Join(c.names, "\t"))
	}
}

func (c *Chain) printLine() {
	x := c.constrain(c.stepper.Position())
	c.samples = append(c.samples, x)
	c.lastReported = c.i
	if !c.Quiet {
		fmt.Fprintf(c.out, "%d\t%f\t%s\n", c.i, c.stepper.LogProb(), ravel.FormatValues(x))
	}
}

// Run moves the chain until iterations steps are done in total or a
// watched signal is received.
func (c *Chain) Run(iterations int) {
	if c.AccPeriod < 1 {
		panic("acceptance period should be >= 1")
	}
	if c.i == 0 {
		c.printHeader()
	}
	accepted := 0
	start := c.i
Iter:
	for ; c.i < iterations; c.i++ {
		if c.i > start && c.i%c.AccPeriod == 0 {
			log.Infof("Acceptance rate %.2f%%", 100*float64(accepted)/float64(c.AccPeriod))
			accepted = 0
		}

		// a resumed state may be written already
		if c.i%c.repPeriod == 0 && c.i != c.lastReported {
			c.printLine()
			log.Debugf("%d: lnP=%f", c.i, c.stepper.LogProb())
		}

		keys := c.key.Keys(2)
		c.key = keys[0]
		tr := c.stepper.Step(keys[1])
		c.steps++
		c.sumPAcc += tr.AcceptanceProbability
		if tr.Accepted {
			accepted++
			c.accepted++
			if lp := c.stepper.LogProb(); lp > c.maxLP {
				c.maxLP = lp
				c.maxLPPar = c.constrain(c.stepper.Position())
			}
		}
		if tr.Divergent {
			c.divergent++
			log.Debugf("%d: divergent transition", c.i)
		}

		if c.cio != nil && c.cio.Old() {
			// the step is done, resume from the next one
			c.i++
			c.SaveCheckpoint(false)
			c.i--
		}

		select {
		case s := <-c.sig:
			log.Warningf("Received signal %v, exiting.", s)
			c.i++
			break Iter
		default:
		}
	}

	if c.i != c.lastReported {
		c.printLine()
	}

	c.SaveCheckpoint(c.i >= iterations)
}

// Summary describes a finished run.
type Summary struct {
	Iterations int `json:"iterations"`
	Accepted   int `json:"accepted"`
	Divergent  int `json:"divergent"`
	// AcceptanceRate is the fraction of accepted steps.
	AcceptanceRate float64 `json:"acceptanceRate"`
	// MeanAcceptanceProbability is averaged over the steps of this
	// run only.
	MeanAcceptanceProbability float64      `json:"meanAcceptanceProbability"`
	MaxLogProb                float64      `json:"maxLnP"`
	MaxLogProbParameters      ravel.Record `json:"maxLnPParameters"`
	Final                     ravel.Record `json:"final"`
	// Mean and SD are computed over the reported states.
	Mean ravel.Record `json:"mean"`
	SD   ravel.Record `json:"sd"`
}

// Summary returns the chain statistics.
func (c *Chain) Summary() Summary {
	s := Summary{
		Iterations: c.i,
		Accepted:   c.accepted,
		Divergent:  c.divergent,
		MaxLogProb: c.maxLP,
		MaxLogProbParameters: ravel.Record{
			Names:  c.names,
			Values: c.maxLPPar,
		},
		Final: ravel.Record{
			Names:  c.names,
			Values: c.constrain(c.stepper.Position()),
		},
	}
	if c.i > 0 {
		s.AcceptanceRate = float64(c.accepted) / float64(c.i)
	}
	if c.steps > 0 {
		s.MeanAcceptanceProbability = c.sumPAcc / float64(c.steps)
	}
	means, sds := stats.MeanStdDev(c.samples)
	if len(c.samples) < 2 {
		for i := range sds {
			sds[i] = 0
		}
	}
	if means != nil {
		s.Mean = ravel.Record{Names: c.names, Values: means}
		s.SD = ravel.Record{Names: c.names, Values: sds}
	}
	return s
}

// LogSummary logs the chain statistics.
func (s Summary) LogSummary() {
	log.Noticef("Iterations: %d", s.Iterations)
	log.Noticef("Acceptance rate: %.2f%%", 100*s.AcceptanceRate)
	log.Noticef("Mean acceptance probability: %.3f", s.MeanAcceptanceProbability)
	if s.Divergent > 0 {
		log.Warningf("Divergent transitions: %d", s.Divergent)
	}
	log.Noticef("Maximum lnP: %v", s.MaxLogProb)
	for i, n := range s.MaxLogProbParameters.Names {
		log.Noticef("%s=%v", n, s.MaxLogProbParameters.Values[i])
	}
	for i, n := range s.Mean.Names {
		if math.IsNaN(s.SD.Values[i]) {
			continue
		}
		log.Infof("%s: mean=%v, sd=%v", n, s.Mean.Values[i], s.SD.Values[i])
	}
}
