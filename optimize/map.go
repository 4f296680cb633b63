// Package optimize searches for the mode of a target, which is used
// as a chain starting point.
package optimize

import (
	"math"
	"os"
	"os/signal"

	lbfgsb "github.com/idavydov/go-lbfgsb"
	"github.com/op/go-logging"
	"gonum.org/v1/gonum/floats"

	"bitbucket.org/Davydov/mcx/kernel"
	"bitbucket.org/Davydov/mcx/target"
)

// log is the global logging variable.
var log = logging.MustGetLogger("optimize")

// MAP finds the maximum a posteriori position with L-BFGS-B.
type MAP struct {
	target    target.Target
	repPeriod int
	sig       chan os.Signal
	calls     int // log-density calls
	maxLP     float64
	maxPos    kernel.Position
}

// NewMAP creates a new MAP optimizer for a target.
func NewMAP(t target.Target) *MAP {
	return &MAP{
		target:    t,
		repPeriod: 10,
		maxLP:     math.Inf(-1),
	}
}

// SetReportPeriod sets how often the progress is logged.
func (m *MAP) SetReportPeriod(period int) {
	if period < 1 {
		panic("report period should be >= 1")
	}
	m.repPeriod = period
}

// WatchSignals makes the optimizer exit on signals.
func (m *MAP) WatchSignals(sigs ...os.Signal) {
	m.sig = make(chan os.Signal, 1)
	signal.Notify(m.sig, sigs...)
}

// Calls returns the number of log-density evaluations.
func (m *MAP) Calls() int {
	return m.calls
}

func (m *MAP) logger(info *lbfgsb.OptimizationIterationInformation) {
	if info.Iteration%m.repPeriod == 0 {
		log.Debugf("%d: lnP=%f", info.Iteration, -info.F)
	}
	m.checkSignal()
}

func (m *MAP) checkSignal() {
	select {
	case s := <-m.sig:
		log.Fatal("Received signal exiting:", s)
	default:
	}
}

// EvaluateFunction returns the negative log-density.
func (m *MAP) EvaluateFunction(x []float64) float64 {
	lp := m.target.LogProb(x)
	m.calls++
	if math.IsNaN(lp) || math.IsInf(lp, 0) {
		return math.Inf(1)
	}
	if lp > m.maxLP {
		m.maxLP = lp
		m.maxPos = kernel.Position(x).Copy()
	}
	return -lp
}

// EvaluateGradient returns the gradient of the negative log-density.
func (m *MAP) EvaluateGradient(x []float64) []float64 {
	_, grad := m.target.LogProbGrad(x)
	m.calls++
	floats.Scale(-1, grad)
	m.checkSignal()
	return grad
}

// Run searches for the mode starting from start. It returns the best
// position found and its log-density.
func (m *MAP) Run(start kernel.Position) (kernel.Position, float64) {
	if len(start) != m.target.Dim() {
		panic("incorrect start position dimension")
	}
	m.maxLP = math.Inf(-1)
	m.maxPos = start.Copy()

	opt := new(lbfgsb.Lbfgsb)
	opt.SetApproximationSize(10)
	opt.SetFTolerance(1e-9)
	opt.SetGTolerance(1e-9)
	opt.SetLogger(m.logger)

	minimum, exitStatus := opt.Minimize(m, start.Copy())
	log.Info("Exit status: ", exitStatus)

	if lp := -minimum.F; len(minimum.X) == len(start) && lp > m.maxLP {
		m.maxLP = lp
		m.maxPos = kernel.Position(minimum.X).Copy()
	}

	log.Info("Finished LBFGSB")
	log.Infof("Maximum lnP: %v", m.maxLP)
	log.Infof("Log-density function calls: %v", m.calls)
	return m.maxPos, m.maxLP
}
