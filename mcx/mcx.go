/*

Mcx samples from a probability distribution with Hamiltonian Monte
Carlo or Random Walk Metropolis.

The basic usage looks like this:

	mcx normal

, this will run HMC on a two dimensional standard normal distribution
and write the trajectory to the standard output.

You can change the target and the kernel:

	mcx -kernel rwm -sd 0.3 -dim 5 funnel

Settings can also be read from a YAML file; flags override it:

	mcx -config run.yaml -iter 100000

To see all the options run:

	mcx -h

*/
package main

import (
	"encoding/json"
	"fmt"
	"math"
	"os"
	"runtime/pprof"
	"syscall"
	"time"

	"github.com/op/go-logging"
	"gopkg.in/alecthomas/kingpin.v2"

	"bitbucket.org/Davydov/mcx/chain"
	"bitbucket.org/Davydov/mcx/checkpoint"
	"bitbucket.org/Davydov/mcx/config"
	"bitbucket.org/Davydov/mcx/kernel"
	"bitbucket.org/Davydov/mcx/rng"
	"bitbucket.org/Davydov/mcx/target"
)

// These three variables are set during the compilation.
var githash = ""
var gitbranch = ""
var buildstamp = ""
var version = fmt.Sprintf("branch: %s, revision: %s, build time: %s", gitbranch, githash, buildstamp)

// Logger settings.
var log = logging.MustGetLogger("mcx")
var formatter = logging.MustStringFormatter(`%{message}`)

// modules are the logging modules controlled by -loglevel.
var modules = []string{"mcx", "kernel", "chain", "checkpoint", "optimize", "target"}

// command-line options
var (
	// application
	app = kingpin.New("mcx", "Hamiltonian Monte Carlo and Random Walk Metropolis sampler").Version(version)

	configF = app.Flag("config", "read settings from a YAML file").ExistingFile()

	// target
	targetName = app.Arg("target", "target distribution "+
		"(normal, mvnormal, banana, funnel, flat, normmodel)").String()
	dim   = app.Flag("dim", "target dimension").Default("-1").Int()
	dataF = app.Flag("data", "observations for normmodel").String()

	// chain
	kernelName = app.Flag("kernel", "transition kernel (hmc or rwm)").String()
	iterations = app.Flag("iter", "number of iterations").Default("-1").Int()
	report     = app.Flag("report", "report every N iterations").Default("-1").Int()
	accept     = app.Flag("accept", "report acceptance rate every N iterations").Default("-1").Int()
	seed       = app.Flag("seed", "random generator seed, default time based").Default("-1").Int64()
	initPos    = app.Flag("init", "starting point: zero, map, "+
		"or a trajectory or JSON file").String()

	// hmc
	stepSize   = app.Flag("step", "HMC step size").Default("-1").Float64()
	nSteps     = app.Flag("nsteps", "HMC number of leapfrog steps").Default("-1").Int()
	jitter     = app.Flag("jitter", "HMC relative step size jitter").Default("-1").Float64()
	divergence = app.Flag("divergence", "HMC divergence threshold").Default("-1").Float64()
	metric     = app.Flag("metric", "HMC metric (unit, diagonal or dense)").String()
	invMass    = app.Flag("invmass", "HMC inverse mass matrix (diagonal or row-major dense)").String()

	// rwm
	sd           = app.Flag("sd", "RWM proposal scale").Default("-1").Float64()
	proposalName = app.Flag("proposal", "RWM proposal (normal, uniform or mvnormal)").String()
	cov          = app.Flag("cov", "RWM mvnormal proposal covariance (row-major)").String()

	// technical
	cpuProfile = app.Flag("cpuprofile", "write cpu profile to file").String()

	// input/output
	outLogF  = app.Flag("log", "write log to a file").String()
	outF     = app.Flag("out", "write trajectory to a file").String()
	jsonF    = app.Flag("json", "write json output to a file").String()
	checkF   = app.Flag("checkpoint", "checkpoint database file").String()
	checkSec = app.Flag("checkpoint-seconds", "checkpoint saving interval").Default("-1").Float64()
	logLevel = app.Flag("loglevel", "set loglevel "+
		"('critical', 'error', 'warning', 'notice', 'info', 'debug')").
		Default("notice").
		Enum("critical", "error", "warning", "notice", "info", "debug")
)

// run samples according to the settings.
func run(s *config.Settings, key rng.Key) (summary *RunSummary) {
	startTime := time.Now()
	summary = &RunSummary{
		Target: s.Target,
		Kernel: s.Kernel,
		Key:    key,
	}

	t, err := newTarget(s)
	if err != nil {
		log.Fatal(err)
	}
	log.Infof("Target dimension: %d", t.Dim())

	start, err := startPosition(s, t)
	if err != nil {
		log.Fatal(err)
	}
	log.Debugf("Start position: %v", start)

	stepper, err := newStepper(s, t, start)
	if err != nil {
		log.Fatal(err)
	}
	if lp := stepper.LogProb(); math.IsNaN(lp) || math.IsInf(lp, 0) {
		log.Fatalf("Starting position has zero probability (lnP=%v)", lp)
	}

	c := chain.NewChain(stepper, target.Names(t), func(x kernel.Position) []float64 {
		return target.Constrain(t, x)
	}, key)
	c.SetModel(s.Target, s.Kernel)
	c.AccPeriod = s.Accept
	c.SetReportPeriod(s.Report)
	c.WatchSignals(os.Interrupt, syscall.SIGUSR2, syscall.SIGTERM)

	resumed := false
	if s.Output.Checkpoint != "" {
		db, err := checkpoint.Open(s.Output.Checkpoint)
		if err != nil {
			log.Fatal("Error opening checkpoint database:", err)
		}
		defer db.Close()
		c.SetCheckpointIO(checkpoint.NewCheckpointIO(db, []byte("chain"), s.Output.CheckpointSeconds))
		resumed, err = c.Resume()
		if err != nil {
			log.Fatal("Error resuming from checkpoint:", err)
		}
		if resumed {
			log.Noticef("Resuming from iteration %d", c.Iter())
		}
	}

	if s.Output.Trajectory != "" {
		flags := os.O_WRONLY | os.O_CREATE | os.O_TRUNC
		if resumed {
			flags = os.O_WRONLY | os.O_CREATE | os.O_APPEND
		}
		f, err := os.OpenFile(s.Output.Trajectory, flags, 0666)
		if err != nil {
			log.Fatal("Error creating trajectory file:", err)
		}
		defer f.Close()
		c.SetOutput(f)
	}

	log.Infof("Running %s for %d iterations", s.Kernel, s.Iterations)
	c.Run(s.Iterations)
	if h, ok := stepper.(*chain.HMCStepper); ok {
		log.Infof("Final potential energy: %v", h.State().Energy)
	}

	summary.Chain = c.Summary()
	summary.Chain.LogSummary()
	summary.Time = time.Since(startTime).Seconds()
	return
}

func main() {
	kingpin.MustParse(app.Parse(os.Args[1:]))

	// logging
	logging.SetFormatter(formatter)

	var backend *logging.LogBackend
	if *outLogF != "" {
		f, err := os.OpenFile(*outLogF, os.O_WRONLY|os.O_CREATE|os.O_APPEND, 0666)
		if err != nil {
			log.Fatal("Error creating log file:", err)
		}
		defer f.Close()
		backend = logging.NewLogBackend(f, "", 0)
	} else {
		backend = logging.NewLogBackend(os.Stderr, "", 0)
	}
	logging.SetBackend(backend)

	level, err := logging.LogLevel(*logLevel)
	if err != nil {
		log.Fatal(err)
	}
	for _, module := range modules {
		logging.SetLevel(level, module)
	}

	// print revision
	log.Info(version)

	// print commandline
	log.Info("Command line:", os.Args)

	settings := config.Default()
	if *configF != "" {
		settings, err = config.Load(*configF)
		if err != nil {
			log.Fatal(err)
		}
		log.Infof("Settings read from %s", *configF)
	}
	applyFlags(settings)
	if err := settings.Validate(); err != nil {
		log.Fatal("Incorrect settings: ", err)
	}

	if settings.Seed < 0 {
		settings.Seed = time.Now().UnixNano()
		log.Debug("Random seed from time")
	}
	log.Infof("Random seed=%v", settings.Seed)
	key := rng.New(uint64(settings.Seed))

	if *cpuProfile != "" {
		f, err := os.Create(*cpuProfile)
		if err != nil {
			log.Fatal(err)
		}
		pprof.StartCPUProfile(f)
		defer pprof.StopCPUProfile()
	}

	summary := run(settings, key)
	summary.Version = version
	summary.CommandLine = os.Args
	summary.Seed = settings.Seed

	// output summary in json format
	if settings.Output.JSON != "" {
		j, err := json.Marshal(summary)
		if err != nil {
			log.Error(err)
		} else {
			log.Debug(string(j))
			f, err := os.Create(settings.Output.JSON)
			if err != nil {
				log.Error("Error creating json output file:", err)
			} else {
				f.Write(j)
				f.Close()
			}
		}
	}
}
