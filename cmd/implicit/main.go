// Command implicit trains an implicit recurrent model on a CSV file or on a
// synthetic regression task and optionally saves the model and its loss
// curve.
package main

import (
	"errors"
	"flag"
	"fmt"
	"math"
	"math/rand"
	"os"
	"strconv"
	"strings"

	"github.com/FlavioCFOliveira/GoImplicit/internal/activations"
	"github.com/FlavioCFOliveira/GoImplicit/internal/loss"
	"github.com/FlavioCFOliveira/GoImplicit/internal/model"
	"github.com/FlavioCFOliveira/GoImplicit/internal/opt"
	"github.com/FlavioCFOliveira/GoImplicit/internal/solver"
	"github.com/FlavioCFOliveira/GoImplicit/internal/train"
	"github.com/FlavioCFOliveira/GoImplicit/internal/transition"
	"github.com/sirupsen/logrus"
)

type config struct {
	n, p, q, k    int
	scheme        string
	diag          bool
	bias, noD     bool
	clip          bool
	activation    string
	wellPosedness float64
	lossName      string
	optimizer     string
	epochs, batch int
	lr            float64
	patience      int
	samples       int
	seed          int64
	csvFile       string
	labels        string
	header        bool
	split         float64
	logLevel      string
	csvLog, plot  string
	save          string
	db            string
}

func parseFlags(args []string) (*config, error) {
	cfg := &config{}
	fs := flag.NewFlagSet("implicit", flag.ContinueOnError)
	fs.IntVar(&cfg.n, "n", 16, "hidden state width")
	fs.IntVar(&cfg.p, "p", 4, "input width of the synthetic task")
	fs.IntVar(&cfg.q, "q", 2, "output width of the synthetic task")
	fs.IntVar(&cfg.k, "k", 4, "rank of the low-rank factors")
	fs.StringVar(&cfg.scheme, "scheme", "lowrank", "state matrix scheme: dense, lowrank or lowrankdiag")
	fs.BoolVar(&cfg.diag, "diag", false, "per-coordinate diagonal (lowrankdiag); false uses a scalar")
	fs.BoolVar(&cfg.bias, "bias", false, "append a constant input row")
	fs.BoolVar(&cfg.noD, "nod", false, "freeze the direct feed-through D at zero")
	fs.BoolVar(&cfg.clip, "clip", false, "clip the scalar diagonal after each optimizer step")
	fs.StringVar(&cfg.activation, "act", "relu", "solver nonlinearity")
	fs.Float64Var(&cfg.wellPosedness, "wp", 0, "project A onto this infinity-norm ball inside the solver (0 disables)")
	fs.StringVar(&cfg.lossName, "loss", "mse", "loss: mse, huber or crossentropy")
	fs.StringVar(&cfg.optimizer, "opt", "adam", "optimizer: adam or sgd")
	fs.IntVar(&cfg.epochs, "epochs", 50, "training epochs")
	fs.IntVar(&cfg.batch, "batch", 32, "minibatch size (0 for full batch)")
	fs.Float64Var(&cfg.lr, "lr", 0.01, "learning rate")
	fs.IntVar(&cfg.patience, "patience", 0, "early stopping patience in epochs (0 disables)")
	fs.IntVar(&cfg.samples, "samples", 512, "synthetic sample count")
	fs.Int64Var(&cfg.seed, "seed", 1, "random seed")
	fs.StringVar(&cfg.csvFile, "csv", "", "CSV training data (default: synthetic task)")
	fs.StringVar(&cfg.labels, "labels", "", "comma-separated label column indices of the CSV")
	fs.BoolVar(&cfg.header, "header", false, "the CSV has a header row")
	fs.Float64Var(&cfg.split, "split", 0.8, "fraction of the data used for training")
	fs.StringVar(&cfg.logLevel, "log-level", "info", "log level")
	fs.StringVar(&cfg.csvLog, "csv-log", "", "write per-epoch metrics to this CSV file")
	fs.StringVar(&cfg.plot, "plot", "", "write the loss curve to this PNG file")
	fs.StringVar(&cfg.save, "save", "", "save the trained model to this file")
	fs.StringVar(&cfg.db, "db", "", "record the run and its epochs in this SQLite database")
	if err := fs.Parse(args); err != nil {
		return nil, err
	}
	if cfg.csvFile != "" && cfg.labels == "" {
		return nil, fmt.Errorf("-labels is required with -csv")
	}
	if cfg.wellPosedness < 0 || cfg.wellPosedness >= 1 {
		return nil, fmt.Errorf("-wp must be 0 (disabled) or in (0, 1), got %g", cfg.wellPosedness)
	}
	if cfg.epochs < 0 {
		return nil, fmt.Errorf("-epochs must not be negative, got %d", cfg.epochs)
	}
	return cfg, nil
}

func parseColumns(s string) ([]int, error) {
	var cols []int
	for _, f := range strings.Split(s, ",") {
		c, err := strconv.Atoi(strings.TrimSpace(f))
		if err != nil {
			return nil, fmt.Errorf("label column %q: %w", f, err)
		}
		cols = append(cols, c)
	}
	return cols, nil
}

// synthetic draws inputs from N(0,1) and targets y = tanh(W u) for a fixed
// random W.
func synthetic(rng *rand.Rand, samples, p, q int) *train.Dataset {
	w := make([]float64, q*p)
	for i := range w {
		w[i] = rng.NormFloat64() / math.Sqrt(float64(p))
	}
	ds := &train.Dataset{}
	for s := 0; s < samples; s++ {
		u := make([]float64, p)
		for i := range u {
			u[i] = rng.NormFloat64()
		}
		y := make([]float64, q)
		for i := range y {
			var z float64
			for j := range u {
				z += w[i*p+j] * u[j]
			}
			y[i] = math.Tanh(z)
		}
		ds.Samples = append(ds.Samples, u)
		ds.Labels = append(ds.Labels, y)
	}
	return ds
}

func loadData(cfg *config, rng *rand.Rand) (*train.Dataset, error) {
	if cfg.csvFile == "" {
		return synthetic(rng, cfg.samples, cfg.p, cfg.q), nil
	}
	cols, err := parseColumns(cfg.labels)
	if err != nil {
		return nil, err
	}
	ds, err := train.LoadCSV(cfg.csvFile, cols, cfg.header)
	if err != nil {
		return nil, err
	}
	ds.Normalize()
	ds.Shuffle(rng)
	return ds, nil
}

func buildModel(cfg *config, p, q int, rng *rand.Rand, log logrus.FieldLogger) (*model.Model, error) {
	act, err := activations.ByName(cfg.activation)
	if err != nil {
		return nil, err
	}
	solverOpts := []solver.Option{solver.WithActivation(act), solver.WithLogger(log)}
	if cfg.wellPosedness > 0 {
		solverOpts = append(solverOpts, solver.WithWellPosedness(cfg.wellPosedness))
	}

	kind, err := transition.ParseKind(cfg.scheme)
	if err != nil {
		return nil, err
	}
	opts := []model.Option{model.WithSolver(solver.New(solverOpts...)), model.WithRand(rng)}
	switch kind {
	case transition.KindLowRank:
		opts = append(opts, model.WithLowRank(cfg.k))
	case transition.KindLowRankDiag:
		opts = append(opts, model.WithLowRankDiag(cfg.k, cfg.diag))
	}
	if cfg.bias {
		opts = append(opts, model.WithBias())
	}
	if cfg.noD {
		opts = append(opts, model.WithoutD())
	}
	if cfg.clip {
		opts = append(opts, model.WithDiagClipping())
	}
	return model.New(cfg.n, p, q, opts...)
}

func newOptimizer(name string, lr float64) (opt.Optimizer, error) {
	switch name {
	case "adam":
		return opt.NewAdam(lr), nil
	case "sgd":
		return opt.NewSGD(lr), nil
	default:
		return nil, fmt.Errorf("unknown optimizer %q", name)
	}
}

func run(cfg *config, log *logrus.Logger) error {
	rng := rand.New(rand.NewSource(cfg.seed))

	ds, err := loadData(cfg, rng)
	if err != nil {
		return err
	}
	trainSet, testSet := ds.Split(cfg.split)
	if trainSet.Len() == 0 {
		return train.ErrEmptyDataset
	}
	p, q := len(ds.Samples[0]), len(ds.Labels[0])

	m, err := buildModel(cfg, p, q, rng, log)
	if err != nil {
		return err
	}
	lossFn, err := loss.ByName(cfg.lossName)
	if err != nil {
		return err
	}
	o, err := newOptimizer(cfg.optimizer, cfg.lr)
	if err != nil {
		return err
	}

	callbacks := []train.Callback{
		train.Logger{Interval: max(1, cfg.epochs/10)},
		train.NewSchedulerCallback(opt.NewReduceLROnPlateau(o, 0.5, 5, 1e-6, 1e-5)),
	}
	if cfg.patience > 0 {
		callbacks = append(callbacks, train.NewEarlyStopping(cfg.patience, 1e-6))
	}
	if cfg.csvLog != "" {
		callbacks = append(callbacks, train.NewCSVLogger(cfg.csvLog, false))
	}
	if cfg.db != "" {
		callbacks = append(callbacks, train.NewSQLiteLogger(cfg.db, strings.Join(os.Args[1:], " ")))
	}
	if cfg.save != "" {
		callbacks = append(callbacks, train.NewModelCheckpoint(cfg.save))
	}

	log.WithFields(logrus.Fields{
		"scheme": cfg.scheme,
		"n":      cfg.n,
		"p":      p,
		"q":      q,
		"params": m.NumParams(),
		"train":  trainSet.Len(),
		"test":   testSet.Len(),
		"loss":   loss.Name(lossFn),
		"opt":    cfg.optimizer,
	}).Info("training")

	tr := train.New(m, lossFn, o,
		train.WithCallbacks(callbacks...),
		train.WithLogger(log),
		train.WithShuffle(rng),
	)
	history, err := tr.Fit(trainSet, cfg.epochs, cfg.batch)
	if err != nil {
		return err
	}

	entry := log.WithField("epochs", len(history))
	if len(history) > 0 {
		entry = entry.WithField("train_loss", history[len(history)-1])
	}
	if testSet.Len() > 0 {
		testLoss, err := tr.Evaluate(testSet, cfg.batch)
		if err != nil {
			return err
		}
		entry = entry.WithField("test_loss", testLoss)
	}
	entry.Info("done")

	if cfg.plot != "" {
		if err := plotLoss(cfg.plot, history); err != nil {
			return fmt.Errorf("plot: %w", err)
		}
		log.WithField("file", cfg.plot).Info("loss curve written")
	}
	return nil
}

func main() {
	cfg, err := parseFlags(os.Args[1:])
	if err != nil {
		if errors.Is(err, flag.ErrHelp) {
			return
		}
		fmt.Fprintln(os.Stderr, err)
		os.Exit(2)
	}

	log := logrus.New()
	log.SetFormatter(&logrus.TextFormatter{FullTimestamp: true})
	level, err := logrus.ParseLevel(cfg.logLevel)
	if err != nil {
		log.WithError(err).Fatal("invalid log level")
	}
	log.SetLevel(level)

	if err := run(cfg, log); err != nil {
		log.WithError(err).Fatal("training failed")
	}
}
