package cli

import (
	"context"
	"fmt"
	"io"
	"log/slog"
	"os"
	"os/signal"
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/schollz/progressbar/v3"
	"github.com/spf13/cobra"
	"github.com/spf13/viper"
	"github.com/utkarsh5026/lambdapool/internal/cpu"
	"github.com/utkarsh5026/lambdapool/pool"
)

const metricsNamespace = "lambdapool"

// app carries what every subcommand needs once the configuration is loaded.
type app struct {
	cfg      Config
	out      io.Writer
	errOut   io.Writer
	logger   *slog.Logger
	closer   io.Closer
	registry *prometheus.Registry
	metrics  *pool.Metrics
	runID    string
}

// NewRootCommand builds the lambdapool command tree writing results to out and
// diagnostics to errOut.
func NewRootCommand(out, errOut io.Writer) *cobra.Command {
	a := &app{out: &syncWriter{w: out}, errOut: &syncWriter{w: errOut}}
	var configFile string

	root := &cobra.Command{
		Use:   "lambdapool",
		Short: "Run jobs on a bounded worker pool",
		Long: `lambdapool demonstrates a fixed-size worker pool: jobs are submitted, run by
at most N workers and collected in submission order, whatever order they finish in.`,
		SilenceUsage: true,
	}
	root.SetOut(out)
	root.SetErr(errOut)

	root.PersistentFlags().StringVar(&configFile, "config", "", "YAML config file")
	v, bindErr := BindFlags(root.PersistentFlags())

	root.PersistentPreRunE = func(cmd *cobra.Command, args []string) error {
		if bindErr != nil {
			return bindErr
		}
		return a.init(v, configFile)
	}
	root.PersistentPostRunE = func(cmd *cobra.Command, args []string) error {
		return a.closer.Close()
	}

	root.AddCommand(
		newManyJobsCommand(a),
		newCallableCommand(a),
		newRunnableCommand(a),
		newMapReduceCommand(a),
		newWordCountCommand(a),
	)
	return root
}

// Execute runs the command tree against the process arguments and returns the exit code.
func Execute() int {
	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt)
	defer stop()

	if err := NewRootCommand(os.Stdout, os.Stderr).ExecuteContext(ctx); err != nil {
		return 1
	}
	return 0
}

func (a *app) init(v *viper.Viper, configFile string) error {
	cfg, err := Load(v, configFile)
	if err != nil {
		return err
	}
	a.cfg = cfg

	logger, closer, err := NewLogger(cfg.Logging, a.errOut)
	if err != nil {
		return err
	}
	a.runID = uuid.NewString()
	a.logger = logger.With("run", a.runID)
	a.closer = closer

	a.registry = prometheus.NewRegistry()
	if a.metrics, err = pool.NewMetrics(a.registry, metricsNamespace); err != nil {
		return fmt.Errorf("registering metrics: %w", err)
	}
	return nil
}

// newPool creates a pool of size workers, or of the configured size when size is 0.
func (a *app) newPool(size int, extra ...pool.WorkerPoolOption) (*pool.WorkerPool, error) {
	if size == 0 {
		size = a.cfg.PoolSize()
	}

	opts := append(a.cfg.PoolOptions(),
		pool.WithLogger(a.logger),
		pool.WithMetrics(a.metrics),
	)
	opts = append(opts, extra...)
	return pool.New(size, opts...)
}

func (a *app) shutdown(p *pool.WorkerPool) error {
	if err := p.Shutdown(a.cfg.DrainTimeout); err != nil {
		return fmt.Errorf("shutting down pool: %w", err)
	}
	return nil
}

// narration is where demo commentary goes: next to the table, or to stderr when the
// output must stay machine readable.
func (a *app) narration() io.Writer {
	if a.cfg.Output == "table" {
		return a.out
	}
	return a.errOut
}

func (a *app) report(command string, workers int, start time.Time, rows []Row, notes ...string) error {
	r := Report{
		Command: command,
		RunID:   a.runID,
		Workers: workers,
		Elapsed: time.Since(start).Round(time.Microsecond).String(),
		Rows:    rows,
		Notes:   notes,
	}

	if a.cfg.Metrics {
		samples, err := GatherSummary(a.registry)
		if err != nil {
			return fmt.Errorf("gathering metrics: %w", err)
		}
		r.Metrics = samples
	}
	return Render(a.out, a.cfg.Output, r)
}

func newManyJobsCommand(a *app) *cobra.Command {
	var (
		jobs     int
		seed     int64
		closures bool
	)

	cmd := &cobra.Command{
		Use:   "many-jobs",
		Short: "Run independent sin(a)/sqrt(b) jobs and print them in submission order",
		RunE: func(cmd *cobra.Command, args []string) error {
			if jobs < 0 {
				return fmt.Errorf("jobs must not be negative, got %d", jobs)
			}

			size := a.cfg.PoolSize()
			_, _ = fmt.Fprintf(a.narration(), "Available cores: %d, workers: %d\n", cpu.NumCPU(), size)

			var extra []pool.WorkerPoolOption
			if a.cfg.Output == "table" && jobs > 0 {
				bar := progressbar.NewOptions(jobs,
					progressbar.OptionSetWriter(a.errOut),
					progressbar.OptionSetDescription("Running jobs"),
					progressbar.OptionSetWidth(40),
					progressbar.OptionShowCount(),
					progressbar.OptionClearOnFinish(),
				)
				extra = append(extra, pool.WithOnJobEnd(func(pool.JobInfo, time.Duration, error) {
					_ = bar.Add(1)
				}))
				defer func() { _ = bar.Finish() }()
			}

			p, err := a.newPool(size, extra...)
			if err != nil {
				return err
			}

			start := time.Now()
			rows, runErr := RunManyJobs(cmd.Context(), p, GeneratePairs(seed, jobs), closures)
			if err := a.shutdown(p); err != nil && runErr == nil {
				runErr = err
			}
			if runErr != nil {
				return runErr
			}
			return a.report("many-jobs", size, start, rows)
		},
	}

	cmd.Flags().IntVarP(&jobs, "jobs", "n", 20, "number of jobs")
	cmd.Flags().Int64Var(&seed, "seed", 42, "seed of the input generator")
	cmd.Flags().BoolVar(&closures, "closures", false, "build jobs from closures instead of a named job type")
	return cmd
}

func newCallableCommand(a *app) *cobra.Command {
	var work time.Duration

	cmd := &cobra.Command{
		Use:   "callable",
		Short: "Run one value-producing job on a single worker",
		RunE: func(cmd *cobra.Command, args []string) error {
			p, err := a.newPool(1)
			if err != nil {
				return err
			}

			start := time.Now()
			h, err := RunCallable(cmd.Context(), p, work, a.narration())
			if err != nil {
				_ = a.shutdown(p)
				return err
			}

			// Running jobs finish before Shutdown returns.
			if err := a.shutdown(p); err != nil {
				return err
			}

			produced, err := h.Await()
			row := Row{Index: 0, Input: "callable", Status: h.Status().String()}
			if err != nil {
				row.Error = err.Error()
			} else {
				row.Value = fmt.Sprint(produced.UnixMilli())
			}
			return a.report("callable", 1, start, []Row{row})
		},
	}

	cmd.Flags().DurationVar(&work, "work", 2*time.Second, "how long the job works")
	return cmd
}

func newRunnableCommand(a *app) *cobra.Command {
	var work time.Duration

	cmd := &cobra.Command{
		Use:   "runnable",
		Short: "Run one fire-and-forget job on a single worker",
		RunE: func(cmd *cobra.Command, args []string) error {
			p, err := a.newPool(1)
			if err != nil {
				return err
			}

			start := time.Now()
			h, err := RunRunnable(p, work, a.narration())
			if err != nil {
				_ = a.shutdown(p)
				return err
			}
			if err := a.shutdown(p); err != nil {
				return err
			}

			row := Row{Index: 0, Input: "runnable", Status: h.Status().String()}
			if _, err := h.Await(); err != nil {
				row.Error = err.Error()
			}
			return a.report("runnable", 1, start, []Row{row})
		},
	}

	cmd.Flags().DurationVar(&work, "work", time.Second, "how long the job works")
	return cmd
}

func newMapReduceCommand(a *app) *cobra.Command {
	var (
		n        int
		sentence string
	)

	cmd := &cobra.Command{
		Use:   "mapreduce",
		Short: "Run map/filter/reduce pipelines over numbers and words",
		RunE: func(cmd *cobra.Command, args []string) error {
			start := time.Now()

			product, err := ProductOfRange(n)
			if err != nil {
				return err
			}

			reduced, ok, err := ConsonantSentence(sentence)
			if err != nil {
				return err
			}
			if !ok {
				reduced = "Empty"
			}

			counts, err := MergedCounts(sentenceDirty, sentenceUpper)
			if err != nil {
				return err
			}

			rows := []Row{
				{Index: 0, Input: fmt.Sprintf("product(0..%d)", n-1), Value: fmt.Sprint(product), Status: "completed"},
				{Index: 1, Input: sentence, Value: reduced, Status: "completed"},
			}
			for _, r := range countRows(counts) {
				r.Index += len(rows)
				rows = append(rows, r)
			}
			return a.report("mapreduce", 0, start, rows)
		},
	}

	cmd.Flags().IntVar(&n, "upto", 10, "multiply the numbers 0..upto-1")
	cmd.Flags().StringVar(&sentence, "sentence", defaultSentence, "sentence to reduce")
	return cmd
}

func newWordCountCommand(a *app) *cobra.Command {
	var (
		file      string
		chunkSize int
	)

	cmd := &cobra.Command{
		Use:   "wordcount [text...]",
		Short: "Count words in parallel on the pool",
		RunE: func(cmd *cobra.Command, args []string) error {
			text, err := wordCountInput(cmd, file, args)
			if err != nil {
				return err
			}

			size := a.cfg.PoolSize()
			p, err := a.newPool(size)
			if err != nil {
				return err
			}

			start := time.Now()
			rows, runErr := WordCountRows(cmd.Context(), p, text, chunkSize)
			if err := a.shutdown(p); err != nil && runErr == nil {
				runErr = err
			}
			if runErr != nil {
				return runErr
			}
			return a.report("wordcount", size, start, rows)
		},
	}

	cmd.Flags().StringVarP(&file, "file", "f", "", "read the text from this file ('-' for stdin)")
	cmd.Flags().IntVar(&chunkSize, "chunk-size", 0, "words per pool job (0 = default)")
	return cmd
}

func wordCountInput(cmd *cobra.Command, file string, args []string) (string, error) {
	switch {
	case file == "-":
		data, err := io.ReadAll(cmd.InOrStdin())
		return string(data), err
	case file != "":
		data, err := os.ReadFile(file)
		if err != nil {
			return "", fmt.Errorf("reading %s: %w", file, err)
		}
		return string(data), nil
	case len(args) > 0:
		return strings.Join(args, " "), nil
	default:
		return "A little fox was searching for a little bit of grapes.", nil
	}
}
