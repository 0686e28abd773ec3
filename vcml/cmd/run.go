package cmd

import (
	"context"
	"fmt"
	"io"
	"log/slog"
	"os"
	"time"

	"github.com/spf13/afero"
	"github.com/spf13/cobra"

	"github.com/slahiruk/vcml/datarecording"
	"github.com/slahiruk/vcml/monitoring"
	"github.com/slahiruk/vcml/sim/timing"
)

type runOptions struct {
	duration    string
	timerPeriod string
	logLevel    string
	envFiles    []string
	symbols     string
	image       string
	commands    []string
	breakpoints []string
	record      string
	monitorPort int
}

var runOpts runOptions

var runCmd = &cobra.Command{
	Use:   "run",
	Short: "Run the demo platform",
	Long: "run elaborates the demo platform, simulates it for the given " +
		"duration, executes the debug commands and prints the statistics.",
	Args: cobra.NoArgs,
	RunE: func(cmd *cobra.Command, _ []string) error {
		return runSimulation(runOpts, afero.NewOsFs(), cmd.OutOrStdout())
	},
}

func init() {
	f := runCmd.Flags()
	f.StringVar(&runOpts.duration, "duration", "1us",
		"simulated time to run for")
	f.StringVar(&runOpts.timerPeriod, "timer", "0",
		"period of the timer interrupt, 0 disables the timer")
	f.StringVar(&runOpts.logLevel, "log-level", "info",
		"minimum level of the log messages (debug, info, warn, error)")
	f.StringSliceVar(&runOpts.envFiles, "env", nil,
		"property files to read in addition to the environment")
	f.StringVar(&runOpts.symbols, "symbols", "",
		"symbol file of the program, in nm format or ELF")
	f.StringVar(&runOpts.image, "image", "",
		"binary image to load into the ROM instead of the demo program")
	f.StringArrayVar(&runOpts.commands, "cmd", nil,
		`command to execute after the run, as "<component> <command> [args]"`)
	f.StringArrayVar(&runOpts.breakpoints, "break", nil,
		"address or symbol to stop at")
	f.StringVar(&runOpts.record, "record", "",
		"database file to record the statistics into")
	f.IntVar(&runOpts.monitorPort, "monitor", -1,
		"port of the monitoring server, 0 picks a random port, -1 disables it")

	rootCmd.AddCommand(runCmd)
}

func newLogger(w io.Writer, level string) (*slog.Logger, error) {
	var l slog.Level
	if err := l.UnmarshalText([]byte(level)); err != nil {
		return nil, fmt.Errorf("invalid log level %q: %w", level, err)
	}

	return slog.New(slog.NewTextHandler(w, &slog.HandlerOptions{Level: l})), nil
}

func runSimulation(opts runOptions, fs afero.Fs, out io.Writer) error {
	duration, err := timing.ParseTime(opts.duration)
	if err != nil {
		return err
	}

	period, err := timing.ParseTime(opts.timerPeriod)
	if err != nil {
		return err
	}

	logger, err := newLogger(os.Stderr, opts.logLevel)
	if err != nil {
		return err
	}

	p, err := buildPlatform(platformConfig{
		fs:          fs,
		logger:      logger,
		envFiles:    opts.envFiles,
		image:       opts.image,
		symbols:     opts.symbols,
		timerPeriod: period,
	})
	if err != nil {
		return err
	}
	defer p.close()

	for _, bp := range opts.breakpoints {
		if msg, ok := p.execute(p.cpu.Name() + " bp " + bp); !ok {
			return fmt.Errorf("cannot set breakpoint: %s", msg)
		}
	}

	if opts.monitorPort >= 0 {
		stop, err := startMonitor(p, opts.monitorPort, logger, duration)
		if err != nil {
			return err
		}
		defer stop()
	}

	p.start()

	start := time.Now()
	if err := p.kernel.RunFor(duration); err != nil {
		return err
	}

	logger.Info("simulation finished",
		"now", p.kernel.Now(),
		"cycles", p.cpu.NumCycles(),
		"wall", time.Since(start))

	for _, line := range opts.commands {
		msg, ok := p.execute(line)
		fmt.Fprintf(out, "> %s\n%s\n", line, msg)

		if !ok {
			return fmt.Errorf("command %q failed", line)
		}
	}

	if err := p.collector.Report(out); err != nil {
		return err
	}

	if opts.record != "" {
		return record(p, opts.record, logger)
	}

	return nil
}

func record(p *platform, path string, logger *slog.Logger) error {
	rec, err := datarecording.New(path)
	if err != nil {
		return err
	}
	defer rec.Close()

	if err := p.collector.Record(rec); err != nil {
		return err
	}

	logger.Info("statistics recorded", "file", rec.Path())

	return nil
}

func startMonitor(
	p *platform,
	port int,
	logger *slog.Logger,
	duration timing.VTime,
) (func(), error) {
	m := monitoring.NewMonitor().WithLogger(logger).WithPortNumber(port)
	m.RegisterKernel(p.kernel)
	m.RegisterCollector(p.collector)
	m.RegisterComponent(p.rom)
	m.RegisterComponent(p.ram)
	m.RegisterComponent(p.bus)
	m.RegisterComponent(p.cpu)

	if _, err := m.StartServer(); err != nil {
		return nil, err
	}

	_, untrack := m.TrackTime("Simulation", p.kernel.Now()+duration)

	return func() {
		untrack()

		ctx, cancel := context.WithTimeout(context.Background(), time.Second)
		defer cancel()

		if err := m.StopServer(ctx); err != nil {
			logger.Warn("cannot stop monitoring server", "err", err)
		}
	}, nil
}
