package cmd

import (
	"context"
	"log/slog"

	"github.com/spf13/afero"

	"github.com/slahiruk/vcml/examples/wordcore"
	"github.com/slahiruk/vcml/mem/bus"
	"github.com/slahiruk/vcml/mem/memory"
	"github.com/slahiruk/vcml/mem/port"
	"github.com/slahiruk/vcml/mem/tlm"
	"github.com/slahiruk/vcml/processor"
	"github.com/slahiruk/vcml/sim/command"
	"github.com/slahiruk/vcml/sim/property"
	"github.com/slahiruk/vcml/sim/signal"
	"github.com/slahiruk/vcml/sim/timing"
	"github.com/slahiruk/vcml/stats"
)

// Memory map of the demo platform.
var (
	romRange = tlm.NewRange(0x0000, 0x4000)
	ramRange = tlm.NewRange(0x8000, 0x8000)
)

const (
	timerIrqLine = 0
	timerPulse   = 100 * timing.NS
)

// demoProgram counts in r1, stores the count to the first RAM word and
// counts timer interrupts in r5.
func demoProgram() (main, handler []byte) {
	main = wordcore.Program(
		wordcore.Li(1, 0),
		wordcore.Li(2, 1),
		wordcore.Li(4, uint16(ramRange.Start)),
		wordcore.Add(1, 1, 2),
		wordcore.St(1, 4),
		wordcore.Jmp(0xc),
	)

	handler = wordcore.Program(
		wordcore.Add(5, 5, 2),
		wordcore.Reti(),
	)

	return main, handler
}

type platformConfig struct {
	fs          afero.Fs
	logger      *slog.Logger
	envFiles    []string
	image       string
	symbols     string
	timerPeriod timing.VTime
}

// platform is the elaborated demo system.
type platform struct {
	kernel    *timing.Kernel
	registry  *property.Registry
	commands  *command.Directory
	collector *stats.Collector

	rom   *memory.Comp
	ram   *memory.Comp
	bus   *bus.Comp
	core  *wordcore.Core
	cpu   *processor.Processor
	timer *signal.Wire

	timerPeriod timing.VTime
}

func buildPlatform(cfg platformConfig) (*platform, error) {
	env, err := property.NewEnvProvider(cfg.fs, cfg.envFiles...)
	if err != nil {
		return nil, err
	}

	p := &platform{
		kernel:      timing.NewKernel(),
		registry:    property.NewRegistry(env),
		commands:    command.NewDirectory(),
		timer:       signal.NewWire("Platform.Timer.Irq"),
		timerPeriod: cfg.timerPeriod,
	}

	p.rom, err = memory.MakeBuilder().
		WithRegistry(p.registry).
		WithLogger(cfg.logger).
		WithFs(cfg.fs).
		WithSize(romRange.Length()).
		WithReadOnly(true).
		Build("Platform.Rom")
	if err != nil {
		return nil, err
	}

	p.ram, err = memory.MakeBuilder().
		WithRegistry(p.registry).
		WithLogger(cfg.logger).
		WithFs(cfg.fs).
		WithSize(ramRange.Length()).
		WithReadLatency(10 * timing.NS).
		WithWriteLatency(10 * timing.NS).
		Build("Platform.Ram")
	if err != nil {
		return nil, err
	}

	p.bus, err = bus.MakeBuilder().
		WithRegistry(p.registry).
		WithLogger(cfg.logger).
		Build("Platform.Bus")
	if err != nil {
		return nil, err
	}

	if err := p.bus.Map(romRange, 0, p.rom.Top); err != nil {
		return nil, err
	}

	if err := p.bus.Map(ramRange, 0, p.ram.Top); err != nil {
		return nil, err
	}

	p.core = wordcore.MakeBuilder().Build()

	p.cpu, err = processor.MakeBuilder().
		WithKernel(p.kernel).
		WithRegistry(p.registry).
		WithLogger(cfg.logger).
		WithFs(cfg.fs).
		WithSymbols(cfg.symbols).
		Build("Platform.CPU", p.core)
	if err != nil {
		return nil, err
	}

	insn := p.bus.NewPort("Insn")
	data := p.bus.NewPort("Data")
	p.cpu.Insn.Bind(insn)
	p.cpu.Data.Bind(data)
	p.cpu.ConnectIRQ(timerIrqLine, p.timer)

	if err := p.loadProgram(cfg.image); err != nil {
		return nil, err
	}

	for _, e := range []command.Executor{p.rom, p.ram, p.bus, p.cpu} {
		p.commands.Add(e)
	}

	if cfg.logger.Enabled(context.Background(), slog.LevelDebug) {
		p.kernel.AcceptHook(timing.NewEventLogger(cfg.logger))
		p.rom.Top.AcceptHook(port.NewTransactionLogger(cfg.logger))
		p.ram.Top.AcceptHook(port.NewTransactionLogger(cfg.logger))
	}

	p.collector = stats.NewCollector(p.kernel)
	p.collector.RegisterProcessor(p.cpu)

	for _, t := range []*port.Target{p.rom.Top, p.ram.Top, insn, data} {
		p.collector.RegisterTarget(t)
	}

	return p, nil
}

func (p *platform) loadProgram(image string) error {
	if image != "" {
		if _, err := p.rom.Load(image, 0); err != nil {
			return &property.ConfigurationError{
				Name:  "Platform.Rom.Image",
				Value: image,
				Err:   err,
			}
		}

		return nil
	}

	main, handler := demoProgram()
	p.cpu.Insn.WriteDebug(0, main)
	p.cpu.Insn.WriteDebug(0x100, handler)

	return nil
}

// start spawns the processor and the timer.
func (p *platform) start() {
	p.cpu.Start()

	if p.timerPeriod == 0 {
		return
	}

	p.kernel.Spawn("Platform.Timer", func(proc *timing.Process) {
		for {
			proc.Wait(p.timerPeriod)
			p.timer.Raise()
			proc.Wait(timerPulse)
			p.timer.Lower()
		}
	})
}

// execute runs one command line of the form "<component> <command> [args]".
func (p *platform) execute(line string) (string, bool) {
	target, rest := command.ParseLine(line)
	if target == "" {
		return "empty command", false
	}

	name, args := "help", []string(nil)
	if len(rest) > 0 {
		name, args = rest[0], rest[1:]
	}

	return p.commands.Execute(target, name, args)
}

func (p *platform) close() {
	p.cpu.Close()
	p.bus.Close()
	p.ram.Close()
	p.rom.Close()
}
