package processor

import (
	"bytes"
	"errors"
	"log/slog"

	. "github.com/onsi/ginkgo/v2"
	. "github.com/onsi/gomega"
	"github.com/spf13/afero"
	"go.uber.org/mock/gomock"

	"github.com/slahiruk/vcml/debug"
	"github.com/slahiruk/vcml/mem/memory"
	"github.com/slahiruk/vcml/mem/tlm"
	"github.com/slahiruk/vcml/sim/hooking"
	"github.com/slahiruk/vcml/sim/property"
	"github.com/slahiruk/vcml/sim/signal"
	"github.com/slahiruk/vcml/sim/timing"
)

// fullCore exposes every optional capability of a core.
type fullCore struct {
	*MockCore
	*MockRegisters
	*MockRegisterDumper
	*MockBreakpointHandler
	*MockInterruptHandler
	*MockDisassembler
}

var _ = Describe("Processor", func() {
	var (
		mockCtrl *gomock.Controller
		kernel   *timing.Kernel
		registry *property.Registry
		fs       afero.Fs
		logBuf   *bytes.Buffer
		ram      *memory.Comp
		core     fullCore
	)

	build := func(c Core) *Processor {
		p, err := MakeBuilder().
			WithKernel(kernel).
			WithRegistry(registry).
			WithLogger(slog.New(slog.NewTextHandler(logBuf, nil))).
			WithFs(fs).
			Build("Platform.CPU", c)
		Expect(err).NotTo(HaveOccurred())

		p.Insn.Bind(ram.Top)
		p.Data.Bind(ram.Top)

		return p
	}

	BeforeEach(func() {
		mockCtrl = gomock.NewController(GinkgoT())
		kernel = timing.NewKernel()
		registry = property.NewRegistry()
		fs = afero.NewMemMapFs()
		logBuf = new(bytes.Buffer)

		var err error
		ram, err = memory.MakeBuilder().
			WithRegistry(registry).
			WithSize(64 * memory.KB).
			WithReadLatency(10 * timing.NS).
			Build("Platform.Ram")
		Expect(err).NotTo(HaveOccurred())

		core = fullCore{
			MockCore:              NewMockCore(mockCtrl),
			MockRegisters:         NewMockRegisters(mockCtrl),
			MockRegisterDumper:    NewMockRegisterDumper(mockCtrl),
			MockBreakpointHandler: NewMockBreakpointHandler(mockCtrl),
			MockInterruptHandler:  NewMockInterruptHandler(mockCtrl),
			MockDisassembler:      NewMockDisassembler(mockCtrl),
		}
	})

	AfterEach(func() {
		mockCtrl.Finish()
	})

	Context("when building", func() {
		It("should panic without a kernel", func() {
			Expect(func() {
				_, _ = MakeBuilder().Build("Platform.CPU", NewMockCore(mockCtrl))
			}).To(Panic())
		})

		It("should register its properties", func() {
			p := build(NewMockCore(mockCtrl))

			Expect(registry.List()).To(ContainElements(
				"Platform.CPU.Clock",
				"Platform.CPU.Quantum",
				"Platform.CPU.Symbols",
			))
			Expect(p.Clock()).To(Equal(100 * timing.MHz))
			Expect(p.Quantum()).To(Equal(uint64(1000)))

			p.Close()

			_, found := registry.Find("Platform.CPU.Clock")
			Expect(found).To(BeFalse())
		})

		It("should take property values from the providers", func() {
			registry.AddProvider(property.MapProvider{
				"Platform.CPU.Clock":   "50MHz",
				"Platform.CPU.Quantum": "20",
			})

			p := build(NewMockCore(mockCtrl))

			Expect(p.Clock()).To(Equal(50 * timing.MHz))
			Expect(p.Quantum()).To(Equal(uint64(20)))
		})

		It("should report a symbol image that cannot be loaded", func() {
			_, err := MakeBuilder().
				WithKernel(kernel).
				WithRegistry(registry).
				WithFs(fs).
				WithSymbols("missing.sym").
				Build("Platform.CPU", NewMockCore(mockCtrl))

			var cfgErr *property.ConfigurationError
			Expect(errors.As(err, &cfgErr)).To(BeTrue())
			Expect(cfgErr.Name).To(Equal("Platform.CPU.Symbols"))

			_, found := registry.Find("Platform.CPU.Clock")
			Expect(found).To(BeFalse())
		})
	})

	Context("without optional capabilities", func() {
		var p *Processor

		BeforeEach(func() {
			p = build(NewMockCore(mockCtrl))
		})

		It("should report zero registers", func() {
			Expect(p.ProgramCounter()).To(BeZero())
			Expect(p.StackPointer()).To(BeZero())
			Expect(p.CoreID()).To(BeZero())

			p.SetProgramCounter(0x40)
			p.SetCoreID(3)

			Expect(p.ProgramCounter()).To(BeZero())
			Expect(p.CoreID()).To(BeZero())
		})

		It("should translate addresses as the identity", func() {
			pa, ok := p.VirtToPhys(0x1234)

			Expect(ok).To(BeTrue())
			Expect(pa).To(Equal(uint64(0x1234)))
		})

		It("should refuse breakpoints", func() {
			Expect(p.InsertBreakpoint(0x100)).To(MatchError(ErrUnsupported))
			Expect(p.RemoveBreakpoint(0x100)).To(MatchError(ErrUnsupported))

			_, err := p.Breakpoints()
			Expect(err).To(MatchError(ErrUnsupported))

			out, ok := p.Execute("lsbp", nil)
			Expect(ok).To(BeFalse())
			Expect(out).To(Equal(ErrUnsupported.Error()))
		})

		It("should refuse to disassemble", func() {
			Expect(p.CanDisassemble()).To(BeFalse())

			_, ok := p.Execute("disas", nil)
			Expect(ok).To(BeFalse())
		})

		It("should dump the architectural registers", func() {
			out, ok := p.Execute("dump", nil)

			Expect(ok).To(BeTrue())
			Expect(out).To(Equal(
				"PC 0x0000000000000000\nSP 0x0000000000000000\nID 0"))
		})
	})

	Context("with registers", func() {
		It("should forward register writes to the core", func() {
			p := build(core)

			core.MockRegisters.EXPECT().SetProgramCounter(uint64(0x40))
			core.MockRegisters.EXPECT().SetStackPointer(uint64(0x3ff0))
			core.MockRegisters.EXPECT().SetCoreID(uint64(3))
			core.MockRegisters.EXPECT().CoreID().Return(uint64(3))

			p.SetProgramCounter(0x40)
			p.SetStackPointer(0x3ff0)
			p.SetCoreID(3)

			Expect(p.CoreID()).To(Equal(uint64(3)))
		})
	})

	Context("with interrupts", func() {
		var p *Processor

		BeforeEach(func() {
			p = build(core)
		})

		It("should track assert time per line", func() {
			core.MockInterruptHandler.EXPECT().
				HandleInterrupt(uint(3), true).Times(2)
			core.MockInterruptHandler.EXPECT().
				HandleInterrupt(uint(3), false).Times(2)

			kernel.Spawn("Irq", func(proc *timing.Process) {
				proc.Wait(10 * timing.NS)
				p.Interrupt(3, true)
				proc.Wait(5 * timing.NS)
				p.Interrupt(3, false)
				proc.Wait(5 * timing.NS)
				p.Interrupt(3, true)
				proc.Wait(2 * timing.NS)
				p.Interrupt(3, false)
			})
			Expect(kernel.Run()).To(Succeed())

			st, ok := p.IrqStat(3)
			Expect(ok).To(BeTrue())
			Expect(st.Count).To(Equal(uint64(2)))
			Expect(st.Asserted).To(BeFalse())
			Expect(st.LastAssert).To(Equal(20 * timing.NS))
			Expect(st.Cumulative).To(Equal(7 * timing.NS))
			Expect(st.Longest).To(Equal(5 * timing.NS))
		})

		It("should keep lines apart when their edges interleave", func() {
			core.MockInterruptHandler.EXPECT().
				HandleInterrupt(gomock.Any(), gomock.Any()).AnyTimes()

			kernel.Spawn("Irq3", func(proc *timing.Process) {
				proc.Wait(10 * timing.NS)
				p.Interrupt(3, true)
				proc.Wait(5 * timing.NS)
				p.Interrupt(3, false)
				proc.Wait(5 * timing.NS)
				p.Interrupt(3, true)
				proc.Wait(2 * timing.NS)
				p.Interrupt(3, false)
			})
			kernel.Spawn("Irq7", func(proc *timing.Process) {
				proc.Wait(12 * timing.NS)
				p.Interrupt(7, true)
				proc.Wait(2 * timing.NS)
				p.Interrupt(7, true)
				proc.Wait(7 * timing.NS)
				p.Interrupt(7, false)
				proc.Wait(4 * timing.NS)
				p.Interrupt(7, true)
				proc.Wait(10 * timing.NS)
				p.Interrupt(7, false)
			})
			Expect(kernel.Run()).To(Succeed())

			st3, ok := p.IrqStat(3)
			Expect(ok).To(BeTrue())
			Expect(st3.Count).To(Equal(uint64(2)))
			Expect(st3.LastAssert).To(Equal(20 * timing.NS))
			Expect(st3.Cumulative).To(Equal(7 * timing.NS))
			Expect(st3.Longest).To(Equal(5 * timing.NS))

			st7, ok := p.IrqStat(7)
			Expect(ok).To(BeTrue())
			Expect(st7.Count).To(Equal(uint64(2)))
			Expect(st7.Asserted).To(BeFalse())
			Expect(st7.LastAssert).To(Equal(25 * timing.NS))
			Expect(st7.Cumulative).To(Equal(19 * timing.NS))
			Expect(st7.Longest).To(Equal(10 * timing.NS))
		})

		It("should ignore a level the line already has", func() {
			core.MockInterruptHandler.EXPECT().
				HandleInterrupt(uint(1), true).Times(1)

			p.Interrupt(1, true)
			p.Interrupt(1, true)

			st, _ := p.IrqStat(1)
			Expect(st.Count).To(Equal(uint64(1)))
		})

		It("should not know lines that were never signaled", func() {
			_, ok := p.IrqStat(9)

			Expect(ok).To(BeFalse())
			Expect(p.IrqStats()).To(BeEmpty())
		})

		It("should list lines in order", func() {
			p.Interrupt(4, false)
			p.Interrupt(2, false)

			stats := p.IrqStats()

			Expect(stats).To(HaveLen(2))
			Expect(stats[0].Line).To(Equal(uint(2)))
			Expect(stats[1].Line).To(Equal(uint(4)))
			Expect(stats[0].Count).To(BeZero())
		})

		It("should follow a connected wire", func() {
			core.MockInterruptHandler.EXPECT().
				HandleInterrupt(uint(5), true)

			w := signal.NewWire("Platform.Timer.Irq")
			p.ConnectIRQ(5, w)
			w.Raise()

			st, ok := p.IrqStat(5)
			Expect(ok).To(BeTrue())
			Expect(st.Asserted).To(BeTrue())
		})
	})

	Context("with breakpoints", func() {
		var p *Processor

		BeforeEach(func() {
			p = build(core)
		})

		It("should set, remove and list breakpoints", func() {
			core.MockBreakpointHandler.EXPECT().InsertBreakpoint(uint64(0x100))
			core.MockBreakpointHandler.EXPECT().InsertBreakpoint(uint64(0x200))
			core.MockBreakpointHandler.EXPECT().RemoveBreakpoint(uint64(0x100))

			_, ok := p.Execute("bp", []string{"0x100"})
			Expect(ok).To(BeTrue())
			_, ok = p.Execute("bp", []string{"0x200"})
			Expect(ok).To(BeTrue())
			_, ok = p.Execute("rmbp", []string{"0x100"})
			Expect(ok).To(BeTrue())

			out, ok := p.Execute("lsbp", nil)
			Expect(ok).To(BeTrue())
			Expect(out).To(Equal("0: 0x0000000000000200"))
			Expect(p.IsBreakpoint(0x200)).To(BeTrue())
			Expect(p.IsBreakpoint(0x100)).To(BeFalse())
		})

		It("should report an empty list", func() {
			out, ok := p.Execute("lsbp", nil)

			Expect(ok).To(BeTrue())
			Expect(out).To(Equal("no breakpoints"))
		})

		It("should not set a breakpoint twice", func() {
			core.MockBreakpointHandler.EXPECT().InsertBreakpoint(uint64(0x100))

			Expect(p.InsertBreakpoint(0x100)).To(Succeed())
			Expect(p.InsertBreakpoint(0x100)).NotTo(Succeed())
		})

		It("should keep the breakpoint when the core refuses it", func() {
			core.MockBreakpointHandler.EXPECT().
				InsertBreakpoint(uint64(0x300)).
				Return(errors.New("no hardware slots"))

			Expect(p.InsertBreakpoint(0x300)).NotTo(Succeed())
			Expect(p.IsBreakpoint(0x300)).To(BeFalse())
		})

		It("should not remove an unknown breakpoint", func() {
			_, ok := p.Execute("rmbp", []string{"0x100"})

			Expect(ok).To(BeFalse())
		})

		It("should stop the kernel on a hit", func() {
			var hit []uint64
			p.AcceptHook(hooking.NewHookFunc(func(ctx hooking.HookCtx) {
				if ctx.Pos == HookPosBreakpoint {
					hit = append(hit, ctx.Item.(uint64))
				}
			}))

			core.MockRegisters.EXPECT().ProgramCounter().Return(uint64(0x100)).AnyTimes()
			core.MockCore.EXPECT().
				Simulate(uint64(1000)).
				DoAndReturn(func(budget uint64) uint64 {
					p.HitBreakpoint(0x100)
					return 1
				})

			p.Start()
			Expect(kernel.Run()).To(Succeed())

			Expect(hit).To(Equal([]uint64{0x100}))
			Expect(kernel.Now()).To(Equal(timing.VTime(0)))
			Expect(logBuf.String()).To(ContainSubstring("breakpoint hit"))
		})
	})

	Context("when accessing memory", func() {
		var p *Processor

		BeforeEach(func() {
			p = build(core)
			core.MockRegisters.EXPECT().ProgramCounter().Return(uint64(0x80)).AnyTimes()
			core.MockRegisters.EXPECT().StackPointer().Return(uint64(0xf000)).AnyTimes()
		})

		It("should fetch through a window after the first access", func() {
			p.Insn.WriteDebug(0x40, []byte{0x78, 0x56, 0x34, 0x12})

			var first, second uint32
			var t1, t2 timing.VTime

			kernel.Spawn("Fetch", func(proc *timing.Process) {
				var err error

				first, err = FetchValue[uint32](p, 0x40)
				Expect(err).NotTo(HaveOccurred())
				t1 = proc.Now()

				second, err = FetchValue[uint32](p, 0x40)
				Expect(err).NotTo(HaveOccurred())
				t2 = proc.Now()
			})
			Expect(kernel.Run()).To(Succeed())

			Expect(first).To(Equal(uint32(0x12345678)))
			Expect(second).To(Equal(first))
			Expect(t1).To(Equal(10 * timing.NS))
			Expect(t2).To(Equal(t1))
			Expect(p.Insn.Stats().Hits).To(Equal(uint64(1)))
		})

		It("should store and load values", func() {
			var v uint16

			kernel.Spawn("Data", func(proc *timing.Process) {
				Expect(WriteValue[uint16](p, 0x100, 0xbeef)).To(Succeed())

				var err error
				v, err = ReadValue[uint16](p, 0x100)
				Expect(err).NotTo(HaveOccurred())
			})
			Expect(kernel.Run()).To(Succeed())

			Expect(v).To(Equal(uint16(0xbeef)))
		})

		It("should log and return bus errors", func() {
			var reported []*BusError
			p.AcceptHook(hooking.NewHookFunc(func(ctx hooking.HookCtx) {
				if ctx.Pos == HookPosBusError {
					reported = append(reported, ctx.Item.(*BusError))
				}
			}))

			var err error
			kernel.Spawn("Data", func(proc *timing.Process) {
				err = p.Read(0x100000, make([]byte, 4))
			})
			Expect(kernel.Run()).To(Succeed())

			Expect(err).To(MatchError(ErrBus))

			var busErr *BusError
			Expect(errors.As(err, &busErr)).To(BeTrue())
			Expect(busErr.Op).To(Equal("read"))
			Expect(busErr.Addr).To(Equal(uint64(0x100000)))
			Expect(busErr.Size).To(Equal(4))
			Expect(busErr.Port).To(Equal("Platform.CPU.Data"))
			Expect(busErr.PC).To(Equal(uint64(0x80)))
			Expect(busErr.SP).To(Equal(uint64(0xf000)))
			Expect(busErr.Status).To(Equal(tlm.AddressErrorResponse))
			Expect(reported).To(HaveLen(1))

			log := logBuf.String()
			Expect(log).To(ContainSubstring("detected bus error during read operation"))
			Expect(log).To(ContainSubstring("addr=0x0000000000100000"))
			Expect(log).To(ContainSubstring("pc=0x0000000000000080"))
			Expect(log).To(ContainSubstring("code=TLM_ADDRESS_ERROR_RESPONSE"))
		})

		It("should panic outside a process", func() {
			Expect(func() { _ = p.Read(0, make([]byte, 4)) }).To(Panic())
		})

		It("should read memory for the debugger", func() {
			p.Data.WriteDebug(0x20, []byte{1, 2, 3, 4})

			out, ok := p.Execute("read", []string{"0x20", "4"})

			Expect(ok).To(BeTrue())
			Expect(out).To(Equal("0x0000000000000020: 01 02 03 04"))
		})

		It("should refuse oversized reads", func() {
			out, ok := p.Execute("read", []string{"0x20", "4000000000"})

			Expect(ok).To(BeFalse())
			Expect(out).To(Equal("usage: read <addr> <len>"))

			_, ok = p.Execute("read", []string{"0x20", "0x10001"})
			Expect(ok).To(BeFalse())
		})

		It("should report unreadable memory", func() {
			_, ok := p.Execute("read", []string{"0x100000", "4"})

			Expect(ok).To(BeFalse())
		})
	})

	Context("when disassembling", func() {
		var p *Processor

		BeforeEach(func() {
			p = build(core)
			core.MockRegisters.EXPECT().ProgramCounter().Return(uint64(0)).AnyTimes()
		})

		It("should use the core disassembler", func() {
			core.MockDisassembler.EXPECT().
				Disassemble(uint64(0), gomock.Any()).
				Return("nop", 4, nil)
			core.MockDisassembler.EXPECT().
				Disassemble(uint64(4), gomock.Any()).
				Return("", 0, debug.ErrUnknownOpcode)

			out, ok := p.Execute("disas", []string{"0", "2"})

			Expect(ok).To(BeTrue())
			Expect(out).To(Equal(
				"> 0x0000000000000000: nop\n" +
					"  0x0000000000000004: n/a"))
		})

		It("should fall back to the placeholder when code cannot be read", func() {
			text, n := p.Disassemble(0x100000)

			Expect(text).To(Equal(debug.PlaceholderText))
			Expect(n).To(Equal(debug.MinInstructionLength))
		})

		It("should refuse oversized counts", func() {
			out, ok := p.Execute("disas", []string{"0", "4000000000"})

			Expect(ok).To(BeFalse())
			Expect(out).To(Equal("usage: disas [addr] [count]"))
		})

		It("should reject a malformed count", func() {
			_, ok := p.Execute("disas", []string{"0", "many"})

			Expect(ok).To(BeFalse())
		})
	})

	Context("with symbols", func() {
		var p *Processor

		BeforeEach(func() {
			Expect(afero.WriteFile(fs, "prog.sym", []byte(
				"0000000000000100 T _start 10\n"+
					"0000000000000200 T main 40\n"+
					"                 U printf\n"), 0o644)).To(Succeed())

			var err error
			p, err = MakeBuilder().
				WithKernel(kernel).
				WithRegistry(registry).
				WithLogger(slog.New(slog.NewTextHandler(logBuf, nil))).
				WithFs(fs).
				WithSymbols("prog.sym").
				Build("Platform.CPU", core)
			Expect(err).NotTo(HaveOccurred())
		})

		It("should load the symbol image", func() {
			Expect(p.Symbols().Len()).To(Equal(2))

			out, ok := p.Execute("symbols", nil)
			Expect(ok).To(BeTrue())
			Expect(out).To(HavePrefix("2 symbols\n"))
			Expect(out).To(ContainSubstring("_start"))
		})

		It("should look up names and addresses", func() {
			out, ok := p.Execute("lsym", []string{"main"})
			Expect(ok).To(BeTrue())
			Expect(out).To(ContainSubstring("main"))

			out, ok = p.Execute("lsym", []string{"0x104"})
			Expect(ok).To(BeTrue())
			Expect(out).To(Equal("0x0000000000000104 <_start+0x4>"))

			_, ok = p.Execute("lsym", []string{"0x300"})
			Expect(ok).To(BeFalse())
		})

		It("should accept symbol names as breakpoint addresses", func() {
			core.MockBreakpointHandler.EXPECT().InsertBreakpoint(uint64(0x200))

			out, ok := p.Execute("bp", []string{"main"})

			Expect(ok).To(BeTrue())
			Expect(out).To(Equal("breakpoint set at 0x0000000000000200 <main>"))
		})

		It("should reload symbols on request", func() {
			Expect(afero.WriteFile(fs, "other.sym",
				[]byte("0000000000000400 D counter 4\n"), 0o644)).To(Succeed())

			out, ok := p.Execute("symbols", []string{"other.sym"})

			Expect(ok).To(BeTrue())
			Expect(out).To(Equal("loaded 1 symbols from other.sym"))
			_, found := p.Symbols().LookupName("counter")
			Expect(found).To(BeTrue())
		})

		It("should use any symbol table", func() {
			table := NewMockSymbolTable(mockCtrl)
			table.EXPECT().LookupName("entry").
				Return(debug.Symbol{Name: "entry", Address: 0x80}, true)
			table.EXPECT().LookupAddress(uint64(0x80)).
				Return(debug.Symbol{Name: "entry", Address: 0x80}, uint64(0), true)
			core.MockBreakpointHandler.EXPECT().InsertBreakpoint(uint64(0x80))

			p.SetSymbols(table)
			out, ok := p.Execute("bp", []string{"entry"})

			Expect(ok).To(BeTrue())
			Expect(out).To(Equal("breakpoint set at 0x0000000000000080 <entry>"))
		})
	})

	Context("when running", func() {
		var p *Processor

		BeforeEach(func() {
			p = build(core)
		})

		It("should step the core until it runs no cycles", func() {
			gomock.InOrder(
				core.MockCore.EXPECT().Simulate(uint64(1000)).Return(uint64(1000)).Times(3),
				core.MockCore.EXPECT().Simulate(uint64(1000)).Return(uint64(0)),
			)

			p.Start()
			Expect(kernel.Run()).To(Succeed())

			Expect(p.NumCycles()).To(Equal(uint64(3000)))
			Expect(kernel.Now()).To(Equal(30 * timing.US))
			Expect(p.Running()).To(BeFalse())
			Expect(p.CPS()).To(BeNumerically(">=", 0))
		})

		It("should end the loop after Stop", func() {
			core.MockCore.EXPECT().Simulate(uint64(1000)).Return(uint64(1000)).AnyTimes()

			p.Start()
			kernel.Spawn("Stopper", func(proc *timing.Process) {
				proc.Wait(25 * timing.US)
				p.Stop()
			})
			Expect(kernel.Run()).To(Succeed())

			Expect(p.NumCycles()).To(Equal(uint64(3000)))
			Expect(kernel.Now()).To(Equal(30 * timing.US))
		})

		It("should refuse to start twice", func() {
			core.MockCore.EXPECT().Simulate(gomock.Any()).Return(uint64(0)).AnyTimes()

			p.Start()

			Expect(p.Start).To(Panic())
		})

		It("should clear the counters on reset", func() {
			core.MockCore.EXPECT().Simulate(uint64(1000)).Return(uint64(1000))
			core.MockCore.EXPECT().Simulate(uint64(1000)).Return(uint64(0))

			p.Start()
			Expect(kernel.Run()).To(Succeed())
			Expect(p.NumCycles()).To(Equal(uint64(1000)))

			_, ok := p.Execute("reset", nil)

			Expect(ok).To(BeTrue())
			Expect(p.NumCycles()).To(BeZero())
			Expect(p.RunTime()).To(BeZero())
			Expect(p.CPS()).To(BeZero())
		})

		It("should use the core register dump", func() {
			core.MockRegisterDumper.EXPECT().DumpRegisters().Return("r0 0x0")

			out, ok := p.Execute("dump", nil)

			Expect(ok).To(BeTrue())
			Expect(out).To(Equal("r0 0x0"))
		})
	})
})
