package timing

import (
	"bytes"
	"errors"
	"log/slog"

	. "github.com/onsi/ginkgo/v2"
	. "github.com/onsi/gomega"
	"go.uber.org/mock/gomock"

	"github.com/slahiruk/vcml/sim/hooking"
)

type boundaryRecorder struct {
	positions []string
	times     []VTime
}

func (r *boundaryRecorder) Func(ctx hooking.HookCtx) {
	if ctx.Pos != HookPosDeltaCycle && ctx.Pos != HookPosTimeStep {
		return
	}

	r.positions = append(r.positions, ctx.Pos.Name)
	r.times = append(r.times, ctx.Item.(VTime))
}

var _ = Describe("Kernel", func() {
	var (
		mockCtrl *gomock.Controller
		kernel   *Kernel
	)

	BeforeEach(func() {
		mockCtrl = gomock.NewController(GinkgoT())
		kernel = NewKernel()
	})

	AfterEach(func() {
		mockCtrl.Finish()
	})

	It("should be an engine", func() {
		var engine Engine = kernel

		Expect(engine.Now()).To(Equal(VTime(0)))

		engine.Pause()
		Expect(engine.Paused()).To(BeTrue())
		engine.Continue()
		Expect(engine.Paused()).To(BeFalse())
	})

	It("should log events", func() {
		buf := new(bytes.Buffer)
		kernel.AcceptHook(NewEventLogger(
			slog.New(slog.NewTextHandler(buf,
				&slog.HandlerOptions{Level: slog.LevelDebug}))))

		kernel.Spawn("Logged", func(p *Process) {})
		Expect(kernel.Run()).To(Succeed())

		Expect(buf.String()).To(ContainSubstring("msg=event"))
		Expect(buf.String()).To(ContainSubstring("type=*timing.wakeEvent"))
	})

	It("should track the pause state", func() {
		Expect(kernel.Paused()).To(BeFalse())

		kernel.Pause()
		kernel.Pause()

		Expect(kernel.Paused()).To(BeTrue())

		kernel.Continue()

		Expect(kernel.Paused()).To(BeFalse())
		Expect(kernel.Run()).To(Succeed())
	})

	It("should handle events in time order", func() {
		handler := NewMockHandler(mockCtrl)
		evt1 := NewEventBase(20*NS, handler)
		evt2 := NewEventBase(10*NS, handler)

		gomock.InOrder(
			handler.EXPECT().Handle(evt2).Do(func(Event) {
				Expect(kernel.Now()).To(Equal(10 * NS))
			}),
			handler.EXPECT().Handle(evt1).Do(func(Event) {
				Expect(kernel.Now()).To(Equal(20 * NS))
			}),
		)

		kernel.Schedule(evt1)
		kernel.Schedule(evt2)

		Expect(kernel.Run()).To(Succeed())
	})

	It("should keep scheduling order for events at the same time", func() {
		var order []int
		for i := 0; i < 5; i++ {
			i := i
			kernel.Schedule(NewEventBase(NS, HandlerFunc(func(Event) error {
				order = append(order, i)
				return nil
			})))
		}

		Expect(kernel.Run()).To(Succeed())
		Expect(order).To(Equal([]int{0, 1, 2, 3, 4}))
	})

	It("should panic when scheduling in the past", func() {
		kernel.Schedule(NewEventBase(10*NS, HandlerFunc(func(Event) error {
			kernel.Schedule(NewEventBase(5*NS, HandlerFunc(nil)))
			return nil
		})))

		Expect(func() { _ = kernel.Run() }).To(Panic())
	})

	It("should stop on a handler error", func() {
		handler := NewMockHandler(mockCtrl)
		evt1 := NewEventBase(1*NS, handler)
		evt2 := NewEventBase(2*NS, handler)
		handler.EXPECT().Handle(evt1).Return(errors.New("broken"))

		kernel.Schedule(evt1)
		kernel.Schedule(evt2)

		err := kernel.Run()

		Expect(err).To(MatchError(ContainSubstring("broken")))
	})

	It("should run until a time limit", func() {
		handler := NewMockHandler(mockCtrl)
		evt1 := NewEventBase(10*NS, handler)
		evt2 := NewEventBase(30*NS, handler)
		handler.EXPECT().Handle(evt1)

		kernel.Schedule(evt1)
		kernel.Schedule(evt2)

		Expect(kernel.RunUntil(20 * NS)).To(Succeed())
		Expect(kernel.Now()).To(Equal(20 * NS))

		handler.EXPECT().Handle(evt2)
		Expect(kernel.RunFor(20 * NS)).To(Succeed())
		Expect(kernel.Now()).To(Equal(40 * NS))
	})

	It("should fire delta cycle and time step hooks", func() {
		recorder := &boundaryRecorder{}
		kernel.AcceptHook(recorder)

		kernel.Schedule(NewEventBase(10*NS, HandlerFunc(func(Event) error {
			kernel.Schedule(NewEventBase(10*NS, HandlerFunc(
				func(Event) error { return nil })))
			return nil
		})))
		kernel.Schedule(NewEventBase(20*NS, HandlerFunc(
			func(Event) error { return nil })))

		Expect(kernel.Run()).To(Succeed())
		Expect(recorder.positions).To(Equal([]string{
			"DeltaCycle", "DeltaCycle", "TimeStep",
			"DeltaCycle", "TimeStep",
		}))
		Expect(recorder.times).To(Equal([]VTime{
			10 * NS, 10 * NS, 10 * NS, 20 * NS, 20 * NS,
		}))
	})

	It("should stop", func() {
		count := 0
		for i := 1; i <= 3; i++ {
			kernel.Schedule(NewEventBase(VTime(i)*NS, HandlerFunc(
				func(Event) error {
					count++
					if count == 2 {
						kernel.Stop()
					}
					return nil
				})))
		}

		Expect(kernel.Run()).To(Succeed())
		Expect(count).To(Equal(2))
	})

	Context("with processes", func() {
		It("should wait for simulated time", func() {
			var stamps []VTime

			kernel.Spawn("Waiter", func(p *Process) {
				stamps = append(stamps, p.Now())
				p.Wait(5 * NS)
				stamps = append(stamps, p.Now())
				p.Wait(7 * NS)
				stamps = append(stamps, p.Now())
			})

			Expect(kernel.Run()).To(Succeed())
			Expect(stamps).To(Equal([]VTime{0, 5 * NS, 12 * NS}))
		})

		It("should interleave processes", func() {
			var trace []string

			kernel.Spawn("A", func(p *Process) {
				trace = append(trace, "a0")
				p.Wait(10 * NS)
				trace = append(trace, "a10")
			})
			kernel.Spawn("B", func(p *Process) {
				trace = append(trace, "b0")
				p.Wait(5 * NS)
				trace = append(trace, "b5")
			})

			Expect(kernel.Run()).To(Succeed())
			Expect(trace).To(Equal([]string{"a0", "b0", "b5", "a10"}))
		})

		It("should wake signal waiters in the next delta cycle", func() {
			sig := NewSignal(kernel, "Ready")
			var woken []string

			for _, name := range []string{"First", "Second"} {
				kernel.Spawn(name, func(p *Process) {
					p.WaitSignal(sig)
					woken = append(woken, p.Name())
				})
			}

			kernel.Spawn("Notifier", func(p *Process) {
				p.Wait(3 * NS)
				Expect(sig.NumWaiters()).To(Equal(2))
				sig.Notify()
				Expect(woken).To(BeEmpty())
			})

			Expect(kernel.Run()).To(Succeed())
			Expect(woken).To(Equal([]string{"First", "Second"}))
			Expect(kernel.Now()).To(Equal(3 * NS))
		})

		It("should notify after a delay", func() {
			sig := NewSignal(kernel, "Later")
			var at VTime

			kernel.Spawn("Waiter", func(p *Process) {
				p.WaitSignal(sig)
				at = p.Now()
			})
			sig.NotifyAfter(8 * NS)

			Expect(kernel.Run()).To(Succeed())
			Expect(at).To(Equal(8 * NS))
		})

		It("should suspend and resume", func() {
			var sleeper *Process
			resumedAt := VTime(0)

			sleeper = kernel.Spawn("Sleeper", func(p *Process) {
				p.Suspend()
				resumedAt = p.Now()
			})
			kernel.Spawn("Waker", func(p *Process) {
				p.Wait(4 * NS)
				Expect(sleeper.Suspended()).To(BeTrue())
				sleeper.Resume()
				sleeper.Resume()
			})

			Expect(kernel.Run()).To(Succeed())
			Expect(resumedAt).To(Equal(4 * NS))
			Expect(sleeper.Done()).To(BeTrue())
		})

		It("should panic when waiting outside the process", func() {
			p := kernel.Spawn("Idle", func(p *Process) {})

			Expect(func() { p.Wait(NS) }).To(Panic())
		})

		It("should propagate a process panic", func() {
			kernel.Spawn("Faulty", func(p *Process) {
				panic("fault")
			})

			Expect(func() { _ = kernel.Run() }).To(PanicWith("fault"))
		})

		It("should report the current process", func() {
			var seen *Process

			p := kernel.Spawn("Self", func(p *Process) {
				seen = p.Kernel().Current()
			})

			Expect(kernel.Run()).To(Succeed())
			Expect(seen).To(BeIdenticalTo(p))
			Expect(kernel.Current()).To(BeNil())
		})
	})
})
