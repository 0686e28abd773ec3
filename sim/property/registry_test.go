package property

import (
	"errors"

	. "github.com/onsi/ginkgo/v2"
	. "github.com/onsi/gomega"
	"github.com/spf13/afero"

	"github.com/slahiruk/vcml/sim/timing"
)

var _ = Describe("Registry", func() {
	var r *Registry

	BeforeEach(func() {
		r = NewRegistry(MapProvider{
			"Platform.CPU.Clock":   "200MHz",
			"Platform.Mem.Latency": "10ns",
			"Platform.Mem.Size":    "0x1000",
			"Platform.Mem.Broken":  "lots",
		})
	})

	It("should take values from providers", func() {
		clock, err := NewFreq(r, "Platform.CPU.Clock", 100*timing.MHz)
		Expect(err).NotTo(HaveOccurred())
		Expect(clock.Get()).To(Equal(200 * timing.MHz))

		latency, err := NewTime(r, "Platform.Mem.Latency", timing.NS)
		Expect(err).NotTo(HaveOccurred())
		Expect(latency.Get()).To(Equal(10 * timing.NS))

		size, err := NewUint(r, "Platform.Mem.Size", 0)
		Expect(err).NotTo(HaveOccurred())
		Expect(size.Get()).To(Equal(uint64(0x1000)))
	})

	It("should fall back to the default", func() {
		ro, err := NewBool(r, "Platform.Mem.ReadOnly", true)

		Expect(err).NotTo(HaveOccurred())
		Expect(ro.Get()).To(BeTrue())
		Expect(ro.String()).To(Equal("true"))
	})

	It("should report malformed values", func() {
		_, err := NewUint(r, "Platform.Mem.Broken", 1)

		var cfgErr *ConfigurationError
		Expect(errors.As(err, &cfgErr)).To(BeTrue())
		Expect(cfgErr.Name).To(Equal("Platform.Mem.Broken"))
		Expect(cfgErr.Value).To(Equal("lots"))
		Expect(r.Len()).To(Equal(0))
	})

	It("should find and list properties", func() {
		_, err := NewString(r, "Platform.B", "b")
		Expect(err).NotTo(HaveOccurred())
		_, err = NewInt(r, "Platform.A", -1)
		Expect(err).NotTo(HaveOccurred())

		p, found := r.Find("Platform.A")
		Expect(found).To(BeTrue())
		Expect(p.String()).To(Equal("-1"))

		_, found = r.Find("Platform.C")
		Expect(found).To(BeFalse())

		Expect(r.List()).To(Equal([]string{"Platform.A", "Platform.B"}))
	})

	It("should set registered properties", func() {
		p, err := NewUint(r, "Platform.Count", 1)
		Expect(err).NotTo(HaveOccurred())

		Expect(r.Set("Platform.Count", "0x20")).To(Succeed())
		Expect(p.Get()).To(Equal(uint64(32)))

		err = r.Set("Platform.Count", "many")
		Expect(err).To(BeAssignableToTypeOf(&ConfigurationError{}))
		Expect(r.Set("Platform.Missing", "1")).NotTo(Succeed())
	})

	It("should unregister", func() {
		p, err := NewUint(r, "Platform.Count", 1)
		Expect(err).NotTo(HaveOccurred())

		p.Unregister()

		_, found := r.Find("Platform.Count")
		Expect(found).To(BeFalse())

		_, err = NewUint(r, "Platform.Count", 2)
		Expect(err).NotTo(HaveOccurred())
	})

	It("should panic on duplicate names", func() {
		_, err := NewUint(r, "Platform.Count", 1)
		Expect(err).NotTo(HaveOccurred())

		Expect(func() { _, _ = NewUint(r, "Platform.Count", 1) }).To(Panic())
	})
})

var _ = Describe("EnvProvider", func() {
	var fs afero.Fs

	BeforeEach(func() {
		fs = afero.NewMemMapFs()
		Expect(afero.WriteFile(fs, "a.env",
			[]byte("PLATFORM_CPU_CLOCK=1GHz\nPLATFORM_CPU_1_QUANTUM=100\n"),
			0o644)).To(Succeed())
		Expect(afero.WriteFile(fs, "b.env",
			[]byte("PLATFORM_CPU_CLOCK=2GHz\nPLATFORM_MEM_SIZE=4096\n"),
			0o644)).To(Succeed())
	})

	It("should map names to keys", func() {
		Expect(EnvKey("Platform.CPU.Clock")).To(Equal("PLATFORM_CPU_CLOCK"))
		Expect(EnvKey("Platform.CPU[1].Quantum")).
			To(Equal("PLATFORM_CPU_1_QUANTUM"))
	})

	It("should prefer earlier files", func() {
		p, err := NewEnvProvider(fs, "a.env", "b.env")
		Expect(err).NotTo(HaveOccurred())
		p.lookup = func(string) (string, bool) { return "", false }

		v, ok := p.Lookup("Platform.CPU.Clock")
		Expect(ok).To(BeTrue())
		Expect(v).To(Equal("1GHz"))

		v, ok = p.Lookup("Platform.Mem.Size")
		Expect(ok).To(BeTrue())
		Expect(v).To(Equal("4096"))

		v, ok = p.Lookup("Platform.CPU[1].Quantum")
		Expect(ok).To(BeTrue())
		Expect(v).To(Equal("100"))
	})

	It("should prefer the environment", func() {
		p, err := NewEnvProvider(fs, "a.env")
		Expect(err).NotTo(HaveOccurred())
		p.lookup = func(key string) (string, bool) {
			if key == "PLATFORM_CPU_CLOCK" {
				return "3GHz", true
			}
			return "", false
		}

		r := NewRegistry(p)
		clock, err := NewFreq(r, "Platform.CPU.Clock", timing.MHz)

		Expect(err).NotTo(HaveOccurred())
		Expect(clock.Get()).To(Equal(3 * timing.GHz))
	})

	It("should report missing files", func() {
		_, err := NewEnvProvider(fs, "missing.env")

		Expect(err).To(BeAssignableToTypeOf(&ConfigurationError{}))
	})
})

var _ = Describe("Scope", func() {
	It("should register and unregister together", func() {
		r := NewRegistry(MapProvider{"Platform.Mem.Size": "0x100"})
		s := NewScope(r, "Platform.Mem")

		size := s.AddUint("Size", 0x10)
		ro := s.AddBool("ReadOnly", false)
		lat := s.AddTime("ReadLatency", timing.NS)

		Expect(s.Err()).NotTo(HaveOccurred())
		Expect(size.Get()).To(Equal(uint64(0x100)))
		Expect(ro.Name()).To(Equal("Platform.Mem.ReadOnly"))
		Expect(lat.Get()).To(Equal(timing.NS))
		Expect(r.Len()).To(Equal(3))

		s.Close()

		Expect(r.Len()).To(Equal(0))
	})

	It("should keep the first error", func() {
		r := NewRegistry(MapProvider{"Platform.CPU.Clock": "fast"})
		s := NewScope(r, "Platform.CPU")

		clock := s.AddFreq("Clock", timing.MHz)
		name := s.AddString("Label", "cpu")

		Expect(s.Err()).To(BeAssignableToTypeOf(&ConfigurationError{}))
		Expect(clock.Get()).To(Equal(timing.MHz))
		Expect(name.Get()).To(Equal("cpu"))
		Expect(r.Len()).To(Equal(0))
	})
})
