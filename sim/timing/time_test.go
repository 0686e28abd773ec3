package timing

import (
	. "github.com/onsi/ginkgo/v2"
	. "github.com/onsi/gomega"
)

var _ = Describe("VTime", func() {
	DescribeTable("parsing",
		func(s string, expected VTime) {
			t, err := ParseTime(s)

			Expect(err).NotTo(HaveOccurred())
			Expect(t).To(Equal(expected))
		},
		Entry("picoseconds", "7ps", 7*PS),
		Entry("nanoseconds", "10ns", 10*NS),
		Entry("microseconds", "1.5us", 1500*NS),
		Entry("milliseconds", "3ms", 3*MS),
		Entry("seconds", "2s", 2*Sec),
		Entry("upper case", "10NS", 10*NS),
		Entry("raw value", "1234", 1234*PS),
		Entry("hexadecimal", "0x10ns", 16*NS),
		Entry("surrounding space", " 5us ", 5*US),
	)

	DescribeTable("rejecting",
		func(s string) {
			_, err := ParseTime(s)

			Expect(err).To(HaveOccurred())
		},
		Entry("empty", ""),
		Entry("unknown unit", "10xs"),
		Entry("no number", "ns"),
		Entry("bad fraction", "1.2.3ns"),
	)

	It("should print with the largest exact unit", func() {
		Expect(VTime(0).String()).To(Equal("0s"))
		Expect((10 * NS).String()).To(Equal("10ns"))
		Expect((1500 * NS).String()).To(Equal("1500ns"))
		Expect((2 * Sec).String()).To(Equal("2s"))
		Expect(VTime(3).String()).To(Equal("3ps"))
	})

	It("should convert to seconds", func() {
		Expect((500 * MS).Seconds()).To(BeNumerically("~", 0.5, 1e-12))
	})
})

var _ = Describe("Freq", func() {
	It("should give the period", func() {
		Expect((1 * GHz).Period()).To(Equal(1 * NS))
		Expect((100 * MHz).Period()).To(Equal(10 * NS))
	})

	It("should panic on a non-positive frequency", func() {
		Expect(func() { Freq(0).Period() }).To(Panic())
	})

	It("should convert between cycles and time", func() {
		f := 100 * MHz

		Expect(f.Cycles(105 * NS)).To(Equal(uint64(10)))
		Expect(f.NCycles(3)).To(Equal(30 * NS))
	})

	It("should parse", func() {
		f, err := ParseFreq("1.5GHz")
		Expect(err).NotTo(HaveOccurred())
		Expect(f).To(Equal(1.5 * GHz))

		f, err = ParseFreq("100")
		Expect(err).NotTo(HaveOccurred())
		Expect(f).To(Equal(100 * Hz))

		_, err = ParseFreq("fastGHz")
		Expect(err).To(HaveOccurred())

		_, err = ParseFreq("-1MHz")
		Expect(err).To(HaveOccurred())
	})

	It("should print", func() {
		Expect((100 * MHz).String()).To(Equal("100MHz"))
		Expect((2 * GHz).String()).To(Equal("2GHz"))
		Expect((50 * Hz).String()).To(Equal("50Hz"))
	})
})
