package cmd

import (
	"bytes"

	. "github.com/onsi/ginkgo/v2"
	. "github.com/onsi/gomega"
)

var _ = Describe("ParseTime", func() {
	run := func(args ...string) (string, error) {
		out := new(bytes.Buffer)
		rootCmd.SetOut(out)
		rootCmd.SetErr(new(bytes.Buffer))
		rootCmd.SetArgs(append([]string{"parse-time"}, args...))

		err := rootCmd.Execute()

		return out.String(), err
	}

	It("should print picoseconds", func() {
		out, err := run("1.5us")

		Expect(err).NotTo(HaveOccurred())
		Expect(out).To(HavePrefix("1500000 ps ("))
	})

	It("should reject unknown suffixes", func() {
		_, err := run("10ly")

		Expect(err).To(HaveOccurred())
	})

	It("should require one argument", func() {
		_, err := run()

		Expect(err).To(HaveOccurred())
	})
})
