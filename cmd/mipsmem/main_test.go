package main

import (
	"bytes"

	. "github.com/onsi/ginkgo/v2"
	. "github.com/onsi/gomega"

	"github.com/sarchlab/mipsim/loader"
)

var _ = Describe("convert", func() {
	It("should write one hex word per line after the address", func() {
		in := bytes.NewReader([]byte{0x24, 0x02, 0x00, 0x05, 0x00, 0x00, 0x00, 0x0c, 0xff})
		var out bytes.Buffer

		Expect(convert(in, &out)).To(Succeed())

		Expect(out.String()).To(Equal("@0\n24020005\n0000000c\nff000000\n"))
	})

	It("should produce a file the loader reads back", func() {
		in := bytes.NewReader([]byte{0x24, 0x02, 0x00, 0x05})
		var out bytes.Buffer
		Expect(convert(in, &out)).To(Succeed())

		prog, err := loader.LoadVMH(&out)

		Expect(err).NotTo(HaveOccurred())
		Expect(prog.Segments[0].Data).To(Equal([]byte{0x24, 0x02, 0x00, 0x05}))
	})

	It("should accept an image that fills memory", func() {
		in := bytes.NewReader(make([]byte, maxWords*4))

		Expect(convert(in, &bytes.Buffer{})).To(Succeed())
	})

	It("should reject an image larger than memory", func() {
		in := bytes.NewReader(make([]byte, maxWords*4+1))
		var out bytes.Buffer

		err := convert(in, &out)

		Expect(err).To(MatchError(errTooBig))
		Expect(out.Len()).To(BeZero())
	})
})
