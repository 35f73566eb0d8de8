package boltpersistence

import (
	"errors"

	"github.com/dogmatiq/eventcore/internal/x/bboltx"
	. "github.com/onsi/ginkgo/v2"
	. "github.com/onsi/gomega"
)

var _ = Describe("func unmarshalUint64()", func() {
	It("panics if the byte-slice is the wrong length", func() {
		Expect(func() {
			unmarshalUint64(make([]byte, 3))
		}).To(PanicWith(
			bboltx.PanicSentinel{
				Cause: errors.New("data is corrupt, expected 8 bytes, got 3"),
			},
		))
	})

	It("treats a nil slice as zero", func() {
		Expect(unmarshalUint64(nil)).To(BeZero())
	})
})

var _ = Describe("func decode()", func() {
	It("returns the fields produced by the encoder", func() {
		var e encoder
		e.uint(1, 123)
		e.string(2, "<value>")
		e.bool(3, true)
		e.uint(4, 0)

		var fields []field
		decode(e.data, func(f field) {
			fields = append(fields, f)
		})

		Expect(fields).To(HaveLen(3))
		Expect(fields[0].value).To(BeEquivalentTo(123))
		Expect(fields[1].string()).To(Equal("<value>"))
		Expect(fields[2].bool()).To(BeTrue())
	})

	It("panics if the data is truncated", func() {
		var e encoder
		e.string(1, "<value>")

		Expect(func() {
			decode(e.data[:len(e.data)-1], func(field) {})
		}).To(Panic())
	})
})
