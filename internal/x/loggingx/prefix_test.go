package loggingx_test

import (
	"github.com/dogmatiq/dodeca/logging"
	. "github.com/dogmatiq/eventcore/internal/x/loggingx"
	. "github.com/onsi/ginkgo/v2"
	. "github.com/onsi/gomega"
)

var _ = Describe("type Prefix", func() {
	It("adds the text to each message", func() {
		target := &logging.BufferedLogger{}
		logger := Prefix{Target: target, Text: "[100%] "}

		logger.Log("<format %s>", "value")
		logger.LogString("<string>")

		Expect(target.Messages()).To(Equal([]logging.BufferedLogMessage{
			{Message: "[100%] <format value>"},
			{Message: "[100%] <string>"},
		}))
	})

	It("does not write debug messages if the target is not in debug mode", func() {
		target := &logging.BufferedLogger{}
		logger := Prefix{Target: target, Text: "[p] "}

		logger.Debug("<debug %d>", 1)
		logger.DebugString("<debug>")

		Expect(logger.IsDebug()).To(BeFalse())
		Expect(target.Messages()).To(BeEmpty())
	})
})
