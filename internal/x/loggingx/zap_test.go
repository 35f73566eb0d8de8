package loggingx_test

import (
	. "github.com/dogmatiq/eventcore/internal/x/loggingx"
	. "github.com/onsi/ginkgo/v2"
	. "github.com/onsi/gomega"
	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"
	"go.uber.org/zap/zaptest/observer"
)

var _ = Describe("type Zap", func() {
	var (
		logs   *observer.ObservedLogs
		logger Zap
	)

	setup := func(level zapcore.Level) {
		var core zapcore.Core
		core, logs = observer.New(level)
		logger = Zap{Target: zap.New(core)}
	}

	It("writes application messages at the info level", func() {
		setup(zapcore.InfoLevel)

		logger.Log("<format %s>", "value")
		logger.LogString("<string>")

		Expect(logs.All()).To(HaveLen(2))
		Expect(logs.All()[0].Message).To(Equal("<format value>"))
		Expect(logs.All()[0].Level).To(Equal(zapcore.InfoLevel))
		Expect(logs.All()[1].Message).To(Equal("<string>"))
	})

	It("writes debug messages at the debug level", func() {
		setup(zapcore.DebugLevel)

		Expect(logger.IsDebug()).To(BeTrue())

		logger.Debug("<format %d>", 1)
		logger.DebugString("<string>")

		Expect(logs.FilterLevelExact(zapcore.DebugLevel).Len()).To(Equal(2))
	})

	It("discards debug messages when debug logging is disabled", func() {
		setup(zapcore.InfoLevel)

		Expect(logger.IsDebug()).To(BeFalse())

		logger.Debug("<format>")
		Expect(logs.Len()).To(Equal(0))
	})
})
