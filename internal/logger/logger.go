package logger

import (
	"go.uber.org/zap"
)

func NewZapLog(level string) (*zap.Logger, error) {
	lvl, err := zap.ParseAtomicLevel(level)
	if err != nil {
		return nil, err
	}
	zapcfg := zap.NewProductionConfig()
	zapcfg.Level = lvl
	// консольная утилита: пишем в stderr, чтобы не мешать выводу команд
	zapcfg.OutputPaths = []string{"stderr"}
	zapcfg.Encoding = "console"
	zapcfg.EncoderConfig = zap.NewDevelopmentEncoderConfig()

	return zapcfg.Build()
}
