package events

import (
	"github.com/ThreeDotsLabs/watermill"

	"github.com/layer-3/walletauth/pkg/log"
)

var _ watermill.LoggerAdapter = (*LoggerAdapter)(nil)

// LoggerAdapter routes watermill's internal logging through log.Logger.
type LoggerAdapter struct {
	logger log.Logger
}

func NewLoggerAdapter(logger log.Logger) *LoggerAdapter {
	if logger == nil {
		logger = log.NewNoopLogger()
	}
	return &LoggerAdapter{logger: logger}
}

func (a *LoggerAdapter) Error(msg string, err error, fields watermill.LogFields) {
	a.logger.Error(msg, append(flatten(fields), "err", err)...)
}

func (a *LoggerAdapter) Info(msg string, fields watermill.LogFields) {
	a.logger.Info(msg, flatten(fields)...)
}

func (a *LoggerAdapter) Debug(msg string, fields watermill.LogFields) {
	a.logger.Debug(msg, flatten(fields)...)
}

// Trace is folded into Debug.
func (a *LoggerAdapter) Trace(msg string, fields watermill.LogFields) {
	a.logger.Debug(msg, flatten(fields)...)
}

func (a *LoggerAdapter) With(fields watermill.LogFields) watermill.LoggerAdapter {
	lg := a.logger
	for k, v := range fields {
		lg = lg.WithKV(k, v)
	}
	return &LoggerAdapter{logger: lg}
}

func flatten(fields watermill.LogFields) []any {
	kv := make([]any, 0, len(fields)*2)
	for k, v := range fields {
		kv = append(kv, k, v)
	}
	return kv
}
