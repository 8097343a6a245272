package gologger

import (
	"context"
	"io"
	"strings"

	job "github.com/goliatone/go-job"
	glog "github.com/goliatone/go-logger/glog"
)

const DefaultName = "ledgerflow"

// Bridge carries one resolved logger in both the glog and go-job shapes.
type Bridge struct {
	Provider    glog.LoggerProvider
	Logger      glog.Logger
	JobProvider job.LoggerProvider
	JobLogger   job.Logger
}

// Resolve uses deterministic precedence provider > logger > nop. A blank name
// resolves to DefaultName.
func Resolve(name string, provider glog.LoggerProvider, logger glog.Logger) (glog.LoggerProvider, glog.Logger) {
	name = strings.TrimSpace(name)
	if name == "" {
		name = DefaultName
	}
	return glog.Resolve(name, provider, logger)
}

func ToJobLogger(logger glog.Logger) job.Logger {
	if logger == nil {
		return nil
	}
	return job.GoLogger(logger)
}

func ToJobProvider(provider glog.LoggerProvider) job.LoggerProvider {
	if provider == nil {
		return nil
	}
	return job.GoLoggerProvider(provider)
}

// NewBridge resolves a logger for name and wraps it for go-job workers and
// hooks.
func NewBridge(name string, provider glog.LoggerProvider, logger glog.Logger) Bridge {
	resolvedProvider, resolvedLogger := Resolve(name, provider, logger)
	return Bridge{
		Provider:    resolvedProvider,
		Logger:      resolvedLogger,
		JobProvider: ToJobProvider(resolvedProvider),
		JobLogger:   ToJobLogger(resolvedLogger),
	}
}

// NewStdProvider writes leveled lines to w through the go-job std logger.
func NewStdProvider(w io.Writer, minLevel job.LogLevel) glog.LoggerProvider {
	if w == nil {
		w = io.Discard
	}
	return FromJobProvider(job.NewStdLoggerProvider(
		job.WithStdLoggerWriter(w),
		job.WithStdLoggerMinLevel(minLevel),
	))
}

func FromJobProvider(provider job.LoggerProvider) glog.LoggerProvider {
	if provider == nil {
		return nil
	}
	return jobProvider{provider: provider}
}

func FromJobLogger(logger job.Logger) glog.Logger {
	if logger == nil {
		return nil
	}
	return jobLogger{logger: logger}
}

type jobProvider struct {
	provider job.LoggerProvider
}

func (p jobProvider) GetLogger(name string) glog.Logger {
	return FromJobLogger(p.provider.GetLogger(name))
}

type jobLogger struct {
	logger job.Logger
}

func (l jobLogger) Trace(msg string, args ...any) { l.logger.Trace(msg, args...) }
func (l jobLogger) Debug(msg string, args ...any) { l.logger.Debug(msg, args...) }
func (l jobLogger) Info(msg string, args ...any)  { l.logger.Info(msg, args...) }
func (l jobLogger) Warn(msg string, args ...any)  { l.logger.Warn(msg, args...) }
func (l jobLogger) Error(msg string, args ...any) { l.logger.Error(msg, args...) }
func (l jobLogger) Fatal(msg string, args ...any) { l.logger.Fatal(msg, args...) }

func (l jobLogger) WithContext(ctx context.Context) glog.Logger {
	return jobLogger{logger: l.logger.WithContext(ctx)}
}

// WithFields keeps structured fields when the wrapped logger supports them.
func (l jobLogger) WithFields(fields map[string]any) glog.Logger {
	if fieldsLogger, ok := l.logger.(job.FieldsLogger); ok && len(fields) > 0 {
		return jobLogger{logger: fieldsLogger.WithFields(fields)}
	}
	return l
}
