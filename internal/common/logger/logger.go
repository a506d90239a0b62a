package logger

import (
	"os"

	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"
)

// Options for NewLogger. Zero SampleInitial disables sampling.
type Options struct {
	Level   string // debug, info, warn, error (default info)
	Format  string // json or console (default json)
	Service string
	Version string

	SampleInitial    int
	SampleThereafter int
}

// NewLogger builds the process logger; entries carry service_name, version and hostname.
func NewLogger(opts Options) (*zap.Logger, error) {
	base, err := opts.zapConfig().Build()
	if err != nil {
		return nil, err
	}
	return base.With(opts.fields()...), nil
}

func (o Options) zapConfig() zap.Config {
	var config zap.Config
	if o.Format == "console" {
		config = zap.NewDevelopmentConfig()
	} else {
		config = zap.NewProductionConfig()
		config.EncoderConfig.TimeKey = "timestamp"
		config.EncoderConfig.EncodeTime = zapcore.ISO8601TimeEncoder
		config.OutputPaths = []string{"stdout"}
		config.ErrorOutputPaths = []string{"stderr"}
	}
	config.Level = zap.NewAtomicLevelAt(parseLevel(o.Level))

	config.Sampling = nil
	if o.SampleInitial > 0 {
		thereafter := o.SampleThereafter
		if thereafter <= 0 {
			thereafter = o.SampleInitial
		}
		config.Sampling = &zap.SamplingConfig{Initial: o.SampleInitial, Thereafter: thereafter}
	}
	return config
}

func (o Options) fields() []zap.Field {
	var fields []zap.Field
	if o.Service != "" {
		fields = append(fields, zap.String("service_name", o.Service))
	}
	if o.Version != "" {
		fields = append(fields, zap.String("version", o.Version))
	}
	if hostname, err := os.Hostname(); err == nil && hostname != "" {
		fields = append(fields, zap.String("hostname", hostname))
	}
	return fields
}

func parseLevel(level string) zapcore.Level {
	switch level {
	case "debug":
		return zapcore.DebugLevel
	case "warn":
		return zapcore.WarnLevel
	case "error":
		return zapcore.ErrorLevel
	default:
		return zapcore.InfoLevel
	}
}
