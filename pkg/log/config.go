// Copyright 2019 PingCAP, Inc.
//
// Licensed under the Apache License, Version 2.0 (the "License");
// you may not use this file except in compliance with the License.
// You may obtain a copy of the License at
//
//     http://www.apache.org/licenses/LICENSE-2.0
//
// Unless required by applicable law or agreed to in writing, software
// distributed under the License is distributed on an "AS IS" BASIS,
// See the License for the specific language governing permissions and
// limitations under the License.

package log

import (
	"strings"
	"time"

	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"
)

const (
	defaultLogMaxSize = 300 // MB
)

// FileLogConfig serializes file log related config in toml/json/yaml.
type FileLogConfig struct {
	// RootPath is the log file root directory.
	RootPath string `toml:"rootpath" json:"rootpath" mapstructure:"rootpath"`
	// Filename is the log file name; empty disables file logging.
	Filename string `toml:"filename" json:"filename" mapstructure:"filename"`
	// MaxSize is the maximum size of a log file in MB.
	MaxSize int `toml:"max-size" json:"max-size" mapstructure:"max-size"`
	// MaxDays is the maximum days to keep rotated files; 0 keeps them forever.
	MaxDays int `toml:"max-days" json:"max-days" mapstructure:"max-days"`
	// MaxBackups is the maximum number of rotated files to keep.
	MaxBackups int `toml:"max-backups" json:"max-backups" mapstructure:"max-backups"`
}

// Config serializes log related config in toml/json/yaml.
type Config struct {
	// Level is the log level.
	Level string `toml:"level" json:"level" mapstructure:"level"`
	// Format is the log format, one of json, console or text.
	Format string `toml:"format" json:"format" mapstructure:"format"`
	// DisableTimestamp disables automatic timestamps in output.
	DisableTimestamp bool `toml:"disable-timestamp" json:"disable-timestamp" mapstructure:"disable-timestamp"`
	// Stdout enables logging to stdout.
	Stdout bool `toml:"stdout" json:"stdout" mapstructure:"stdout"`
	// Stderr enables logging to stderr. Worker and program roles log here so that
	// their stdout is left alone.
	Stderr bool `toml:"stderr" json:"stderr" mapstructure:"stderr"`
	// File holds file log config.
	File FileLogConfig `toml:"file" json:"file" mapstructure:"file"`
	// Development puts the logger in development mode, which changes the
	// behavior of DPanicLevel and takes stacktraces more liberally.
	Development bool `toml:"development" json:"development" mapstructure:"development"`
	// DisableCaller stops annotating logs with the calling function's file
	// name and line number. By default, all logs are annotated.
	DisableCaller bool `toml:"disable-caller" json:"disable-caller" mapstructure:"disable-caller"`
	// DisableStacktrace completely disables automatic stacktrace capturing. By
	// default, stacktraces are captured for WarnLevel and above logs in
	// development and ErrorLevel and above in production.
	DisableStacktrace bool `toml:"disable-stacktrace" json:"disable-stacktrace" mapstructure:"disable-stacktrace"`
	// Sampling sets a sampling policy, see zapcore.NewSamplerWithOptions.
	Sampling *zap.SamplingConfig `toml:"sampling" json:"sampling" mapstructure:"sampling"`
}

// ZapProperties records some information about zap.
type ZapProperties struct {
	Core   zapcore.Core
	Syncer zapcore.WriteSyncer
	Level  zap.AtomicLevel
}

func (cfg *Config) encoderConfig() zapcore.EncoderConfig {
	ec := zap.NewProductionEncoderConfig()
	ec.EncodeTime = zapcore.ISO8601TimeEncoder
	ec.EncodeDuration = zapcore.StringDurationEncoder
	if cfg.DisableTimestamp {
		ec.TimeKey = ""
	}
	return ec
}

func (cfg *Config) newEncoder() zapcore.Encoder {
	switch strings.ToLower(cfg.Format) {
	case "json":
		return zapcore.NewJSONEncoder(cfg.encoderConfig())
	default:
		ec := cfg.encoderConfig()
		ec.EncodeLevel = zapcore.CapitalLevelEncoder
		return zapcore.NewConsoleEncoder(ec)
	}
}

func (cfg *Config) buildOptions(errSink zapcore.WriteSyncer) []zap.Option {
	opts := []zap.Option{zap.ErrorOutput(errSink)}

	if cfg.Development {
		opts = append(opts, zap.Development())
	}

	if !cfg.DisableCaller {
		opts = append(opts, zap.AddCaller())
	}

	stackLevel := zap.ErrorLevel
	if cfg.Development {
		stackLevel = zap.WarnLevel
	}
	if !cfg.DisableStacktrace {
		opts = append(opts, zap.AddStacktrace(stackLevel))
	}

	if cfg.Sampling != nil {
		opts = append(opts, zap.WrapCore(func(core zapcore.Core) zapcore.Core {
			return zapcore.NewSamplerWithOptions(core, time.Second, cfg.Sampling.Initial, cfg.Sampling.Thereafter, zapcore.SamplerHook(cfg.Sampling.Hook))
		}))
	}
	return opts
}
