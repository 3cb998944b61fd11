/*
Copyright © 2025 Acronis International GmbH.

Released under MIT license.
*/

// Package log is the structured logging of the bot. Entries are encoded by logf,
// secrets such as the bot token are masked before they reach the output.
package log

import (
	"io"
	"os"
	"strconv"
	"strings"
	"time"

	"github.com/ssgreg/logf"
	"github.com/ssgreg/logftext"
	"gopkg.in/natefinch/lumberjack.v2"
)

// Field is a key and a typed value attached to an entry.
type Field = logf.Field

// CloseFunc flushes buffered entries. It must be called before the process exits.
type CloseFunc func()

// Field constructors.
var (
	Error      = logf.Error
	NamedError = logf.NamedError
	String     = logf.String
	Strings    = logf.Strings
	Bytes      = logf.Bytes
	Int        = logf.Int
	Int64      = logf.Int64
	Duration   = logf.Duration
)

// Keys of the fields attached to entries produced while an update is handled.
const (
	FieldKeyUserID    = "user_id"
	FieldKeyUpdateID  = "update_id"
	FieldKeyRequestID = "request_id"
)

// UserID returns a new Field with the Telegram user identity.
func UserID(id int64) Field {
	return Int64(FieldKeyUserID, id)
}

// UpdateID returns a new Field with the Telegram update identifier.
func UpdateID(id int64) Field {
	return Int64(FieldKeyUpdateID, id)
}

// RequestID returns a new Field with the internal request identifier.
func RequestID(id string) Field {
	return String(FieldKeyRequestID, id)
}

// DurationIn returns the "duration" field as a whole number of units, e.g. milliseconds.
func DurationIn(val, unit time.Duration) Field {
	return Int64("duration", int64(val/unit))
}

// FieldLogger writes structured entries. Components of the bot get it explicitly, there is no global logger.
type FieldLogger interface {
	With(...Field) FieldLogger

	Debug(string, ...Field)
	Info(string, ...Field)
	Warn(string, ...Field)
	Error(string, ...Field)
}

// LogfAdapter is a FieldLogger on top of logf.Logger.
type LogfAdapter struct {
	Logger *logf.Logger
}

var _ FieldLogger = (*LogfAdapter)(nil)

// NewDisabledLogger returns a FieldLogger that drops everything.
func NewDisabledLogger() FieldLogger {
	return &LogfAdapter{logf.NewDisabledLogger()}
}

// NewLogger creates the logger described by cfg.
func NewLogger(cfg *Config) (FieldLogger, CloseFunc, error) {
	return NewLoggerWithWriter(cfg, outputWriter(cfg))
}

// NewLoggerWithWriter is like NewLogger but writes entries into w whatever output cfg sets.
func NewLoggerWithWriter(cfg *Config, w io.Writer) (FieldLogger, CloseFunc, error) {
	var masker *Masker
	if cfg.Masking.Enabled {
		secrets := make([]SecretConfig, 0, len(DefaultSecrets)+len(cfg.Masking.Secrets))
		secrets = append(append(secrets, DefaultSecrets...), cfg.Masking.Secrets...)
		var err error
		if masker, err = NewMasker(secrets); err != nil {
			return nil, nil, err
		}
	}

	channel, closeChannel := logf.NewChannelWriter(logf.ChannelWriterConfig{
		Appender:          newAppender(cfg, w),
		EnableSyncOnError: true,
	})
	logfLogger := logf.NewLogger(cfg.Level.logfLevel(), channel).With(logf.Int("pid", os.Getpid()))
	if cfg.AddCaller {
		logfLogger = logfLogger.WithCaller().WithCallerSkip(1)
	}

	var logger FieldLogger = &LogfAdapter{logfLogger}
	if masker != nil {
		logger = NewMaskingLogger(logger, masker)
	}
	return logger, CloseFunc(closeChannel), nil
}

// With implements FieldLogger.
func (l *LogfAdapter) With(fs ...Field) FieldLogger {
	return &LogfAdapter{l.Logger.With(fs...)}
}

// Debug implements FieldLogger.
func (l *LogfAdapter) Debug(msg string, fs ...Field) {
	l.Logger.Debug(msg, fs...)
}

// Info implements FieldLogger.
func (l *LogfAdapter) Info(msg string, fs ...Field) {
	l.Logger.Info(msg, fs...)
}

// Warn implements FieldLogger.
func (l *LogfAdapter) Warn(msg string, fs ...Field) {
	l.Logger.Warn(msg, fs...)
}

// Error implements FieldLogger.
func (l *LogfAdapter) Error(msg string, fs ...Field) {
	l.Logger.Error(msg, fs...)
}

func (lvl Level) logfLevel() logf.Level {
	switch lvl {
	case LevelError:
		return logf.LevelError
	case LevelWarn:
		return logf.LevelWarn
	case LevelDebug:
		return logf.LevelDebug
	default:
		return logf.LevelInfo
	}
}

func outputWriter(cfg *Config) io.Writer {
	switch cfg.Output {
	case OutputFile:
		return &lumberjack.Logger{
			Filename:   expandFilePath(cfg.File.Path, time.Now()),
			MaxSize:    int(cfg.File.MaxSize / (1024 * 1024)),
			MaxBackups: cfg.File.MaxBackups,
			MaxAge:     cfg.File.MaxAgeDays,
			Compress:   cfg.File.Compress,
		}
	case OutputStderr:
		return os.Stderr
	default:
		return os.Stdout
	}
}

func newAppender(cfg *Config, w io.Writer) logf.Appender {
	if cfg.Format == FormatText {
		noColor := cfg.NoColor || cfg.Output == OutputFile
		return logftext.NewAppender(w, logftext.EncoderConfig{
			NoColor:    &noColor,
			EncodeTime: logf.RFC3339NanoTimeEncoder,
		})
	}
	return logf.NewWriteAppender(w, logf.NewJSONEncoder(logf.JSONEncoderConfig{
		FieldKeyTime: "time",
		EncodeTime:   logf.RFC3339NanoTimeEncoder,
	}))
}

// expandFilePath replaces {{pid}} and {{starttime}}, so several bots on one host can share a path template.
func expandFilePath(path string, now time.Time) string {
	return strings.NewReplacer(
		"{{pid}}", strconv.Itoa(os.Getpid()),
		"{{starttime}}", now.Format("200601021504"),
	).Replace(path)
}
