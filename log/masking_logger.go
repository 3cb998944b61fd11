/*
Copyright © 2025 Acronis International GmbH.

Released under MIT license.
*/

package log

import (
	"errors"
	"fmt"
	"io"

	"github.com/ssgreg/logf"
)

// StringMasker hides secrets in a string.
type StringMasker interface {
	Mask(s string) string
}

// MaskingLogger hides secrets in the message and in string, bytes and error fields
// before passing the entry to the next logger.
type MaskingLogger struct {
	next   FieldLogger
	masker StringMasker
}

var _ FieldLogger = (*MaskingLogger)(nil)

// NewMaskingLogger wraps next so that everything it logs goes through masker.
func NewMaskingLogger(next FieldLogger, masker StringMasker) *MaskingLogger {
	return &MaskingLogger{next: next, masker: masker}
}

// With returns a new logger with the given additional fields.
func (l *MaskingLogger) With(fs ...Field) FieldLogger {
	return &MaskingLogger{next: l.next.With(l.maskFields(fs)...), masker: l.masker}
}

// Debug logs a message at "debug" level.
func (l *MaskingLogger) Debug(msg string, fs ...Field) {
	l.next.Debug(l.masker.Mask(msg), l.maskFields(fs)...)
}

// Info logs a message at "info" level.
func (l *MaskingLogger) Info(msg string, fs ...Field) {
	l.next.Info(l.masker.Mask(msg), l.maskFields(fs)...)
}

// Warn logs a message at "warn" level.
func (l *MaskingLogger) Warn(msg string, fs ...Field) {
	l.next.Warn(l.masker.Mask(msg), l.maskFields(fs)...)
}

// Error logs a message at "error" level.
func (l *MaskingLogger) Error(msg string, fs ...Field) {
	l.next.Error(l.masker.Mask(msg), l.maskFields(fs)...)
}

// maskFields copies fs only when some field holds a secret.
func (l *MaskingLogger) maskFields(fs []Field) []Field {
	var res []Field
	for i := range fs {
		masked, changed := l.maskField(fs[i])
		if !changed {
			continue
		}
		if res == nil {
			res = append([]Field(nil), fs...)
		}
		res[i] = masked
	}
	if res == nil {
		return fs
	}
	return res
}

func (l *MaskingLogger) maskField(f Field) (Field, bool) {
	switch f.Type {
	case logf.FieldTypeBytesToString:
		if s, ok := l.mask(string(f.Bytes)); ok {
			return String(f.Key, s), true
		}
	case logf.FieldTypeBytes, logf.FieldTypeRawBytes:
		if f.Bytes == nil {
			break
		}
		if s, ok := l.mask(string(f.Bytes)); ok {
			return logf.ConstBytes(f.Key, []byte(s)), true
		}
	case logf.FieldTypeError:
		err, isErr := f.Any.(error)
		if !isErr || err == nil {
			break
		}
		if s, ok := l.mask(err.Error()); ok {
			return NamedError(f.Key, l.maskedError(err, s)), true
		}
	}
	return f, false
}

func (l *MaskingLogger) mask(s string) (string, bool) {
	masked := l.masker.Mask(s)
	return masked, masked != s
}

// maskedError keeps a masked "%+v" form for errors that print more details with it.
func (l *MaskingLogger) maskedError(err error, masked string) error {
	if _, ok := err.(fmt.Formatter); !ok {
		return errors.New(masked)
	}
	return verboseMaskedError{msg: masked, verbose: l.masker.Mask(fmt.Sprintf("%+v", err))}
}

type verboseMaskedError struct {
	msg     string
	verbose string
}

func (e verboseMaskedError) Error() string {
	return e.msg
}

func (e verboseMaskedError) Format(f fmt.State, _ rune) {
	_, _ = io.WriteString(f, e.verbose)
}
