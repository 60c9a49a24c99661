package model

import (
	"errors"
	"fmt"
)

// Kind is a stable category for programmatic error handling.
//
// Callers should branch on Kind (and Stage) rather than matching error strings.
type Kind string

const (
	KindInvalidSignature     Kind = "InvalidSignature"
	KindSelectorCollision    Kind = "SelectorCollision"
	KindDeploymentFailed     Kind = "DeploymentFailed"
	KindUpdateFailed         Kind = "UpdateFailed"
	KindUnauthorized         Kind = "Unauthorized"
	KindManifestInconsistent Kind = "ManifestInconsistent"
)

// Stage names the pipeline step that produced an error.
type Stage string

const (
	StageSelect Stage = "select"
	StageDeploy Stage = "deploy"
	StageBind   Stage = "bind"
	StageRecord Stage = "record"
	StageVerify Stage = "verify"
)

// Error is the structured error returned by every pipeline stage.
//
// Critical marks failures that happen after the proxy's routing already
// changed; the manifest no longer describes live state and an operator must
// re-run the record stage.
//
// Message is intended for humans; do not match on it.
type Error struct {
	Kind     Kind
	Stage    Stage
	Message  string
	Cause    error
	Critical bool
}

func (e *Error) Error() string {
	if e == nil {
		return "<nil>"
	}
	prefix := string(e.Kind)
	if e.Stage != "" {
		prefix = string(e.Stage) + ": " + prefix
	}
	if e.Cause != nil {
		return fmt.Sprintf("%s: %s: %v", prefix, e.Message, e.Cause)
	}
	return fmt.Sprintf("%s: %s", prefix, e.Message)
}

func (e *Error) Unwrap() error {
	if e == nil {
		return nil
	}
	return e.Cause
}

// NewError returns a structured error without a cause.
func NewError(kind Kind, stage Stage, msg string) *Error {
	return &Error{Kind: kind, Stage: stage, Message: msg}
}

// WrapError returns a structured error wrapping cause.
func WrapError(kind Kind, stage Stage, msg string, cause error) *Error {
	return &Error{Kind: kind, Stage: stage, Message: msg, Cause: cause}
}

// Errorf formats a structured error without a cause.
func Errorf(kind Kind, stage Stage, format string, args ...any) *Error {
	return &Error{Kind: kind, Stage: stage, Message: fmt.Sprintf(format, args...)}
}

// IsKind reports whether err is (or wraps) an *Error with the given Kind.
func IsKind(err error, kind Kind) bool {
	var e *Error
	if !errors.As(err, &e) {
		return false
	}
	return e.Kind == kind
}

// KindOf returns the Kind of a structured error, or "" if err is not one.
func KindOf(err error) Kind {
	var e *Error
	if !errors.As(err, &e) {
		return ""
	}
	return e.Kind
}

// StageOf returns the Stage of a structured error, or "".
func StageOf(err error) Stage {
	var e *Error
	if !errors.As(err, &e) {
		return ""
	}
	return e.Stage
}

// IsCritical reports whether err marks a bound-but-not-recorded upgrade.
func IsCritical(err error) bool {
	var e *Error
	if !errors.As(err, &e) {
		return false
	}
	return e.Critical
}
