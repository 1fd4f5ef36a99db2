package apperr

import (
	"errors"
	"fmt"
)

const (
	MetaReason = "reason"
	MetaStage  = "stage"
	MetaField  = "field"
	MetaRunID  = "run_id"
	MetaPhase  = "phase"
	MetaRole   = "role"
	MetaHandle = "handle"
	MetaURL    = "url"

	StageBrowser     = "browser"
	StageAI          = "ai"
	StageNavigation  = "navigation"
	StageInteraction = "interaction"
	StageSnapshot    = "snapshot"
	StageRelay       = "relay"
	StageValidation  = "validation"

	CodeInternal             = "internal"
	CodeInvalidArgument      = "invalid_argument"
	CodeNotFound             = "not_found"
	CodeTimeout              = "timeout"
	CodeBusy                 = "busy"
	CodeBrowserNotReady      = "browser_not_ready"
	CodeActionFailed         = "action_failed"
	CodeTransportUnavailable = "transport_unavailable"
	CodeUpstreamService      = "upstream_service"
	CodeMissingCredential    = "missing_credential"
)

type Error struct {
	Op       string
	Code     string
	Err      error
	Metadata map[string]any
}

func (e *Error) Error() string {
	if e.Err != nil {
		return fmt.Sprintf("%s: %v", e.Op, e.Err)
	}

	return e.Op
}

func (e *Error) Unwrap() error {
	return e.Err
}

func Wrap(op, code string, err error, metadata map[string]any) error {
	if metadata == nil {
		metadata = make(map[string]any)
	}

	return &Error{
		Op:       op,
		Code:     code,
		Err:      err,
		Metadata: metadata,
	}
}

func WrapWithReason(op, code string, err error, reason string) error {
	return Wrap(op, code, err, map[string]any{
		MetaReason: reason,
	})
}

func WrapErrorWithReason(op, code, reason string) error {
	return Wrap(op, code, errors.New(reason), map[string]any{
		MetaReason: reason,
	})
}

func InvalidReqError(op, field string, err error) error {
	return Wrap(op, CodeInvalidArgument, err, map[string]any{
		MetaField:  field,
		MetaReason: "invalid_request",
	})
}

func NotFoundError(op string, err error) error {
	return Wrap(op, CodeNotFound, err, map[string]any{
		MetaReason: "not_found",
	})
}

// CodeOf returns the code of the outermost *Error in err's chain, or "".
func CodeOf(err error) string {
	var appErr *Error
	if errors.As(err, &appErr) {
		return appErr.Code
	}

	return ""
}

// Is reports whether any *Error in err's chain carries code.
func Is(err error, code string) bool {
	for err != nil {
		var appErr *Error
		if !errors.As(err, &appErr) {
			return false
		}

		if appErr.Code == code {
			return true
		}

		err = appErr.Err
	}

	return false
}

// Reason returns the reason metadata of the outermost *Error, or "".
func Reason(err error) string {
	var appErr *Error
	if errors.As(err, &appErr) {
		if reason, ok := appErr.Metadata[MetaReason].(string); ok {
			return reason
		}
	}

	return ""
}
