package domain

import (
	"errors"
	"fmt"
	"strings"
)

// DateValidationError is returned for unparsable or out-of-window dates.
// The user has to resubmit the command.
type DateValidationError struct {
	Input           string
	Reason          string
	MaxLookbackDays int
	Example         string
}

func (e *DateValidationError) Error() string {
	return fmt.Sprintf("invalid date %q: %s", e.Input, e.Reason)
}

// Explanation is the user-facing body of the validation failure.
func (e *DateValidationError) Explanation() string {
	var b strings.Builder
	fmt.Fprintf(&b, "Invalid date: %s (%s)\n", e.Input, e.Reason)
	b.WriteString("• Must be in MM/DD/YYYY format\n")
	fmt.Fprintf(&b, "• Cannot be older than %d days\n", e.MaxLookbackDays)
	b.WriteString("• Cannot be in the future")
	return b.String()
}

const (
	ServiceHistory = "history"
	ServiceUsers   = "users"
)

// UpstreamError wraps a chat-platform failure. Reason carries the platform's
// own error code (for example "not_in_channel") when one was reported.
type UpstreamError struct {
	Service string
	Reason  string
	Err     error
}

func (e *UpstreamError) Error() string {
	if e.Reason != "" {
		return fmt.Sprintf("%s upstream error: %s", e.Service, e.Reason)
	}
	return fmt.Sprintf("%s upstream error: %v", e.Service, e.Err)
}

func (e *UpstreamError) Unwrap() error { return e.Err }

type NoDataReason int

const (
	NoMessages NoDataReason = iota
	NoRecords
)

type NoDataError struct {
	Reason NoDataReason
}

func (e *NoDataError) Error() string {
	if e.Reason == NoMessages {
		return "no messages found in the requested window"
	}
	return "no order items extracted from the requested window"
}

type RenderError struct {
	Err error
}

func (e *RenderError) Error() string { return fmt.Sprintf("render report: %v", e.Err) }

func (e *RenderError) Unwrap() error { return e.Err }

type DeliveryStage string

const (
	StageOpenChannel DeliveryStage = "open-channel"
	StageUpload      DeliveryStage = "upload"
)

type DeliveryError struct {
	Stage DeliveryStage
	Err   error
}

func (e *DeliveryError) Error() string {
	return fmt.Sprintf("deliver report (%s): %v", e.Stage, e.Err)
}

func (e *DeliveryError) Unwrap() error { return e.Err }

// ErrUploadIncomplete marks an upload the platform accepted without
// returning the shared file.
var ErrUploadIncomplete = errors.New("upload finished without a shared file")
