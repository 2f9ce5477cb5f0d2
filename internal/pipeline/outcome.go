package pipeline

import (
	"context"
	"errors"
	"fmt"
	"time"

	"orderbot/internal/domain"
)

// ErrorEnvelope is the user-facing description of a failed run.
type ErrorEnvelope struct {
	Title   string
	Message string
	Example string
}

// Notice is what gets posted back once a run ends. Error is nil on success.
type Notice struct {
	Text  string
	Error *ErrorEnvelope
}

// Outcome is the terminal state of one run.
type Outcome interface {
	Kind() string
	Notice() Notice
}

type Success struct{}

type ValidationFailure struct {
	Explanation string
	Example     string
}

type UpstreamFailure struct {
	Service string
	Reason  string
}

type NoData struct {
	Reason  domain.NoDataReason
	Since   string
	Example string
}

type RenderFailure struct{}

type DeliveryFailure struct {
	Stage domain.DeliveryStage
}

type UnknownFailure struct {
	TimedOut bool
}

func (Success) Kind() string           { return "success" }
func (ValidationFailure) Kind() string { return "validation" }
func (UpstreamFailure) Kind() string   { return "upstream" }
func (NoData) Kind() string            { return "no-data" }
func (RenderFailure) Kind() string     { return "render" }
func (DeliveryFailure) Kind() string   { return "delivery" }
func (UnknownFailure) Kind() string    { return "unknown" }

func (Success) Notice() Notice {
	return Notice{Text: ":white_check_mark: Your report has been sent to your DMs!"}
}

func (f ValidationFailure) Notice() Notice {
	return failure("Invalid Date Format", f.Explanation, f.Example)
}

var upstreamReasons = map[string]string{
	"channel_error":     ":lock: Bot doesn't have access to this channel",
	"not_in_channel":    ":eyes: Bot needs to be added to the channel first",
	"channel_not_found": ":mag: The configured channel could not be found",
}

func (f UpstreamFailure) Notice() Notice {
	msg, ok := upstreamReasons[f.Reason]
	if !ok {
		msg = "Error fetching messages from Slack"
		if f.Service == domain.ServiceUsers {
			msg = "Error looking up users in Slack"
		}
	}
	return failure("Slack Error", msg, "")
}

func (f NoData) Notice() Notice {
	msg := fmt.Sprintf("No valid orders found since %s", f.Since)
	if f.Reason == domain.NoMessages {
		msg = fmt.Sprintf("No messages found since %s", f.Since)
	}
	return failure("No Data Found", msg, f.Example)
}

func (RenderFailure) Notice() Notice {
	return failure("Report Generation Failed", "Could not create the Excel file. Please try again later.", "")
}

func (f DeliveryFailure) Notice() Notice {
	if f.Stage == domain.StageUpload {
		return failure("Upload Failed", "Your report was created but the file upload failed. Please try again later.", "")
	}
	return failure("Delivery Failed", "Couldn't send you a DM. Please check if you have DMs enabled with this app.", "")
}

func (f UnknownFailure) Notice() Notice {
	if f.TimedOut {
		return failure("Request Timed Out", "Processing took too long and was stopped. Try a more recent date.", "")
	}
	return failure("Something Went Wrong", "We encountered an unexpected error. Our team has been notified.", "")
}

func failure(title, message, example string) Notice {
	return Notice{
		Text:  fmt.Sprintf(":x: %s", title),
		Error: &ErrorEnvelope{Title: title, Message: message, Example: example},
	}
}

// Classify maps the error returned by a run onto its outcome. command is
// the slash command used to build usage examples.
func Classify(err error, command string, req CommandRequest, now time.Time) Outcome {
	if err == nil {
		return Success{}
	}

	var (
		validationErr *domain.DateValidationError
		upstreamErr   *domain.UpstreamError
		noDataErr     *domain.NoDataError
		renderErr     *domain.RenderError
		deliveryErr   *domain.DeliveryError
	)
	switch {
	case errors.As(err, &validationErr):
		return ValidationFailure{
			Explanation: validationErr.Explanation(),
			Example:     fmt.Sprintf("%s %s", command, validationErr.Example),
		}
	case errors.As(err, &upstreamErr):
		return UpstreamFailure{Service: upstreamErr.Service, Reason: upstreamErr.Reason}
	case errors.As(err, &noDataErr):
		return NoData{
			Reason:  noDataErr.Reason,
			Since:   req.RawDateText,
			Example: fmt.Sprintf("%s %s", command, domain.ExampleDate(now, 3)),
		}
	case errors.As(err, &renderErr):
		return RenderFailure{}
	case errors.As(err, &deliveryErr):
		return DeliveryFailure{Stage: deliveryErr.Stage}
	case errors.Is(err, context.DeadlineExceeded):
		return UnknownFailure{TimedOut: true}
	default:
		return UnknownFailure{}
	}
}
