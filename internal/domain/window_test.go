package domain

import (
	"errors"
	"strings"
	"testing"
	"time"
)

func TestValidateDateWindowBoundaries(t *testing.T) {
	now := time.Date(2025, 8, 20, 14, 30, 0, 0, time.UTC)

	tests := []struct {
		name    string
		input   string
		wantErr bool
		want    time.Time
	}{
		{name: "within window", input: "08/01/2025", want: time.Date(2025, 8, 1, 0, 0, 0, 0, time.UTC)},
		{name: "exactly thirty days ago", input: "07/21/2025", want: time.Date(2025, 7, 21, 0, 0, 0, 0, time.UTC)},
		{name: "thirty one days ago", input: "07/20/2025", wantErr: true},
		{name: "today", input: "08/20/2025", want: time.Date(2025, 8, 20, 0, 0, 0, 0, time.UTC)},
		{name: "tomorrow", input: "08/21/2025", want: time.Date(2025, 8, 21, 0, 0, 0, 0, time.UTC)},
		{name: "two days ahead", input: "08/22/2025", wantErr: true},
		{name: "iso format", input: "2025-08-10", want: time.Date(2025, 8, 10, 0, 0, 0, 0, time.UTC)},
		{name: "written month", input: "Aug 5, 2025", want: time.Date(2025, 8, 5, 0, 0, 0, 0, time.UTC)},
		{name: "surrounding spaces", input: "  08/19/2025 ", want: time.Date(2025, 8, 19, 0, 0, 0, 0, time.UTC)},
		{name: "month and day", input: "8/1", want: time.Date(2025, 8, 1, 0, 0, 0, 0, time.UTC)},
		{name: "padded month and day", input: "08/01", want: time.Date(2025, 8, 1, 0, 0, 0, 0, time.UTC)},
		{name: "short month name without year", input: "Aug 1", want: time.Date(2025, 8, 1, 0, 0, 0, 0, time.UTC)},
		{name: "month name without year", input: "August 1", want: time.Date(2025, 8, 1, 0, 0, 0, 0, time.UTC)},
		{name: "dashed us format", input: "08-01-2025", want: time.Date(2025, 8, 1, 0, 0, 0, 0, time.UTC)},
		{name: "slashed iso format", input: "2025/08/01", want: time.Date(2025, 8, 1, 0, 0, 0, 0, time.UTC)},
		{name: "two digit year", input: "8/1/25", want: time.Date(2025, 8, 1, 0, 0, 0, 0, time.UTC)},
		{name: "no year but out of window", input: "Jun 1", wantErr: true},
		{name: "garbage", input: "banana", wantErr: true},
		{name: "empty", input: "", wantErr: true},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			window, err := ValidateDateWindow(tt.input, now, 30)
			if tt.wantErr {
				var dateErr *DateValidationError
				if !errors.As(err, &dateErr) {
					t.Fatalf("ValidateDateWindow(%q) error = %v, want DateValidationError", tt.input, err)
				}
				if dateErr.Example != "08/13/2025" {
					t.Fatalf("example = %q, want now minus 7 days", dateErr.Example)
				}
				return
			}
			if err != nil {
				t.Fatalf("ValidateDateWindow(%q) returned error: %v", tt.input, err)
			}
			if !window.Start.Equal(tt.want) {
				t.Fatalf("start = %s, want %s", window.Start, tt.want)
			}
			if !window.End.Equal(now) {
				t.Fatalf("end = %s, want now", window.End)
			}
		})
	}
}

func TestValidateDateWindowUsesNowLocation(t *testing.T) {
	loc := time.FixedZone("UTC-7", -7*3600)
	// 02:00 UTC on Aug 21 is still Aug 20 at UTC-7.
	now := time.Date(2025, 8, 21, 2, 0, 0, 0, time.UTC).In(loc)

	if _, err := ValidateDateWindow("08/22/2025", now, 30); err == nil {
		t.Fatal("expected Aug 22 to be rejected when the local day is Aug 20")
	}
	window, err := ValidateDateWindow("08/21/2025", now, 30)
	if err != nil {
		t.Fatalf("expected Aug 21 to be accepted: %v", err)
	}
	if window.Start.Location() != loc || window.Start.Hour() != 0 {
		t.Fatalf("start must be local midnight, got %s", window.Start)
	}
}

func TestValidateDateWindowCustomLookback(t *testing.T) {
	now := time.Date(2025, 8, 20, 9, 0, 0, 0, time.UTC)
	if _, err := ValidateDateWindow("08/10/2025", now, 7); err == nil {
		t.Fatal("expected 10-day-old date to fail with a 7 day lookback")
	}
	if _, err := ValidateDateWindow("08/13/2025", now, 7); err != nil {
		t.Fatalf("expected 7-day-old date to pass: %v", err)
	}
}

func TestDateValidationErrorExplanation(t *testing.T) {
	now := time.Date(2025, 8, 20, 9, 0, 0, 0, time.UTC)
	_, err := ValidateDateWindow("06/01/2025", now, 30)
	var dateErr *DateValidationError
	if !errors.As(err, &dateErr) {
		t.Fatalf("expected DateValidationError, got %v", err)
	}
	text := dateErr.Explanation()
	for _, want := range []string{"06/01/2025", "older than 30 days (07/21/2025)", "MM/DD/YYYY", "future"} {
		if !strings.Contains(text, want) {
			t.Fatalf("explanation missing %q:\n%s", want, text)
		}
	}
}

func TestErrorTaxonomyUnwrap(t *testing.T) {
	cause := errors.New("boom")
	wrapped := []error{
		&UpstreamError{Service: ServiceHistory, Err: cause},
		&RenderError{Err: cause},
		&DeliveryError{Stage: StageUpload, Err: cause},
	}
	for _, err := range wrapped {
		if !errors.Is(err, cause) {
			t.Fatalf("%T must unwrap to its cause", err)
		}
	}

	up := &UpstreamError{Service: ServiceHistory, Reason: "not_in_channel", Err: cause}
	if !strings.Contains(up.Error(), "not_in_channel") {
		t.Fatalf("upstream error should mention the reason: %s", up.Error())
	}
	if (&NoDataError{Reason: NoMessages}).Error() == (&NoDataError{Reason: NoRecords}).Error() {
		t.Fatal("no-data reasons must read differently")
	}
}

func TestExtractedItemSentinel(t *testing.T) {
	if !(ExtractedItem{}).IsSentinel() {
		t.Fatal("empty name must be the sentinel")
	}
	if (ExtractedItem{Name: "milk"}).IsSentinel() {
		t.Fatal("named item is not the sentinel")
	}
}
