package domain

import (
	"fmt"
	"strings"
	"time"

	"github.com/araddon/dateparse"
)

const DefaultMaxLookbackDays = 30

// ValidateDateWindow parses free-form date text and checks that the day lies
// between maxLookbackDays ago and tomorrow, both inclusive, in now's location.
func ValidateDateWindow(text string, now time.Time, maxLookbackDays int) (DateWindow, error) {
	if maxLookbackDays < 1 {
		maxLookbackDays = DefaultMaxLookbackDays
	}
	text = strings.TrimSpace(text)
	today := CalendarDay(now)
	earliest := today.AddDate(0, 0, -maxLookbackDays)
	latest := today.AddDate(0, 0, 1)

	fail := func(reason string) (DateWindow, error) {
		return DateWindow{}, &DateValidationError{
			Input:           text,
			Reason:          reason,
			MaxLookbackDays: maxLookbackDays,
			Example:         ExampleDate(now, 7),
		}
	}

	if text == "" {
		return fail("a start date is required")
	}
	parsed, err := parseDate(text, now.Location())
	if err != nil && strings.Contains(text, "-") {
		parsed, err = parseDate(strings.ReplaceAll(text, "-", "/"), now.Location())
	}
	if err != nil {
		return fail("could not read this as a date")
	}
	// "8/1" and "Aug 1" carry no year.
	if parsed.Year() == 0 {
		parsed = time.Date(now.Year(), parsed.Month(), parsed.Day(), 0, 0, 0, 0, now.Location())
	}
	day := CalendarDay(parsed.In(now.Location()))

	if day.Before(earliest) {
		return fail(fmt.Sprintf("date cannot be older than %d days (%s)", maxLookbackDays, earliest.Format(ReportDateLayout)))
	}
	if day.After(latest) {
		return fail("future dates are not allowed")
	}
	return DateWindow{Start: day, End: now}, nil
}

func parseDate(text string, loc *time.Location) (time.Time, error) {
	return dateparse.ParseIn(text, loc,
		dateparse.PreferMonthFirst(true),
		dateparse.RetryAmbiguousDateWithSwap(true),
	)
}

// ExampleDate renders the calendar day daysAgo days before now.
func ExampleDate(now time.Time, daysAgo int) string {
	return CalendarDay(now).AddDate(0, 0, -daysAgo).Format(ReportDateLayout)
}
