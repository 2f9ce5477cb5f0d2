package domain

import "time"

// CommandRequest is one slash-command invocation. It is owned by the job
// processing it and never shared between jobs.
type CommandRequest struct {
	RequesterID string
	RawDateText string
	CallbackURL string
}

type DateWindow struct {
	Start time.Time
	End   time.Time
}

type ChannelMessage struct {
	AuthorID string
	SentAt   time.Time
	Text     string
}

// ExtractedItem with an empty Name means "no item found" and never becomes
// an OrderRecord.
type ExtractedItem struct {
	Name string `json:"name"`
}

func (i ExtractedItem) IsSentinel() bool {
	return i.Name == ""
}

type OrderRecord struct {
	PersonName  string
	Date        time.Time // calendar day, time-of-day is ignored
	ProductName string
}

// ReportDateLayout is used for every calendar date shown to users.
const ReportDateLayout = "01/02/2006"

func CalendarDay(t time.Time) time.Time {
	y, m, d := t.Date()
	return time.Date(y, m, d, 0, 0, 0, 0, t.Location())
}
