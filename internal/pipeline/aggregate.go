package pipeline

import (
	"strings"
	"time"

	"orderbot/internal/domain"
)

// Mention is one fetched message after its author was resolved and its
// items were extracted.
type Mention struct {
	PersonName string
	Date       time.Time
	Items      []ExtractedItem
}

// Aggregate emits one OrderRecord per non-sentinel item. Input order is
// kept but callers must not rely on it.
func Aggregate(mentions []Mention) ([]OrderRecord, error) {
	var records []OrderRecord
	for _, m := range mentions {
		day := domain.CalendarDay(m.Date)
		for _, item := range m.Items {
			name := strings.TrimSpace(item.Name)
			if name == "" {
				continue
			}
			records = append(records, OrderRecord{
				PersonName:  m.PersonName,
				Date:        day,
				ProductName: name,
			})
		}
	}
	if len(records) == 0 {
		return nil, &domain.NoDataError{Reason: domain.NoRecords}
	}
	return records, nil
}
