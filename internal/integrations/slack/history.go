package slackbot

import (
	"context"
	"errors"
	"fmt"
	"log"
	"strconv"
	"strings"
	"time"

	"orderbot/internal/domain"

	"github.com/slack-go/slack"
)

const historyPageSize = 200

type HistoryFetcher struct {
	api *slack.Client
}

func NewHistoryFetcher(api *slack.Client) *HistoryFetcher {
	return &HistoryFetcher{api: api}
}

// FetchHistory follows the cursor until Slack reports no more pages.
// Messages without an author or text are dropped.
func (f *HistoryFetcher) FetchHistory(ctx context.Context, channelID string, since time.Time) ([]ChannelMessage, error) {
	params := &slack.GetConversationHistoryParameters{
		ChannelID: channelID,
		Oldest:    slackTimestamp(since),
		Limit:     historyPageSize,
	}

	var messages []ChannelMessage
	skipped := 0
	pages := 0
	for {
		resp, err := f.api.GetConversationHistoryContext(ctx, params)
		if err != nil {
			log.Printf("history fetch error channel=%s page=%d: %v", channelID, pages+1, err)
			return nil, upstreamError(domain.ServiceHistory, err)
		}
		pages++
		for _, m := range resp.Messages {
			msg, ok := toChannelMessage(m)
			if !ok {
				skipped++
				continue
			}
			messages = append(messages, msg)
		}
		if !resp.HasMore || resp.ResponseMetaData.NextCursor == "" {
			break
		}
		params.Cursor = resp.ResponseMetaData.NextCursor
	}

	log.Printf("history fetched channel=%s pages=%d messages=%d skipped=%d", channelID, pages, len(messages), skipped)
	return messages, nil
}

func toChannelMessage(m slack.Message) (ChannelMessage, bool) {
	if m.User == "" || strings.TrimSpace(m.Text) == "" {
		return ChannelMessage{}, false
	}
	sentAt, err := parseSlackTimestamp(m.Timestamp)
	if err != nil {
		log.Printf("history skip message ts=%q: %v", m.Timestamp, err)
		return ChannelMessage{}, false
	}
	return ChannelMessage{AuthorID: m.User, SentAt: sentAt, Text: m.Text}, true
}

func slackTimestamp(t time.Time) string {
	return fmt.Sprintf("%d.%06d", t.Unix(), t.Nanosecond()/int(time.Microsecond))
}

func parseSlackTimestamp(ts string) (time.Time, error) {
	secPart, fracPart, _ := strings.Cut(ts, ".")
	sec, err := strconv.ParseInt(secPart, 10, 64)
	if err != nil {
		return time.Time{}, fmt.Errorf("invalid slack timestamp %q: %w", ts, err)
	}
	var micros int64
	if fracPart != "" {
		if len(fracPart) > 6 {
			fracPart = fracPart[:6]
		}
		fracPart += strings.Repeat("0", 6-len(fracPart))
		micros, err = strconv.ParseInt(fracPart, 10, 64)
		if err != nil {
			return time.Time{}, fmt.Errorf("invalid slack timestamp %q: %w", ts, err)
		}
	}
	return time.Unix(sec, micros*int64(time.Microsecond)), nil
}

// upstreamError keeps Slack's own error code as the reason when there is one.
func upstreamError(service string, err error) error {
	ue := &domain.UpstreamError{Service: service, Err: err}
	var slackErr slack.SlackErrorResponse
	var rateErr *slack.RateLimitedError
	switch {
	case errors.As(err, &slackErr):
		ue.Reason = slackErr.Err
	case errors.As(err, &rateErr):
		ue.Reason = "ratelimited"
	}
	return ue
}
