package slackbot

import (
	"context"
	"fmt"
	"net/http"

	"orderbot/internal/httpx"

	"github.com/slack-go/slack"
)

// NoticeBlocks renders a failure notice as Block Kit sections. Success
// notices are plain text and get no blocks.
func NoticeBlocks(n Notice) []slack.Block {
	if n.Error == nil {
		return nil
	}
	blocks := []slack.Block{
		slack.NewSectionBlock(
			slack.NewTextBlockObject(slack.MarkdownType, fmt.Sprintf(":x: *%s*\n%s", n.Error.Title, n.Error.Message), false, false),
			nil, nil,
		),
	}
	if n.Error.Example != "" {
		blocks = append(blocks, slack.NewSectionBlock(
			slack.NewTextBlockObject(slack.MarkdownType, fmt.Sprintf(":bulb: *Example:* `%s`", n.Error.Example), false, false),
			nil, nil,
		))
	}
	return blocks
}

// ResponseURLNotifier answers a slash command through its response_url.
type ResponseURLNotifier struct {
	URL        string
	httpClient *http.Client
}

func NewResponseURLNotifier(url string) *ResponseURLNotifier {
	return &ResponseURLNotifier{URL: url, httpClient: httpx.ExternalHTTPClient()}
}

func (n *ResponseURLNotifier) Notify(ctx context.Context, notice Notice) error {
	msg := &slack.WebhookMessage{
		Text:         notice.Text,
		ResponseType: slack.ResponseTypeEphemeral,
	}
	if blocks := NoticeBlocks(notice); len(blocks) > 0 {
		msg.Blocks = &slack.Blocks{BlockSet: blocks}
	}
	if err := slack.PostWebhookCustomHTTPContext(ctx, n.URL, n.httpClient, msg); err != nil {
		return fmt.Errorf("posting to response_url: %w", err)
	}
	return nil
}

// DMNotifier posts the notice into a user's DM. Scheduled runs have no
// response_url to answer.
type DMNotifier struct {
	api    *slack.Client
	UserID string
}

func NewDMNotifier(api *slack.Client, userID string) *DMNotifier {
	return &DMNotifier{api: api, UserID: userID}
}

func (n *DMNotifier) Notify(ctx context.Context, notice Notice) error {
	channelID, err := openDM(ctx, n.api, n.UserID)
	if err != nil {
		return fmt.Errorf("opening DM with %s: %w", n.UserID, err)
	}
	opts := []slack.MsgOption{slack.MsgOptionText(notice.Text, false)}
	if blocks := NoticeBlocks(notice); len(blocks) > 0 {
		opts = append(opts, slack.MsgOptionBlocks(blocks...))
	}
	if _, _, err := n.api.PostMessageContext(ctx, channelID, opts...); err != nil {
		return fmt.Errorf("posting DM to %s: %w", n.UserID, err)
	}
	return nil
}
