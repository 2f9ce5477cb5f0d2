package slackbot

import (
	"orderbot/internal/config"
	"orderbot/internal/domain"
	"orderbot/internal/httpx"
	"orderbot/internal/pipeline"
	"orderbot/internal/report"

	"github.com/slack-go/slack"
)

type Config = config.Config
type ChannelMessage = domain.ChannelMessage
type CommandRequest = domain.CommandRequest
type Notice = pipeline.Notice
type Report = report.Report

// NewClient builds the Web API client shared by every component here.
func NewClient(cfg Config, opts ...slack.Option) *slack.Client {
	opts = append([]slack.Option{slack.OptionHTTPClient(httpx.ExternalHTTPClient())}, opts...)
	return slack.New(cfg.SlackBotToken, opts...)
}
