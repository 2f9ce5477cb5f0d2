package llm

import (
	"orderbot/internal/config"
	"orderbot/internal/domain"
	"orderbot/internal/httpx"
)

type Config = config.Config
type ExtractedItem = domain.ExtractedItem
type ChannelMessage = domain.ChannelMessage

var externalHTTPClient = httpx.ExternalHTTPClient()
