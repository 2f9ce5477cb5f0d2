package pipeline

import (
	"orderbot/internal/domain"
	"orderbot/internal/report"
)

type CommandRequest = domain.CommandRequest
type ChannelMessage = domain.ChannelMessage
type ExtractedItem = domain.ExtractedItem
type OrderRecord = domain.OrderRecord
type Report = report.Report
