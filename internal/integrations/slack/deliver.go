package slackbot

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"log"

	"orderbot/internal/domain"

	"github.com/slack-go/slack"
)

// Deliverer uploads a finished report into the requester's DM.
type Deliverer struct {
	api   *slack.Client
	title string
}

func NewDeliverer(api *slack.Client, title string) *Deliverer {
	return &Deliverer{api: api, title: title}
}

func (d *Deliverer) Deliver(ctx context.Context, userID string, rep Report) (bool, error) {
	channelID, err := openDM(ctx, d.api, userID)
	if err != nil {
		log.Printf("deliver open DM error user=%s: %v", userID, err)
		return false, &domain.DeliveryError{Stage: domain.StageOpenChannel, Err: err}
	}
	if len(rep.Content) == 0 {
		return false, &domain.DeliveryError{Stage: domain.StageUpload, Err: errors.New("report is empty")}
	}

	file, err := d.api.UploadFileV2Context(ctx, slack.UploadFileV2Parameters{
		Reader:   bytes.NewReader(rep.Content),
		FileSize: len(rep.Content),
		Filename: rep.Filename,
		Title:    d.title,
		Channel:  channelID,
	})
	if err != nil {
		log.Printf("deliver upload error user=%s channel=%s: %v", userID, channelID, err)
		return false, &domain.DeliveryError{Stage: domain.StageUpload, Err: err}
	}
	if file == nil || file.ID == "" {
		log.Printf("deliver upload incomplete user=%s channel=%s", userID, channelID)
		return false, nil
	}

	log.Printf("deliver done user=%s channel=%s file=%s size=%d", userID, channelID, file.ID, len(rep.Content))
	return true, nil
}

func openDM(ctx context.Context, api *slack.Client, userID string) (string, error) {
	ch, _, _, err := api.OpenConversationContext(ctx, &slack.OpenConversationParameters{Users: []string{userID}})
	if err != nil {
		return "", err
	}
	if ch == nil || ch.ID == "" {
		return "", fmt.Errorf("no DM channel returned for %s", userID)
	}
	return ch.ID, nil
}
