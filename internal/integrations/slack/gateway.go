package slackbot

import (
	"bytes"
	"encoding/json"
	"io"
	"log"
	"net/http"
	"strings"

	"orderbot/internal/pipeline"

	"github.com/slack-go/slack"
)

const (
	maxCommandBodyBytes = 64 << 10

	processingText = "Processing your request. You'll receive the report via DM shortly."
	busyText       = ":hourglass: The bot is busy with other reports right now. Please try again in a minute."
)

// JobQueue accepts jobs for background processing without blocking.
type JobQueue interface {
	Enqueue(job pipeline.Job) error
}

// CommandGateway is the slash-command endpoint. It verifies the request,
// queues a job and answers before any pipeline work happens.
type CommandGateway struct {
	signingSecret string
	queue         JobQueue
	notifierFor   func(responseURL string) pipeline.Notifier
}

func NewCommandGateway(signingSecret string, queue JobQueue) *CommandGateway {
	return &CommandGateway{
		signingSecret: signingSecret,
		queue:         queue,
		notifierFor: func(responseURL string) pipeline.Notifier {
			return NewResponseURLNotifier(responseURL)
		},
	}
}

func (g *CommandGateway) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodPost {
		w.Header().Set("Allow", http.MethodPost)
		writeJSON(w, http.StatusMethodNotAllowed, map[string]string{"text": "Method not allowed"})
		return
	}

	body, err := io.ReadAll(io.LimitReader(r.Body, maxCommandBodyBytes))
	if err != nil {
		log.Printf("command read body error: %v", err)
		writeJSON(w, http.StatusBadRequest, map[string]string{"text": "Bad request"})
		return
	}
	if err := g.verify(r.Header, body); err != nil {
		log.Printf("command signature rejected remote=%s: %v", r.RemoteAddr, err)
		writeJSON(w, http.StatusForbidden, map[string]string{"text": "Unauthorized request"})
		return
	}

	r.Body = io.NopCloser(bytes.NewReader(body))
	cmd, err := slack.SlashCommandParse(r)
	if err != nil || cmd.UserID == "" || cmd.ResponseURL == "" {
		log.Printf("command parse error user=%q: %v", cmd.UserID, err)
		writeJSON(w, http.StatusBadRequest, map[string]string{"text": "Malformed slash command"})
		return
	}

	req := CommandRequest{
		RequesterID: cmd.UserID,
		RawDateText: strings.TrimSpace(cmd.Text),
		CallbackURL: cmd.ResponseURL,
	}
	job := pipeline.NewJob(req, g.notifierFor(req.CallbackURL))
	log.Printf("job state=received id=%s command=%s requester=%s date=%q", job.ID, cmd.Command, req.RequesterID, req.RawDateText)

	if err := g.queue.Enqueue(job); err != nil {
		log.Printf("job rejected id=%s: %v", job.ID, err)
		writeJSON(w, http.StatusOK, map[string]string{
			"response_type": slack.ResponseTypeEphemeral,
			"text":          busyText,
		})
		return
	}

	writeJSON(w, http.StatusOK, map[string]string{
		"response_type": slack.ResponseTypeEphemeral,
		"text":          processingText,
	})
}

func (g *CommandGateway) verify(header http.Header, body []byte) error {
	sv, err := slack.NewSecretsVerifier(header, g.signingSecret)
	if err != nil {
		return err
	}
	if _, err := sv.Write(body); err != nil {
		return err
	}
	return sv.Ensure()
}

func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	if err := json.NewEncoder(w).Encode(v); err != nil {
		log.Printf("write response error: %v", err)
	}
}
