package app

import (
	"context"
	"fmt"
	"io"
	"log"
	"os"

	"orderbot/internal/domain"
	"orderbot/internal/pipeline"
)

// fileDeliverer writes the report to disk instead of a DM.
type fileDeliverer struct {
	path    string
	written string
}

func (d *fileDeliverer) Deliver(_ context.Context, _ string, rep pipeline.Report) (bool, error) {
	path := d.path
	if path == "" {
		path = rep.Filename
	}
	if err := os.WriteFile(path, rep.Content, 0o644); err != nil {
		return false, &domain.DeliveryError{Stage: domain.StageUpload, Err: err}
	}
	d.written = path
	log.Printf("report written path=%s size=%d", path, len(rep.Content))
	return true, nil
}

// writerNotifier prints the outcome for a terminal user.
type writerNotifier struct {
	w         io.Writer
	deliverer *fileDeliverer
}

func (n *writerNotifier) Notify(_ context.Context, notice pipeline.Notice) error {
	if notice.Error == nil {
		_, err := fmt.Fprintf(n.w, "Report written to %s\n", n.deliverer.written)
		return err
	}
	if _, err := fmt.Fprintf(n.w, "%s: %s\n", notice.Error.Title, notice.Error.Message); err != nil {
		return err
	}
	if notice.Error.Example != "" {
		_, err := fmt.Fprintf(n.w, "Example: %s\n", notice.Error.Example)
		return err
	}
	return nil
}
