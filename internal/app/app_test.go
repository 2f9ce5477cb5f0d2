package app

import (
	"bytes"
	"context"
	"errors"
	"net/http"
	"net/http/httptest"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"orderbot/internal/config"
	"orderbot/internal/domain"
	"orderbot/internal/pipeline"
)

func TestNewMuxRoutes(t *testing.T) {
	var hit bool
	gateway := http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		hit = true
		w.WriteHeader(http.StatusAccepted)
	})
	mux := newMux(config.Config{CommandPath: "/slack/command"}, gateway)

	rec := httptest.NewRecorder()
	mux.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/healthz", nil))
	if rec.Code != http.StatusOK || rec.Body.String() != "ok" {
		t.Fatalf("healthz = %d %q", rec.Code, rec.Body.String())
	}

	rec = httptest.NewRecorder()
	mux.ServeHTTP(rec, httptest.NewRequest(http.MethodPost, "/healthz", nil))
	if rec.Code != http.StatusMethodNotAllowed {
		t.Fatalf("POST healthz = %d, want 405", rec.Code)
	}

	rec = httptest.NewRecorder()
	mux.ServeHTTP(rec, httptest.NewRequest(http.MethodPost, "/slack/command", strings.NewReader("")))
	if !hit || rec.Code != http.StatusAccepted {
		t.Fatalf("command path not routed to gateway: hit=%v code=%d", hit, rec.Code)
	}

	rec = httptest.NewRecorder()
	mux.ServeHTTP(rec, httptest.NewRequest(http.MethodPost, "/other", nil))
	if rec.Code != http.StatusNotFound {
		t.Fatalf("unknown path = %d, want 404", rec.Code)
	}
}

func TestFileDeliverer(t *testing.T) {
	out := filepath.Join(t.TempDir(), "orders.xlsx")
	d := &fileDeliverer{path: out}

	ok, err := d.Deliver(context.Background(), "cli", pipeline.Report{Filename: "kitchen_orders.xlsx", Content: []byte("data")})
	if err != nil || !ok {
		t.Fatalf("Deliver = %v, %v", ok, err)
	}
	got, err := os.ReadFile(out)
	if err != nil || string(got) != "data" {
		t.Fatalf("unexpected file content %q: %v", got, err)
	}
	if d.written != out {
		t.Fatalf("written = %q, want %q", d.written, out)
	}
}

func TestFileDelivererWriteFailure(t *testing.T) {
	d := &fileDeliverer{path: filepath.Join(t.TempDir(), "missing-dir", "orders.xlsx")}
	_, err := d.Deliver(context.Background(), "cli", pipeline.Report{Content: []byte("data")})
	var de *domain.DeliveryError
	if !errors.As(err, &de) || de.Stage != domain.StageUpload {
		t.Fatalf("expected DeliveryError{upload}, got %v", err)
	}
}

func TestWriterNotifier(t *testing.T) {
	var buf bytes.Buffer
	n := &writerNotifier{w: &buf, deliverer: &fileDeliverer{written: "/tmp/orders.xlsx"}}

	if err := n.Notify(context.Background(), pipeline.Success{}.Notice()); err != nil {
		t.Fatalf("Notify returned error: %v", err)
	}
	if buf.String() != "Report written to /tmp/orders.xlsx\n" {
		t.Fatalf("unexpected success output %q", buf.String())
	}

	buf.Reset()
	notice := pipeline.ValidationFailure{Explanation: "Invalid date: soon", Example: "/shopping-list 08/13/2025"}.Notice()
	if err := n.Notify(context.Background(), notice); err != nil {
		t.Fatalf("Notify returned error: %v", err)
	}
	want := "Invalid Date Format: Invalid date: soon\nExample: /shopping-list 08/13/2025\n"
	if buf.String() != want {
		t.Fatalf("output = %q, want %q", buf.String(), want)
	}
}

func TestRootCommandHasSubcommands(t *testing.T) {
	root := newRootCmd()
	for _, name := range []string{"serve", "report"} {
		cmd, _, err := root.Find([]string{name})
		if err != nil || cmd.Name() != name {
			t.Fatalf("subcommand %q not registered: %v", name, err)
		}
	}
	report, _, _ := root.Find([]string{"report"})
	if report.Flags().Lookup("since") == nil || report.Flags().Lookup("out") == nil {
		t.Fatal("report must expose --since and --out")
	}
}
