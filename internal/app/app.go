package app

import (
	"context"
	"errors"
	"fmt"
	"io"
	"log"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"orderbot/internal/config"
	"orderbot/internal/domain"
	"orderbot/internal/httpx"
	llm "orderbot/internal/integrations/llm"
	slackbot "orderbot/internal/integrations/slack"
	"orderbot/internal/pipeline"
	"orderbot/internal/report"
	"orderbot/internal/schedule"
	"orderbot/internal/worker"

	"github.com/slack-go/slack"
	"github.com/spf13/cobra"
)

const shutdownTimeout = 30 * time.Second

func Main() {
	if err := newRootCmd().Execute(); err != nil {
		fmt.Fprintf(os.Stderr, "error: %v\n", err)
		os.Exit(1)
	}
}

func newRootCmd() *cobra.Command {
	root := &cobra.Command{
		Use:   "orderbot",
		Short: "Collects order requests from a Slack channel into a spreadsheet",
		Long: `orderbot answers a Slack slash command with a spreadsheet of every item
requested in the configured channel since a given date. The report is built
in the background and delivered by DM.`,
		SilenceUsage:  true,
		SilenceErrors: true,
	}
	root.AddCommand(newServeCmd(), newReportCmd())
	return root
}

func newServeCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "serve",
		Short: "Run the slash-command endpoint and the report schedule",
		RunE: func(cmd *cobra.Command, args []string) error {
			return runServe(loadConfig())
		},
	}
}

func newReportCmd() *cobra.Command {
	var since, out string
	cmd := &cobra.Command{
		Use:   "report",
		Short: "Build one report locally and write it to a file",
		Example: `  orderbot report --since 08/01/2025
  orderbot report --since "last monday" --out orders.xlsx`,
		RunE: func(cmd *cobra.Command, args []string) error {
			return runReport(cmd.Context(), loadConfig(), since, out, cmd.OutOrStdout())
		},
	}
	cmd.Flags().StringVar(&since, "since", "", "first day to include (e.g. 08/01/2025)")
	cmd.Flags().StringVar(&out, "out", "", "output file (defaults to report_filename)")
	_ = cmd.MarkFlagRequired("since")
	return cmd
}

func loadConfig() config.Config {
	cfg := config.LoadConfig()
	appliedHTTPTimeout := httpx.ConfigureExternalHTTPClient(cfg.ExternalHTTPTimeoutSeconds)
	log.Printf(
		"Config loaded. Channel=%s Command=%s LLMProvider=%s LLMConcurrency=%d Timezone=%s Workers=%d Queue=%d JobTimeout=%s ExternalHTTPTimeout=%s",
		cfg.SlackChannelID,
		cfg.SlashCommand,
		cfg.LLMProvider,
		cfg.LLMConcurrency,
		cfg.Timezone,
		cfg.WorkerCount,
		cfg.WorkerQueueSize,
		cfg.JobTimeout(),
		appliedHTTPTimeout,
	)
	return cfg
}

func newPipeline(cfg config.Config, api *slack.Client, deliverer pipeline.ReportDeliverer) *pipeline.Pipeline {
	return &pipeline.Pipeline{
		ChannelID:       cfg.SlackChannelID,
		SlashCommand:    cfg.SlashCommand,
		MaxLookbackDays: cfg.MaxLookbackDays,
		Location:        cfg.Location,
		History:         slackbot.NewHistoryFetcher(api),
		Names:           slackbot.NewIdentityResolver(api),
		Extractor:       llm.NewExtractor(cfg),
		Renderer:        report.NewRenderer(cfg.ReportFilename),
		Deliverer:       deliverer,
	}
}

func newMux(cfg config.Config, gateway http.Handler) *http.ServeMux {
	mux := http.NewServeMux()
	mux.Handle(cfg.CommandPath, gateway)
	mux.HandleFunc("/healthz", func(w http.ResponseWriter, r *http.Request) {
		if r.Method != http.MethodGet && r.Method != http.MethodHead {
			w.WriteHeader(http.StatusMethodNotAllowed)
			return
		}
		w.Header().Set("Content-Type", "text/plain; charset=utf-8")
		_, _ = w.Write([]byte("ok"))
	})
	return mux
}

func runServe(cfg config.Config) error {
	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	api := slackbot.NewClient(cfg)
	p := newPipeline(cfg, api, slackbot.NewDeliverer(api, cfg.ReportTitle))

	// Jobs keep running through shutdown until Stop gives up on them.
	pool := worker.NewPool(cfg.WorkerCount, cfg.WorkerQueueSize, cfg.JobTimeout())
	pool.Start(context.Background())
	dispatcher := pipeline.NewDispatcher(pool, p)

	if cfg.ScheduleEnabled() {
		ids, unresolved, err := slackbot.ResolveRecipients(ctx, api, cfg.ReportRecipients)
		if err != nil {
			log.Printf("Resolving report_recipients failed: %v", err)
		}
		if len(unresolved) > 0 {
			log.Printf("Unknown report_recipients skipped: %v", unresolved)
		}
		cfg.ReportRecipients = ids
	}
	schedule.Start(ctx, cfg, dispatcher, func(userID string) pipeline.Notifier {
		return slackbot.NewDMNotifier(api, userID)
	})

	srv := &http.Server{
		Addr:              cfg.ListenAddr,
		Handler:           newMux(cfg, slackbot.NewCommandGateway(cfg.SlackSigningSecret, dispatcher)),
		ReadHeaderTimeout: 10 * time.Second,
	}

	errCh := make(chan error, 1)
	go func() {
		log.Printf("Starting order bot on %s (command path %s)", cfg.ListenAddr, cfg.CommandPath)
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			errCh <- err
		}
	}()

	select {
	case err := <-errCh:
		_ = pool.Stop(context.Background())
		return fmt.Errorf("http server: %w", err)
	case <-ctx.Done():
	}

	log.Println("Shutting down...")
	shutdownCtx, cancel := context.WithTimeout(context.Background(), shutdownTimeout)
	defer cancel()
	if err := srv.Shutdown(shutdownCtx); err != nil {
		log.Printf("http shutdown error: %v", err)
	}
	if err := pool.Stop(shutdownCtx); err != nil {
		log.Printf("worker pool did not drain: %v", err)
	}
	return nil
}

func runReport(ctx context.Context, cfg config.Config, since, out string, w io.Writer) error {
	if ctx == nil {
		ctx = context.Background()
	}
	ctx, cancel := context.WithTimeout(ctx, cfg.JobTimeout())
	defer cancel()

	deliverer := &fileDeliverer{path: out}
	p := newPipeline(cfg, slackbot.NewClient(cfg), deliverer)
	job := pipeline.NewJob(domain.CommandRequest{RequesterID: "cli", RawDateText: since}, &writerNotifier{w: w, deliverer: deliverer})

	outcome := p.Process(ctx, job)
	if _, ok := outcome.(pipeline.Success); !ok {
		return fmt.Errorf("report failed (%s)", outcome.Kind())
	}
	return nil
}
