package main

import (
	"context"
	"flag"
	"fmt"
	"log"
	"os"
	"os/signal"
	"syscall"
	"time"
	_ "time/tzdata"

	"github.com/robfig/cron/v3"
	"github.com/ryosukesatoh/programme-feed/internal/commands"
	"github.com/ryosukesatoh/programme-feed/internal/config"
	"github.com/ryosukesatoh/programme-feed/internal/diary"
	"github.com/ryosukesatoh/programme-feed/internal/mailout"
	"github.com/ryosukesatoh/programme-feed/internal/publisher"
	"github.com/ryosukesatoh/programme-feed/internal/runner"
	"github.com/ryosukesatoh/programme-feed/internal/storage"
)

func main() {
	// Check for subcommands
	if len(os.Args) > 1 {
		switch os.Args[1] {
		case "format-dates":
			commands.FormatDates(os.Args[2:])
			return
		case "load-diary":
			commands.LoadDiary(os.Args[2:])
			return
		}
	}

	configPath := flag.String("config", "config.yaml", "path to config file")
	once := flag.Bool("once", false, "run the pipeline once and exit")
	flag.Parse()

	cfg, err := config.Load(*configPath)
	if err != nil {
		log.Fatalf("Failed to load config: %v", err)
	}

	sigCh := make(chan os.Signal, 1)
	signal.Notify(sigCh, syscall.SIGINT, syscall.SIGTERM)

	if err := run(cfg, *once, sigCh); err != nil {
		log.Fatalf("%v", err)
	}
}

// openSource is newSource, replaceable in tests.
var openSource = newSource

// run wires the pipeline and either runs it once or schedules it until a
// signal arrives on stop. The diary source is closed on every return path.
func run(cfg *config.Config, once bool, stop <-chan os.Signal) error {
	loc := cfg.Location()

	// Build source
	src, closeSource, err := openSource(cfg)
	if err != nil {
		return fmt.Errorf("failed to open diary: %w", err)
	}
	defer closeSource()

	// Build mailout builder
	b := mailout.NewProgrammeBuilder(
		cfg.Venue.Name,
		cfg.Venue.URL,
		loc,
		cfg.Mailout.ListingsDaysAhead,
		cfg.Mailout.DetailsDaysAhead,
	)

	// Build publishers
	var pubs []publisher.Publisher
	var webPub *publisher.WebPublisher

	switch cfg.Publisher.Type {
	case "stdout":
		pubs = append(pubs, publisher.NewStdoutPublisher())
	case "email":
		pubs = append(pubs, publisher.NewEmailPublisher(
			cfg.Publisher.Email.SMTPHost,
			cfg.Publisher.Email.SMTPPort,
			cfg.Publisher.Email.Username,
			cfg.Publisher.Email.Password,
			cfg.Publisher.Email.From,
			cfg.Publisher.Email.To,
		))
	case "web":
		webPub = publisher.NewWebPublisher(cfg.Publisher.Web.Addr, src, cfg.Venue.Name, cfg.Venue.URL, loc)
		pubs = append(pubs, webPub)
	case "discord":
		pubs = append(pubs, publisher.NewDiscordPublisher(cfg.Publisher.Discord.WebhookURL))
	default:
		return fmt.Errorf("unknown publisher type: %s", cfg.Publisher.Type)
	}

	// Start web server if configured
	if webPub != nil {
		if err := webPub.Start(); err != nil {
			return fmt.Errorf("failed to start web publisher: %w", err)
		}
		defer func() {
			shutdownCtx, shutdownCancel := context.WithTimeout(context.Background(), 5*time.Second)
			defer shutdownCancel()
			if err := webPub.Shutdown(shutdownCtx); err != nil {
				log.Printf("Web server shutdown error: %v", err)
			}
		}()
	}

	// Build runner
	r := runner.New(src, b, pubs, cfg.Mailout.ListingsDaysAhead)

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	// Single-run mode: run the pipeline once and exit
	if once {
		log.Println("Running mailout (once mode)...")
		if err := r.Run(ctx); err != nil {
			return fmt.Errorf("pipeline failed: %w", err)
		}
		log.Println("Done")
		return nil
	}

	// Run immediately on startup if configured
	if cfg.RunOnStart {
		log.Println("Running initial mailout...")
		if err := r.Run(ctx); err != nil {
			log.Printf("Initial run failed: %v", err)
		}
	}

	// Set up cron scheduler in the venue's timezone
	c := cron.New(cron.WithLocation(loc))
	_, err = c.AddFunc(cfg.Schedule, func() {
		log.Println("Cron triggered, running mailout...")
		if err := r.Run(ctx); err != nil {
			log.Printf("Scheduled run failed: %v", err)
		}
	})
	if err != nil {
		return fmt.Errorf("failed to set up cron schedule %q: %w", cfg.Schedule, err)
	}
	c.Start()
	log.Printf("Scheduled mailout with cron expression: %s (%s)", cfg.Schedule, loc)

	// Wait for shutdown signal
	sig := <-stop
	log.Printf("Received signal %v, shutting down...", sig)

	// Graceful shutdown; the web server follows via defer
	cancel()
	<-c.Stop().Done()

	log.Println("Shutdown complete")
	return nil
}

// newSource opens the configured diary. The returned func releases it.
func newSource(cfg *config.Config) (diary.Source, func(), error) {
	switch cfg.Source.Type {
	case "file":
		src, err := diary.LoadFile(cfg.Source.Path, cfg.Location())
		if err != nil {
			return nil, nil, err
		}
		log.Printf("Loaded diary file %s", cfg.Source.Path)
		return src, func() {}, nil
	case "sqlite":
		store, err := storage.Open(cfg.Source.Path, storage.Options{
			BusyTimeout: 5 * time.Second,
			ReadOnly:    true,
		})
		if err != nil {
			return nil, nil, err
		}
		log.Printf("Opened diary database %s (read-only)", cfg.Source.Path)
		return store, func() {
			if err := store.Close(); err != nil {
				log.Printf("Failed to close diary database: %v", err)
			}
		}, nil
	case "url":
		log.Printf("Reading diary from %s", cfg.Source.URL)
		return diary.NewRemoteSource(cfg.Source.URL, cfg.Location()), func() {}, nil
	default:
		return nil, nil, fmt.Errorf("%w: %s", diary.ErrUnsupportedSourceType, cfg.Source.Type)
	}
}
