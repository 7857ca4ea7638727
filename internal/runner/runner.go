package runner

import (
	"context"
	"errors"
	"fmt"
	"log"
	"time"

	"github.com/ryosukesatoh/programme-feed/internal/diary"
	"github.com/ryosukesatoh/programme-feed/internal/mailout"
	"github.com/ryosukesatoh/programme-feed/internal/publisher"
)

// Runner orchestrates the load -> build -> publish pipeline.
type Runner struct {
	source      diary.Source
	builder     mailout.Builder
	publishers  []publisher.Publisher
	listingDays int
	now         func() time.Time
}

func New(src diary.Source, b mailout.Builder, pubs []publisher.Publisher, listingDays int) *Runner {
	return &Runner{
		source:      src,
		builder:     b,
		publishers:  pubs,
		listingDays: listingDays,
		now:         time.Now,
	}
}

// Run executes the full pipeline once.
func (r *Runner) Run(ctx context.Context) error {
	start := r.now()
	end := start.AddDate(0, 0, r.listingDays)

	log.Printf("Starting pipeline for showings from %s to %s", start.Format("2006-01-02"), end.Format("2006-01-02"))

	// Step 1: Load showings
	log.Println("Loading showings...")
	showings, err := r.source.Showings(ctx, start, end)
	if err != nil {
		return fmt.Errorf("runner: load showings failed: %w", err)
	}
	log.Printf("Loaded %d showings", len(showings))

	// Step 2: Build the mailout
	log.Println("Building mailout...")
	m, err := r.builder.Build(ctx, showings)
	if err != nil {
		return fmt.Errorf("runner: build failed: %w", err)
	}
	log.Printf("Built %q with %d listings", m.Subject, len(m.Listings))

	// Step 3: Publish - Continue with other publishers even if one fails
	var publishErrors []error
	for _, pub := range r.publishers {
		log.Printf("Publishing via %T...", pub)
		if err := pub.Publish(ctx, m); err != nil {
			publishError := fmt.Errorf("publish via %T failed: %w", pub, err)
			publishErrors = append(publishErrors, publishError)
			log.Printf("WARNING: %v", publishError)
		} else {
			log.Printf("Successfully published via %T", pub)
		}
	}

	// If all publishers failed, return an error
	if len(publishErrors) == len(r.publishers) && len(r.publishers) > 0 {
		return fmt.Errorf("runner: all publishers failed: %w", errors.Join(publishErrors...))
	}

	if len(publishErrors) > 0 {
		log.Printf("Pipeline completed with %d publisher failures out of %d publishers", len(publishErrors), len(r.publishers))
	} else {
		log.Println("Pipeline completed successfully")
	}

	return nil
}
