package commands

import (
	"context"
	"flag"
	"fmt"
	"os"
	"time"

	"github.com/ryosukesatoh/programme-feed/internal/diary"
	"github.com/ryosukesatoh/programme-feed/internal/storage"
)

// LoadDiary handles the load-diary subcommand
func LoadDiary(args []string) {
	fs := flag.NewFlagSet("load-diary", flag.ExitOnError)
	diaryPath := fs.String("diary", "diary.yaml", "YAML diary file to load")
	dbPath := fs.String("db", "diary.db", "SQLite database to write")
	tz := fs.String("tz", "Europe/London", "Time zone for starts without an offset")
	fs.Usage = func() {
		fmt.Fprintf(os.Stderr, "Usage: programme-feed load-diary [OPTIONS]\n\n")
		fmt.Fprintf(os.Stderr, "Copies the events of a YAML diary into a SQLite database,\n")
		fmt.Fprintf(os.Stderr, "replacing the showings of events already stored.\n\n")
		fmt.Fprintf(os.Stderr, "Options:\n")
		fs.PrintDefaults()
	}
	fs.Parse(args)

	loc, err := time.LoadLocation(*tz)
	if err != nil {
		fmt.Fprintf(os.Stderr, "Invalid time zone %q: %v\n", *tz, err)
		os.Exit(1)
	}

	events, showings, err := loadDiary(context.Background(), *diaryPath, *dbPath, loc)
	if err != nil {
		fmt.Fprintf(os.Stderr, "Error: %v\n", err)
		os.Exit(1)
	}
	fmt.Printf("Loaded %d events with %d showings into %s\n", events, showings, *dbPath)
}

func loadDiary(ctx context.Context, diaryPath, dbPath string, loc *time.Location) (events, showings int, err error) {
	src, err := diary.LoadFile(diaryPath, loc)
	if err != nil {
		return 0, 0, err
	}

	store, err := storage.Open(dbPath, storage.Options{BusyTimeout: 5 * time.Second})
	if err != nil {
		return 0, 0, fmt.Errorf("open database: %w", err)
	}
	defer func() {
		if closeErr := store.Close(); closeErr != nil && err == nil {
			err = closeErr
		}
	}()

	evs := src.Events()
	if err := store.SaveEvents(ctx, evs); err != nil {
		return 0, 0, err
	}
	for _, ev := range evs {
		showings += len(ev.Showings)
	}
	return len(evs), showings, nil
}
