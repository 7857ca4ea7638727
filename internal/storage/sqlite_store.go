package storage

import (
	"context"
	"database/sql"
	"fmt"
	"strings"
	"time"

	"github.com/ryosukesatoh/programme-feed/internal/diary"
)

// SaveEvents upserts events in one transaction. Each event's showings and
// tags replace whatever was stored for it before.
func (s *Store) SaveEvents(ctx context.Context, events []diary.Event) (err error) {
	if s == nil || s.db == nil {
		return fmt.Errorf("storage: missing database connection")
	}

	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return err
	}
	defer func() {
		if err != nil {
			_ = tx.Rollback()
		}
	}()

	eventStmt, err := tx.PrepareContext(ctx, `
		INSERT INTO events (id, name, pre_title, post_title, pricing, ticket_link, film_information, copy_summary, private, outside_hire)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?)
		ON CONFLICT(id) DO UPDATE SET
			name=excluded.name,
			pre_title=excluded.pre_title,
			post_title=excluded.post_title,
			pricing=excluded.pricing,
			ticket_link=excluded.ticket_link,
			film_information=excluded.film_information,
			copy_summary=excluded.copy_summary,
			private=excluded.private,
			outside_hire=excluded.outside_hire
	`)
	if err != nil {
		return err
	}
	defer eventStmt.Close()

	showingStmt, err := tx.PrepareContext(ctx, `
		INSERT INTO showings (id, event_id, start, confirmed, hide_in_programme, cancelled, discounted, sold_out)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?)
	`)
	if err != nil {
		return err
	}
	defer showingStmt.Close()

	tagStmt, err := tx.PrepareContext(ctx, `
		INSERT OR IGNORE INTO event_tags (event_id, tag, position) VALUES (?, ?, ?)
	`)
	if err != nil {
		return err
	}
	defer tagStmt.Close()

	for _, ev := range events {
		if ev.ID == 0 {
			return fmt.Errorf("storage: event %q has no id", ev.Name)
		}
		if _, err = eventStmt.ExecContext(ctx,
			ev.ID,
			ev.Name,
			ev.PreTitle,
			ev.PostTitle,
			ev.Pricing,
			ev.TicketLink,
			ev.FilmInformation,
			nullString(ev.CopySummary),
			ev.Private,
			ev.OutsideHire,
		); err != nil {
			return fmt.Errorf("storage: save event %d: %w", ev.ID, err)
		}

		if _, err = tx.ExecContext(ctx, `DELETE FROM showings WHERE event_id = ?`, ev.ID); err != nil {
			return err
		}
		for _, sh := range ev.Showings {
			if _, err = showingStmt.ExecContext(ctx,
				nullID(sh.ID),
				ev.ID,
				sh.Start.Unix(),
				sh.Confirmed,
				sh.HideInProgramme,
				sh.Cancelled,
				sh.Discounted,
				sh.SoldOut,
			); err != nil {
				return fmt.Errorf("storage: save showing %d of event %d: %w", sh.ID, ev.ID, err)
			}
		}

		if _, err = tx.ExecContext(ctx, `DELETE FROM event_tags WHERE event_id = ?`, ev.ID); err != nil {
			return err
		}
		for i, tag := range trimTags(ev.Tags) {
			if _, err = tagStmt.ExecContext(ctx, ev.ID, tag, i); err != nil {
				return err
			}
		}
	}

	if err = tx.Commit(); err != nil {
		return err
	}

	return nil
}

// DeleteEvent removes an event together with its showings and tags.
func (s *Store) DeleteEvent(ctx context.Context, id int64) error {
	if s == nil || s.db == nil {
		return fmt.Errorf("storage: missing database connection")
	}
	_, err := s.db.ExecContext(ctx, `DELETE FROM events WHERE id = ?`, id)
	return err
}

// Showings implements diary.Source. Showings sharing an event share one
// *diary.Event.
func (s *Store) Showings(ctx context.Context, start, end time.Time) ([]diary.Showing, error) {
	if s == nil || s.db == nil {
		return nil, fmt.Errorf("storage: missing database connection")
	}

	rows, err := s.db.QueryContext(ctx, `
		SELECT s.id, s.start, s.confirmed, s.hide_in_programme, s.cancelled, s.discounted, s.sold_out,
			e.id, e.name, e.pre_title, e.post_title, e.pricing, e.ticket_link, e.film_information,
			e.copy_summary, e.private, e.outside_hire
		FROM showings s
		JOIN events e ON e.id = s.event_id
		WHERE s.start BETWEEN ? AND ?
		ORDER BY s.start, s.id
	`, start.Unix(), end.Unix())
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	events := make(map[int64]*diary.Event)
	var showings []diary.Showing
	for rows.Next() {
		var (
			sh          diary.Showing
			startUnix   int64
			ev          diary.Event
			copySummary sql.NullString
		)
		if err := rows.Scan(
			&sh.ID, &startUnix, &sh.Confirmed, &sh.HideInProgramme, &sh.Cancelled, &sh.Discounted, &sh.SoldOut,
			&ev.ID, &ev.Name, &ev.PreTitle, &ev.PostTitle, &ev.Pricing, &ev.TicketLink, &ev.FilmInformation,
			&copySummary, &ev.Private, &ev.OutsideHire,
		); err != nil {
			return nil, err
		}
		ev.CopySummary = copySummary.String

		shared, ok := events[ev.ID]
		if !ok {
			shared = &ev
			events[ev.ID] = shared
		}
		sh.EventID = ev.ID
		sh.Start = time.Unix(startUnix, 0).UTC()
		sh.Event = shared
		showings = append(showings, sh)
	}
	if err := rows.Err(); err != nil {
		return nil, err
	}

	for id, ev := range events {
		tags, err := s.eventTags(ctx, id)
		if err != nil {
			return nil, err
		}
		ev.Tags = tags
	}

	return showings, nil
}

func (s *Store) eventTags(ctx context.Context, eventID int64) ([]string, error) {
	rows, err := s.db.QueryContext(ctx, `
		SELECT tag FROM event_tags WHERE event_id = ? ORDER BY position
	`, eventID)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var tags []string
	for rows.Next() {
		var tag string
		if err := rows.Scan(&tag); err != nil {
			return nil, err
		}
		tags = append(tags, tag)
	}
	return tags, rows.Err()
}

func nullString(value string) sql.NullString {
	if strings.TrimSpace(value) == "" {
		return sql.NullString{}
	}
	return sql.NullString{String: value, Valid: true}
}

// nullID lets SQLite assign a rowid to showings without one.
func nullID(id int64) sql.NullInt64 {
	if id == 0 {
		return sql.NullInt64{}
	}
	return sql.NullInt64{Int64: id, Valid: true}
}

func trimTags(tags []string) []string {
	out := make([]string, 0, len(tags))
	for _, tag := range tags {
		tag = strings.TrimSpace(tag)
		if tag != "" {
			out = append(out, tag)
		}
	}
	return out
}
