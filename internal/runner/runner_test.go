package runner

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/ryosukesatoh/programme-feed/internal/diary"
	"github.com/ryosukesatoh/programme-feed/internal/mailout"
	"github.com/ryosukesatoh/programme-feed/internal/publisher"
)

// Mock implementations

type mockSource struct {
	showings   []diary.Showing
	err        error
	start, end time.Time
}

func (m *mockSource) Showings(ctx context.Context, start, end time.Time) ([]diary.Showing, error) {
	m.start, m.end = start, end
	return m.showings, m.err
}

type mockBuilder struct {
	mailout *mailout.Mailout
	err     error
	got     []diary.Showing
}

func (m *mockBuilder) Build(ctx context.Context, showings []diary.Showing) (*mailout.Mailout, error) {
	m.got = showings
	return m.mailout, m.err
}

type mockPublisher struct {
	published *mailout.Mailout
	err       error
}

func (m *mockPublisher) Publish(ctx context.Context, mo *mailout.Mailout) error {
	m.published = mo
	return m.err
}

var testNow = time.Date(2015, 2, 1, 12, 0, 0, 0, time.UTC)

func sampleShowings() []diary.Showing {
	ev := &diary.Event{ID: 1, Name: "Metropolis"}
	return []diary.Showing{
		{ID: 1, EventID: 1, Start: time.Date(2015, 2, 2, 20, 0, 0, 0, time.UTC), Confirmed: true, Event: ev},
	}
}

func sampleMailout() *mailout.Mailout {
	return &mailout.Mailout{
		Venue:   "Star and Shadow",
		Subject: "Star and Shadow forthcoming events commencing Monday 2 February",
		Date:    testNow,
	}
}

func newTestRunner(src diary.Source, b mailout.Builder, pubs []publisher.Publisher) *Runner {
	r := New(src, b, pubs, 21)
	r.now = func() time.Time { return testNow }
	return r
}

func TestRunSuccess(t *testing.T) {
	src := &mockSource{showings: sampleShowings()}
	b := &mockBuilder{mailout: sampleMailout()}
	pub := &mockPublisher{}
	r := newTestRunner(src, b, []publisher.Publisher{pub})

	err := r.Run(context.Background())
	if err != nil {
		t.Fatalf("Run returned error: %v", err)
	}
	if pub.published == nil {
		t.Fatal("Expected publisher to be called")
	}
	if pub.published.Subject != sampleMailout().Subject {
		t.Errorf("Unexpected published subject %q", pub.published.Subject)
	}
	if len(b.got) != 1 {
		t.Errorf("Expected builder to receive 1 showing, got %d", len(b.got))
	}
	if !src.start.Equal(testNow) || !src.end.Equal(testNow.AddDate(0, 0, 21)) {
		t.Errorf("Unexpected window %v to %v", src.start, src.end)
	}
}

func TestRunSourceError(t *testing.T) {
	pub := &mockPublisher{}
	r := newTestRunner(
		&mockSource{err: errors.New("diary unreadable")},
		&mockBuilder{mailout: sampleMailout()},
		[]publisher.Publisher{pub},
	)

	err := r.Run(context.Background())
	if err == nil {
		t.Fatal("Expected error from source failure")
	}
	if pub.published != nil {
		t.Error("Expected publisher not to be called")
	}
}

func TestRunBuildError(t *testing.T) {
	r := newTestRunner(
		&mockSource{showings: sampleShowings()},
		&mockBuilder{err: errors.New("build failed")},
		nil,
	)

	err := r.Run(context.Background())
	if err == nil {
		t.Fatal("Expected error from build failure")
	}
}

func TestRunPublishFailureDoesNotFail(t *testing.T) {
	failPub := &mockPublisher{err: errors.New("publish failed")}
	successPub := &mockPublisher{}

	r := newTestRunner(
		&mockSource{showings: sampleShowings()},
		&mockBuilder{mailout: sampleMailout()},
		[]publisher.Publisher{failPub, successPub},
	)

	err := r.Run(context.Background())
	if err != nil {
		t.Fatalf("Run should not fail when publisher fails, got: %v", err)
	}
	if failPub.published == nil {
		t.Error("Expected failing publisher to be called")
	}
	if successPub.published == nil {
		t.Error("Expected second publisher to be called even after first fails")
	}
}

func TestRunAllPublishersFail(t *testing.T) {
	cause := errors.New("smtp down")
	r := newTestRunner(
		&mockSource{showings: sampleShowings()},
		&mockBuilder{mailout: sampleMailout()},
		[]publisher.Publisher{&mockPublisher{err: cause}, &mockPublisher{err: errors.New("webhook down")}},
	)

	err := r.Run(context.Background())
	if err == nil {
		t.Fatal("Expected error when every publisher fails")
	}
	if !errors.Is(err, cause) {
		t.Errorf("Expected error to wrap publisher failures, got: %v", err)
	}
}

func TestRunWithRealBuilder(t *testing.T) {
	b := mailout.NewProgrammeBuilder("Star and Shadow", "", time.UTC, 21, 9)
	pub := &mockPublisher{}
	r := New(&mockSource{showings: sampleShowings()}, b, []publisher.Publisher{pub}, 21)

	if err := r.Run(context.Background()); err != nil {
		t.Fatalf("Run returned error: %v", err)
	}
	if pub.published == nil {
		t.Fatal("Expected publisher to be called")
	}
}
