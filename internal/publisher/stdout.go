package publisher

import (
	"context"
	"fmt"
	"io"
	"os"
	"strings"

	"github.com/ryosukesatoh/programme-feed/internal/mailout"
)

// StdoutPublisher prints the mailout's text body.
type StdoutPublisher struct {
	out io.Writer
}

func NewStdoutPublisher() *StdoutPublisher {
	return &StdoutPublisher{out: os.Stdout}
}

func (p *StdoutPublisher) Publish(_ context.Context, m *mailout.Mailout) error {
	rule := strings.Repeat("=", 72)
	_, err := fmt.Fprintf(p.out, "%s\nSubject: %s\nDate: %s\n%s\n\n%s\n%s\n",
		rule,
		m.Subject,
		m.Date.Format("2006-01-02 15:04"),
		rule,
		mailout.RenderText(m),
		rule,
	)
	return err
}
