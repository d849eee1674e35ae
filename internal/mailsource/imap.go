// Copyright Mesh Intelligence Inc., 2026. All rights reserved.

package mailsource

import (
	"context"
	"fmt"
	"log/slog"
	"net"
	"strconv"
	"time"

	"github.com/emersion/go-imap"
	"github.com/emersion/go-imap/client"

	"github.com/pdiddy/paper-triage/pkg/types"
)

// IMAP reads messages from a mailbox over IMAPS. The mailbox is opened
// read-only and message bodies are fetched with PEEK, so flags are not
// changed.
type IMAP struct {
	cfg types.MailConfig
	now func() time.Time
}

// NewIMAP returns an IMAP source. Zero fields of cfg take the values of
// types.DefaultMailConfig.
func NewIMAP(cfg types.MailConfig) *IMAP {
	d := types.DefaultMailConfig()
	if cfg.Mailbox == "" {
		cfg.Mailbox = d.Mailbox
	}
	if cfg.SinceDays <= 0 {
		cfg.SinceDays = d.SinceDays
	}
	if cfg.Timeout <= 0 {
		cfg.Timeout = d.Timeout
	}
	return &IMAP{cfg: cfg, now: time.Now}
}

// criteria builds the search for recent messages, optionally limited to a
// sender.
func (s *IMAP) criteria() *imap.SearchCriteria {
	c := imap.NewSearchCriteria()
	c.Since = s.now().AddDate(0, 0, -s.cfg.SinceDays)
	if s.cfg.From != "" {
		c.Header.Add("From", s.cfg.From)
	}
	return c
}

// Fetch logs in, searches the mailbox and returns the decoded bodies. The
// source id of each message is its UID. Cancelling ctx or exceeding the
// configured timeout closes the connection.
func (s *IMAP) Fetch(ctx context.Context) ([]types.RawMessage, error) {
	ctx, cancel := context.WithTimeout(ctx, s.cfg.Timeout)
	defer cancel()

	dialer := &net.Dialer{Timeout: s.cfg.Timeout}
	c, err := client.DialWithDialerTLS(dialer, s.cfg.Host, nil)
	if err != nil {
		return nil, fmt.Errorf("connecting to %s: %w", s.cfg.Host, err)
	}
	c.Timeout = s.cfg.Timeout

	stop := context.AfterFunc(ctx, func() { c.Terminate() })
	defer stop()

	msgs, err := s.fetch(c)
	if ctx.Err() != nil {
		return nil, fmt.Errorf("fetching from %s: %w", s.cfg.Host, ctx.Err())
	}
	if err != nil {
		c.Terminate()
		return nil, err
	}
	if err := c.Logout(); err != nil {
		slog.Debug("imap logout failed", "host", s.cfg.Host, "err", err)
	}
	return msgs, nil
}

func (s *IMAP) fetch(c *client.Client) ([]types.RawMessage, error) {
	if err := c.Login(s.cfg.Username, s.cfg.Password); err != nil {
		return nil, fmt.Errorf("logging in as %s: %w", s.cfg.Username, err)
	}
	if _, err := c.Select(s.cfg.Mailbox, true); err != nil {
		return nil, fmt.Errorf("selecting %s: %w", s.cfg.Mailbox, err)
	}

	uids, err := c.UidSearch(s.criteria())
	if err != nil {
		return nil, fmt.Errorf("searching %s: %w", s.cfg.Mailbox, err)
	}
	if len(uids) == 0 {
		return nil, nil
	}

	seqset := new(imap.SeqSet)
	seqset.AddNum(uids...)
	section := &imap.BodySectionName{Peek: true}
	items := []imap.FetchItem{imap.FetchUid, section.FetchItem()}

	ch := make(chan *imap.Message, 16)
	done := make(chan error, 1)
	go func() {
		done <- c.UidFetch(seqset, items, ch)
	}()

	var msgs []types.RawMessage
	for m := range ch {
		r := m.GetBody(section)
		if r == nil {
			continue
		}
		body, err := ParseMessage(r)
		id := strconv.FormatUint(uint64(m.Uid), 10)
		if err != nil {
			slog.Warn("skipping undecodable message", "uid", id, "err", err)
			continue
		}
		msgs = append(msgs, types.RawMessage{Body: body, SourceID: s.cfg.Mailbox + "/" + id})
	}
	if err := <-done; err != nil {
		return nil, fmt.Errorf("fetching messages: %w", err)
	}
	return msgs, nil
}
