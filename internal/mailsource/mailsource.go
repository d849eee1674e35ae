// Copyright Mesh Intelligence Inc., 2026. All rights reserved.

// Package mailsource retrieves notification emails and decodes them into
// plain-text RawMessages. Two sources are provided: an IMAP mailbox and a
// directory of saved .eml or .txt files.
package mailsource

import (
	"context"
	"errors"
	"fmt"
	"io"
	"strings"

	"github.com/PuerkitoBio/goquery"
	"github.com/emersion/go-message"
	_ "github.com/emersion/go-message/charset"
	"github.com/emersion/go-message/mail"

	"github.com/pdiddy/paper-triage/pkg/types"
)

// Source delivers one batch of raw messages.
type Source interface {
	Fetch(ctx context.Context) ([]types.RawMessage, error)
}

// New returns the source named by cfg.Source ("imap" or "dir").
func New(cfg types.MailConfig) (Source, error) {
	switch cfg.Source {
	case "", "imap":
		if cfg.Host == "" {
			return nil, fmt.Errorf("mail.host is required for the imap source")
		}
		return NewIMAP(cfg), nil
	case "dir":
		if cfg.Dir == "" {
			return nil, fmt.Errorf("mail.dir is required for the dir source")
		}
		return &Dir{Path: cfg.Dir}, nil
	default:
		return nil, fmt.Errorf("unknown mail source %q: use imap or dir", cfg.Source)
	}
}

// ParseMessage decodes an RFC 5322 message and returns its text body. The
// first text/plain part wins; a message with only text/html is flattened
// to text. Transfer encodings and charsets are decoded.
func ParseMessage(r io.Reader) (string, error) {
	mr, err := mail.CreateReader(r)
	if mr == nil || (err != nil && !message.IsUnknownCharset(err)) {
		return "", fmt.Errorf("reading message: %w", err)
	}
	defer mr.Close()

	var html string
	for {
		p, err := mr.NextPart()
		if errors.Is(err, io.EOF) {
			break
		}
		if err != nil && !message.IsUnknownCharset(err) {
			return "", fmt.Errorf("reading message part: %w", err)
		}
		if p == nil {
			break
		}

		h, ok := p.Header.(*mail.InlineHeader)
		if !ok {
			continue
		}
		mediaType, _, _ := h.ContentType()

		switch mediaType {
		case "", "text/plain":
			body, err := io.ReadAll(p.Body)
			if err != nil {
				return "", fmt.Errorf("reading text part: %w", err)
			}
			return string(body), nil
		case "text/html":
			if html != "" {
				continue
			}
			body, err := io.ReadAll(p.Body)
			if err != nil {
				return "", fmt.Errorf("reading html part: %w", err)
			}
			html = string(body)
		}
	}

	if html == "" {
		return "", nil
	}
	return HTMLToText(html)
}

// HTMLToText flattens an HTML body into lines of text. Block elements and
// <br> end lines; emphasized text is wrapped in asterisks the way plain-text
// digests mark publication venues.
func HTMLToText(html string) (string, error) {
	doc, err := goquery.NewDocumentFromReader(strings.NewReader(html))
	if err != nil {
		return "", fmt.Errorf("parsing html: %w", err)
	}

	doc.Find("script, style, head").Remove()
	doc.Find("em, i").Each(func(_ int, s *goquery.Selection) {
		if text := strings.TrimSpace(s.Text()); text != "" {
			s.ReplaceWithHtml("*" + escapeHTML(text) + "*")
		}
	})
	doc.Find("br").ReplaceWithHtml("\n")
	doc.Find("p, div, li, tr, h1, h2, h3, h4, h5, h6").Each(func(_ int, s *goquery.Selection) {
		s.AppendHtml("\n")
	})

	var lines []string
	for _, line := range strings.Split(doc.Text(), "\n") {
		lines = append(lines, strings.TrimSpace(line))
	}
	return strings.TrimSpace(strings.Join(lines, "\n")), nil
}

var htmlEscaper = strings.NewReplacer("&", "&amp;", "<", "&lt;", ">", "&gt;")

func escapeHTML(s string) string {
	return htmlEscaper.Replace(s)
}
