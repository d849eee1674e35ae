// Copyright Mesh Intelligence Inc., 2026. All rights reserved.

package mailsource

import (
	"context"
	"os"
	"path/filepath"
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/pdiddy/paper-triage/pkg/types"
)

const alternativeEML = "From: SSRN <alerts@ssrn.com>\r\n" +
	"To: editor@example.org\r\n" +
	"Subject: Corporate Governance eJournal\r\n" +
	"MIME-Version: 1.0\r\n" +
	"Content-Type: multipart/alternative; boundary=\"XYZ\"\r\n" +
	"\r\n" +
	"--XYZ\r\n" +
	"Content-Type: text/plain; charset=utf-8\r\n" +
	"Content-Transfer-Encoding: quoted-printable\r\n" +
	"\r\n" +
	"1.\r\n" +
	"Caf=C3=A9 Rules\r\n" +
	"Jos=C3=A9 Garc=C3=ADa, Acme University\r\n" +
	"--XYZ\r\n" +
	"Content-Type: text/html; charset=utf-8\r\n" +
	"\r\n" +
	"<p>ignored</p>\r\n" +
	"--XYZ--\r\n"

const htmlOnlyEML = "From: SSRN <alerts@ssrn.com>\r\n" +
	"Subject: Digest\r\n" +
	"MIME-Version: 1.0\r\n" +
	"Content-Type: text/html; charset=utf-8\r\n" +
	"\r\n" +
	"<html><head><style>p{}</style></head><body>" +
	"<p>1.</p><p>Does X Cause Y?</p><p><em>Journal of Z</em></p>" +
	"<div>A. Smith and B. Jones<br>Acme University</div>" +
	"</body></html>\r\n"

func TestParseMessagePrefersPlainText(t *testing.T) {
	body, err := ParseMessage(strings.NewReader(alternativeEML))
	require.NoError(t, err)
	assert.Contains(t, body, "Café Rules")
	assert.Contains(t, body, "José García, Acme University")
	assert.NotContains(t, body, "ignored")
}

func TestParseMessageFlattensHTML(t *testing.T) {
	body, err := ParseMessage(strings.NewReader(htmlOnlyEML))
	require.NoError(t, err)
	assert.Equal(t, "1.\nDoes X Cause Y?\n*Journal of Z*\nA. Smith and B. Jones\nAcme University", body)
}

func TestHTMLToText(t *testing.T) {
	tests := []struct {
		name string
		in   string
		want string
	}{
		{"paragraphs", "<p>a</p><p>b</p>", "a\nb"},
		{"line breaks", "a<br>b<br/>c", "a\nb\nc"},
		{"emphasis", "<p><i>Venue &amp; Co</i></p>", "*Venue & Co*"},
		{"scripts dropped", "<script>var x;</script><p>kept</p>", "kept"},
		{"entities", "<p>A &lt;B&gt;</p>", "A <B>"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got, err := HTMLToText(tt.in)
			require.NoError(t, err)
			assert.Equal(t, tt.want, got)
		})
	}
}

func TestDirFetch(t *testing.T) {
	dir := t.TempDir()
	for name, content := range map[string]string{
		"b.eml":     alternativeEML,
		"a.txt":     "1.\nPlain Title\nJane Doe\n",
		"notes.md":  "ignored",
		"c.EML":     htmlOnlyEML,
		"zz-ignore": "ignored",
	} {
		require.NoError(t, os.WriteFile(filepath.Join(dir, name), []byte(content), 0o644))
	}
	require.NoError(t, os.Mkdir(filepath.Join(dir, "sub"), 0o755))

	msgs, err := (&Dir{Path: dir}).Fetch(context.Background())
	require.NoError(t, err)
	require.Len(t, msgs, 3)

	assert.Equal(t, "a.txt", msgs[0].SourceID)
	assert.Equal(t, "1.\nPlain Title\nJane Doe\n", msgs[0].Body)
	assert.Equal(t, "b.eml", msgs[1].SourceID)
	assert.Contains(t, msgs[1].Body, "Café Rules")
	assert.Equal(t, "c.EML", msgs[2].SourceID)
	assert.Contains(t, msgs[2].Body, "*Journal of Z*")
}

func TestDirFetchMissing(t *testing.T) {
	_, err := (&Dir{Path: filepath.Join(t.TempDir(), "nope")}).Fetch(context.Background())
	assert.Error(t, err)
}

func TestNew(t *testing.T) {
	src, err := New(types.MailConfig{Source: "dir", Dir: "/tmp/mail"})
	require.NoError(t, err)
	assert.IsType(t, &Dir{}, src)

	src, err = New(types.MailConfig{Host: "imap.example.org:993"})
	require.NoError(t, err)
	assert.IsType(t, &IMAP{}, src)

	_, err = New(types.MailConfig{Source: "imap"})
	assert.Error(t, err)
	_, err = New(types.MailConfig{Source: "dir"})
	assert.Error(t, err)
	_, err = New(types.MailConfig{Source: "pop3"})
	assert.Error(t, err)
}

func TestIMAPDefaultsAndCriteria(t *testing.T) {
	s := NewIMAP(types.MailConfig{Host: "imap.example.org:993", From: "ssrn.com"})
	assert.Equal(t, "INBOX", s.cfg.Mailbox)
	assert.Equal(t, 7, s.cfg.SinceDays)
	assert.Equal(t, 60*time.Second, s.cfg.Timeout)

	s.now = func() time.Time { return time.Date(2024, 3, 10, 12, 0, 0, 0, time.UTC) }
	c := s.criteria()
	assert.Equal(t, time.Date(2024, 3, 3, 12, 0, 0, 0, time.UTC), c.Since)
	assert.Equal(t, "ssrn.com", c.Header.Get("From"))
}
