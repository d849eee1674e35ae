// Copyright Mesh Intelligence Inc., 2026. All rights reserved.

// Package types defines shared data structures for the paper-triage pipeline:
// raw messages from the mail source, extracted paper records, workflow
// statuses, and configuration.
package types

import "time"

// RawMessage is one notification email as delivered by a mail source.
// SourceID is an opaque idempotency token (IMAP UID, file name) and never
// contributes to paper identity.
type RawMessage struct {
	// Body is the decoded plain-text (or flattened HTML) message body.
	Body string `json:"body" yaml:"body"`

	// SourceID identifies the message within its source.
	SourceID string `json:"source_id" yaml:"source_id"`
}

// PaperRecord is one paper extracted from a notification message.
// Affiliations is always the same length as Authors; an empty entry means
// the affiliation is unknown.
type PaperRecord struct {
	// Title is the collapsed paper title. Never empty.
	Title string `json:"title" yaml:"title"`

	// Authors lists author names in source order.
	Authors []string `json:"authors" yaml:"authors"`

	// Affiliations is aligned index-for-index with Authors.
	Affiliations []string `json:"affiliations" yaml:"affiliations"`

	// Journal is the publication venue line, empty when the paper carries none.
	Journal string `json:"journal,omitempty" yaml:"journal,omitempty"`

	// Review explains why the author/affiliation split is low confidence.
	// Empty when the split followed an unambiguous rule.
	Review string `json:"review,omitempty" yaml:"review,omitempty"`
}

// FirstAuthor returns the first listed author or "" when there is none.
func (p PaperRecord) FirstAuthor() string {
	if len(p.Authors) == 0 {
		return ""
	}
	return p.Authors[0]
}

// NeedsReview reports whether the record carries a low-confidence split.
func (p PaperRecord) NeedsReview() bool {
	return p.Review != ""
}

// StoredPaper is a PaperRecord as persisted in the status store.
type StoredPaper struct {
	PaperRecord `yaml:",inline"`

	// ID is the paper identity fingerprint.
	ID string `json:"paper_id" yaml:"paper_id"`

	// Status is the current workflow status.
	Status Status `json:"status" yaml:"status"`

	// SourceID is the message the record was first seen in, if known.
	SourceID string `json:"source_id,omitempty" yaml:"source_id,omitempty"`

	// Added is when the paper first entered the store.
	Added time.Time `json:"date_added" yaml:"date_added"`

	// Updated is when the paper last changed status or content.
	Updated time.Time `json:"date_updated" yaml:"date_updated"`
}

// OutputPaper is the external record shape used by exports and the CLI's
// JSON output. Journal is null when the paper carries no venue line.
type OutputPaper struct {
	ID           string     `json:"paper_id" yaml:"paper_id"`
	Title        string     `json:"title" yaml:"title"`
	Authors      []string   `json:"authors" yaml:"authors"`
	Affiliations []string   `json:"affiliations" yaml:"affiliations"`
	Journal      *string    `json:"journal" yaml:"journal"`
	Review       string     `json:"review,omitempty" yaml:"review,omitempty"`
	Status       Status     `json:"status,omitempty" yaml:"status,omitempty"`
	SourceID     string     `json:"source_id,omitempty" yaml:"source_id,omitempty"`
	Added        *time.Time `json:"date_added,omitempty" yaml:"date_added,omitempty"`
	Updated      *time.Time `json:"date_updated,omitempty" yaml:"date_updated,omitempty"`
}

// Output returns the external shape of an extracted record with the given id.
func (p PaperRecord) Output(id string) OutputPaper {
	out := OutputPaper{
		ID:           id,
		Title:        p.Title,
		Authors:      nonNil(p.Authors),
		Affiliations: nonNil(p.Affiliations),
		Review:       p.Review,
	}
	if p.Journal != "" {
		j := p.Journal
		out.Journal = &j
	}
	return out
}

// Output returns the external shape of a stored paper, including its status
// and dates.
func (p StoredPaper) Output() OutputPaper {
	out := p.PaperRecord.Output(p.ID)
	out.Status = p.Status
	out.SourceID = p.SourceID
	if !p.Added.IsZero() {
		added := p.Added
		out.Added = &added
	}
	if !p.Updated.IsZero() {
		updated := p.Updated
		out.Updated = &updated
	}
	return out
}

func nonNil(s []string) []string {
	if s == nil {
		return []string{}
	}
	return s
}
