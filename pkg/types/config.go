// Copyright Mesh Intelligence Inc., 2026. All rights reserved.

package types

import "time"

// MailConfig holds settings for the IMAP mail source.
type MailConfig struct {
	// Source selects the mail source: "imap" or "dir".
	Source string `json:"source" yaml:"source" mapstructure:"source"`

	// Host is the IMAP server address including port (e.g. "imap.gmail.com:993").
	Host string `json:"host" yaml:"host" mapstructure:"host"`

	// Username is the IMAP login name.
	Username string `json:"username" yaml:"username" mapstructure:"username"`

	// Password is the IMAP password or app password. Usually loaded from
	// .secrets/imap-password rather than the config file.
	Password string `json:"password,omitempty" yaml:"password,omitempty" mapstructure:"password"`

	// Mailbox is the folder to read (default "INBOX").
	Mailbox string `json:"mailbox" yaml:"mailbox" mapstructure:"mailbox"`

	// From restricts IMAP retrieval to messages whose From header contains
	// this text (e.g. "ssrn.com"). Empty means every message.
	From string `json:"from" yaml:"from" mapstructure:"from"`

	// SinceDays restricts IMAP retrieval to messages received in the last
	// SinceDays days (default 7).
	SinceDays int `json:"since_days" yaml:"since_days" mapstructure:"since_days"`

	// Dir is the directory of .eml/.txt files used by the "dir" source.
	Dir string `json:"dir" yaml:"dir" mapstructure:"dir"`

	// Timeout bounds the whole retrieval (default 60s).
	Timeout time.Duration `json:"timeout" yaml:"timeout" mapstructure:"timeout"`
}

// DefaultMailConfig returns the IMAP defaults.
func DefaultMailConfig() MailConfig {
	return MailConfig{
		Source:    "imap",
		Mailbox:   "INBOX",
		SinceDays: 7,
		Timeout:   60 * time.Second,
	}
}

// ParseConfig holds the extraction heuristics. The keyword list and token
// counts were tuned against SSRN digests and are kept configurable so new
// message formats can be accommodated without code changes.
type ParseConfig struct {
	// AffiliationKeywords mark institution text inside an author line.
	AffiliationKeywords []string `json:"affiliation_keywords" yaml:"affiliation_keywords" mapstructure:"affiliation_keywords"`

	// TopicTags are single-line subject labels dropped from message bodies.
	TopicTags []string `json:"topic_tags" yaml:"topic_tags" mapstructure:"topic_tags"`

	// MinNameTokens and MaxNameTokens bound the name prefixes tried when a
	// sole author runs straight into an affiliation (default 2 and 4).
	MinNameTokens int `json:"min_name_tokens" yaml:"min_name_tokens" mapstructure:"min_name_tokens"`
	MaxNameTokens int `json:"max_name_tokens" yaml:"max_name_tokens" mapstructure:"max_name_tokens"`

	// FinalNameTokens is the token count of the author after the final "and"
	// (default 2); FinalNameTokensWithInitial applies when the second token
	// is a middle initial (default 3).
	FinalNameTokens            int `json:"final_name_tokens" yaml:"final_name_tokens" mapstructure:"final_name_tokens"`
	FinalNameTokensWithInitial int `json:"final_name_tokens_with_initial" yaml:"final_name_tokens_with_initial" mapstructure:"final_name_tokens_with_initial"`
}

// DefaultParseConfig returns the heuristics used for SSRN digests.
func DefaultParseConfig() ParseConfig {
	return ParseConfig{
		AffiliationKeywords: []string{"University", "School", "College", "Institute", "Center", "Faculty", "Department"},
		TopicTags: []string{
			"Fiduciary", "Shareholder", "Hedge Funds", "Mutual Funds", "ESG",
			"Institutional Investors", "Corporate", "Stakeholder", "Merger",
			"Directors", "Compensation", "Securities", "SPAC", "Proxy Advisors",
		},
		MinNameTokens:              2,
		MaxNameTokens:              4,
		FinalNameTokens:            2,
		FinalNameTokensWithInitial: 3,
	}
}

// WithDefaults fills zero fields from DefaultParseConfig.
func (c ParseConfig) WithDefaults() ParseConfig {
	d := DefaultParseConfig()
	if len(c.AffiliationKeywords) == 0 {
		c.AffiliationKeywords = d.AffiliationKeywords
	}
	if c.TopicTags == nil {
		c.TopicTags = d.TopicTags
	}
	if c.MinNameTokens <= 0 {
		c.MinNameTokens = d.MinNameTokens
	}
	if c.MaxNameTokens < c.MinNameTokens {
		c.MaxNameTokens = d.MaxNameTokens
		if c.MaxNameTokens < c.MinNameTokens {
			c.MaxNameTokens = c.MinNameTokens
		}
	}
	if c.FinalNameTokens <= 0 {
		c.FinalNameTokens = d.FinalNameTokens
	}
	if c.FinalNameTokensWithInitial <= 0 {
		c.FinalNameTokensWithInitial = d.FinalNameTokensWithInitial
	}
	return c
}

// StoreConfig holds settings for the workflow status store.
type StoreConfig struct {
	// DataDir is the directory holding triage.db and exports (default "data").
	DataDir string `json:"data_dir" yaml:"data_dir" mapstructure:"data_dir"`
}

// ScheduleConfig holds settings for periodic fetching.
type ScheduleConfig struct {
	// Cron is a five-field cron expression (default "0 7 * * *").
	Cron string `json:"cron" yaml:"cron" mapstructure:"cron"`

	// Timezone is an IANA location name (default "UTC").
	Timezone string `json:"timezone" yaml:"timezone" mapstructure:"timezone"`
}

// TriageConfig groups all configuration for a triage run.
type TriageConfig struct {
	Mail     MailConfig     `json:"mail" yaml:"mail" mapstructure:"mail"`
	Parse    ParseConfig    `json:"parse" yaml:"parse" mapstructure:"parse"`
	Store    StoreConfig    `json:"store" yaml:"store" mapstructure:"store"`
	Schedule ScheduleConfig `json:"schedule" yaml:"schedule" mapstructure:"schedule"`

	// SolicitableAuthors is the CSV file of authors the editors want to
	// solicit (first column: full name).
	SolicitableAuthors string `json:"solicitable_authors" yaml:"solicitable_authors" mapstructure:"solicitable_authors"`

	// Workers bounds per-message extraction concurrency (default 4).
	Workers int `json:"workers" yaml:"workers" mapstructure:"workers"`
}
