// Copyright Mesh Intelligence Inc., 2026. All rights reserved.

package pipeline

import (
	"fmt"
	"os"
	"time"

	"github.com/google/uuid"
	"go.yaml.in/yaml/v3"
)

// BatchFile is the on-disk snapshot of one batch run. Editors can save a
// fetch and review it later without reconnecting to the mail server.
type BatchFile struct {
	RunID     string    `yaml:"run_id"`
	Timestamp time.Time `yaml:"timestamp"`
	Summary   Summary   `yaml:"summary"`
	Warnings  []string  `yaml:"warnings,omitempty"`
	Papers    []Paper   `yaml:"papers"`
}

// WriteBatchFile saves res to a YAML file under a fresh run id and returns
// the id.
func WriteBatchFile(path string, res Result) (string, error) {
	bf := BatchFile{
		RunID:     uuid.New().String(),
		Timestamp: time.Now().UTC(),
		Summary:   res.Summary,
		Papers:    res.Papers,
	}
	for _, w := range res.Warnings {
		bf.Warnings = append(bf.Warnings, w.Error())
	}

	data, err := yaml.Marshal(&bf)
	if err != nil {
		return "", fmt.Errorf("marshaling batch file: %w", err)
	}
	if err := os.WriteFile(path, data, 0o644); err != nil {
		return "", fmt.Errorf("writing batch file: %w", err)
	}
	return bf.RunID, nil
}

// ReadBatchFile loads a previously saved batch file from disk.
func ReadBatchFile(path string) (*BatchFile, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("reading batch file: %w", err)
	}
	var bf BatchFile
	if err := yaml.Unmarshal(data, &bf); err != nil {
		return nil, fmt.Errorf("parsing batch file: %w", err)
	}
	return &bf, nil
}
