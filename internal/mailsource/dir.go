// Copyright Mesh Intelligence Inc., 2026. All rights reserved.

package mailsource

import (
	"context"
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"github.com/pdiddy/paper-triage/pkg/types"
)

// Dir reads saved messages from a directory. Files ending in .eml are
// decoded as MIME messages; .txt files are taken verbatim. The file name is
// the source id. Other files are ignored.
type Dir struct {
	Path string
}

// Fetch returns the messages in the directory in file name order.
func (d *Dir) Fetch(ctx context.Context) ([]types.RawMessage, error) {
	entries, err := os.ReadDir(d.Path)
	if err != nil {
		return nil, fmt.Errorf("reading message directory %s: %w", d.Path, err)
	}

	var msgs []types.RawMessage
	for _, entry := range entries {
		if entry.IsDir() {
			continue
		}
		select {
		case <-ctx.Done():
			return nil, ctx.Err()
		default:
		}

		name := entry.Name()
		path := filepath.Join(d.Path, name)
		var body string
		switch strings.ToLower(filepath.Ext(name)) {
		case ".eml":
			f, err := os.Open(path)
			if err != nil {
				return nil, fmt.Errorf("opening %s: %w", name, err)
			}
			body, err = ParseMessage(f)
			f.Close()
			if err != nil {
				return nil, fmt.Errorf("decoding %s: %w", name, err)
			}
		case ".txt":
			data, err := os.ReadFile(path)
			if err != nil {
				return nil, fmt.Errorf("reading %s: %w", name, err)
			}
			body = string(data)
		default:
			continue
		}
		msgs = append(msgs, types.RawMessage{Body: body, SourceID: name})
	}
	return msgs, nil
}
