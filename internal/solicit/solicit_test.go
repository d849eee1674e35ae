// Copyright Mesh Intelligence Inc., 2026. All rights reserved.

package solicit

import (
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestRead(t *testing.T) {
	s, err := Read(strings.NewReader("full_name,institution\nJosé García,Acme University\n\"Lee, Ann\",Yale\nJane Q. Doe\n,\n"))
	require.NoError(t, err)
	assert.Equal(t, 3, s.Len())

	tests := []struct {
		name string
		want bool
	}{
		{"Jose Garcia", true},
		{"JOSÉ M. GARCÍA", true},
		{"Jane Doe", true},
		{"Lee Ann", true},
		{"Ann Lee", false},
		{"full_name", false},
		{"", false},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, s.Contains(tt.name))
		})
	}
}

func TestLoad(t *testing.T) {
	path := filepath.Join(t.TempDir(), "solicitable_authors.csv")
	require.NoError(t, os.WriteFile(path, []byte("name\nJane Doe\n"), 0o644))

	s, err := Load(path)
	require.NoError(t, err)
	assert.True(t, s.Contains("Jane Doe"))

	s, err = Load(filepath.Join(t.TempDir(), "missing.csv"))
	require.NoError(t, err)
	assert.Zero(t, s.Len())

	s, err = Load("")
	require.NoError(t, err)
	assert.Zero(t, s.Len())
}

func TestNilSet(t *testing.T) {
	var s *Set
	assert.False(t, s.Contains("Jane Doe"))
	assert.Zero(t, s.Len())
}
