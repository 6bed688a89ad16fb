package util

import (
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
)

func TestParseDuration(t *testing.T) {
	tests := []struct {
		in   string
		want time.Duration
	}{
		{"7d", 7 * 24 * time.Hour},
		{"30m", 30 * time.Minute},
		{"45", 45 * time.Second},
		{" 1h ", time.Hour},
	}
	for _, tt := range tests {
		t.Run(tt.in, func(t *testing.T) {
			got, err := ParseDuration(tt.in)
			assert.NoError(t, err)
			assert.Equal(t, tt.want, got)
		})
	}

	_, err := ParseDuration("xd")
	assert.Error(t, err)
	assert.Equal(t, time.Minute, ParseDurationOr("bogus", time.Minute))
	assert.Equal(t, time.Minute, ParseDurationOr("", time.Minute))
}

func TestIsValidRepositoryURL(t *testing.T) {
	valid := []string{
		"https://github.com/org/repo.git",
		"http://localhost:3000/repo",
		"git@github.com:org/repo.git",
		"git://example.com/repo.git",
		"ssh://git@example.com/repo.git",
		"file:///tmp/repo.git",
	}
	for _, u := range valid {
		assert.True(t, IsValidRepositoryURL(u), u)
	}

	invalid := []string{"", "ftp://example.com/repo", "not a url", "/tmp/repo"}
	for _, u := range invalid {
		assert.False(t, IsValidRepositoryURL(u), u)
	}
}

func TestIsValidBranchName(t *testing.T) {
	tests := []struct {
		name  string
		valid bool
	}{
		{"main", true},
		{"feature/export-v2", true},
		{"release_1.0", true},
		{"", false},
		{".", false},
		{"..", false},
		{".hidden", false},
		{"topic.lock", false},
		{"has space", false},
		{"a:b", false},
		{"a~1", false},
		{"a^b", false},
		{"wild*", false},
		{"q?", false},
		{"br[0]", false},
		{"back\\slash", false},
		{"at@{", false},
		{"a..b", false},
	}
	for _, tt := range tests {
		assert.Equal(t, tt.valid, IsValidBranchName(tt.name), tt.name)
	}
}

func TestSafeJoin(t *testing.T) {
	root := filepath.Join("/", "work", "repo")

	p, ok := SafeJoin(root, "workflows/workflow-1.json")
	assert.True(t, ok)
	assert.Equal(t, filepath.Join(root, "workflows", "workflow-1.json"), p)

	for _, rel := range []string{"../escape.json", "workflows/../../x", "/etc/passwd", ""} {
		_, ok := SafeJoin(root, rel)
		assert.False(t, ok, rel)
	}
}

func TestGetRandomString(t *testing.T) {
	s := GetRandomString(32)
	assert.Len(t, s, 32)
	assert.NotEqual(t, s, GetRandomString(32))
}

func TestCompactJSON(t *testing.T) {
	out, err := CompactJSON([]byte("{\n  \"a\": [1, 2],\n  \"s\": \"x y\"\n}"))
	assert.NoError(t, err)
	assert.Equal(t, `{"a":[1,2],"s":"x y"}`, string(out))

	_, err = CompactJSON([]byte("{"))
	assert.Error(t, err)
}
