package policy

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestMatch_SuffixWildcard(t *testing.T) {
	patterns := []string{".github.com"}

	p, ok := Match("api.github.com", patterns)
	require.True(t, ok)
	assert.Equal(t, ".github.com", p)

	// The bare domain is covered by its own wildcard.
	p, ok = Match("github.com", patterns)
	require.True(t, ok)
	assert.Equal(t, ".github.com", p)
}

func TestMatch_ExactPattern(t *testing.T) {
	patterns := []string{"github.com"}

	_, ok := Match("github.com", patterns)
	assert.True(t, ok)

	// Proper subdomains match a dotless pattern.
	_, ok = Match("api.github.com", patterns)
	assert.True(t, ok)

	// Unanchored substrings must not.
	_, ok = Match("evil-github.com", patterns)
	assert.False(t, ok)
	_, ok = Match("github.com.evil.net", patterns)
	assert.False(t, ok)
}

func TestMatch_FirstDeclaredWins(t *testing.T) {
	// No specificity ranking: declaration order decides.
	p, ok := Match("example.com", []string{".example.com", "example.com"})
	require.True(t, ok)
	assert.Equal(t, ".example.com", p)

	p, ok = Match("example.com", []string{"example.com", ".example.com"})
	require.True(t, ok)
	assert.Equal(t, "example.com", p)
}

func TestMatch_EdgeCases(t *testing.T) {
	patterns := []string{".github.com"}

	_, ok := Match("", patterns)
	assert.False(t, ok)

	_, ok = Match("-", patterns)
	assert.False(t, ok)

	_, ok = Match("github.com", nil)
	assert.False(t, ok)

	// Empty pattern tokens are inert.
	_, ok = Match("github.com", []string{""})
	assert.False(t, ok)
}

func TestSuggestArgs(t *testing.T) {
	got := SuggestArgs([]string{".github.com", "pypi.org"}, "crates.io")
	assert.Equal(t, ".github.com pypi.org crates.io", got)

	assert.Equal(t, "crates.io", SuggestArgs(nil, "crates.io"))
}
