package common

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestCanonicalURL(t *testing.T) {
	tests := []struct {
		name     string
		input    string
		expected string
	}{
		{
			name:     "strips query string",
			input:    "https://example.com/page?utm_source=x",
			expected: "https://example.com/page",
		},
		{
			name:     "strips fragment",
			input:    "https://example.com/page#section",
			expected: "https://example.com/page",
		},
		{
			name:     "strips trailing slash",
			input:    "https://example.com/page/",
			expected: "https://example.com/page",
		},
		{
			name:     "adds https scheme",
			input:    "example.com/page",
			expected: "https://example.com/page",
		},
		{
			name:     "preserves http scheme",
			input:    "http://example.com",
			expected: "http://example.com",
		},
		{
			name:     "strips query fragment and slash together",
			input:    "https://example.com/a/b/?q=1#frag",
			expected: "https://example.com/a/b",
		},
		{
			name:     "empty input",
			input:    "",
			expected: "",
		},
		{
			name:     "bare domain with trailing slash",
			input:    "https://example.com/",
			expected: "https://example.com",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.expected, CanonicalURL(tt.input))
		})
	}
}

func TestCanonicalURL_Idempotent(t *testing.T) {
	urls := []string{
		"https://example.com/page?q=1#frag",
		"example.com/path/",
		"http://www.example.org/a/b",
	}
	for _, raw := range urls {
		once := CanonicalURL(raw)
		assert.Equal(t, once, CanonicalURL(once), "re-normalizing %q must be stable", raw)
	}
}

func TestDomainName(t *testing.T) {
	assert.Equal(t, "Tavily", DomainName("https://www.tavily.com/about"))
	assert.Equal(t, "Example", DomainName("example.com"))
	assert.Equal(t, "Website", DomainName(""))
}

func TestDomain(t *testing.T) {
	assert.Equal(t, "example.com", Domain("https://www.example.com/page"))
	assert.Equal(t, "acme.example", Domain("acme.example"))
}
