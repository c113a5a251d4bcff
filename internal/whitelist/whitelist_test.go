package whitelist

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestIsWhitelisted(t *testing.T) {
	c := NewChecker([]string{" Example.COM ", "@partners.org", ""}, nil)

	tests := []struct {
		from string
		want bool
	}{
		{"alice@example.com", true},
		{"Alice <alice@Example.com>", true},
		{"bob@mail.example.com", true},
		{"eve@example.com.evil.net", false},
		{"eve@notexample.com", false},
		{"carol@partners.org", true},
		{"no-at-sign", false},
		{"", false},
	}

	for _, tt := range tests {
		t.Run(tt.from, func(t *testing.T) {
			assert.Equal(t, tt.want, c.IsWhitelisted(tt.from))
		})
	}
	assert.Equal(t, 2, c.Len())
}

func TestEmptyWhitelist(t *testing.T) {
	assert.False(t, NewChecker(nil, nil).IsWhitelisted("alice@example.com"))
}

func TestSenderDomain(t *testing.T) {
	assert.Equal(t, "example.com", SenderDomain("<a@Example.com>"))
	assert.Equal(t, "", SenderDomain("a@"))
}
