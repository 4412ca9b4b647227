package policy

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestDomainAllowList(t *testing.T) {
	p := NewDomainAllowList([]string{"nnn.ed.jp", "n-jr.jp", "nnn.ac.jp", ""})

	cases := []struct {
		email string
		want  bool
	}{
		{"user@nnn.ed.jp", true},
		{"alice@n-jr.jp", true},
		{"bob@nnn.ac.jp", true},
		{"user@evil.com", false},
		{"bob@gmail.com", false},
		{"user@", false},
		{"", false},
		{"no-at-sign", false},
		// literal match, no case folding
		{"user@NNN.ED.JP", false},
		// only the text after the last '@' counts
		{"user@nnn.ed.jp@evil.com", false},
		{"user@evil.com@nnn.ed.jp", true},
		// no suffix or subdomain matching
		{"user@sub.nnn.ed.jp", false},
		{"user@xnnn.ed.jp", false},
	}

	for _, tc := range cases {
		assert.Equal(t, tc.want, p.Allows(tc.email), tc.email)
	}
}

func TestDomain(t *testing.T) {
	assert.Equal(t, "nnn.ed.jp", Domain("a@nnn.ed.jp"))
	assert.Equal(t, "", Domain("nope"))
}
