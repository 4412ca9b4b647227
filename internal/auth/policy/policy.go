package policy

import "strings"

// DomainAllowList admits an email when the text after its last '@'
// equals one of the configured domains. Comparison is literal: no case
// folding or trimming is applied.
type DomainAllowList struct {
	domains map[string]struct{}
}

func NewDomainAllowList(domains []string) *DomainAllowList {
	m := make(map[string]struct{}, len(domains))
	for _, d := range domains {
		if d == "" {
			continue
		}
		m[d] = struct{}{}
	}
	return &DomainAllowList{domains: m}
}

// Allows reports whether the email's domain is on the list.
func (p *DomainAllowList) Allows(email string) bool {
	at := strings.LastIndexByte(email, '@')
	if at < 0 {
		return false
	}
	domain := email[at+1:]
	if domain == "" {
		return false
	}
	_, ok := p.domains[domain]
	return ok
}

// Domain returns the part of email after the last '@', for logging.
func Domain(email string) string {
	at := strings.LastIndexByte(email, '@')
	if at < 0 {
		return ""
	}
	return email[at+1:]
}
