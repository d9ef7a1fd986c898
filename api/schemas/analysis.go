// File: api/schemas/analysis.go
package schemas

import "fmt"

// DiscoveredDomain is a domain observed during target reconnaissance.
// Produced by the remote analyzer; read-only on this side.
type DiscoveredDomain struct {
	Domain        string   `json:"domain"`
	Subdomains    []string `json:"subdomains"`
	IsAuthRelated bool     `json:"is_auth_related"`
	IsCDN         bool     `json:"is_cdn"`
}

// LoginFormField describes one input field of a discovered login form.
type LoginFormField struct {
	FieldName   string `json:"field_name"`
	FieldType   string `json:"field_type"`
	FieldID     string `json:"field_id,omitempty"`
	Placeholder string `json:"placeholder,omitempty"`
	Label       string `json:"label,omitempty"`
}

// LoginFormInfo describes a login form found on the target page.
type LoginFormInfo struct {
	ActionURL        string           `json:"action_url"`
	Method           string           `json:"method"`
	Fields           []LoginFormField `json:"fields"`
	SubmitButtonText string           `json:"submit_button_text,omitempty"`
}

// AuthFlowStep is one observed step of the target's authentication flow.
// Step numbers form a dense increasing sequence starting at 1.
type AuthFlowStep struct {
	StepNumber  int      `json:"step_number"`
	URL         string   `json:"url"`
	Method      string   `json:"method"`
	ContentType string   `json:"content_type,omitempty"`
	IsRedirect  bool     `json:"is_redirect"`
	StatusCode  int      `json:"status_code"`
	SetsCookies []string `json:"sets_cookies"`
	Description string   `json:"description"`
}

// AnalysisResult aggregates everything the reconnaissance engine learned
// about a target login URL. Immutable once received.
type AnalysisResult struct {
	TargetURL          string              `json:"target_url"`
	BaseDomain         string              `json:"base_domain"`
	DiscoveredDomains  []DiscoveredDomain  `json:"discovered_domains"`
	LoginForms         []LoginFormInfo     `json:"login_forms"`
	AuthFlowSteps      []AuthFlowStep      `json:"auth_flow_steps"`
	CookiesObserved    map[string][]string `json:"cookies_observed"`
	RedirectChain      []string            `json:"redirect_chain"`
	PostLoginURL       string              `json:"post_login_url,omitempty"`
	LoginPath          string              `json:"login_path"`
	HasMFA             bool                `json:"has_mfa"`
	UsesJavascriptAuth bool                `json:"uses_javascript_auth"`
	AuthAPIEndpoints   []string            `json:"auth_api_endpoints"`
	PageTitle          string              `json:"page_title"`
	SuggestedName      string              `json:"suggested_name"`
}

// ValidateSteps checks that AuthFlowSteps are numbered 1..n with no gaps.
func (r *AnalysisResult) ValidateSteps() error {
	for i, s := range r.AuthFlowSteps {
		if s.StepNumber != i+1 {
			return fmt.Errorf("auth flow step %d has step_number %d, want %d", i, s.StepNumber, i+1)
		}
	}
	return nil
}

// AIStatus reports whether the remote AI-enhancement service is usable.
type AIStatus struct {
	Enabled   bool   `json:"enabled"`
	Model     string `json:"model,omitempty"`
	Connected bool   `json:"connected"`
}
