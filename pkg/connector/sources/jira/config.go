package jira

import (
	"strconv"
	"strings"

	"github.com/helixdata/helix/pkg/config"
	"github.com/helixdata/helix/pkg/errors"
)

const (
	authTypeBasic  = "basic"
	authTypeBearer = "bearer"

	defaultPageSize       = 100
	defaultIssuesPageSize = 100
)

// sourceConfig is the validated, immutable extraction configuration. It is
// resolved once during Initialize and threaded explicitly into the client,
// paginator, and parameter builders; nothing reads ambient settings after
// that point.
type sourceConfig struct {
	Domain      string
	AuthType    string
	Email       string
	APIToken    string
	AccessToken string

	// StartDate bounds the issue search window when no bookmark exists and
	// serves as the replication floor for date-keyed streams
	StartDate string
	// EndDate optionally caps the issue search window (exclusive)
	EndDate string
	// IssuesJQL is appended verbatim to the generated issue filter
	IssuesJQL string

	// Streams restricts extraction to the named top-level streams; empty
	// selects everything
	Streams []string

	PageSize       int
	IssuesPageSize int
}

// newSourceConfig extracts and validates source settings from the base
// configuration. Connector-specific options travel in the credentials map.
func newSourceConfig(cfg *config.BaseConfig) (*sourceConfig, error) {
	if cfg == nil {
		return nil, errors.New(errors.ErrorTypeConfig, "config is required")
	}
	creds := cfg.Security.Credentials

	authType := cfg.Security.AuthType
	if authType == "" {
		authType = creds["auth_type"]
	}

	sc := &sourceConfig{
		Domain:         creds["domain"],
		AuthType:       authType,
		Email:          creds["email"],
		APIToken:       creds["api_token"],
		AccessToken:    creds["access_token"],
		StartDate:      creds["start_date"],
		EndDate:        creds["end_date"],
		IssuesJQL:      creds["issues_jql"],
		PageSize:       cfg.Performance.BatchSize,
		IssuesPageSize: defaultIssuesPageSize,
	}

	if sc.Domain == "" {
		return nil, errors.New(errors.ErrorTypeConfig, "domain is required")
	}
	if sc.AuthType == "" {
		sc.AuthType = authTypeBasic
	}
	switch sc.AuthType {
	case authTypeBasic:
		if sc.Email == "" || sc.APIToken == "" {
			return nil, errors.New(errors.ErrorTypeConfig, "basic auth requires email and api_token")
		}
	case authTypeBearer:
		if sc.AccessToken == "" {
			return nil, errors.New(errors.ErrorTypeConfig, "bearer auth requires access_token")
		}
	default:
		return nil, errors.Newf(errors.ErrorTypeConfig, "unsupported auth_type %q", sc.AuthType)
	}

	if sc.PageSize <= 0 {
		sc.PageSize = defaultPageSize
	}
	if raw := creds["issues_page_size"]; raw != "" {
		n, err := strconv.Atoi(raw)
		if err != nil || n <= 0 {
			return nil, errors.Newf(errors.ErrorTypeConfig, "invalid issues_page_size %q", raw)
		}
		sc.IssuesPageSize = n
	}

	if raw := creds["streams"]; raw != "" {
		for _, name := range strings.Split(raw, ",") {
			name = strings.TrimSpace(name)
			if name != "" {
				sc.Streams = append(sc.Streams, name)
			}
		}
	}

	return sc, nil
}

// selected reports whether a stream participates in this run.
func (c *sourceConfig) selected(name string) bool {
	if len(c.Streams) == 0 {
		return true
	}
	for _, s := range c.Streams {
		if s == name {
			return true
		}
	}
	return false
}

// coreBaseURL is the main REST API root for the configured site.
func (c *sourceConfig) coreBaseURL() string {
	return c.siteRoot() + "/rest/api/3"
}

// agileBaseURL is the agile API root for the configured site.
func (c *sourceConfig) agileBaseURL() string {
	return c.siteRoot() + "/rest/agile/1.0"
}

// siteRoot accepts either a bare hostname (https assumed) or a full origin
// with scheme, which local deployments and tests use.
func (c *sourceConfig) siteRoot() string {
	if strings.Contains(c.Domain, "://") {
		return c.Domain
	}
	return "https://" + c.Domain
}
