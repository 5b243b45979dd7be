package waypoint

import "time"

// Config holds the upstream endpoints and request policy.
type Config struct {
	DiscoveryURL string `mapstructure:"discovery_url" default:"https://discovery-infiniteugc.svc.halowaypoint.com"`
	ProfileURL   string `mapstructure:"profile_url" default:"https://profile.svc.halowaypoint.com"`
	EconomyURL   string `mapstructure:"economy_url" default:"https://economy.svc.halowaypoint.com"`
	GameCMSURL   string `mapstructure:"gamecms_url" default:"https://gamecms-hacs.svc.halowaypoint.com"`
	WebURL       string `mapstructure:"web_url" default:"https://www.halowaypoint.com"`
	// ProjectID is the curated project backing the recommended feed.
	ProjectID             string `mapstructure:"project_id" default:""`
	RequestTimeoutSeconds int    `mapstructure:"request_timeout_seconds" default:"30"`
	ProbeAttempts         int    `mapstructure:"probe_attempts" default:"3"`
	UserAgent             string `mapstructure:"user_agent" default:"waypoint-sync/1.0"`
}

// RequestTimeout returns the per-request timeout.
func (c Config) RequestTimeout() time.Duration {
	if c.RequestTimeoutSeconds <= 0 {
		return 0
	}
	return time.Duration(c.RequestTimeoutSeconds) * time.Second
}
