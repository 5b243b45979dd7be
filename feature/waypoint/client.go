package waypoint

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"net/url"
	"strconv"
	"strings"
	"time"

	"waypoint-sync/core/fetch"

	backoff "github.com/cenkalti/backoff/v4"
	"go.uber.org/zap"
)

// ErrNoProject reports that no recommended project is configured.
var ErrNoProject = errors.New("waypoint project id is not configured")

// Client calls the Waypoint endpoints through the rate-limited fetch client.
type Client struct {
	cfg    Config
	api    *fetch.Client
	probe  *fetch.Client
	logger *zap.Logger
}

// NewClient creates an API client. probe serves the unauthenticated existence
// probes; when nil the api client is used.
func NewClient(cfg Config, api *fetch.Client, probe *fetch.Client, logger *zap.Logger) *Client {
	if probe == nil {
		probe = api
	}
	if logger == nil {
		logger = zap.NewNop()
	}
	return &Client{cfg: cfg, api: api, probe: probe, logger: logger}
}

// SearchURL builds the search URL of one page.
func (c *Client) SearchURL(kind AssetKind, start, count int) string {
	q := url.Values{}
	q.Set("sort", "DatePublishedUtc")
	q.Set("order", "Desc")
	q.Set("count", strconv.Itoa(count))
	q.Set("start", strconv.Itoa(start))
	q.Set("assetKind", kind.String())
	return strings.TrimRight(c.cfg.DiscoveryURL, "/") + "/hi/search?" + q.Encode()
}

// DetailURL builds the detail URL of one asset.
func (c *Client) DetailURL(kind AssetKind, assetID string) string {
	return fmt.Sprintf("%s/hi/%s/%s", strings.TrimRight(c.cfg.DiscoveryURL, "/"), kind.DetailPath(), url.PathEscape(assetID))
}

// BrowseURL builds the public page probed for existence.
func (c *Client) BrowseURL(kind AssetKind, assetID string) string {
	return fmt.Sprintf("%s/halo-infinite/ugc/browse/%s/%s", strings.TrimRight(c.cfg.WebURL, "/"), kind.BrowsePath(), url.PathEscape(assetID))
}

// Search fetches one page of assets sorted by publish date, newest first.
func (c *Client) Search(ctx context.Context, kind AssetKind, start, count int) (*SearchPage, error) {
	var page SearchPage
	if err := c.api.GetJSON(ctx, c.SearchURL(kind, start, count), &page); err != nil {
		return nil, err
	}
	return &page, nil
}

// GetAsset fetches the detail record of one asset.
func (c *Client) GetAsset(ctx context.Context, kind AssetKind, assetID string) (*AssetDetail, error) {
	var detail AssetDetail
	if err := c.api.GetJSON(ctx, c.DetailURL(kind, assetID), &detail); err != nil {
		return nil, err
	}
	return &detail, nil
}

// GetUsers resolves raw numeric xuids to gamertags in one call.
func (c *Client) GetUsers(ctx context.Context, xuids []string) ([]User, error) {
	if len(xuids) == 0 {
		return nil, nil
	}
	u := strings.TrimRight(c.cfg.ProfileURL, "/") + "/users?xuids=" + strings.Join(xuids, ",")
	var users []User
	if err := c.api.GetJSON(ctx, u, &users); err != nil {
		return nil, err
	}
	return users, nil
}

// GetAppearance fetches the service tag and emblem reference of one player.
func (c *Client) GetAppearance(ctx context.Context, xuid string) (*Appearance, error) {
	u := fmt.Sprintf("%s/hi/players/xuid(%s)/customization/appearance", strings.TrimRight(c.cfg.EconomyURL, "/"), xuid)
	var resp appearanceResponse
	if err := c.api.GetJSON(ctx, u, &resp); err != nil {
		return nil, err
	}
	return &resp.Appearance, nil
}

// GetEmblem fetches emblem metadata by its reference path.
func (c *Client) GetEmblem(ctx context.Context, emblemPath string) (*Emblem, error) {
	u := strings.TrimRight(c.cfg.GameCMSURL, "/") + "/hi/progression/file/" + strings.TrimLeft(emblemPath, "/")
	var emblem Emblem
	if err := c.api.GetJSON(ctx, u, &emblem); err != nil {
		return nil, err
	}
	return &emblem, nil
}

// GetRecommended fetches the curated project listing the featured assets.
func (c *Client) GetRecommended(ctx context.Context) (*Project, error) {
	if c.cfg.ProjectID == "" {
		return nil, ErrNoProject
	}
	u := fmt.Sprintf("%s/hi/projects/%s", strings.TrimRight(c.cfg.DiscoveryURL, "/"), url.PathEscape(c.cfg.ProjectID))
	var project Project
	if err := c.api.GetJSON(ctx, u, &project); err != nil {
		return nil, err
	}
	return &project, nil
}

// AssetExists checks the public page of an asset.
// 404 and 410 report gone, 2xx reports exists. Other statuses and transport
// errors are retried with exponential backoff; when the budget runs out the
// result is unverified.
func (c *Client) AssetExists(ctx context.Context, kind AssetKind, assetID string) (ProbeResult, error) {
	attempts := c.cfg.ProbeAttempts
	if attempts <= 0 {
		attempts = 1
	}
	target := c.BrowseURL(kind, assetID)

	exp := backoff.NewExponentialBackOff()
	exp.InitialInterval = time.Second
	exp.Multiplier = 2
	exp.RandomizationFactor = 0
	exp.MaxElapsedTime = 0

	result := ProbeUnverified
	var lastErr error
	op := func() error {
		resp, err := c.probe.Do(ctx, fetch.Request{Method: http.MethodHead, URL: target})
		if err != nil {
			if ctx.Err() != nil {
				return backoff.Permanent(ctx.Err())
			}
			lastErr = err
			return err
		}
		switch {
		case resp.OK():
			result = ProbeExists
			return nil
		case resp.StatusCode == http.StatusNotFound, resp.StatusCode == http.StatusGone:
			result = ProbeGone
			return nil
		}
		lastErr = fmt.Errorf("unexpected status %d", resp.StatusCode)
		return lastErr
	}

	err := fetch.Retry(ctx, c.probe.Clock(), backoff.WithMaxRetries(exp, uint64(attempts-1)), op, nil)
	if err == nil {
		return result, nil
	}
	if ctx.Err() != nil {
		return ProbeUnverified, ctx.Err()
	}

	c.logger.Warn("Existence probe inconclusive",
		zap.String("asset_id", assetID),
		zap.String("kind", kind.String()),
		zap.Error(lastErr))
	return ProbeUnverified, fmt.Errorf("probe %s: %w", target, lastErr)
}
