package network

import (
	"context"
	"errors"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"sync"
	"time"

	"market-relay/src/helpers"
	"market-relay/src/interfaces"
	"market-relay/src/logger"
	"market-relay/src/models"

	"github.com/cenkalti/backoff/v5"
)

const maxBodyBytes = 8 << 20

type AsyncNetworkManager struct {
	Config       *models.MConfig
	ProxyManager interfaces.IProxyManager
	Logger       *logger.Logger

	// NewBackOff builds the retry policy for one Get call.
	NewBackOff func() backoff.BackOff

	mu     sync.RWMutex
	client *http.Client
}

// -----------------------------------------------------------------------------

func NewAsyncNetworkManager(cfg *models.MConfig, log *logger.Logger) *AsyncNetworkManager {
	var proxies []string
	if cfg.Network.Enabled {
		proxies = cfg.Network.Proxies
	}

	nm := &AsyncNetworkManager{
		Config:       cfg,
		ProxyManager: helpers.NewProxyManager(proxies, cfg.Network.UserAgent),
		Logger:       log,
		NewBackOff: func() backoff.BackOff {
			b := backoff.NewExponentialBackOff()
			b.InitialInterval = 250 * time.Millisecond
			b.MaxInterval = 4 * time.Second
			return b
		},
	}
	nm.client = nm.createClient()
	return nm
}

// -----------------------------------------------------------------------------

func (nm *AsyncNetworkManager) createClient() *http.Client {
	transport := http.DefaultTransport.(*http.Transport).Clone()

	if nm.ProxyManager.HasProxies() {
		proxyStr, err := nm.ProxyManager.GetCurrentProxy()
		if err == nil && proxyStr != "" {
			proxyURL, err := url.Parse(proxyStr)
			if err == nil {
				transport.Proxy = http.ProxyURL(proxyURL)
			}
		}
	}

	timeout := time.Duration(nm.Config.Network.RequestTimeout) * time.Second
	if timeout <= 0 {
		timeout = 10 * time.Second
	}
	return &http.Client{Transport: transport, Timeout: timeout}
}

// -----------------------------------------------------------------------------

func (nm *AsyncNetworkManager) httpClient() *http.Client {
	nm.mu.RLock()
	defer nm.mu.RUnlock()
	return nm.client
}

// -----------------------------------------------------------------------------

func (nm *AsyncNetworkManager) rotateProxy() {
	if !nm.ProxyManager.HasProxies() {
		return
	}

	nm.ProxyManager.RotateProxy()
	c := nm.createClient()
	nm.mu.Lock()
	nm.client = c
	nm.mu.Unlock()
}

// -----------------------------------------------------------------------------

// Get performs a GET request with retries and proxy rotation. Transport
// failures and 5xx are retried with backoff; other statuses return at once.
func (nm *AsyncNetworkManager) Get(ctx context.Context, urlStr string, params map[string]string, headers map[string]string) ([]byte, error) {
	reqURL, err := url.Parse(urlStr)
	if err != nil {
		return nil, err
	}

	q := reqURL.Query()
	for k, v := range params {
		q.Set(k, v)
	}
	reqURL.RawQuery = q.Encode()
	finalURL := reqURL.String()
	provider := reqURL.Hostname()

	attempt := 0
	operation := func() ([]byte, error) {
		attempt++
		req, err := http.NewRequestWithContext(ctx, http.MethodGet, finalURL, nil)
		if err != nil {
			return nil, backoff.Permanent(err)
		}
		req.Header.Set("User-Agent", nm.ProxyManager.GetUserAgent())
		req.Header.Set("Accept", "application/json")
		for k, v := range headers {
			req.Header.Set(k, v)
		}

		resp, err := nm.httpClient().Do(req)
		if err != nil {
			upErr := helpers.NewUpstreamError(provider, helpers.UpstreamUnavailable, 0, err)
			if ctx.Err() != nil {
				return nil, backoff.Permanent(upErr)
			}
			nm.Logger.Debug("Request to %s failed (attempt %d): %v", provider, attempt, err)
			return nil, upErr
		}
		defer resp.Body.Close()

		if resp.StatusCode >= 200 && resp.StatusCode < 300 {
			body, err := io.ReadAll(io.LimitReader(resp.Body, maxBodyBytes))
			if err != nil {
				return nil, helpers.NewUpstreamError(provider, helpers.UpstreamUnavailable, resp.StatusCode, err)
			}
			return body, nil
		}

		kind := helpers.ClassifyStatus(resp.StatusCode)
		upErr := helpers.NewUpstreamError(provider, kind, resp.StatusCode, fmt.Errorf("bad status: %d", resp.StatusCode))
		if resp.StatusCode == http.StatusTooManyRequests || resp.StatusCode == http.StatusForbidden {
			nm.Logger.Info("Request blocked (%d) by %s. Rotating proxy.", resp.StatusCode, provider)
			nm.rotateProxy()
		}
		if kind == helpers.UpstreamUnavailable {
			nm.Logger.Debug("Bad status %d from %s (attempt %d)", resp.StatusCode, provider, attempt)
			return nil, upErr
		}
		return nil, backoff.Permanent(upErr)
	}

	maxTries := nm.Config.Network.MaxRetries + 1
	if maxTries < 1 {
		maxTries = 1
	}
	body, err := backoff.Retry(ctx, operation,
		backoff.WithBackOff(nm.NewBackOff()),
		backoff.WithMaxTries(uint(maxTries)),
	)
	if err != nil {
		var upErr *helpers.UpstreamError
		if !errors.As(err, &upErr) {
			err = helpers.NewUpstreamError(provider, helpers.UpstreamUnavailable, 0, err)
		}
		return nil, err
	}
	return body, nil
}
