package transport

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strings"
	"time"

	"github.com/MrEthical07/goSession/credential"
)

const (
	// DefaultTimeout is an exported constant or variable used by the session client.
	DefaultTimeout = 15 * time.Second

	// maxResponseSize caps response bodies so a misbehaving server cannot
	// exhaust client memory.
	maxResponseSize = 4 * 1024 * 1024
)

// Config defines a public type used by goSession APIs.
//
// Config instances are intended to be configured during initialization and then treated as immutable unless documented otherwise.
type Config struct {
	BaseURL      string
	Timeout      time.Duration
	UserAgent    string
	DeviceID     string
	DeviceHeader string
	Store        credential.Store

	// OnReplay is invoked each time a request is replayed after a refresh
	// cycle. Optional; used for metrics.
	OnReplay func()
}

// Client defines a public type used by goSession APIs.
//
// Client instances are intended to be configured during initialization and then treated as immutable unless documented otherwise.
// Client is the shared request executor for every feature call. It knows
// nothing about login flows; it only attaches the current access token and
// hands 401s to the coordinator.
type Client struct {
	baseURL      string
	http         *http.Client
	store        credential.Store
	coord        *Coordinator
	userAgent    string
	deviceID     string
	deviceHeader string
	onReplay     func()
}

// NewClient describes the newclient operation and its observable behavior.
//
// NewClient may return an error when input validation, dependency calls, or security checks fail.
// NewClient does not mutate shared global state and can be used concurrently when the receiver and dependencies are concurrently safe.
func NewClient(cfg Config) (*Client, error) {
	base := strings.TrimSuffix(cfg.BaseURL, "/")
	if base == "" {
		return nil, errors.New("base URL required")
	}
	if u, err := url.Parse(base); err != nil || u.Scheme == "" || u.Host == "" {
		return nil, errors.New("base URL must be absolute")
	}
	if cfg.Store == nil {
		return nil, errors.New("credential store required")
	}

	timeout := cfg.Timeout
	if timeout <= 0 {
		timeout = DefaultTimeout
	}

	return &Client{
		baseURL:      base,
		http:         &http.Client{Timeout: timeout},
		store:        cfg.Store,
		userAgent:    cfg.UserAgent,
		deviceID:     cfg.DeviceID,
		deviceHeader: cfg.DeviceHeader,
		onReplay:     cfg.OnReplay,
	}, nil
}

// SetCoordinator wires the refresh coordinator into the 401 path. Called once
// during Build; a client without a coordinator surfaces 401s as APIErrors.
func (c *Client) SetCoordinator(coord *Coordinator) {
	c.coord = coord
}

// WithoutRefresh returns a view of the client whose 401s are never
// intercepted. The refresh call itself goes through this view; routing it
// through the coordinator would deadlock on the in-flight cycle.
func (c *Client) WithoutRefresh() *Client {
	bare := *c
	bare.coord = nil
	return &bare
}

// Get describes the get operation and its observable behavior.
//
// Get may return an error when input validation, dependency calls, or security checks fail.
// Get does not mutate shared global state and can be used concurrently when the receiver and dependencies are concurrently safe.
func (c *Client) Get(ctx context.Context, path string) ([]byte, error) {
	return c.do(ctx, http.MethodGet, path, nil)
}

// Post describes the post operation and its observable behavior.
//
// Post may return an error when input validation, dependency calls, or security checks fail.
// Post does not mutate shared global state and can be used concurrently when the receiver and dependencies are concurrently safe.
func (c *Client) Post(ctx context.Context, path string, body any) ([]byte, error) {
	return c.do(ctx, http.MethodPost, path, body)
}

// Put describes the put operation and its observable behavior.
//
// Put may return an error when input validation, dependency calls, or security checks fail.
// Put does not mutate shared global state and can be used concurrently when the receiver and dependencies are concurrently safe.
func (c *Client) Put(ctx context.Context, path string, body any) ([]byte, error) {
	return c.do(ctx, http.MethodPut, path, body)
}

// Delete describes the delete operation and its observable behavior.
//
// Delete may return an error when input validation, dependency calls, or security checks fail.
// Delete does not mutate shared global state and can be used concurrently when the receiver and dependencies are concurrently safe.
func (c *Client) Delete(ctx context.Context, path string) ([]byte, error) {
	return c.do(ctx, http.MethodDelete, path, nil)
}

func (c *Client) do(ctx context.Context, method, path string, body any) ([]byte, error) {
	var payload []byte
	if body != nil {
		var err error
		payload, err = json.Marshal(body)
		if err != nil {
			return nil, fmt.Errorf("encode request body: %w", err)
		}
	}

	for attempt := 0; ; attempt++ {
		status, respBody, err := c.send(ctx, method, path, payload)
		if err != nil {
			return nil, err
		}

		switch {
		case status < http.StatusMultipleChoices:
			return respBody, nil

		case status == http.StatusUnauthorized:
			if attempt == 0 && c.coord != nil {
				if err := c.coord.Refresh(ctx); err != nil {
					return nil, err
				}
				// Replay once; send reads the refreshed token from the
				// store on its way out.
				if c.onReplay != nil {
					c.onReplay()
				}
				continue
			}
			if c.coord != nil {
				// Already replayed with a fresh token and still rejected; do
				// not queue again. Tear the session down so the caller's
				// error and the manager's snapshot agree.
				return nil, c.coord.expire(ctx)
			}
			return nil, normalizeAPIError(status, respBody)

		default:
			return nil, normalizeAPIError(status, respBody)
		}
	}
}

// send executes one request. The access token is read from the credential
// store here, at send time, never earlier.
func (c *Client) send(ctx context.Context, method, path string, payload []byte) (int, []byte, error) {
	var reader io.Reader
	if payload != nil {
		reader = bytes.NewReader(payload)
	}

	req, err := http.NewRequestWithContext(ctx, method, c.baseURL+path, reader)
	if err != nil {
		return 0, nil, fmt.Errorf("build request: %w", err)
	}

	if payload != nil {
		req.Header.Set("Content-Type", "application/json")
	}
	req.Header.Set("Accept", "application/json")
	if c.userAgent != "" {
		req.Header.Set("User-Agent", c.userAgent)
	}
	if c.deviceHeader != "" && c.deviceID != "" {
		req.Header.Set(c.deviceHeader, c.deviceID)
	}
	if token, ok := c.store.Get(ctx, credential.KeyAccessToken); ok && token != "" {
		req.Header.Set("Authorization", "Bearer "+token)
	}

	resp, err := c.http.Do(req)
	if err != nil {
		if errors.Is(err, context.Canceled) {
			return 0, nil, err
		}
		return 0, nil, fmt.Errorf("%w: %v", ErrNetwork, err)
	}
	defer resp.Body.Close()

	respBody, err := io.ReadAll(io.LimitReader(resp.Body, maxResponseSize+1))
	if err != nil {
		return 0, nil, fmt.Errorf("%w: %v", ErrNetwork, err)
	}
	if int64(len(respBody)) > maxResponseSize {
		return 0, nil, fmt.Errorf("%w: response exceeds %d bytes", ErrNetwork, maxResponseSize)
	}

	return resp.StatusCode, respBody, nil
}
