// Copyright (c) 2026 Zaffran Foods. All rights reserved.
// Author: platform@zaffran.shop

/*
Package apiclient is the Go client for the Zaffran Foods storefront API.

Its distinguishing feature is transparent token refresh: when a request comes
back 401, the client refreshes the token pair through a single-flight
[Coordinator] and replays the original request, so callers never see a 401
caused by an expired access token. Auth endpoints themselves (login, logout,
refresh) are exempt — a 401 from those is a real answer.

Tokens ride on the cookie jar: the server sets httpOnly accessToken and
refreshToken cookies, and every subsequent request carries them back.
*/
package apiclient

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"net/http/cookiejar"
	"strings"
	"time"
)

// DefaultMaxRefreshAttempts bounds consecutive failed refreshes before the
// client gives up and forces logout.
const DefaultMaxRefreshAttempts = 3

// maxRetriesPerRequest caps how often one request may be replayed after a
// refresh, independent of the coordinator's global budget.
const maxRetriesPerRequest = 1

// authPaths never trigger a transparent refresh: their 401s are answers, not
// expired-token symptoms.
var authPaths = []string{
	"/api/v1/users/login",
	"/api/v1/users/logout",
	"/api/v1/users/refresh-token",
}

// Options configures a [Client].
type Options struct {
	// BaseURL is the API origin, e.g. "https://zaffran.shop".
	BaseURL string

	// Timeout bounds each HTTP round trip. Zero means 15 seconds.
	Timeout time.Duration

	// MaxRefreshAttempts overrides DefaultMaxRefreshAttempts when positive.
	MaxRefreshAttempts int

	// OnForcedLogout fires when a refresh fails or the budget is exhausted,
	// after local auth state has been cleared. Optional.
	OnForcedLogout func()
}

// Client is an HTTP client for the storefront API with transparent token
// refresh.
type Client struct {
	baseURL     string
	httpClient  *http.Client
	coordinator *Coordinator
	onLogout    func()
}

// New constructs a [Client]. The error is only for an unusable cookie jar
// configuration, which does not happen with the default jar options.
func New(options Options) (*Client, error) {
	jar, err := cookiejar.New(nil)
	if err != nil {
		return nil, fmt.Errorf("apiclient: cookie jar: %w", err)
	}

	timeout := options.Timeout
	if timeout == 0 {
		timeout = 15 * time.Second
	}

	client := &Client{
		baseURL: strings.TrimRight(options.BaseURL, "/"),
		httpClient: &http.Client{
			Jar:     jar,
			Timeout: timeout,
		},
		onLogout: options.OnForcedLogout,
	}

	client.coordinator = NewCoordinator(
		options.MaxRefreshAttempts,
		client.callRefresh,
		client.clearAuthState,
	)

	return client, nil
}

// Coordinator exposes the refresh coordinator, mainly so applications can
// Reset it after an explicit re-login.
func (client *Client) Coordinator() *Coordinator {
	return client.coordinator
}

// # Request Execution

// Do sends a request and transparently refreshes tokens on 401.
//
// The body is buffered up front so the request can be replayed. A request is
// replayed at most once per refresh, and never for auth endpoints.
func (client *Client) Do(ctx context.Context, method, path string, body any) (*http.Response, error) {
	var payload []byte
	if body != nil {
		encoded, err := json.Marshal(body)
		if err != nil {
			return nil, fmt.Errorf("apiclient: encode body: %w", err)
		}
		payload = encoded
	}

	retries := 0
	for {
		response, err := client.send(ctx, method, path, payload)
		if err != nil {
			return nil, err
		}

		if response.StatusCode != http.StatusUnauthorized || isAuthPath(path) || retries >= maxRetriesPerRequest {
			return response, nil
		}

		// Expired access token, presumably. Join the shared refresh and
		// replay once with the refreshed cookies.
		response.Body.Close()
		if err := client.coordinator.Refresh(ctx); err != nil {
			return nil, fmt.Errorf("apiclient: token refresh: %w", err)
		}
		retries++
	}
}

func (client *Client) send(ctx context.Context, method, path string, payload []byte) (*http.Response, error) {
	var bodyReader *bytes.Reader
	if payload != nil {
		bodyReader = bytes.NewReader(payload)
	} else {
		bodyReader = bytes.NewReader(nil)
	}

	request, err := http.NewRequestWithContext(ctx, method, client.baseURL+path, bodyReader)
	if err != nil {
		return nil, fmt.Errorf("apiclient: build request: %w", err)
	}
	if payload != nil {
		request.Header.Set("Content-Type", "application/json")
	}

	return client.httpClient.Do(request)
}

func isAuthPath(path string) bool {
	for _, p := range authPaths {
		if path == p {
			return true
		}
	}
	return false
}

// # Refresh Plumbing

// callRefresh is the single network call the coordinator serializes. The
// refreshed cookies land in the jar as a side effect of the response.
func (client *Client) callRefresh(ctx context.Context) error {
	response, err := client.send(ctx, http.MethodPost, "/api/v1/users/refresh-token", nil)
	if err != nil {
		return err
	}
	defer response.Body.Close()

	if response.StatusCode != http.StatusOK {
		return fmt.Errorf("apiclient: refresh rejected with status %d", response.StatusCode)
	}

	return nil
}

// clearAuthState drops all cookies and notifies the application.
func (client *Client) clearAuthState() {
	if jar, err := cookiejar.New(nil); err == nil {
		client.httpClient.Jar = jar
	}
	if client.onLogout != nil {
		client.onLogout()
	}
}

// # Convenience Verbs

// Get issues a GET request.
func (client *Client) Get(ctx context.Context, path string) (*http.Response, error) {
	return client.Do(ctx, http.MethodGet, path, nil)
}

// Post issues a POST request with a JSON body.
func (client *Client) Post(ctx context.Context, path string, body any) (*http.Response, error) {
	return client.Do(ctx, http.MethodPost, path, body)
}

// Login authenticates and primes the cookie jar, then resets the refresh
// budget since the client now holds fresh credentials.
func (client *Client) Login(ctx context.Context, email, password, deviceInfo string) (*http.Response, error) {
	response, err := client.Post(ctx, "/api/v1/users/login", map[string]string{
		"email":       email,
		"password":    password,
		"device_info": deviceInfo,
	})
	if err == nil && response.StatusCode == http.StatusOK {
		client.coordinator.Reset()
	}
	return response, err
}

// Logout best-effort signs out and clears local auth state regardless of the
// server's answer.
func (client *Client) Logout(ctx context.Context) error {
	response, err := client.Post(ctx, "/api/v1/users/logout", nil)
	if response != nil {
		response.Body.Close()
	}
	client.clearAuthState()
	return err
}
