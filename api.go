package goSession

import (
	"context"
	"encoding/json"
	"fmt"

	"github.com/MrEthical07/goSession/transport"
)

type sendOTPRequest struct {
	Identity string `json:"identity"`
}

type sendOTPResponse struct {
	Message string `json:"message"`
}

type verifyOTPRequest struct {
	Identity string `json:"identity"`
	Code     string `json:"code"`
}

type providerLoginRequest struct {
	ProviderToken string `json:"providerToken"`
}

type refreshRequest struct {
	RefreshToken string `json:"refreshToken"`
}

type refreshResponse struct {
	AccessToken string `json:"accessToken"`
}

type revokeRequest struct {
	RefreshToken string `json:"refreshToken"`
}

// httpAuthProvider is the default AuthProvider. Every call goes through the
// bare client view: the authentication endpoints are the one place a 401 must
// not trigger the refresh path.
type httpAuthProvider struct {
	client *transport.Client
	paths  EndpointPaths
}

func newHTTPAuthProvider(client *transport.Client, paths EndpointPaths) *httpAuthProvider {
	return &httpAuthProvider{
		client: client.WithoutRefresh(),
		paths:  paths,
	}
}

func (p *httpAuthProvider) SendOTP(ctx context.Context, identity string) (string, error) {
	body, err := p.client.Post(ctx, p.paths.SendOTP, sendOTPRequest{Identity: identity})
	if err != nil {
		return "", err
	}

	var resp sendOTPResponse
	if err := json.Unmarshal(body, &resp); err != nil {
		return "", fmt.Errorf("decode send response: %w", err)
	}
	return resp.Message, nil
}

func (p *httpAuthProvider) VerifyOTP(ctx context.Context, identity, code string) (*LoginResult, error) {
	body, err := p.client.Post(ctx, p.paths.VerifyOTP, verifyOTPRequest{Identity: identity, Code: code})
	if err != nil {
		return nil, err
	}

	var res LoginResult
	if err := json.Unmarshal(body, &res); err != nil {
		return nil, fmt.Errorf("decode verify response: %w", err)
	}
	return &res, nil
}

func (p *httpAuthProvider) LoginWithProviderToken(ctx context.Context, providerToken string) (*LoginResult, error) {
	body, err := p.client.Post(ctx, p.paths.ProviderLogin, providerLoginRequest{ProviderToken: providerToken})
	if err != nil {
		return nil, err
	}

	var res LoginResult
	if err := json.Unmarshal(body, &res); err != nil {
		return nil, fmt.Errorf("decode login response: %w", err)
	}
	return &res, nil
}

func (p *httpAuthProvider) Refresh(ctx context.Context, refreshToken string) (string, error) {
	body, err := p.client.Post(ctx, p.paths.Refresh, refreshRequest{RefreshToken: refreshToken})
	if err != nil {
		return "", err
	}

	var resp refreshResponse
	if err := json.Unmarshal(body, &resp); err != nil {
		return "", fmt.Errorf("decode refresh response: %w", err)
	}
	return resp.AccessToken, nil
}

func (p *httpAuthProvider) Revoke(ctx context.Context, refreshToken string) error {
	_, err := p.client.Post(ctx, p.paths.Revoke, revokeRequest{RefreshToken: refreshToken})
	return err
}
