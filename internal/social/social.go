package social

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"time"
)

// Providers accepted for social login.
const (
	ProviderGoogle   = "google"
	ProviderFacebook = "facebook"
)

const (
	defaultGoogleUserInfoURL = "https://www.googleapis.com/oauth2/v3/userinfo"
	defaultFacebookMeURL     = "https://graph.facebook.com/me"
)

// Profile is the subset of a social account we care about. Email may be
// empty when the provider withholds it; callers must treat that as a failure.
type Profile struct {
	ProviderID string
	Name       string
	Email      string
	Avatar     string
}

// Client fetches social profiles by access token. The endpoint URLs are
// overridable for tests.
type Client struct {
	HTTP              *http.Client
	GoogleUserInfoURL string
	FacebookMeURL     string
}

func NewClient() *Client {
	return &Client{
		HTTP:              &http.Client{Timeout: 10 * time.Second},
		GoogleUserInfoURL: defaultGoogleUserInfoURL,
		FacebookMeURL:     defaultFacebookMeURL,
	}
}

// Fetch resolves the profile behind an access token for the given provider.
func (c *Client) Fetch(ctx context.Context, provider, accessToken string) (*Profile, error) {
	switch provider {
	case ProviderGoogle:
		return c.googleProfile(ctx, accessToken)
	case ProviderFacebook:
		return c.facebookProfile(ctx, accessToken)
	}
	return nil, fmt.Errorf("unsupported provider: %s", provider)
}

func (c *Client) googleProfile(ctx context.Context, accessToken string) (*Profile, error) {
	body, err := c.getJSON(ctx, c.GoogleUserInfoURL, url.Values{"access_token": {accessToken}})
	if err != nil {
		return nil, fmt.Errorf("invalid Google token")
	}

	var data struct {
		Sub     string `json:"sub"`
		Name    string `json:"name"`
		Email   string `json:"email"`
		Picture string `json:"picture"`
	}
	if err := json.Unmarshal(body, &data); err != nil {
		return nil, fmt.Errorf("invalid Google token")
	}

	return &Profile{
		ProviderID: data.Sub,
		Name:       data.Name,
		Email:      data.Email,
		Avatar:     data.Picture,
	}, nil
}

func (c *Client) facebookProfile(ctx context.Context, accessToken string) (*Profile, error) {
	body, err := c.getJSON(ctx, c.FacebookMeURL, url.Values{
		"fields":       {"id,name,email,picture"},
		"access_token": {accessToken},
	})
	if err != nil {
		return nil, fmt.Errorf("invalid Facebook token")
	}

	var data struct {
		ID      string `json:"id"`
		Name    string `json:"name"`
		Email   string `json:"email"`
		Picture struct {
			Data struct {
				URL string `json:"url"`
			} `json:"data"`
		} `json:"picture"`
	}
	if err := json.Unmarshal(body, &data); err != nil {
		return nil, fmt.Errorf("invalid Facebook token")
	}

	return &Profile{
		ProviderID: data.ID,
		Name:       data.Name,
		Email:      data.Email,
		Avatar:     data.Picture.Data.URL,
	}, nil
}

func (c *Client) getJSON(ctx context.Context, endpoint string, params url.Values) ([]byte, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, endpoint+"?"+params.Encode(), nil)
	if err != nil {
		return nil, err
	}
	req.Header.Set("Accept", "application/json")

	resp, err := c.HTTP.Do(req)
	if err != nil {
		return nil, err
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return nil, fmt.Errorf("unexpected status %d", resp.StatusCode)
	}

	const maxBody = 1 << 20
	return io.ReadAll(io.LimitReader(resp.Body, maxBody))
}
