package social

import (
	"context"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func testClient(googleURL, facebookURL string) *Client {
	c := NewClient()
	if googleURL != "" {
		c.GoogleUserInfoURL = googleURL
	}
	if facebookURL != "" {
		c.FacebookMeURL = facebookURL
	}
	return c
}

func TestFetch_Google(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, "tok-123", r.URL.Query().Get("access_token"))
		w.Header().Set("Content-Type", "application/json")
		w.Write([]byte(`{"sub":"g-1","name":"Ada","email":"ada@example.com","picture":"https://img/a.png"}`))
	}))
	defer srv.Close()

	profile, err := testClient(srv.URL, "").Fetch(context.Background(), ProviderGoogle, "tok-123")
	require.NoError(t, err)
	assert.Equal(t, "g-1", profile.ProviderID)
	assert.Equal(t, "Ada", profile.Name)
	assert.Equal(t, "ada@example.com", profile.Email)
	assert.Equal(t, "https://img/a.png", profile.Avatar)
}

func TestFetch_Facebook(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, "id,name,email,picture", r.URL.Query().Get("fields"))
		w.Header().Set("Content-Type", "application/json")
		w.Write([]byte(`{"id":"f-9","name":"Bob","email":"bob@example.com","picture":{"data":{"url":"https://img/b.png"}}}`))
	}))
	defer srv.Close()

	profile, err := testClient("", srv.URL).Fetch(context.Background(), ProviderFacebook, "tok-456")
	require.NoError(t, err)
	assert.Equal(t, "f-9", profile.ProviderID)
	assert.Equal(t, "https://img/b.png", profile.Avatar)
}

func TestFetch_RejectedToken(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusUnauthorized)
	}))
	defer srv.Close()

	_, err := testClient(srv.URL, "").Fetch(context.Background(), ProviderGoogle, "bad")
	require.Error(t, err)
	assert.Contains(t, err.Error(), "invalid Google token")
}

func TestFetch_UnsupportedProvider(t *testing.T) {
	_, err := NewClient().Fetch(context.Background(), "twitter", "tok")
	assert.Error(t, err)
}

func TestFetch_MissingEmailComesBackEmpty(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Write([]byte(`{"sub":"g-2","name":"NoMail"}`))
	}))
	defer srv.Close()

	profile, err := testClient(srv.URL, "").Fetch(context.Background(), ProviderGoogle, "tok")
	require.NoError(t, err)
	assert.Empty(t, profile.Email)
}
