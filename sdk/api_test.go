package sdk

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/require"
	"github.com/upb/car-park/cognito"
	"github.com/upb/car-park/config"
	"go.uber.org/zap"
)

func newTestAPI(url string, inject HeaderInjector) *API {
	return NewAPI(config.APISDKConfig{
		Endpoints: []config.APIEndpoint{{Name: config.DefaultAPIName, Endpoint: url + "/api/v1/", Region: "eu-west-1"}},
	}, inject, zap.NewNop())
}

func TestAPI_Get(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, http.MethodGet, r.Method)
		assert.Equal(t, "/api/v1/profile", r.URL.Path)
		assert.Equal(t, "Bearer id-token", r.Header.Get("Authorization"))
		w.Header().Set("Content-Type", "application/json")
		_, _ = w.Write([]byte(`{"data":{"userId":"sub-1"}}`))
	}))
	defer server.Close()

	inject := func(ctx context.Context) (http.Header, error) {
		h := http.Header{}
		h.Set("Authorization", "Bearer id-token")
		return h, nil
	}

	var out struct {
		Data struct {
			UserID string `json:"userId"`
		} `json:"data"`
	}
	err := newTestAPI(server.URL, inject).Get(context.Background(), config.DefaultAPIName, "/profile", &out)

	require.NoError(t, err)
	assert.Equal(t, "sub-1", out.Data.UserID)
}

func TestAPI_PostAndPut(t *testing.T) {
	var methods []string
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		methods = append(methods, r.Method)
		assert.Equal(t, "application/json", r.Header.Get("Content-Type"))

		var body map[string]string
		require.NoError(t, json.NewDecoder(r.Body).Decode(&body))
		assert.Equal(t, "Jane", body["name"])
		w.WriteHeader(http.StatusNoContent)
	}))
	defer server.Close()

	api := newTestAPI(server.URL, nil)
	body := map[string]string{"name": "Jane"}

	require.NoError(t, api.Post(context.Background(), config.DefaultAPIName, "profile", body, nil))
	require.NoError(t, api.Put(context.Background(), config.DefaultAPIName, "profile", body, nil))
	assert.Equal(t, []string{http.MethodPost, http.MethodPut}, methods)
}

func TestAPI_Errors(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusNotFound)
		_, _ = w.Write([]byte(`{"error":"not_found","message":"User not found"}`))
	}))
	defer server.Close()

	api := newTestAPI(server.URL, nil)

	t.Run("unknown api", func(t *testing.T) {
		err := api.Get(context.Background(), "billing", "/profile", nil)
		assert.ErrorIs(t, err, ErrUnknownAPI)
	})

	t.Run("non 2xx", func(t *testing.T) {
		err := api.Get(context.Background(), config.DefaultAPIName, "/profile", nil)

		var apiErr *APIError
		require.True(t, errors.As(err, &apiErr))
		assert.Equal(t, http.StatusNotFound, apiErr.StatusCode)
		assert.Contains(t, string(apiErr.Body), "User not found")
		assert.True(t, IsStatus(err, http.StatusNotFound))
		assert.False(t, IsStatus(err, http.StatusBadRequest))
	})

	t.Run("injector failure", func(t *testing.T) {
		failing := newTestAPI(server.URL, func(ctx context.Context) (http.Header, error) {
			return nil, errors.New("boom")
		})
		err := failing.Get(context.Background(), config.DefaultAPIName, "/profile", nil)
		assert.ErrorContains(t, err, "inject headers")
	})
}

func TestBearerHeader(t *testing.T) {
	v := new(MockTokenValidator)
	v.On("ValidateToken", mock.Anything, "id-token").Return(&cognito.ParsedClaims{Sub: "sub-1", TokenUse: "id"}, nil)
	inject := BearerHeader(newTestAuth(v), zap.NewNop())

	t.Run("with session", func(t *testing.T) {
		header, err := inject(WithSessionToken(context.Background(), "id-token"))
		require.NoError(t, err)
		assert.Equal(t, "Bearer id-token", header.Get("Authorization"))
	})

	t.Run("without session yields empty header", func(t *testing.T) {
		header, err := inject(context.Background())
		require.NoError(t, err)
		assert.NotNil(t, header)
		assert.Empty(t, header)
	})
}
