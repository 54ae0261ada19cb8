package views

import (
	"context"
	"errors"
	"net/http"
	"net/http/httptest"
	"net/url"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/require"
	"github.com/upb/car-park/models"
	"github.com/upb/car-park/sdk"
	"go.uber.org/zap"
)

// MockProfileAPI is a mock implementation of ProfileAPI
type MockProfileAPI struct {
	mock.Mock
}

func (m *MockProfileAPI) Get(ctx context.Context, apiName, path string, out interface{}) error {
	args := m.Called(ctx, apiName, path, out)
	return args.Error(0)
}

func (m *MockProfileAPI) Post(ctx context.Context, apiName, path string, body, out interface{}) error {
	args := m.Called(ctx, apiName, path, body, out)
	return args.Error(0)
}

func (m *MockProfileAPI) Put(ctx context.Context, apiName, path string, body, out interface{}) error {
	args := m.Called(ctx, apiName, path, body, out)
	return args.Error(0)
}

func TestStaticPages(t *testing.T) {
	tests := []struct {
		name string
		view View
		want string
	}{
		{"home", NewHome("/"), "Car Park"},
		{"login", NewLogin("/", "/auth/login"), `href="/auth/login"`},
		{"register", NewRegister("/", "/auth/register"), `href="/auth/register"`},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			rec := httptest.NewRecorder()
			req := httptest.NewRequest(http.MethodGet, "/", nil)

			require.NoError(t, tt.view.Render(rec, req))

			assert.Equal(t, http.StatusOK, rec.Code)
			assert.Equal(t, "text/html; charset=utf-8", rec.Header().Get("Content-Type"))
			assert.Contains(t, rec.Body.String(), `<div id="app">`)
			assert.Contains(t, rec.Body.String(), tt.want)
		})
	}
}

func TestBasePathInLinks(t *testing.T) {
	rec := httptest.NewRecorder()
	require.NoError(t, NewHome("/park").Render(rec, httptest.NewRequest(http.MethodGet, "/park", nil)))

	assert.Contains(t, rec.Body.String(), `href="/park/profile"`)
}

func TestProfile_Render(t *testing.T) {
	t.Run("existing profile", func(t *testing.T) {
		api := new(MockProfileAPI)
		api.On("Get", mock.Anything, "carParkApi", "/profile", mock.Anything).
			Run(func(args mock.Arguments) {
				env := args.Get(3).(*profileEnvelope)
				env.Data = &models.Profile{Email: "driver@example.com", Name: "Jane", RegPlates: []string{"AB12CDE", "XY99ZZZ"}}
			}).Return(nil)

		rec := httptest.NewRecorder()
		err := NewProfile("/", api, "carParkApi", zap.NewNop()).Render(rec, httptest.NewRequest(http.MethodGet, "/profile", nil))

		require.NoError(t, err)
		body := rec.Body.String()
		assert.Contains(t, body, `value="Jane"`)
		assert.Contains(t, body, `value="AB12CDE, XY99ZZZ"`)
		assert.Contains(t, body, `name="exists" value="true"`)
	})

	t.Run("missing profile renders empty form", func(t *testing.T) {
		api := new(MockProfileAPI)
		api.On("Get", mock.Anything, "carParkApi", "/profile", mock.Anything).
			Return(&sdk.APIError{StatusCode: http.StatusNotFound})

		rec := httptest.NewRecorder()
		err := NewProfile("/", api, "carParkApi", zap.NewNop()).Render(rec, httptest.NewRequest(http.MethodGet, "/profile", nil))

		require.NoError(t, err)
		assert.Equal(t, http.StatusOK, rec.Code)
		assert.Contains(t, rec.Body.String(), `name="exists" value="false"`)
	})

	t.Run("api failure surfaces", func(t *testing.T) {
		api := new(MockProfileAPI)
		api.On("Get", mock.Anything, "carParkApi", "/profile", mock.Anything).Return(errors.New("connection refused"))

		rec := httptest.NewRecorder()
		err := NewProfile("/", api, "carParkApi", zap.NewNop()).Render(rec, httptest.NewRequest(http.MethodGet, "/profile", nil))

		assert.Error(t, err)
		assert.Empty(t, rec.Body.String())
	})
}

func TestProfile_Submit(t *testing.T) {
	form := func(exists string) *http.Request {
		values := url.Values{
			"exists":    {exists},
			"name":      {"Jane"},
			"regPlates": {"ab12cde, ,XY99ZZZ"},
		}
		req := httptest.NewRequest(http.MethodPost, "/profile", strings.NewReader(values.Encode()))
		req.Header.Set("Content-Type", "application/x-www-form-urlencoded")
		return req
	}
	wantBody := profileBody{Name: "Jane", RegPlates: []string{"ab12cde", "XY99ZZZ"}}

	t.Run("update", func(t *testing.T) {
		api := new(MockProfileAPI)
		api.On("Put", mock.Anything, "carParkApi", "/profile", wantBody, nil).Return(nil)

		rec := httptest.NewRecorder()
		require.NoError(t, NewProfile("/", api, "carParkApi", zap.NewNop()).Submit(rec, form("true")))

		assert.Equal(t, http.StatusSeeOther, rec.Code)
		assert.Equal(t, "/profile", rec.Header().Get("Location"))
		api.AssertExpectations(t)
	})

	t.Run("create", func(t *testing.T) {
		api := new(MockProfileAPI)
		api.On("Post", mock.Anything, "carParkApi", "/profile", wantBody, nil).Return(nil)

		rec := httptest.NewRecorder()
		require.NoError(t, NewProfile("/", api, "carParkApi", zap.NewNop()).Submit(rec, form("false")))

		api.AssertExpectations(t)
	})

	t.Run("validation failure re-renders form", func(t *testing.T) {
		api := new(MockProfileAPI)
		api.On("Put", mock.Anything, "carParkApi", "/profile", mock.Anything, nil).
			Return(&sdk.APIError{
				StatusCode: http.StatusBadRequest,
				Body:       []byte(`{"error":"validation_error","message":"Validation failed","details":{"regPlates[0]":"regPlates[0] must be a registration plate"}}`),
			})

		rec := httptest.NewRecorder()
		require.NoError(t, NewProfile("/", api, "carParkApi", zap.NewNop()).Submit(rec, form("true")))

		assert.Equal(t, http.StatusBadRequest, rec.Code)
		body := rec.Body.String()
		assert.Contains(t, body, "Validation failed")
		assert.Contains(t, body, "regPlates[0] must be a registration plate")
		assert.Contains(t, body, `value="Jane"`)
		assert.Contains(t, body, `value="ab12cde, XY99ZZZ"`)
		assert.Contains(t, body, `name="exists" value="true"`)
	})

	t.Run("bad request without a body", func(t *testing.T) {
		api := new(MockProfileAPI)
		api.On("Post", mock.Anything, "carParkApi", "/profile", mock.Anything, nil).
			Return(&sdk.APIError{StatusCode: http.StatusBadRequest})

		rec := httptest.NewRecorder()
		require.NoError(t, NewProfile("/", api, "carParkApi", zap.NewNop()).Submit(rec, form("false")))

		assert.Equal(t, http.StatusBadRequest, rec.Code)
		assert.Contains(t, rec.Body.String(), "The profile could not be saved.")
	})

	t.Run("api failure", func(t *testing.T) {
		api := new(MockProfileAPI)
		api.On("Put", mock.Anything, "carParkApi", "/profile", mock.Anything, nil).
			Return(&sdk.APIError{StatusCode: http.StatusBadGateway})

		err := NewProfile("/", api, "carParkApi", zap.NewNop()).Submit(httptest.NewRecorder(), form("true"))
		assert.Error(t, err)
	})
}

func TestSplitPlates(t *testing.T) {
	assert.Equal(t, []string{}, splitPlates(""))
	assert.Equal(t, []string{"AB12CDE", "XY99ZZZ"}, splitPlates(" AB12CDE ,XY99ZZZ,"))
}
