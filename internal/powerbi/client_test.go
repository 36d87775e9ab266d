package powerbi_test

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"net/http/httptest"
	"sync"
	"testing"
	"time"

	"github.com/PowerBiDevCamp/DOTNET5-UserOwnsData-Tutorial/internal/powerbi"
	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"golang.org/x/oauth2"
)

var (
	testWorkspace = uuid.MustParse("912f2b34-7daa-4589-83df-35c75944d864")
	testReport    = uuid.MustParse("cd496c1c-8df0-48e7-8b92-e2932298743e")
)

const (
	reportPath = "/v1.0/myorg/groups/912f2b34-7daa-4589-83df-35c75944d864/reports/cd496c1c-8df0-48e7-8b92-e2932298743e"
	tokenPath  = reportPath + "/GenerateToken"
)

// fakeAPI is a minimal stand-in for the Power BI REST API.
type fakeAPI struct {
	mu       sync.Mutex
	calls    []string
	authz    []string
	tokenReq map[string]string
}

func (f *fakeAPI) handler(t *testing.T) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		f.mu.Lock()
		f.calls = append(f.calls, r.Method+" "+r.URL.Path)
		f.authz = append(f.authz, r.Header.Get("Authorization"))
		f.mu.Unlock()

		w.Header().Set("Content-Type", "application/json")
		switch {
		case r.Method == http.MethodGet && r.URL.Path == reportPath:
			_ = json.NewEncoder(w).Encode(map[string]string{
				"id":         testReport.String(),
				"name":       "Wingtip Sales",
				"reportType": "PowerBIReport",
				"embedUrl":   "https://app.powerbi.com/reportEmbed?reportId=" + testReport.String(),
			})
		case r.Method == http.MethodPost && r.URL.Path == tokenPath:
			var body map[string]string
			require.NoError(t, json.NewDecoder(r.Body).Decode(&body))
			f.mu.Lock()
			f.tokenReq = body
			f.mu.Unlock()
			_ = json.NewEncoder(w).Encode(map[string]string{
				"token":      "embed-token-123",
				"tokenId":    "5e3b2d6f-0000-0000-0000-000000000000",
				"expiration": "2030-01-02T03:04:05Z",
			})
		default:
			w.Header().Set("RequestId", "req-404")
			w.WriteHeader(http.StatusNotFound)
			_, _ = w.Write([]byte(`{"error":{"code":"PowerBIEntityNotFound","message":"Report not found"}}`))
		}
	})
}

func userContext() context.Context {
	ts := oauth2.StaticTokenSource(&oauth2.Token{
		AccessToken: "user-access-token",
		TokenType:   "Bearer",
		Expiry:      time.Date(2031, 1, 1, 0, 0, 0, 0, time.UTC),
	})
	return powerbi.WithTokenSource(context.Background(), ts)
}

func newClient(t *testing.T, url string, opts powerbi.Options) *powerbi.Client {
	t.Helper()
	opts.BaseURL = url
	client, err := powerbi.NewClient(opts)
	require.NoError(t, err)
	return client
}

func TestGetReport_EmbedToken(t *testing.T) {
	api := &fakeAPI{}
	srv := httptest.NewServer(api.handler(t))
	defer srv.Close()

	client := newClient(t, srv.URL, powerbi.Options{})

	vm, err := client.GetReport(userContext(), testWorkspace, testReport)
	require.NoError(t, err)

	assert.Equal(t, testReport.String(), vm.ID)
	assert.Equal(t, "Wingtip Sales", vm.Name)
	assert.Equal(t, "https://app.powerbi.com/reportEmbed?reportId="+testReport.String(), vm.EmbedURL)
	assert.Equal(t, "embed-token-123", vm.Token)
	assert.Equal(t, powerbi.TokenTypeEmbed, vm.TokenType)
	assert.Equal(t, time.Date(2030, 1, 2, 3, 4, 5, 0, time.UTC), vm.Expiration.UTC())
	assert.Equal(t, testWorkspace.String(), vm.WorkspaceID)

	assert.Equal(t, []string{"GET " + reportPath, "POST " + tokenPath}, api.calls)
	for _, h := range api.authz {
		assert.Equal(t, "Bearer user-access-token", h)
	}
	assert.Equal(t, map[string]string{"accessLevel": "View"}, api.tokenReq)
}

func TestGetReport_AadToken(t *testing.T) {
	api := &fakeAPI{}
	srv := httptest.NewServer(api.handler(t))
	defer srv.Close()

	client := newClient(t, srv.URL, powerbi.Options{TokenType: powerbi.TokenTypeAad})

	vm, err := client.GetReport(userContext(), testWorkspace, testReport)
	require.NoError(t, err)

	assert.Equal(t, "user-access-token", vm.Token)
	assert.Equal(t, powerbi.TokenTypeAad, vm.TokenType)
	assert.Equal(t, []string{"GET " + reportPath}, api.calls, "GenerateToken must not be called")
}

func TestGetReport_APIError(t *testing.T) {
	api := &fakeAPI{}
	srv := httptest.NewServer(api.handler(t))
	defer srv.Close()

	client := newClient(t, srv.URL, powerbi.Options{})

	_, err := client.GetReport(userContext(), testWorkspace, uuid.New())
	require.Error(t, err)

	assert.True(t, errors.Is(err, powerbi.ErrNotFound))
	assert.False(t, errors.Is(err, powerbi.ErrUnauthorized))

	apiErr, ok := powerbi.IsAPIError(err)
	require.True(t, ok)
	assert.Equal(t, http.StatusNotFound, apiErr.StatusCode)
	assert.Equal(t, "PowerBIEntityNotFound", apiErr.Code)
	assert.Equal(t, "req-404", apiErr.RequestID)
	assert.Contains(t, apiErr.Error(), "Report not found")
}

func TestGetReport_Unauthorized(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusForbidden)
	}))
	defer srv.Close()

	client := newClient(t, srv.URL, powerbi.Options{})

	_, err := client.GetReport(userContext(), testWorkspace, testReport)
	require.Error(t, err)
	assert.ErrorIs(t, err, powerbi.ErrUnauthorized)

	apiErr, ok := powerbi.IsAPIError(err)
	require.True(t, ok)
	assert.Equal(t, "Forbidden", apiErr.Message)
}

func TestGetReport_InvalidResponse(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		_, _ = w.Write([]byte(`{"id":"x","name":"No embed url"}`))
	}))
	defer srv.Close()

	client := newClient(t, srv.URL, powerbi.Options{})

	_, err := client.GetReport(userContext(), testWorkspace, testReport)
	assert.ErrorContains(t, err, "invalid get_report response")
}

func TestGetReport_TokenSources(t *testing.T) {
	api := &fakeAPI{}
	srv := httptest.NewServer(api.handler(t))
	defer srv.Close()

	t.Run("no token source", func(t *testing.T) {
		client := newClient(t, srv.URL, powerbi.Options{})

		_, err := client.GetReport(context.Background(), testWorkspace, testReport)
		assert.ErrorIs(t, err, powerbi.ErrNoTokenSource)
	})

	t.Run("falls back to the configured source", func(t *testing.T) {
		client := newClient(t, srv.URL, powerbi.Options{
			TokenType:   powerbi.TokenTypeAad,
			TokenSource: oauth2.StaticTokenSource(&oauth2.Token{AccessToken: "service-principal"}),
		})

		vm, err := client.GetReport(context.Background(), testWorkspace, testReport)
		require.NoError(t, err)
		assert.Equal(t, "service-principal", vm.Token)
	})
}

type memoryCache struct {
	reports map[string]*powerbi.Report
	sets    int
}

func (m *memoryCache) GetReport(_ context.Context, ws, id uuid.UUID) (*powerbi.Report, error) {
	return m.reports[ws.String()+id.String()], nil
}

func (m *memoryCache) SetReport(_ context.Context, ws uuid.UUID, r *powerbi.Report) error {
	m.sets++
	m.reports[ws.String()+r.ID] = r
	return nil
}

type recorder struct {
	ops []string
}

func (r *recorder) ObservePowerBI(operation string, status int, _ time.Duration) {
	r.ops = append(r.ops, operation)
}

func TestGetReport_Cache(t *testing.T) {
	api := &fakeAPI{}
	srv := httptest.NewServer(api.handler(t))
	defer srv.Close()

	cache := &memoryCache{reports: map[string]*powerbi.Report{}}
	rec := &recorder{}
	client := newClient(t, srv.URL, powerbi.Options{Cache: cache, Recorder: rec})

	_, err := client.GetReport(userContext(), testWorkspace, testReport)
	require.NoError(t, err)
	_, err = client.GetReport(userContext(), testWorkspace, testReport)
	require.NoError(t, err)

	assert.Equal(t, 1, cache.sets)
	assert.Equal(t, []string{"GET " + reportPath, "POST " + tokenPath, "POST " + tokenPath}, api.calls,
		"report metadata is served from the cache, tokens never are")
	assert.Equal(t, []string{"get_report", "generate_token", "generate_token"}, rec.ops)
}

func TestGetReport_AadBypassesCache(t *testing.T) {
	api := &fakeAPI{}
	srv := httptest.NewServer(api.handler(t))
	defer srv.Close()

	cache := &memoryCache{reports: map[string]*powerbi.Report{
		testWorkspace.String() + testReport.String(): {ID: testReport.String(), Name: "Stale", EmbedURL: "https://app.powerbi.com/stale"},
	}}
	client := newClient(t, srv.URL, powerbi.Options{TokenType: powerbi.TokenTypeAad, Cache: cache})

	vm, err := client.GetReport(userContext(), testWorkspace, testReport)
	require.NoError(t, err)
	_, err = client.GetReport(userContext(), testWorkspace, testReport)
	require.NoError(t, err)

	assert.Equal(t, "Wingtip Sales", vm.Name, "the user's own call decides what they see")
	assert.Equal(t, []string{"GET " + reportPath, "GET " + reportPath}, api.calls)
	assert.Zero(t, cache.sets)
}

func TestReport_MetadataOnly(t *testing.T) {
	api := &fakeAPI{}
	srv := httptest.NewServer(api.handler(t))
	defer srv.Close()

	client := newClient(t, srv.URL, powerbi.Options{})

	report, err := client.Report(userContext(), testWorkspace, testReport)
	require.NoError(t, err)
	assert.Equal(t, "Wingtip Sales", report.Name)
	assert.Equal(t, []string{"GET " + reportPath}, api.calls, "no embed token is generated")
}

func TestNewClient_Validation(t *testing.T) {
	_, err := powerbi.NewClient(powerbi.Options{BaseURL: "not a url"})
	assert.Error(t, err)

	_, err = powerbi.NewClient(powerbi.Options{TokenType: "Bearer"})
	assert.Error(t, err)
}
