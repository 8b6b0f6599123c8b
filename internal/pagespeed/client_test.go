package pagespeed

import (
	"context"
	"net/http"
	"net/http/httptest"
	"net/url"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

const samplePayload = `{
  "id": "https://example.com/",
  "lighthouseResult": {
    "requestedUrl": "https://example.com",
    "finalUrl": "https://example.com/",
    "categories": {
      "performance": {"id": "performance", "title": "Performance", "score": 0.874},
      "accessibility": {"id": "accessibility", "title": "Accessibility", "score": 1},
      "best-practices": {"id": "best-practices", "title": "Best Practices", "score": 0.92},
      "seo": {"id": "seo", "title": "SEO", "score": null}
    },
    "audits": {
      "unused-javascript": {"id": "unused-javascript", "title": "Reduce unused JavaScript", "displayValue": "Est savings of 120 KiB", "score": 0.5},
      "viewport": {"id": "viewport", "title": "Has a viewport meta tag", "score": 1}
    }
  }
}`

func TestRequestURL(t *testing.T) {
	c := NewClient("secret", WithBaseURL("https://psi.test"))

	raw := c.RequestURL("https://example.com/a b?x=1", Desktop)

	u, err := url.Parse(raw)
	require.NoError(t, err)
	assert.Equal(t, "psi.test", u.Host)
	assert.Equal(t, runPath, u.Path)

	q := u.Query()
	assert.Equal(t, "https://example.com/a b?x=1", q.Get("url"))
	assert.Equal(t, "desktop", q.Get("strategy"))
	assert.Equal(t, []string{"performance", "accessibility", "best-practices", "seo"}, q["category"])
	assert.Equal(t, "secret", q.Get("key"))
}

func TestRequestURLWithoutKey(t *testing.T) {
	c := NewClient("")

	u, err := url.Parse(c.RequestURL("https://example.com", Mobile))
	require.NoError(t, err)
	_, hasKey := u.Query()["key"]
	assert.False(t, hasKey)
	assert.Equal(t, "www.googleapis.com", u.Host)
}

func TestRunSuccess(t *testing.T) {
	var gotStrategy string
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		gotStrategy = r.URL.Query().Get("strategy")
		w.Header().Set("Content-Type", "application/json")
		w.Write([]byte(samplePayload))
	}))
	defer server.Close()

	c := NewClient("", WithBaseURL(server.URL))
	report, err := c.Run(context.Background(), "https://example.com", Mobile)

	require.NoError(t, err)
	assert.Equal(t, "mobile", gotStrategy)
	assert.Equal(t, Mobile, report.Strategy)
	require.NotNil(t, report.Scores.Performance)
	assert.Equal(t, 87, *report.Scores.Performance)
	assert.Equal(t, 100, *report.Scores.Accessibility)
	assert.Equal(t, 92, *report.Scores.BestPractices)
	assert.Nil(t, report.Scores.SEO)
	assert.Equal(t, "Est savings of 120 KiB", report.Audits["unused-javascript"].DisplayValue)
	assert.Equal(t, int64(1), c.GetAPICallCount())
}

func TestRunServerError(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		http.Error(w, `{"error":{"code":500,"message":"Lighthouse returned error"}}`, http.StatusInternalServerError)
	}))
	defer server.Close()

	c := NewClient("", WithBaseURL(server.URL))
	report, err := c.Run(context.Background(), "https://example.com", Desktop)

	assert.Nil(t, report)
	assert.ErrorContains(t, err, "status 500")
}

func TestRunMalformedJSON(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Write([]byte(`{"lighthouseResult": `))
	}))
	defer server.Close()

	c := NewClient("", WithBaseURL(server.URL))
	report, err := c.Run(context.Background(), "https://example.com", Mobile)

	assert.Nil(t, report)
	assert.ErrorContains(t, err, "failed to decode response")
}

func TestRunMissingLighthouseResult(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Write([]byte(`{"id": "https://example.com/"}`))
	}))
	defer server.Close()

	c := NewClient("", WithBaseURL(server.URL))
	_, err := c.Run(context.Background(), "https://example.com", Mobile)

	assert.ErrorIs(t, err, ErrNoLighthouseResult)
}

func TestAPICallCounter(t *testing.T) {
	c := NewClient("")
	c.IncrementAPICall()
	c.IncrementAPICall()
	assert.Equal(t, int64(2), c.GetAPICallCount())

	c.ResetAPICallCount()
	assert.Equal(t, int64(0), c.GetAPICallCount())
}
