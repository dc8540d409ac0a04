//go:build unit

package stub

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestUsersAfterDelay(t *testing.T) {
	h := Router(50 * time.Millisecond)

	start := time.Now()
	rec := httptest.NewRecorder()
	h.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/users", nil))

	assert.GreaterOrEqual(t, time.Since(start), 50*time.Millisecond)
	require.Equal(t, http.StatusOK, rec.Code)
	var got []User
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &got))
	assert.Len(t, got, 2)
}

func TestUsersStopsOnCancel(t *testing.T) {
	h := Router(time.Hour)
	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	rec := httptest.NewRecorder()
	h.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/users", nil).WithContext(ctx))
	assert.Empty(t, rec.Body.String())
}

func TestPosts(t *testing.T) {
	rec := httptest.NewRecorder()
	Router(0).ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/posts", nil))

	var got []Post
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &got))
	assert.Len(t, got, 3)
}

func TestEcho(t *testing.T) {
	req := httptest.NewRequest(http.MethodPost, "/get?a=1", strings.NewReader("payload"))
	req.Header.Set("X-Test", "yes")
	rec := httptest.NewRecorder()
	Router(0).ServeHTTP(rec, req)

	var got Echo
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &got))
	assert.Equal(t, http.MethodPost, got.Method)
	assert.Equal(t, []string{"1"}, got.Args["a"])
	assert.Equal(t, "yes", got.Headers["X-Test"])
	assert.Equal(t, "payload", got.Body)
}
