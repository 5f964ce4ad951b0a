package ledgerclient

import (
	"context"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestResolveUser(t *testing.T) {
	var gotPath, gotUsername, gotRef string
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		gotPath = r.URL.Path
		gotUsername = r.URL.Query().Get("username")
		gotRef = r.URL.Query().Get("ref_id")
		_, _ = w.Write([]byte(`{"user_id":42,"balance":500}`))
	}))
	t.Cleanup(srv.Close)

	ref := int64(7)
	balance, err := New(srv.URL).ResolveUser(context.Background(), 42, "ana maria", &ref)
	require.NoError(t, err)
	assert.Equal(t, int64(500), balance)
	assert.Equal(t, "/user/42", gotPath)
	assert.Equal(t, "ana maria", gotUsername)
	assert.Equal(t, "7", gotRef)
}

func TestResolveUserWithoutReferrer(t *testing.T) {
	var rawQuery string
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		rawQuery = r.URL.RawQuery
		_, _ = w.Write([]byte(`{"user_id":1,"balance":300}`))
	}))
	t.Cleanup(srv.Close)

	balance, err := New(srv.URL).ResolveUser(context.Background(), 1, "", nil)
	require.NoError(t, err)
	assert.Equal(t, int64(300), balance)
	assert.Empty(t, rawQuery)
}

func TestResolveUserErrors(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusInternalServerError)
		_, _ = w.Write([]byte(`{"status":"error","kind":"storage_failure","message":"internal error"}`))
	}))
	t.Cleanup(srv.Close)

	_, err := New(srv.URL).ResolveUser(context.Background(), 1, "x", nil)
	require.Error(t, err)
	assert.Contains(t, err.Error(), "http 500")
	assert.Contains(t, err.Error(), "storage_failure")

	bad := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		_, _ = w.Write([]byte(`not json`))
	}))
	t.Cleanup(bad.Close)
	_, err = New(bad.URL).ResolveUser(context.Background(), 1, "x", nil)
	assert.Error(t, err)
}
