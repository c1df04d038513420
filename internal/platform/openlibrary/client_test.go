package openlibrary

import (
	"context"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestGetBookByISBN(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, "/api/books", r.URL.Path)
		assert.Equal(t, "libraryapi-test", r.Header.Get("User-Agent"))
		if r.URL.Query().Get("bibkeys") != "ISBN:9780134685991" {
			_, _ = w.Write([]byte(`{}`))
			return
		}
		_, _ = w.Write([]byte(`{"ISBN:9780134685991":{"title":"Effective Java","publishers":[{"name":"Addison-Wesley"}],"publish_date":"2018","authors":[{"name":"Joshua Bloch","url":"/authors/OL1A"}]}}`))
	}))
	defer srv.Close()

	c := NewClient("libraryapi-test", 100).WithBaseURL(srv.URL)

	t.Run("found", func(t *testing.T) {
		details, err := c.GetBookByISBN(context.Background(), "9780134685991")
		require.NoError(t, err)
		assert.Equal(t, "Effective Java", details.Title)
		assert.Equal(t, "Joshua Bloch", details.Authors[0].Name)
		assert.Equal(t, "Addison-Wesley", details.Publishers[0].Name)
	})

	t.Run("missing", func(t *testing.T) {
		_, err := c.GetBookByISBN(context.Background(), "0000000000")
		assert.ErrorIs(t, err, ErrNotFound)
	})
}

func TestGetBookByISBN_UpstreamError(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusServiceUnavailable)
	}))
	defer srv.Close()

	c := NewClient("ua", 100).WithBaseURL(srv.URL)
	_, err := c.GetBookByISBN(context.Background(), "9780134685991")
	require.Error(t, err)
	assert.Contains(t, err.Error(), "503")
}
