package fetcher

import (
	"net/url"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func mustParse(t *testing.T, raw string) *url.URL {
	t.Helper()
	u, err := url.Parse(raw)
	require.NoError(t, err)
	return u
}

func TestForURL(t *testing.T) {
	f, err := ForURL("https://data.example.gov.ph/projects.csv", Options{MaxRetries: 5})
	require.NoError(t, err)
	h, ok := f.(*HTTPFetcher)
	require.True(t, ok)
	assert.Equal(t, 5, h.opts.MaxRetries)

	f, err = ForURL("HTTP://data.example.gov.ph/projects.csv", Options{})
	require.NoError(t, err)
	assert.IsType(t, &HTTPFetcher{}, f)

	f, err = ForURL("ftp://ftp.example.gov.ph/projects.csv", Options{})
	require.NoError(t, err)
	assert.IsType(t, &FTPFetcher{}, f)

	_, err = ForURL("s3://bucket/projects.csv", Options{})
	require.Error(t, err)
	assert.Contains(t, err.Error(), "unsupported scheme")

	_, err = ForURL("://bad", Options{})
	require.Error(t, err)
}
