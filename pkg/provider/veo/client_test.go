package veo

import (
	"context"
	"encoding/json"
	"io"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/dixieflatline76/ProductScene/pkg/imageutil"
	"github.com/dixieflatline76/ProductScene/pkg/provider"
	"github.com/dixieflatline76/ProductScene/pkg/record"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestNewClient_RequiresKey(t *testing.T) {
	_, err := NewClient("http://x", "m", "", nil)
	assert.ErrorIs(t, err, provider.ErrMissingAPIKey)
}

func TestClient_Lifecycle(t *testing.T) {
	polls := 0
	var server *httptest.Server
	server = httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, "secret", r.Header.Get(apiKeyHeader))
		switch {
		case r.Method == http.MethodPost && r.URL.Path == "/models/veo-test:predictLongRunning":
			var req videoRequest
			body, _ := io.ReadAll(r.Body)
			assert.NoError(t, json.Unmarshal(body, &req))
			assert.Equal(t, "spin slowly", req.Instances[0].Prompt)
			assert.Equal(t, imageutil.MIMEPNG, req.Instances[0].Image.MimeType)
			_, _ = w.Write([]byte(`{"name":"operations/op-1"}`))
		case r.Method == http.MethodGet && r.URL.Path == "/operations/op-1":
			polls++
			if polls < 2 {
				_, _ = w.Write([]byte(`{"name":"operations/op-1","done":false}`))
				return
			}
			_, _ = w.Write([]byte(`{"name":"operations/op-1","done":true,"response":{"generateVideoResponse":{"generatedSamples":[{"video":{"uri":"` + server.URL + `/files/v.mp4"}}]}}}`))
		case r.URL.Path == "/files/v.mp4":
			w.Header().Set("Content-Type", "video/mp4")
			_, _ = w.Write([]byte("mp4-bytes"))
		default:
			http.NotFound(w, r)
		}
	}))
	defer server.Close()

	c, err := NewClient(server.URL+"/", "veo-test", "secret", server.Client())
	require.NoError(t, err)
	ctx := context.Background()
	src := record.Image{Data: []byte("img"), MIMEType: imageutil.MIMEPNG}

	op, err := c.StartVideo(ctx, src, "spin slowly")
	require.NoError(t, err)
	assert.Equal(t, "operations/op-1", op.Name)
	assert.False(t, op.Done)

	op, err = c.PollVideo(ctx, op.Name)
	require.NoError(t, err)
	assert.False(t, op.Done)

	op, err = c.PollVideo(ctx, op.Name)
	require.NoError(t, err)
	require.True(t, op.Done)
	assert.Equal(t, server.URL+"/files/v.mp4", op.VideoURI)

	data, contentType, err := c.DownloadVideo(ctx, op.VideoURI)
	require.NoError(t, err)
	assert.Equal(t, "mp4-bytes", string(data))
	assert.Equal(t, "video/mp4", contentType)
}

func TestClient_OperationError(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		_, _ = w.Write([]byte(`{"name":"operations/op-2","done":true,"error":{"code":3,"message":"blocked"}}`))
	}))
	defer server.Close()

	c, err := NewClient(server.URL, "veo-test", "secret", nil)
	require.NoError(t, err)

	_, err = c.PollVideo(context.Background(), "operations/op-2")
	assert.ErrorIs(t, err, provider.ErrVideoFailed)
	assert.Contains(t, err.Error(), "blocked")
}

func TestClient_HTTPError(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		http.Error(w, "quota", http.StatusTooManyRequests)
	}))
	defer server.Close()

	c, err := NewClient(server.URL, "veo-test", "secret", nil)
	require.NoError(t, err)

	_, err = c.StartVideo(context.Background(), record.Image{Data: []byte("x")}, "p")
	assert.ErrorContains(t, err, "429")
}
