package scene

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/dixieflatline76/ProductScene/pkg/provider"
	"github.com/dixieflatline76/ProductScene/pkg/provider/providertest"
	"github.com/dixieflatline76/ProductScene/pkg/record"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/require"
)

func TestRender_PollsUntilDone(t *testing.T) {
	gen := new(providertest.MockVideoGenerator)
	gen.On("StartVideo", mock.Anything, testSource, "spin").Return(provider.VideoOperation{Name: "op"}, nil)
	gen.On("PollVideo", mock.Anything, "op").Return(provider.VideoOperation{Name: "op"}, nil).Twice()
	gen.On("PollVideo", mock.Anything, "op").Return(provider.VideoOperation{Name: "op", Done: true, VideoURI: "uri"}, nil).Once()
	gen.On("DownloadVideo", mock.Anything, "uri").Return([]byte("mp4"), "video/mp4", nil)

	v := NewVideoRenderer(gen, time.Millisecond, 5)
	got, err := v.Render(context.Background(), testSource, "spin")
	require.NoError(t, err)
	assert.Equal(t, []byte("mp4"), got.Data)
	assert.Equal(t, "video/mp4", got.MIMEType)
	gen.AssertNumberOfCalls(t, "PollVideo", 3)
}

func TestRender_TimesOutAfterMaxAttempts(t *testing.T) {
	gen := new(providertest.MockVideoGenerator)
	gen.On("StartVideo", mock.Anything, testSource, DefaultVideoPrompt).Return(provider.VideoOperation{Name: "op"}, nil)
	gen.On("PollVideo", mock.Anything, "op").Return(provider.VideoOperation{Name: "op"}, nil)

	v := NewVideoRenderer(gen, time.Millisecond, 3)
	_, err := v.Render(context.Background(), testSource, "")
	assert.ErrorIs(t, err, ErrVideoTimeout)
	gen.AssertNumberOfCalls(t, "PollVideo", 3)
	gen.AssertNotCalled(t, "DownloadVideo", mock.Anything, mock.Anything)
}

func TestRender_StartFailure(t *testing.T) {
	gen := new(providertest.MockVideoGenerator)
	boom := errors.New("quota")
	gen.On("StartVideo", mock.Anything, testSource, "spin").Return(provider.VideoOperation{}, boom)

	_, err := NewVideoRenderer(gen, time.Millisecond, 3).Render(context.Background(), testSource, "spin")
	assert.ErrorIs(t, err, boom)
}

func TestRender_Canceled(t *testing.T) {
	gen := new(providertest.MockVideoGenerator)
	gen.On("StartVideo", mock.Anything, testSource, "spin").Return(provider.VideoOperation{Name: "op"}, nil)

	ctx, cancel := context.WithCancel(context.Background())
	cancel()
	_, err := NewVideoRenderer(gen, time.Hour, 3).Render(ctx, testSource, "spin")
	assert.ErrorIs(t, err, context.Canceled)
}

func TestRender_Unavailable(t *testing.T) {
	var v *VideoRenderer
	_, err := v.Render(context.Background(), testSource, "")
	assert.ErrorIs(t, err, ErrVideoUnavailable)

	_, err = NewVideoRenderer(nil, 0, 0).Render(context.Background(), record.Image{}, "")
	assert.ErrorIs(t, err, ErrVideoUnavailable)
}
