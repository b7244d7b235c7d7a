package scene

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/dixieflatline76/ProductScene/pkg/provider"
	"github.com/dixieflatline76/ProductScene/pkg/record"
	"github.com/dixieflatline76/ProductScene/util/log"
	"golang.org/x/time/rate"
)

// ErrVideoTimeout is returned when a video operation is still running after
// the last allowed poll.
var ErrVideoTimeout = errors.New("video generation timed out")

// ErrVideoUnavailable is returned when no video generator is configured.
var ErrVideoUnavailable = errors.New("video generation is not configured")

// Video poll defaults.
const (
	DefaultPollInterval = 10 * time.Second
	DefaultMaxPolls     = 60
)

// Video is a rendered clip.
type Video struct {
	Data     []byte
	MIMEType string
}

// VideoRenderer drives one long-running video operation to completion.
type VideoRenderer struct {
	gen         provider.VideoGenerator
	interval    time.Duration
	maxAttempts int
}

// NewVideoRenderer returns a renderer polling every interval, at most
// maxAttempts times.
func NewVideoRenderer(gen provider.VideoGenerator, interval time.Duration, maxAttempts int) *VideoRenderer {
	if interval <= 0 {
		interval = DefaultPollInterval
	}
	if maxAttempts <= 0 {
		maxAttempts = DefaultMaxPolls
	}
	return &VideoRenderer{gen: gen, interval: interval, maxAttempts: maxAttempts}
}

// Render starts a video of source and waits for it.
func (v *VideoRenderer) Render(ctx context.Context, source record.Image, prompt string) (Video, error) {
	if v == nil || v.gen == nil {
		return Video{}, ErrVideoUnavailable
	}
	if source.IsZero() {
		return Video{}, ErrNoSource
	}
	if strings.TrimSpace(prompt) == "" {
		prompt = DefaultVideoPrompt
	}

	op, err := v.gen.StartVideo(ctx, source, prompt)
	if err != nil {
		return Video{}, fmt.Errorf("starting video: %w", err)
	}

	// The start request spends the only token, so every poll waits a full
	// interval.
	limiter := rate.NewLimiter(rate.Every(v.interval), 1)
	limiter.Allow()

	for attempt := 1; !op.Done; attempt++ {
		if attempt > v.maxAttempts {
			return Video{}, fmt.Errorf("%w: %s still running after %d polls", ErrVideoTimeout, op.Name, v.maxAttempts)
		}
		if err := limiter.Wait(ctx); err != nil {
			return Video{}, err
		}
		name := op.Name
		op, err = v.gen.PollVideo(ctx, name)
		if err != nil {
			return Video{}, fmt.Errorf("polling video %s: %w", name, err)
		}
		if op.Name == "" {
			op.Name = name
		}
		log.Debugf("VideoRenderer: poll %d/%d for %s done=%v", attempt, v.maxAttempts, name, op.Done)
	}

	data, mimeType, err := v.gen.DownloadVideo(ctx, op.VideoURI)
	if err != nil {
		return Video{}, fmt.Errorf("downloading video: %w", err)
	}
	if mimeType == "" {
		mimeType = "video/mp4"
	}
	return Video{Data: data, MIMEType: mimeType}, nil
}
