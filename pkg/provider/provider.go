// Package provider declares the remote generative collaborators the studio
// talks to. Adapters live in sub-packages.
package provider

import (
	"context"
	"errors"

	"github.com/dixieflatline76/ProductScene/pkg/record"
)

var (
	// ErrNoCandidates is returned when the model answers without any choice.
	ErrNoCandidates = errors.New("no candidates returned from AI")
	// ErrNoImage is returned when the answer carries no image.
	ErrNoImage = errors.New("no image data found in response")
	// ErrEmptyText is returned when a text answer is blank.
	ErrEmptyText = errors.New("empty text response")
	// ErrMissingAPIKey is returned by adapters constructed without a key.
	ErrMissingAPIKey = errors.New("api key missing")
	// ErrVideoFailed is returned when a video operation finishes with an error.
	ErrVideoFailed = errors.New("video generation failed")
)

// SamplingParams are the sampling knobs sent with every image request.
type SamplingParams struct {
	Temperature float64 `json:"temperature"`
	TopK        int     `json:"top_k"`
	TopP        float64 `json:"top_p"`
}

// SceneRequest asks for one composite of Source placed into the scene described
// by Prompt. Extra images, such as a brand logo, are attached after the source.
type SceneRequest struct {
	Source   record.Image
	Extra    []record.Image
	Prompt   string
	Sampling SamplingParams
}

// SceneGenerator produces and edits product scenes.
type SceneGenerator interface {
	// GenerateScene returns one composite image.
	GenerateScene(ctx context.Context, req SceneRequest) (record.Image, error)
	// RefinePrompt rewrites a background description for the given product.
	RefinePrompt(ctx context.Context, source record.Image, description string) (string, error)
	// SuggestScenes proposes up to n background descriptions for the product.
	SuggestScenes(ctx context.Context, source record.Image, n int) ([]string, error)
	// Inpaint regenerates the white area of mask in img.
	Inpaint(ctx context.Context, img, mask record.Image) (record.Image, error)
}

// VideoOperation is the state of a long-running video request.
type VideoOperation struct {
	Name     string `json:"name"`
	Done     bool   `json:"done"`
	VideoURI string `json:"video_uri,omitempty"`
}

// VideoGenerator animates a still image through a long-running operation.
type VideoGenerator interface {
	StartVideo(ctx context.Context, source record.Image, prompt string) (VideoOperation, error)
	PollVideo(ctx context.Context, name string) (VideoOperation, error)
	DownloadVideo(ctx context.Context, uri string) ([]byte, string, error)
}
