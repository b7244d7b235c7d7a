// Package openrouter implements provider.SceneGenerator over an
// OpenAI-compatible chat completions endpoint that can return images.
package openrouter

import (
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"strings"

	"github.com/dixieflatline76/ProductScene/pkg/imageutil"
	"github.com/dixieflatline76/ProductScene/pkg/provider"
	"github.com/dixieflatline76/ProductScene/pkg/record"
	"github.com/dixieflatline76/ProductScene/util/log"
	openai "github.com/openai/openai-go"
	"github.com/openai/openai-go/option"
)

const inpaintInstruction = `The first image is a product photograph. The second image is a mask of the same size.
Remove everything covered by the white area of the mask and fill it in so it blends naturally with the surrounding scene.
Leave every pixel under the black area of the mask unchanged. Return only the edited image.`

const refineInstruction = `You write background descriptions for product photography.
Rewrite the following description so it is vivid, specific and suitable for a professional studio product photograph of the product shown.
Keep it to one or two sentences. Reply with the description only.

Description: %s`

const suggestInstruction = `You write background descriptions for product photography.
Look at the product in the image and propose %d distinct background scenes that would suit it.
Reply with a JSON array of strings and nothing else.`

// Options configures a Client.
type Options struct {
	APIKey     string
	BaseURL    string
	ImageModel string
	TextModel  string
	HTTPClient *http.Client
}

// Client talks to the chat completions endpoint.
type Client struct {
	client     openai.Client
	imageModel string
	textModel  string
}

var _ provider.SceneGenerator = (*Client)(nil)

// New builds a client. Requests are not retried.
func New(opts Options) (*Client, error) {
	if opts.APIKey == "" {
		return nil, fmt.Errorf("openrouter: %w", provider.ErrMissingAPIKey)
	}
	if opts.ImageModel == "" {
		return nil, fmt.Errorf("openrouter: image model is required")
	}
	if opts.TextModel == "" {
		opts.TextModel = opts.ImageModel
	}

	reqOpts := []option.RequestOption{
		option.WithAPIKey(opts.APIKey),
		option.WithMaxRetries(0),
	}
	if opts.BaseURL != "" {
		reqOpts = append(reqOpts, option.WithBaseURL(opts.BaseURL))
	}
	if opts.HTTPClient != nil {
		reqOpts = append(reqOpts, option.WithHTTPClient(opts.HTTPClient))
	}

	return &Client{
		client:     openai.NewClient(reqOpts...),
		imageModel: opts.ImageModel,
		textModel:  opts.TextModel,
	}, nil
}

// GenerateScene implements provider.SceneGenerator.
func (c *Client) GenerateScene(ctx context.Context, req provider.SceneRequest) (record.Image, error) {
	images := append([]record.Image{req.Source}, req.Extra...)
	params := openai.ChatCompletionNewParams{
		Model:       openai.ChatModel(c.imageModel),
		Messages:    []openai.ChatCompletionMessageParamUnion{userMessage(req.Prompt, images...)},
		Temperature: openai.Float(req.Sampling.Temperature),
		TopP:        openai.Float(req.Sampling.TopP),
	}
	reqOpts := []option.RequestOption{option.WithJSONSet("modalities", []string{"image", "text"})}
	if req.Sampling.TopK > 0 {
		reqOpts = append(reqOpts, option.WithJSONSet("top_k", req.Sampling.TopK))
	}

	resp, err := c.client.Chat.Completions.New(ctx, params, reqOpts...)
	if err != nil {
		return record.Image{}, fmt.Errorf("scene request: %w", err)
	}
	return firstImage(resp)
}

// Inpaint implements provider.SceneGenerator.
func (c *Client) Inpaint(ctx context.Context, img, mask record.Image) (record.Image, error) {
	params := openai.ChatCompletionNewParams{
		Model:    openai.ChatModel(c.imageModel),
		Messages: []openai.ChatCompletionMessageParamUnion{userMessage(inpaintInstruction, img, mask)},
	}
	resp, err := c.client.Chat.Completions.New(ctx, params,
		option.WithJSONSet("modalities", []string{"image", "text"}))
	if err != nil {
		return record.Image{}, fmt.Errorf("inpaint request: %w", err)
	}
	return firstImage(resp)
}

// RefinePrompt implements provider.SceneGenerator.
func (c *Client) RefinePrompt(ctx context.Context, source record.Image, description string) (string, error) {
	text, err := c.complete(ctx, fmt.Sprintf(refineInstruction, description), source)
	if err != nil {
		return "", fmt.Errorf("refine request: %w", err)
	}
	return strings.Trim(text, "\"' \n"), nil
}

// SuggestScenes implements provider.SceneGenerator.
func (c *Client) SuggestScenes(ctx context.Context, source record.Image, n int) ([]string, error) {
	text, err := c.complete(ctx, fmt.Sprintf(suggestInstruction, n), source)
	if err != nil {
		return nil, fmt.Errorf("suggest request: %w", err)
	}
	suggestions := parseSuggestions(text)
	if len(suggestions) == 0 {
		return nil, provider.ErrEmptyText
	}
	if len(suggestions) > n {
		suggestions = suggestions[:n]
	}
	return suggestions, nil
}

func (c *Client) complete(ctx context.Context, prompt string, source record.Image) (string, error) {
	resp, err := c.client.Chat.Completions.New(ctx, openai.ChatCompletionNewParams{
		Model:    openai.ChatModel(c.textModel),
		Messages: []openai.ChatCompletionMessageParamUnion{userMessage(prompt, source)},
	})
	if err != nil {
		return "", err
	}
	if len(resp.Choices) == 0 {
		return "", provider.ErrNoCandidates
	}
	text := strings.TrimSpace(resp.Choices[0].Message.Content)
	if text == "" {
		return "", provider.ErrEmptyText
	}
	return text, nil
}

func userMessage(text string, images ...record.Image) openai.ChatCompletionMessageParamUnion {
	parts := make([]openai.ChatCompletionContentPartUnionParam, 0, len(images)+1)
	for _, img := range images {
		if img.IsZero() {
			continue
		}
		parts = append(parts, openai.ImageContentPart(openai.ChatCompletionContentPartImageImageURLParam{
			URL: imageutil.EncodeDataURL(img),
		}))
	}
	parts = append(parts, openai.TextContentPart(text))
	return openai.UserMessage(parts)
}

// messageImages is the image extension some providers add to the assistant
// message.
type messageImages struct {
	Images []struct {
		ImageURL struct {
			URL string `json:"url"`
		} `json:"image_url"`
	} `json:"images"`
}

func firstImage(resp *openai.ChatCompletion) (record.Image, error) {
	if resp == nil || len(resp.Choices) == 0 {
		return record.Image{}, provider.ErrNoCandidates
	}
	msg := resp.Choices[0].Message

	var extra messageImages
	if raw := msg.RawJSON(); raw != "" {
		if err := json.Unmarshal([]byte(raw), &extra); err != nil {
			log.Debugf("OpenRouter: could not parse message images: %v", err)
		}
	}
	for _, im := range extra.Images {
		url := strings.TrimSpace(im.ImageURL.URL)
		if !strings.HasPrefix(url, "data:") {
			continue
		}
		img, err := imageutil.DecodeDataURL(url)
		if err != nil {
			return record.Image{}, fmt.Errorf("decoding image: %w", err)
		}
		return img, nil
	}

	// Some models inline the data URL in the text content.
	if i := strings.Index(msg.Content, "data:image/"); i >= 0 {
		url := msg.Content[i:]
		if j := strings.IndexAny(url, ")\"' \n"); j >= 0 {
			url = url[:j]
		}
		if img, err := imageutil.DecodeDataURL(url); err == nil {
			return img, nil
		}
	}
	return record.Image{}, provider.ErrNoImage
}

func parseSuggestions(text string) []string {
	text = strings.TrimSpace(text)
	text = strings.TrimPrefix(text, "```json")
	text = strings.TrimPrefix(text, "```")
	text = strings.TrimSuffix(text, "```")
	text = strings.TrimSpace(text)

	var list []string
	if err := json.Unmarshal([]byte(text), &list); err != nil {
		list = nil
		for _, line := range strings.Split(text, "\n") {
			line = strings.TrimSpace(strings.TrimLeft(strings.TrimSpace(line), "-*0123456789.)"))
			if line != "" {
				list = append(list, line)
			}
		}
	}

	out := list[:0]
	for _, s := range list {
		if s = strings.TrimSpace(s); s != "" {
			out = append(out, s)
		}
	}
	return out
}
