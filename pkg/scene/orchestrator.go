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
	"golang.org/x/sync/errgroup"
	"golang.org/x/time/rate"
)

// DefaultVariations is the batch size used when none is configured.
const DefaultVariations = 3

var (
	// ErrNoSource is returned when a batch is requested without a source image.
	ErrNoSource = errors.New("no source image")
	// ErrEmptyPrompt is returned when a batch is requested without a description.
	ErrEmptyPrompt = errors.New("background description is empty")
)

// Options tunes an Orchestrator.
type Options struct {
	Variations int
	Sampling   provider.SamplingParams
	// RequestsPerSecond paces outbound calls. Zero disables pacing.
	RequestsPerSecond float64
}

// Request is one generation batch.
type Request struct {
	Source      record.Image
	Description string
	Brand       *record.BrandKit
}

// Orchestrator fans a batch out to the scene generator and joins the results.
type Orchestrator struct {
	gen        provider.SceneGenerator
	limiter    *rate.Limiter
	sampling   provider.SamplingParams
	variations int
	now        func() time.Time
}

// NewOrchestrator returns an orchestrator over gen.
func NewOrchestrator(gen provider.SceneGenerator, opts Options) *Orchestrator {
	if opts.Variations <= 0 {
		opts.Variations = DefaultVariations
	}
	limit := rate.Inf
	burst := opts.Variations
	if opts.RequestsPerSecond > 0 {
		limit = rate.Limit(opts.RequestsPerSecond)
	}
	return &Orchestrator{
		gen:        gen,
		limiter:    rate.NewLimiter(limit, burst),
		sampling:   opts.Sampling,
		variations: opts.Variations,
		now:        time.Now,
	}
}

// Variations returns the batch size.
func (o *Orchestrator) Variations() int {
	return o.variations
}

// Generate runs one batch. Every variation must succeed: the first failure
// cancels the rest and no record is returned.
func (o *Orchestrator) Generate(ctx context.Context, req Request) (record.Generation, error) {
	if req.Source.IsZero() {
		return record.Generation{}, ErrNoSource
	}
	description := strings.TrimSpace(req.Description)
	if description == "" {
		return record.Generation{}, ErrEmptyPrompt
	}

	prompt := BuildPrompt(description, req.Brand)
	extras := BrandExtras(req.Brand)
	n := o.variations
	results := make([]record.Image, n)

	log.Debugf("Orchestrator: starting batch of %d", n)
	start := o.now()

	g, gctx := errgroup.WithContext(ctx)
	for i := 0; i < n; i++ {
		g.Go(func() error {
			if err := o.limiter.Wait(gctx); err != nil {
				return err
			}
			img, err := o.gen.GenerateScene(gctx, provider.SceneRequest{
				Source:   req.Source,
				Extra:    extras,
				Prompt:   prompt + variationSuffix(i, n, o.now()),
				Sampling: o.sampling,
			})
			if err != nil {
				return fmt.Errorf("variation %d: %w", i+1, err)
			}
			if img.IsZero() {
				return fmt.Errorf("variation %d: %w", i+1, provider.ErrNoImage)
			}
			results[i] = img
			return nil
		})
	}
	if err := g.Wait(); err != nil {
		log.Printf("Orchestrator: batch failed after %v: %v", o.now().Sub(start), err)
		return record.Generation{}, fmt.Errorf("generating scene: %w", err)
	}

	log.Printf("Orchestrator: batch of %d completed in %v", n, o.now().Sub(start))
	return record.Generation{
		ID:            record.NewID(),
		Source:        req.Source,
		Results:       results,
		SelectedIndex: 0,
		Prompt:        description,
		CreatedAt:     o.now(),
	}, nil
}

// Refine asks the model to improve a description. Any failure returns the
// description unchanged.
func (o *Orchestrator) Refine(ctx context.Context, source record.Image, description string) string {
	description = strings.TrimSpace(description)
	if description == "" {
		return description
	}
	if err := o.limiter.Wait(ctx); err != nil {
		return description
	}
	refined, err := o.gen.RefinePrompt(ctx, source, description)
	if err != nil || strings.TrimSpace(refined) == "" {
		log.Printf("Orchestrator: refine failed, keeping prompt: %v", err)
		return description
	}
	return strings.TrimSpace(refined)
}

// Suggest asks the model for scene ideas. Any failure returns
// DefaultSuggestions.
func (o *Orchestrator) Suggest(ctx context.Context, source record.Image) []string {
	fallback := append([]string(nil), DefaultSuggestions...)
	if source.IsZero() {
		return fallback
	}
	if err := o.limiter.Wait(ctx); err != nil {
		return fallback
	}
	ideas, err := o.gen.SuggestScenes(ctx, source, len(DefaultSuggestions))
	if err != nil || len(ideas) == 0 {
		log.Printf("Orchestrator: suggestions failed, using defaults: %v", err)
		return fallback
	}
	return ideas
}

// Inpaint paces and forwards one inpainting call.
func (o *Orchestrator) Inpaint(ctx context.Context, img, mask record.Image) (record.Image, error) {
	if err := o.limiter.Wait(ctx); err != nil {
		return record.Image{}, err
	}
	out, err := o.gen.Inpaint(ctx, img, mask)
	if err != nil {
		return record.Image{}, fmt.Errorf("inpainting: %w", err)
	}
	if out.IsZero() {
		return record.Image{}, fmt.Errorf("inpainting: %w", provider.ErrNoImage)
	}
	return out, nil
}
