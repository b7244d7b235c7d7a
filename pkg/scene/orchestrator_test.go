package scene

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"sync"
	"testing"

	"github.com/dixieflatline76/ProductScene/pkg/provider"
	"github.com/dixieflatline76/ProductScene/pkg/provider/providertest"
	"github.com/dixieflatline76/ProductScene/pkg/record"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/require"
)

var testSource = record.Image{Data: []byte("product"), MIMEType: "image/png"}

func variation(i, n int) interface{} {
	marker := fmt.Sprintf("Variation %d of %d", i, n)
	return mock.MatchedBy(func(r provider.SceneRequest) bool {
		return strings.Contains(r.Prompt, marker)
	})
}

func resultImage(i int) record.Image {
	return record.Image{Data: []byte{byte(i)}, MIMEType: "image/png"}
}

func TestGenerate_CollectsEveryVariation(t *testing.T) {
	gen := new(providertest.MockSceneGenerator)
	var mu sync.Mutex
	var prompts []string
	for i := 1; i <= 3; i++ {
		gen.On("GenerateScene", mock.Anything, variation(i, 3)).
			Run(func(args mock.Arguments) {
				mu.Lock()
				defer mu.Unlock()
				prompts = append(prompts, args.Get(1).(provider.SceneRequest).Prompt)
			}).
			Return(resultImage(i), nil).Once()
	}

	o := NewOrchestrator(gen, Options{Variations: 3, Sampling: provider.SamplingParams{Temperature: 0.4, TopK: 32, TopP: 0.95}})
	g, err := o.Generate(context.Background(), Request{Source: testSource, Description: "marble"})
	require.NoError(t, err)

	assert.NotEmpty(t, g.ID)
	assert.Equal(t, "marble", g.Prompt)
	assert.Equal(t, 0, g.SelectedIndex)
	assert.True(t, g.Source.Equal(testSource))
	require.Len(t, g.Results, 3)
	for i, img := range g.Results {
		assert.True(t, img.Equal(resultImage(i+1)), "result %d", i)
	}
	assert.False(t, g.CreatedAt.IsZero())

	require.Len(t, prompts, 3)
	assert.NotEqual(t, prompts[0], prompts[1])
	assert.NotEqual(t, prompts[1], prompts[2])
	gen.AssertExpectations(t)
}

func TestGenerate_SamplingAndBrandExtras(t *testing.T) {
	gen := new(providertest.MockSceneGenerator)
	logo := record.Image{Data: []byte("logo"), MIMEType: "image/png"}
	sampling := provider.SamplingParams{Temperature: 0.7, TopK: 16, TopP: 0.9}
	gen.On("GenerateScene", mock.Anything, mock.MatchedBy(func(r provider.SceneRequest) bool {
		return r.Sampling == sampling && len(r.Extra) == 1 && r.Extra[0].Equal(logo)
	})).Return(resultImage(1), nil)

	o := NewOrchestrator(gen, Options{Variations: 2, Sampling: sampling, RequestsPerSecond: 100})
	_, err := o.Generate(context.Background(), Request{
		Source:      testSource,
		Description: "desk",
		Brand:       &record.BrandKit{Enabled: true, Logo: &logo},
	})
	require.NoError(t, err)
	gen.AssertNumberOfCalls(t, "GenerateScene", 2)
}

func TestGenerate_OneFailureFailsTheBatch(t *testing.T) {
	gen := new(providertest.MockSceneGenerator)
	boom := errors.New("upstream 500")
	gen.On("GenerateScene", mock.Anything, variation(1, 3)).Return(resultImage(1), nil).Maybe()
	gen.On("GenerateScene", mock.Anything, variation(2, 3)).Return(record.Image{}, boom)
	gen.On("GenerateScene", mock.Anything, variation(3, 3)).Return(resultImage(3), nil).Maybe()

	o := NewOrchestrator(gen, Options{Variations: 3})
	g, err := o.Generate(context.Background(), Request{Source: testSource, Description: "marble"})

	assert.ErrorIs(t, err, boom)
	assert.Empty(t, g.ID)
	assert.Empty(t, g.Results)
}

func TestGenerate_EmptyImageFailsTheBatch(t *testing.T) {
	gen := new(providertest.MockSceneGenerator)
	gen.On("GenerateScene", mock.Anything, mock.Anything).Return(record.Image{}, nil)

	o := NewOrchestrator(gen, Options{Variations: 2})
	_, err := o.Generate(context.Background(), Request{Source: testSource, Description: "marble"})
	assert.ErrorIs(t, err, provider.ErrNoImage)
}

func TestGenerate_Validation(t *testing.T) {
	gen := new(providertest.MockSceneGenerator)
	o := NewOrchestrator(gen, Options{})

	_, err := o.Generate(context.Background(), Request{Description: "x"})
	assert.ErrorIs(t, err, ErrNoSource)

	_, err = o.Generate(context.Background(), Request{Source: testSource, Description: "  "})
	assert.ErrorIs(t, err, ErrEmptyPrompt)

	assert.Equal(t, DefaultVariations, o.Variations())
	gen.AssertNotCalled(t, "GenerateScene", mock.Anything, mock.Anything)
}

func TestRefine(t *testing.T) {
	ctx := context.Background()

	gen := new(providertest.MockSceneGenerator)
	gen.On("RefinePrompt", mock.Anything, testSource, "desk").Return("A walnut desk by a window", nil)
	o := NewOrchestrator(gen, Options{})
	assert.Equal(t, "A walnut desk by a window", o.Refine(ctx, testSource, " desk "))

	failing := new(providertest.MockSceneGenerator)
	failing.On("RefinePrompt", mock.Anything, testSource, "desk").Return("", errors.New("down"))
	o = NewOrchestrator(failing, Options{})
	assert.Equal(t, "desk", o.Refine(ctx, testSource, "desk"))
}

func TestSuggest(t *testing.T) {
	ctx := context.Background()

	gen := new(providertest.MockSceneGenerator)
	gen.On("SuggestScenes", mock.Anything, testSource, len(DefaultSuggestions)).Return([]string{"Beach"}, nil)
	assert.Equal(t, []string{"Beach"}, NewOrchestrator(gen, Options{}).Suggest(ctx, testSource))

	failing := new(providertest.MockSceneGenerator)
	failing.On("SuggestScenes", mock.Anything, testSource, len(DefaultSuggestions)).Return(nil, errors.New("down"))
	assert.Equal(t, DefaultSuggestions, NewOrchestrator(failing, Options{}).Suggest(ctx, testSource))

	assert.Equal(t, DefaultSuggestions, NewOrchestrator(failing, Options{}).Suggest(ctx, record.Image{}))
}

func TestInpaint(t *testing.T) {
	mask := record.Image{Data: []byte("mask"), MIMEType: "image/png"}
	gen := new(providertest.MockSceneGenerator)
	gen.On("Inpaint", mock.Anything, testSource, mask).Return(resultImage(7), nil).Once()
	gen.On("Inpaint", mock.Anything, resultImage(1), mask).Return(record.Image{}, errors.New("blocked")).Once()

	o := NewOrchestrator(gen, Options{})
	out, err := o.Inpaint(context.Background(), testSource, mask)
	require.NoError(t, err)
	assert.True(t, out.Equal(resultImage(7)))

	_, err = o.Inpaint(context.Background(), resultImage(1), mask)
	assert.ErrorContains(t, err, "blocked")
}
