package workspace

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"image"
	"image/color"
	"image/png"
	"path/filepath"
	"strings"
	"testing"
	"time"

	"github.com/dixieflatline76/ProductScene/pkg/provider"
	"github.com/dixieflatline76/ProductScene/pkg/provider/providertest"
	"github.com/dixieflatline76/ProductScene/pkg/record"
	"github.com/dixieflatline76/ProductScene/pkg/scene"
	"github.com/dixieflatline76/ProductScene/pkg/store"
	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/require"
)

const testVariations = 3

type testEnv struct {
	ws    *Workspace
	gen   *providertest.MockSceneGenerator
	video *providertest.MockVideoGenerator
	store *store.FileStore
	media *store.MediaStore
	dir   string
}

func pngBytes(t *testing.T, w, h int, c color.Color) []byte {
	t.Helper()
	img := image.NewNRGBA(image.Rect(0, 0, w, h))
	for y := 0; y < h; y++ {
		for x := 0; x < w; x++ {
			img.Set(x, y, c)
		}
	}
	var buf bytes.Buffer
	require.NoError(t, png.Encode(&buf, img))
	return buf.Bytes()
}

func pngImage(t *testing.T, w, h int, c color.Color) record.Image {
	return record.Image{Data: pngBytes(t, w, h, c), MIMEType: "image/png"}
}

// resultFor returns the image the mock generator hands back for variation i.
func resultFor(t *testing.T, i int) record.Image {
	return pngImage(t, 64, 48, color.NRGBA{R: uint8(40 * i), G: 100, B: 200, A: 255})
}

func newTestEnv(t *testing.T, opts Options) *testEnv {
	t.Helper()
	dir := t.TempDir()
	fs, err := store.NewFileStore(filepath.Join(dir, "data"))
	require.NoError(t, err)
	media := store.NewMediaStore(filepath.Join(dir, "media"))
	require.NoError(t, media.EnsureDirs())

	gen := new(providertest.MockSceneGenerator)
	vg := new(providertest.MockVideoGenerator)
	orch := scene.NewOrchestrator(gen, scene.Options{Variations: testVariations})
	renderer := scene.NewVideoRenderer(vg, time.Millisecond, 5)

	if opts.CropQuietPeriod == 0 {
		opts.CropQuietPeriod = 10 * time.Millisecond
	}
	ws := New(fs, media, orch, renderer, opts)
	t.Cleanup(ws.Close)
	return &testEnv{ws: ws, gen: gen, video: vg, store: fs, media: media, dir: dir}
}

func newSyncEnv(t *testing.T) *testEnv {
	return newTestEnv(t, Options{SyncSave: true})
}

func variationMatcher(i int) interface{} {
	marker := fmt.Sprintf("Variation %d of %d", i, testVariations)
	return mock.MatchedBy(func(r provider.SceneRequest) bool {
		return strings.Contains(r.Prompt, marker)
	})
}

// expectBatch makes the next batch return resultFor(1..n).
func (e *testEnv) expectBatch(t *testing.T) {
	for i := 1; i <= testVariations; i++ {
		e.gen.On("GenerateScene", mock.Anything, variationMatcher(i)).Return(resultFor(t, i), nil).Once()
	}
}

func (e *testEnv) setSource(t *testing.T, w, h int) {
	t.Helper()
	require.NoError(t, e.ws.SetSource(context.Background(), pngBytes(t, w, h, color.NRGBA{R: 200, A: 255}), "image/png"))
}

// generate runs one successful batch over a fresh 200x100 source.
func (e *testEnv) generate(t *testing.T) record.Generation {
	t.Helper()
	e.setSource(t, 200, 100)
	e.ws.SetPrompt("luxury marble")
	e.expectBatch(t)
	g, err := e.ws.Generate(context.Background())
	require.NoError(t, err)
	return g
}

var errStoreDown = errors.New("store unavailable")

// failingStore fails every call.
type failingStore struct{}

func (failingStore) LoadHistory(context.Context) ([]record.Generation, error) {
	return nil, errStoreDown
}
func (failingStore) SaveHistory(context.Context, []record.Generation) error { return errStoreDown }
func (failingStore) LoadFavorites(context.Context) ([]record.Favorite, error) {
	return nil, errStoreDown
}
func (failingStore) SaveFavorites(context.Context, []record.Favorite) error { return errStoreDown }
func (failingStore) LoadBrandKit(context.Context) (*record.BrandKit, error) {
	return nil, errStoreDown
}
func (failingStore) SaveBrandKit(context.Context, record.BrandKit) error { return errStoreDown }
func (failingStore) Close() error                                       { return nil }
