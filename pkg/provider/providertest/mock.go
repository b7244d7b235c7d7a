// Package providertest holds testify mocks of the provider interfaces.
package providertest

import (
	"context"

	"github.com/dixieflatline76/ProductScene/pkg/provider"
	"github.com/dixieflatline76/ProductScene/pkg/record"
	"github.com/stretchr/testify/mock"
)

// MockSceneGenerator implements provider.SceneGenerator for testing.
type MockSceneGenerator struct {
	mock.Mock
}

var _ provider.SceneGenerator = (*MockSceneGenerator)(nil)

func (m *MockSceneGenerator) GenerateScene(ctx context.Context, req provider.SceneRequest) (record.Image, error) {
	args := m.Called(ctx, req)
	return args.Get(0).(record.Image), args.Error(1)
}

func (m *MockSceneGenerator) RefinePrompt(ctx context.Context, source record.Image, description string) (string, error) {
	args := m.Called(ctx, source, description)
	return args.String(0), args.Error(1)
}

func (m *MockSceneGenerator) SuggestScenes(ctx context.Context, source record.Image, n int) ([]string, error) {
	args := m.Called(ctx, source, n)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).([]string), args.Error(1)
}

func (m *MockSceneGenerator) Inpaint(ctx context.Context, img, mask record.Image) (record.Image, error) {
	args := m.Called(ctx, img, mask)
	return args.Get(0).(record.Image), args.Error(1)
}

// MockVideoGenerator implements provider.VideoGenerator for testing.
type MockVideoGenerator struct {
	mock.Mock
}

var _ provider.VideoGenerator = (*MockVideoGenerator)(nil)

func (m *MockVideoGenerator) StartVideo(ctx context.Context, source record.Image, prompt string) (provider.VideoOperation, error) {
	args := m.Called(ctx, source, prompt)
	return args.Get(0).(provider.VideoOperation), args.Error(1)
}

func (m *MockVideoGenerator) PollVideo(ctx context.Context, name string) (provider.VideoOperation, error) {
	args := m.Called(ctx, name)
	return args.Get(0).(provider.VideoOperation), args.Error(1)
}

func (m *MockVideoGenerator) DownloadVideo(ctx context.Context, uri string) ([]byte, string, error) {
	args := m.Called(ctx, uri)
	if args.Get(0) == nil {
		return nil, args.String(1), args.Error(2)
	}
	return args.Get(0).([]byte), args.String(1), args.Error(2)
}
