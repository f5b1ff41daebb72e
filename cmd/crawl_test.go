package cmd

import (
	"bytes"
	"context"
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"

	"github.com/JakeFAU/novel-crawler/internal/crawler"
)

// mockApp mocks the App interface.
type mockApp struct {
	mock.Mock
}

func (m *mockApp) Close() {
	m.Called()
}

func (m *mockApp) Logger() *zap.Logger {
	return zap.NewNop()
}

func (m *mockApp) Crawl(ctx context.Context, novelID string) (crawler.Stats, error) {
	args := m.Called(ctx, novelID)
	return args.Get(0).(crawler.Stats), args.Error(1)
}

func (m *mockApp) ServeMetrics(ctx context.Context) error {
	args := m.Called(ctx)
	return args.Error(0)
}

// withApp swaps the application factory for the duration of a test.
func withApp(t *testing.T, a App, factoryErr error) *string {
	t.Helper()
	original := newApp
	t.Cleanup(func() { newApp = original })
	var gotConfig string
	newApp = func(_ context.Context, cfgFile string) (App, error) {
		gotConfig = cfgFile
		if factoryErr != nil {
			return nil, factoryErr
		}
		return a, nil
	}
	return &gotConfig
}

func execute(args ...string) error {
	root := newRootCmd()
	root.SetArgs(args)
	root.SetOut(&bytes.Buffer{})
	root.SetErr(&bytes.Buffer{})
	return root.ExecuteContext(context.Background())
}

func TestCrawlCommand(t *testing.T) {
	a := &mockApp{}
	a.On("ServeMetrics", mock.Anything).Return(nil)
	a.On("Crawl", mock.Anything, "123").Return(crawler.Stats{Chapters: 2, Images: 3}, nil)
	a.On("Close").Return()
	cfgFile := withApp(t, a, nil)

	require.NoError(t, execute("crawl", "123", "--config", "novel.yaml"))
	assert.Equal(t, "novel.yaml", *cfgFile)
	a.AssertExpectations(t)
}

func TestCrawlCommandFailure(t *testing.T) {
	a := &mockApp{}
	a.On("ServeMetrics", mock.Anything).Return(nil)
	a.On("Crawl", mock.Anything, "123").Return(crawler.Stats{}, crawler.ErrChainStalled)
	withApp(t, a, nil)

	err := execute("crawl", "123")
	require.Error(t, err)
	assert.ErrorIs(t, err, crawler.ErrChainStalled)
	assert.Contains(t, err.Error(), "crawl novel 123")
}

func TestCrawlCommandRequiresOneNovel(t *testing.T) {
	withApp(t, &mockApp{}, nil)

	assert.Error(t, execute("crawl"))
	assert.Error(t, execute("crawl", "1", "2"))
}

func TestCrawlCommandInitFailure(t *testing.T) {
	withApp(t, nil, errors.New("bad config"))

	err := execute("crawl", "123")
	require.Error(t, err)
	assert.Contains(t, err.Error(), "bad config")
}

func TestResolveAppMissing(t *testing.T) {
	_, err := resolveApp(context.Background())
	assert.Error(t, err)
}
