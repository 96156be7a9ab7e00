package jobs

import (
	"context"
	"errors"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"
)

// MockJobProcessor is a mock implementation of JobProcessor
type MockJobProcessor struct {
	mock.Mock
}

func (m *MockJobProcessor) ProcessJobs(ctx context.Context) error {
	args := m.Called(ctx)
	return args.Error(0)
}

// MockMemoryCache is a mock implementation of MemoryCache
type MockMemoryCache struct {
	mock.Mock
}

func (m *MockMemoryCache) Sweep() int {
	args := m.Called()
	return args.Int(0)
}

// MockExpiredEntryStore is a mock implementation of ExpiredEntryStore
type MockExpiredEntryStore struct {
	mock.Mock
}

func (m *MockExpiredEntryStore) DeleteExpired(ctx context.Context, now time.Time) (int64, error) {
	args := m.Called(ctx, now)
	return args.Get(0).(int64), args.Error(1)
}

// TestWorker_StartStop tests the worker start and stop functionality
func TestWorker_StartStop(t *testing.T) {
	mockProcessor := new(MockJobProcessor)
	mockProcessor.On("ProcessJobs", mock.Anything).Return(nil)

	worker := NewWorker(mockProcessor, 100*time.Millisecond)

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	var wg sync.WaitGroup
	wg.Add(1)
	go func() {
		defer wg.Done()
		worker.Start(ctx)
	}()

	time.Sleep(250 * time.Millisecond)

	worker.Stop()
	wg.Wait()

	mockProcessor.AssertCalled(t, "ProcessJobs", mock.Anything)
}

// TestWorker_ContextCancellation tests worker stops on context cancellation
func TestWorker_ContextCancellation(t *testing.T) {
	mockProcessor := new(MockJobProcessor)
	mockProcessor.On("ProcessJobs", mock.Anything).Return(nil)

	worker := NewWorker(mockProcessor, 100*time.Millisecond)

	ctx, cancel := context.WithCancel(context.Background())

	var wg sync.WaitGroup
	wg.Add(1)
	go func() {
		defer wg.Done()
		worker.Start(ctx)
	}()

	time.Sleep(150 * time.Millisecond)

	cancel()
	wg.Wait()

	mockProcessor.AssertCalled(t, "ProcessJobs", mock.Anything)
}

// TestWorker_ProcessorErrorKeepsPolling tests that a failing processor does
// not kill the loop
func TestWorker_ProcessorErrorKeepsPolling(t *testing.T) {
	mockProcessor := new(MockJobProcessor)
	mockProcessor.On("ProcessJobs", mock.Anything).Return(errors.New("boom"))

	worker := NewWorker(mockProcessor, 50*time.Millisecond)

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	var wg sync.WaitGroup
	wg.Add(1)
	go func() {
		defer wg.Done()
		worker.Start(ctx)
	}()

	time.Sleep(180 * time.Millisecond)

	worker.Stop()
	wg.Wait()

	assert.GreaterOrEqual(t, len(mockProcessor.Calls), 2)
}

func TestCacheSweeper_SweepsMemoryAndStore(t *testing.T) {
	mockCache := new(MockMemoryCache)
	mockStore := new(MockExpiredEntryStore)

	mockCache.On("Sweep").Return(3)
	mockStore.On("DeleteExpired", mock.Anything, mock.Anything).Return(int64(5), nil)

	sweeper := NewCacheSweeper(mockCache, mockStore)
	err := sweeper.ProcessJobs(context.Background())

	assert.NoError(t, err)
	mockCache.AssertExpectations(t)
	mockStore.AssertExpectations(t)
}

func TestCacheSweeper_MemoryOnly(t *testing.T) {
	mockCache := new(MockMemoryCache)
	mockCache.On("Sweep").Return(0)

	sweeper := NewCacheSweeper(mockCache, nil)
	err := sweeper.ProcessJobs(context.Background())

	assert.NoError(t, err)
	mockCache.AssertExpectations(t)
}

func TestCacheSweeper_StoreError(t *testing.T) {
	mockCache := new(MockMemoryCache)
	mockStore := new(MockExpiredEntryStore)

	mockCache.On("Sweep").Return(1)
	mockStore.On("DeleteExpired", mock.Anything, mock.Anything).
		Return(int64(0), errors.New("database error"))

	sweeper := NewCacheSweeper(mockCache, mockStore)
	err := sweeper.ProcessJobs(context.Background())

	assert.Error(t, err)
	assert.Contains(t, err.Error(), "failed to purge expired cache entries")
}
