package worker

import (
	"context"
	"errors"
	"sync"

	"raffleworker/internal/blockchain"
	"raffleworker/internal/logger"

	"go.uber.org/zap"
)

var (
	// ErrCancelled is returned by Task.Wait once the task was cancelled, even if the build finished.
	ErrCancelled = errors.New("task cancelled")
	ErrClosed    = errors.New("worker closed")
)

// Fetcher builds the aggregate of one (oracle, user) pair.
type Fetcher interface {
	FetchBlockchainData(ctx context.Context, oracleAddress string, userAddress string) (*blockchain.BlockchainData, error)
}

// Worker runs builds off the caller's goroutine. Close terminates every task still running.
type Worker struct {
	fetcher Fetcher

	mu     sync.Mutex
	ctx    context.Context
	cancel context.CancelFunc
	closed bool
	wg     sync.WaitGroup
}

func NewWorker(fetcher Fetcher) *Worker {
	ctx, cancel := context.WithCancel(context.Background())

	return &Worker{
		fetcher: fetcher,
		ctx:     ctx,
		cancel:  cancel,
	}
}

// Task is one submitted build. Its result is delivered at most once and never after Cancel.
type Task struct {
	cancel context.CancelFunc
	done   chan struct{}

	mu        sync.Mutex
	cancelled bool
	data      *blockchain.BlockchainData
	err       error
}

// Submit starts a build. Cancelling ctx cancels the task.
func (w *Worker) Submit(ctx context.Context, oracleAddress string, userAddress string) *Task {
	taskCtx, cancel := context.WithCancel(ctx)
	task := &Task{
		cancel: cancel,
		done:   make(chan struct{}),
	}

	w.mu.Lock()
	if w.closed {
		w.mu.Unlock()
		cancel()
		task.finish(nil, ErrClosed)
		return task
	}
	w.wg.Add(1)
	stop := context.AfterFunc(w.ctx, task.Cancel)
	w.mu.Unlock()

	go func() {
		defer w.wg.Done()
		defer stop()
		defer cancel()

		logger.Debug("worker: task started",
			zap.String("oracle address", oracleAddress),
			zap.String("user address", userAddress),
		)

		data, err := w.fetcher.FetchBlockchainData(taskCtx, oracleAddress, userAddress)
		if err != nil && taskCtx.Err() != nil {
			task.markCancelled()
		}
		task.finish(data, err)

		logger.Debug("worker: task done", zap.String("user address", userAddress), zap.Error(err))
	}()

	return task
}

// Close cancels running tasks, waits for their goroutines and rejects further submissions.
func (w *Worker) Close() {
	w.mu.Lock()
	w.closed = true
	w.mu.Unlock()

	w.cancel()
	w.wg.Wait()
}

// Cancel stops the build. A cancelled task reports ErrCancelled from Wait.
func (t *Task) Cancel() {
	t.markCancelled()
	t.cancel()
}

func (t *Task) markCancelled() {
	t.mu.Lock()
	t.cancelled = true
	t.mu.Unlock()
}

// Done is closed when the build goroutine returned.
func (t *Task) Done() <-chan struct{} {
	return t.done
}

func (t *Task) finish(data *blockchain.BlockchainData, err error) {
	t.mu.Lock()
	t.data = data
	t.err = err
	t.mu.Unlock()

	close(t.done)
}

// Wait blocks until the task is done or ctx ends. Giving up on ctx does not cancel the task.
func (t *Task) Wait(ctx context.Context) (*blockchain.BlockchainData, error) {
	select {
	case <-ctx.Done():
		return nil, ctx.Err()
	case <-t.done:
	}

	t.mu.Lock()
	defer t.mu.Unlock()

	if t.cancelled {
		return nil, ErrCancelled
	}
	if t.err != nil {
		return nil, t.err
	}
	return t.data, nil
}
