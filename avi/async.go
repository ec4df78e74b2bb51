package avi

import (
	"context"

	"golang.org/x/sync/errgroup"
)

// Future is the result of a job submitted through WriteAsync: callers that
// need to know whether a specific write succeeded call Wait; callers that
// just want backpressure (bounded queue depth) can ignore it.
type Future struct {
	done chan struct{}
	err  error
}

func newFuture() *Future {
	return &Future{done: make(chan struct{})}
}

func (f *Future) resolve(err error) {
	f.err = err
	close(f.done)
}

// Wait blocks until the job this Future represents has run, and returns its
// error.
func (f *Future) Wait() error {
	<-f.done
	return f.err
}

// asyncQueue is a FIFO job queue with at most one job running at a time:
// golang.org/x/sync/errgroup's Group with SetLimit(1) makes submit block
// until the previously submitted job has finished, so jobs run one after
// another in submission order and an encoder that is not goroutine-safe is
// never called concurrently (§4.4.4, §9). Each job runs on its own
// goroutine, so jobs are not pinned to one goroutine or OS thread. A failed
// job does not stop later ones; drain reports the first error.
type asyncQueue struct {
	group errgroup.Group
}

func newAsyncQueue() *asyncQueue {
	q := &asyncQueue{}
	q.group.SetLimit(1)
	return q
}

// submit enqueues job, returning a Future the caller may Wait on.
func (q *asyncQueue) submit(job func() error) *Future {
	f := newFuture()
	q.group.Go(func() error {
		err := job()
		f.resolve(err)
		return err
	})
	return f
}

// drain waits for every submitted job to finish and returns the first error
// encountered, if any.
func (q *asyncQueue) drain() error {
	return q.group.Wait()
}

// AsyncVideoStream wraps an EncodingVideoStream so that the (possibly
// non-thread-safe) encode-and-write work of each frame runs in the
// background, one frame at a time in submission order. WriteAsync returns
// once the previously submitted frame has finished and its own frame has
// started; it does not wait for its own frame. Successive frames may run on
// different goroutines and OS threads.
type AsyncVideoStream struct {
	inner *EncodingVideoStream
	queue *asyncQueue
}

// NewAsyncVideoStream wraps an EncodingVideoStream for asynchronous writes.
func NewAsyncVideoStream(inner *EncodingVideoStream) *AsyncVideoStream {
	return &AsyncVideoStream{inner: inner, queue: newAsyncQueue()}
}

// Write blocks until the frame has actually been encoded and written.
func (a *AsyncVideoStream) Write(ctx context.Context, src []byte) error {
	return a.WriteAsync(src).Wait()
}

// WriteAsync copies src, waits until the previously submitted frame has
// finished, starts this frame in the background and returns its Future.
// The copy means the caller's buffer may be reused once WriteAsync returns.
func (a *AsyncVideoStream) WriteAsync(src []byte) *Future {
	owned := append([]byte(nil), src...)
	return a.queue.submit(func() error {
		return a.inner.WriteFrame(owned)
	})
}

// FinishWriting drains the queue, returning the first error encountered.
func (a *AsyncVideoStream) FinishWriting() error {
	return a.queue.drain()
}

// AsyncAudioStream is the audio counterpart of AsyncVideoStream.
type AsyncAudioStream struct {
	inner *EncodingAudioStream
	queue *asyncQueue
}

// NewAsyncAudioStream wraps an EncodingAudioStream for asynchronous writes.
func NewAsyncAudioStream(inner *EncodingAudioStream) *AsyncAudioStream {
	return &AsyncAudioStream{inner: inner, queue: newAsyncQueue()}
}

// Write blocks until the block has actually been encoded and written.
func (a *AsyncAudioStream) Write(ctx context.Context, src []byte) error {
	return a.WriteAsync(src).Wait()
}

// WriteAsync copies src and queues it the same way as
// AsyncVideoStream.WriteAsync.
func (a *AsyncAudioStream) WriteAsync(src []byte) *Future {
	owned := append([]byte(nil), src...)
	return a.queue.submit(func() error {
		return a.inner.WriteBlock(owned)
	})
}

// FinishWriting drains the queue.
func (a *AsyncAudioStream) FinishWriting() error {
	return a.queue.drain()
}
