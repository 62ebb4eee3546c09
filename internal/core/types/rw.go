package types

import (
	"context"
	"io"
)

type RWCallback func(n int64)
type RWOption func(*ReaderWriter)

func RWWithLimiter(limiter *RateLimiter) RWOption {
	return func(r *ReaderWriter) {
		r.limiter = limiter
	}
}

func RWWithIOReader(reader io.Reader) RWOption {
	return func(r *ReaderWriter) {
		r.reader = reader
	}
}

func RWWithIOWriter(writer io.Writer) RWOption {
	return func(r *ReaderWriter) {
		r.writer = writer
	}
}

func RWWithCallback(callback RWCallback) RWOption {
	return func(r *ReaderWriter) {
		r.callback = callback
	}
}

type ReaderFunc func(p []byte) (int, error)

func (f ReaderFunc) Read(p []byte) (int, error) { return f(p) }

type WriterFunc func(p []byte) (int, error)

func (f WriterFunc) Write(p []byte) (int, error) { return f(p) }

// ReaderWriter copies a reader into a writer with context cancellation,
// rate limiting and a progress callback.
//
// NOTE: The callback runs on the copy path so don't block in it.
type ReaderWriter struct {
	reader   io.Reader
	writer   io.Writer
	limiter  *RateLimiter
	callback RWCallback
}

// NewReaderWriter creates a new ReaderWriter.
func NewReaderWriter(opts ...RWOption) *ReaderWriter {
	rw := &ReaderWriter{
		limiter: UnlimitedRateLimiter(),
	}
	for _, opt := range opts {
		opt(rw)
	}
	return rw
}

// Transfer copies everything from the reader to the writer.
func (rw *ReaderWriter) Transfer(ctx context.Context) (int64, error) {
	return io.Copy(rw.Writer(ctx), rw.reader)
}

// Reader wraps the underlying reader with the limiter and callback.
func (rw *ReaderWriter) Reader(ctx context.Context) io.Reader {
	return ReaderFunc(func(p []byte) (int, error) {
		return rw.read(ctx, p)
	})
}

func (rw *ReaderWriter) read(ctx context.Context, p []byte) (int, error) {
	if err := rw.limiter.WaitBytes(ctx, len(p)); err != nil {
		return 0, err
	}
	n, err := rw.reader.Read(p)
	if n > 0 && rw.callback != nil {
		rw.callback(int64(n))
	}
	return n, err
}

// Writer wraps the underlying writer with the limiter and callback.
func (rw *ReaderWriter) Writer(ctx context.Context) io.Writer {
	return WriterFunc(func(p []byte) (int, error) {
		return rw.write(ctx, p)
	})
}

func (rw *ReaderWriter) write(ctx context.Context, p []byte) (int, error) {
	if err := rw.limiter.WaitBytes(ctx, len(p)); err != nil {
		return 0, err
	}
	n, err := rw.writer.Write(p)
	if n > 0 && rw.callback != nil {
		rw.callback(int64(n))
	}
	return n, err
}
