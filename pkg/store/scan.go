package store

import (
	"context"
	"errors"
	"fmt"
	"io"
	"iter"
	"sync"
	"sync/atomic"

	"github.com/ssargent/lunadb/pkg/codec"
)

// chunk is one read of the data file handed from producer to consumer.
type chunk struct {
	buf    []byte
	offset int64
	err    error
}

// producer reads the data file front to back into a bounded channel.
type producer struct {
	file      io.ReaderAt
	chunkSize int
	out       chan chunk
	free      chan []byte
}

func newProducer(file io.ReaderAt, chunkSize, depth int) *producer {
	return &producer{
		file:      file,
		chunkSize: chunkSize,
		out:       make(chan chunk, depth),
		free:      make(chan []byte, depth+1),
	}
}

// run closes out once the file is exhausted, a read fails or ctx is done.
func (p *producer) run(ctx context.Context) {
	defer close(p.out)

	var offset int64
	for {
		buf := p.buffer()
		n, err := p.file.ReadAt(buf, offset)
		if n > 0 {
			if !p.send(ctx, chunk{buf: buf[:n], offset: offset}) {
				return
			}
			offset += int64(n)
		}

		switch {
		case errors.Is(err, io.EOF):
			return
		case err != nil:
			p.send(ctx, chunk{offset: offset, err: err})
			return
		case n == 0:
			return
		}
	}
}

func (p *producer) send(ctx context.Context, c chunk) bool {
	select {
	case p.out <- c:
		return true
	case <-ctx.Done():
		return false
	}
}

func (p *producer) buffer() []byte {
	select {
	case buf := <-p.free:
		return buf[:p.chunkSize]
	default:
		return make([]byte, p.chunkSize)
	}
}

func (p *producer) recycle(buf []byte) {
	select {
	case p.free <- buf:
	default:
	}
}

// Scan streams every record of the data file in file order, tombstoned
// records included. The sequence is single-use and bypasses the index.
//
// Only one scan runs per store at a time; a concurrent scan yields
// ErrScanInProgress. Stopping the loop early or cancelling ctx stops the
// background reader before the loop returns.
func (s *Store) Scan(ctx context.Context) iter.Seq2[codec.Document, error] {
	var used atomic.Bool
	return func(yield func(codec.Document, error) bool) {
		if !used.CompareAndSwap(false, true) {
			yield(codec.Document{}, ErrScanConsumed)
			return
		}
		if s.closed.Load() {
			yield(codec.Document{}, ErrClosed)
			return
		}
		if !s.scanning.CompareAndSwap(false, true) {
			yield(codec.Document{}, ErrScanInProgress)
			return
		}
		defer s.scanning.Store(false)

		ctx, cancel := context.WithCancel(ctx)
		p := newProducer(s.data.file, s.config.ScanChunkSize, s.config.ScanBufferDepth)

		var wg sync.WaitGroup
		wg.Add(1)
		go func() {
			defer wg.Done()
			p.run(ctx)
		}()
		defer func() {
			cancel()
			wg.Wait()
		}()

		count := s.consume(ctx, p, yield)
		s.logger.Debug("scan finished", "documents", count)
	}
}

// ScanLive is Scan without tombstoned records.
func (s *Store) ScanLive(ctx context.Context) iter.Seq2[codec.Document, error] {
	all := s.Scan(ctx)
	return func(yield func(codec.Document, error) bool) {
		for doc, err := range all {
			if err == nil && doc.Deleted() {
				continue
			}
			if !yield(doc, err) {
				return
			}
		}
	}
}

func (s *Store) consume(ctx context.Context, p *producer, yield func(codec.Document, error) bool) int {
	var asm Assembler
	count := 0

	for {
		if err := ctx.Err(); err != nil {
			yield(codec.Document{}, err)
			return count
		}

		var c chunk
		var ok bool
		select {
		case <-ctx.Done():
			yield(codec.Document{}, ctx.Err())
			return count
		case c, ok = <-p.out:
		}

		if !ok {
			if err := asm.Finish(); err != nil {
				yield(codec.Document{}, err)
			}
			return count
		}
		if c.err != nil {
			yield(codec.Document{}, fmt.Errorf("scan read at offset %d: %w", c.offset, c.err))
			return count
		}

		asm.Write(c.buf)
		p.recycle(c.buf)

		for {
			doc, err := asm.Next()
			if errors.Is(err, codec.ErrIncomplete) {
				break
			}
			if err != nil {
				yield(codec.Document{}, err)
				return count
			}
			count++
			if !yield(doc, nil) {
				return count
			}
		}
	}
}
