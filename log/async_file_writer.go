// Copyright 2023 The go-ethereum Authors
// This file is part of the go-ethereum library.
//
// The go-ethereum library is free software: you can redistribute it and/or modify
// it under the terms of the GNU Lesser General Public License as published by
// the Free Software Foundation, either version 3 of the License, or
// (at your option) any later version.
//
// The go-ethereum library is distributed in the hope that it will be useful,
// but WITHOUT ANY WARRANTY; without even the implied warranty of
// MERCHANTABILITY or FITNESS FOR A PARTICULAR PURPOSE. See the
// GNU Lesser General Public License for more details.
//
// You should have received a copy of the GNU Lesser General Public License
// along with the go-ethereum library. If not, see <http://www.gnu.org/licenses/>.

package log

import (
	"bufio"
	"bytes"
	"os"
	"sync"
)

// AsyncFileWriter buffers log records in a channel and flushes them to a
// file from a single background goroutine, so a slow disk blocks the
// goroutine doing the logging only once the queue is full.
type AsyncFileWriter struct {
	path string

	queue chan []byte
	done  chan struct{}
	wg    sync.WaitGroup

	mu sync.Mutex
	w  *countingWriter
}

// NewAsyncFileWriter creates a writer targeting path, buffering up to
// queueSize pending records before Write starts blocking the caller.
func NewAsyncFileWriter(path string, queueSize int) *AsyncFileWriter {
	return &AsyncFileWriter{
		path:  path,
		queue: make(chan []byte, queueSize),
		done:  make(chan struct{}),
	}
}

// Start opens the target file and launches the flush goroutine.
func (w *AsyncFileWriter) Start() error {
	cw, err := prepFile(w.path)
	if err != nil {
		return err
	}
	w.mu.Lock()
	w.w = cw
	w.mu.Unlock()

	w.wg.Add(1)
	go w.loop()
	return nil
}

func (w *AsyncFileWriter) loop() {
	defer w.wg.Done()
	for {
		select {
		case b := <-w.queue:
			w.mu.Lock()
			if w.w != nil {
				w.w.Write(b)
			}
			w.mu.Unlock()
		case <-w.done:
			// Drain whatever is already queued before exiting.
			for {
				select {
				case b := <-w.queue:
					w.mu.Lock()
					if w.w != nil {
						w.w.Write(b)
					}
					w.mu.Unlock()
				default:
					return
				}
			}
		}
	}
}

// Write enqueues b for asynchronous flushing. It never returns an error:
// a full queue blocks the caller rather than silently dropping records.
func (w *AsyncFileWriter) Write(b []byte) (int, error) {
	cp := make([]byte, len(b))
	copy(cp, b)
	w.queue <- cp
	return len(b), nil
}

// Stop flushes remaining records, closes the file and stops the background
// goroutine.
func (w *AsyncFileWriter) Stop() error {
	close(w.done)
	w.wg.Wait()

	w.mu.Lock()
	defer w.mu.Unlock()
	if w.w == nil {
		return nil
	}
	if err := w.w.Flush(); err != nil {
		return err
	}
	return w.w.Close()
}

// countingWriter wraps a buffered file handle, recording the number of
// newlines the file held when prepFile opened it.
type countingWriter struct {
	*bufio.Writer
	f     *os.File
	count int
}

func (w *countingWriter) Close() error {
	if err := w.Flush(); err != nil {
		w.f.Close()
		return err
	}
	return w.f.Close()
}

// prepFile opens path for appending, counting existing newlines and
// ensuring the file ends in one before further writes are appended, so log
// records never get concatenated onto a partial line left by a prior run.
func prepFile(path string) (*countingWriter, error) {
	f, err := os.OpenFile(path, os.O_APPEND|os.O_CREATE|os.O_RDWR, 0644)
	if err != nil {
		return nil, err
	}

	count, endsInNewline, err := countLines(f)
	if err != nil {
		f.Close()
		return nil, err
	}
	fi, err := f.Stat()
	if err != nil {
		f.Close()
		return nil, err
	}
	if fi.Size() > 0 && !endsInNewline {
		if _, err := f.Write([]byte("\n")); err != nil {
			f.Close()
			return nil, err
		}
	}
	return &countingWriter{Writer: bufio.NewWriter(f), f: f, count: count}, nil
}

func countLines(f *os.File) (count int, endsInNewline bool, err error) {
	if _, err = f.Seek(0, 0); err != nil {
		return 0, false, err
	}
	r := bufio.NewReader(f)
	var last byte
	buf := make([]byte, 4096)
	for {
		n, rerr := r.Read(buf)
		if n > 0 {
			count += bytes.Count(buf[:n], []byte{'\n'})
			last = buf[n-1]
		}
		if rerr != nil {
			break
		}
	}
	if count > 0 {
		endsInNewline = last == '\n'
	}
	if _, err = f.Seek(0, 2); err != nil {
		return count, endsInNewline, err
	}
	return count, endsInNewline, nil
}
