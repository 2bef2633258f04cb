// Package llmtest provides a scripted llm.StreamClient for tests.
package llmtest

import (
	"context"
	"errors"
	"strings"
	"sync"

	"sam-chat-be/pkg/llm"
)

// Script describes one Stream call.
type Script struct {
	Chunks    []string
	Citations []llm.Citation
	Err       error // returned after all chunks were delivered

	// When Gate is set the stream stops before chunk PauseAfter, closes
	// Reached, and waits for Gate to close or ctx to be canceled.
	PauseAfter int
	Gate       chan struct{}
	Reached    chan struct{}

	// Stray is delivered after cancellation, like a frame already in flight.
	Stray string
}

// Reply scripts a successful stream.
func Reply(chunks ...string) Script {
	return Script{Chunks: chunks}
}

// Fail scripts a stream that errors after the given chunks.
func Fail(err error, chunks ...string) Script {
	return Script{Chunks: chunks, Err: err}
}

// Paused scripts a stream that blocks after `after` chunks until released or canceled.
func Paused(after int, chunks ...string) Script {
	return Script{
		Chunks:     chunks,
		PauseAfter: after,
		Gate:       make(chan struct{}),
		Reached:    make(chan struct{}),
	}
}

type Call struct {
	Request llm.StreamRequest
	Options llm.Options
}

var ErrNoScript = errors.New("llmtest: no scripted response left")

type FakeClient struct {
	mu      sync.Mutex
	scripts []Script
	calls   []Call

	Image    *llm.Attachment
	ImageErr error
	images   []llm.ImageRequest
}

var _ llm.StreamClient = &FakeClient{}

func NewFakeClient(scripts ...Script) *FakeClient {
	return &FakeClient{scripts: scripts}
}

// Push appends scripts consumed by later calls.
func (f *FakeClient) Push(scripts ...Script) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.scripts = append(f.scripts, scripts...)
}

func (f *FakeClient) Calls() []Call {
	f.mu.Lock()
	defer f.mu.Unlock()
	return append([]Call(nil), f.calls...)
}

func (f *FakeClient) ImageRequests() []llm.ImageRequest {
	f.mu.Lock()
	defer f.mu.Unlock()
	return append([]llm.ImageRequest(nil), f.images...)
}

func (f *FakeClient) Stream(ctx context.Context, req *llm.StreamRequest, onChunk func(string), opts ...llm.Option) (*llm.StreamResult, error) {
	f.mu.Lock()
	f.calls = append(f.calls, Call{Request: *req, Options: llm.ApplyOptions(llm.Options{}, opts...)})
	if len(f.scripts) == 0 {
		f.mu.Unlock()
		return nil, ErrNoScript
	}
	s := f.scripts[0]
	f.scripts = f.scripts[1:]
	f.mu.Unlock()

	var full strings.Builder
	for i := 0; i <= len(s.Chunks); i++ {
		if s.Gate != nil && i == s.PauseAfter {
			close(s.Reached)
			select {
			case <-s.Gate:
			case <-ctx.Done():
				if s.Stray != "" {
					onChunk(s.Stray)
				}
				return nil, ctx.Err()
			}
		}
		if err := ctx.Err(); err != nil {
			return nil, err
		}
		if i == len(s.Chunks) {
			break
		}
		full.WriteString(s.Chunks[i])
		onChunk(s.Chunks[i])
	}

	if s.Err != nil {
		return nil, s.Err
	}
	return &llm.StreamResult{Text: full.String(), Citations: s.Citations}, nil
}

func (f *FakeClient) GenerateImage(ctx context.Context, req *llm.ImageRequest) (*llm.Attachment, error) {
	f.mu.Lock()
	f.images = append(f.images, *req)
	img, err := f.Image, f.ImageErr
	f.mu.Unlock()

	if err := ctx.Err(); err != nil {
		return nil, err
	}
	if err != nil {
		return nil, err
	}
	if img == nil {
		return nil, ErrNoScript
	}
	return img, nil
}
