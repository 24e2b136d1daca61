package ai

import (
	"iter"
	"strings"
)

// Chunk is one increment of streamed model output. Text may be empty for
// chunks that only carry metadata (e.g. the final usage report).
type Chunk struct {
	Text       string `json:"text,omitempty"`
	EventType  string `json:"event_type,omitempty"`  // Provider-native event kind
	ResponseID string `json:"response_id,omitempty"` // Provider response identifier, when known
	Usage      *Usage `json:"usage,omitempty"`
}

// ChunkStream wraps a streaming iterator of chunks.
//
// Callers must consume the stream, either by ranging over Iter() (breaking
// out early is fine) or by calling Collect(). The provider may hold an open
// HTTP response body that is only released when the iterator returns.
type ChunkStream struct {
	iterator iter.Seq2[Chunk, error]
}

// NewChunkStream creates a ChunkStream from a raw iterator. The iterator
// yields chunks with a nil error and may yield a single non-nil error to
// signal a mid-stream failure, after which it must stop.
func NewChunkStream(iterator iter.Seq2[Chunk, error]) *ChunkStream {
	return &ChunkStream{iterator: iterator}
}

// NewStaticStream returns a stream that yields the given text fragments and
// then, if err is non-nil, the error.
func NewStaticStream(fragments []string, err error) *ChunkStream {
	return NewChunkStream(func(yield func(Chunk, error) bool) {
		for _, fragment := range fragments {
			if !yield(Chunk{Text: fragment}, nil) {
				return
			}
		}
		if err != nil {
			yield(Chunk{}, err)
		}
	})
}

// Iter returns the underlying iterator for range-over-func loops.
//
//	for chunk, err := range stream.Iter() {
//	    if err != nil { handle error }
//	    fmt.Print(chunk.Text)
//	}
func (stream *ChunkStream) Iter() iter.Seq2[Chunk, error] {
	return stream.iterator
}

// Collect drains a chunk iterator and returns the concatenated text. A
// mid-stream error stops collection and is returned with the partial text.
func Collect(chunks iter.Seq2[Chunk, error]) (string, error) {
	var text strings.Builder
	for chunk, err := range chunks {
		if err != nil {
			return text.String(), err
		}
		text.WriteString(chunk.Text)
	}
	return text.String(), nil
}
