package domain

import (
	"context"
	"errors"
	"testing"
)

// recordingEmbedder captures the texts it was asked to embed.
type recordingEmbedder struct {
	texts []string
	err   error
}

func (r *recordingEmbedder) Embed(_ context.Context, text string) (EmbeddingResult, error) {
	if r.err != nil {
		return EmbeddingResult{}, r.err
	}
	r.texts = append(r.texts, text)
	return EmbeddingResult{Embedding: []float32{0.1}, TotalTokens: 1}, nil
}

// recordingBatchEmbedder also supports the native batch call.
type recordingBatchEmbedder struct {
	recordingEmbedder
	batchTexts []string
}

func (r *recordingBatchEmbedder) BatchEmbed(_ context.Context, texts []string) (BatchEmbeddingResult, error) {
	r.batchTexts = append(r.batchTexts, texts...)
	embeddings := make([][]float32, len(texts))
	for i := range embeddings {
		embeddings[i] = []float32{0.1}
	}
	return BatchEmbeddingResult{Embeddings: embeddings}, nil
}

// failAtEmbedder fails on the n-th Embed call (0-based).
type failAtEmbedder struct {
	calls  int
	failAt int
}

func (f *failAtEmbedder) Embed(_ context.Context, _ string) (EmbeddingResult, error) {
	defer func() { f.calls++ }()
	if f.calls == f.failAt {
		return EmbeddingResult{}, errors.New("provider error")
	}
	return EmbeddingResult{Embedding: []float32{0.1}}, nil
}

func TestInstructionEmbedder_PrependsInstruction(t *testing.T) {
	inner := &recordingEmbedder{}
	emb := NewInstructionEmbedder(inner, "search_query: ")

	if _, err := emb.Embed(context.Background(), "exam schedule"); err != nil {
		t.Fatalf("Embed: %v", err)
	}
	if len(inner.texts) != 1 || inner.texts[0] != "search_query: exam schedule" {
		t.Errorf("embedded texts = %v", inner.texts)
	}
}

func TestInstructionEmbedder_ErrorPropagation(t *testing.T) {
	wantErr := errors.New("provider down")
	emb := NewInstructionEmbedder(&recordingEmbedder{err: wantErr}, "q: ")

	_, err := emb.Embed(context.Background(), "text")
	if !errors.Is(err, wantErr) {
		t.Fatalf("error = %v, want wrapped provider error", err)
	}
}

func TestInstructionEmbedder_BatchWithBatchInner(t *testing.T) {
	inner := &recordingBatchEmbedder{}
	emb := NewInstructionEmbedder(inner, "doc: ")

	res, err := emb.BatchEmbed(context.Background(), []string{"a", "b"})
	if err != nil {
		t.Fatalf("BatchEmbed: %v", err)
	}
	if len(res.Embeddings) != 2 {
		t.Fatalf("embeddings = %d, want 2", len(res.Embeddings))
	}
	if inner.batchTexts[0] != "doc: a" || inner.batchTexts[1] != "doc: b" {
		t.Errorf("batch texts = %v, instruction not prepended", inner.batchTexts)
	}
}

func TestInstructionEmbedder_BatchFallbackToSingle(t *testing.T) {
	inner := &recordingEmbedder{}
	emb := NewInstructionEmbedder(inner, "doc: ")

	res, err := emb.BatchEmbed(context.Background(), []string{"a", "b"})
	if err != nil {
		t.Fatalf("BatchEmbed: %v", err)
	}
	if len(res.Embeddings) != 2 {
		t.Fatalf("embeddings = %d, want 2", len(res.Embeddings))
	}
	if len(inner.texts) != 2 || inner.texts[0] != "doc: a" {
		t.Errorf("embedded texts = %v", inner.texts)
	}
}

func TestBatchFallback_ReportsFailingChunk(t *testing.T) {
	inner := &failAtEmbedder{failAt: 2}

	_, err := BatchFallback(context.Background(), inner, []string{"a", "b", "c", "d"})

	var pbf *PartialBatchFailureError
	if !errors.As(err, &pbf) {
		t.Fatalf("error = %v, want PartialBatchFailureError", err)
	}
	if pbf.ChunkIndex != 2 {
		t.Errorf("ChunkIndex = %d, want 2", pbf.ChunkIndex)
	}
}

func TestBatchFallback_AggregatesUsage(t *testing.T) {
	inner := &recordingEmbedder{}

	res, err := BatchFallback(context.Background(), inner, []string{"a", "b", "c"})
	if err != nil {
		t.Fatalf("BatchFallback: %v", err)
	}
	if len(res.Embeddings) != 3 {
		t.Errorf("embeddings = %d, want 3", len(res.Embeddings))
	}
	if res.TotalTokens != 3 {
		t.Errorf("TotalTokens = %d, want 3", res.TotalTokens)
	}
}
