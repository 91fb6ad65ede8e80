package promptintent

import (
	"errors"
	"testing"
)

type stubEmbedder struct {
	vec []float32
	err error
}

func (s *stubEmbedder) Embed(text string) ([]float32, error) {
	return s.vec, s.err
}

func TestClassifier_SelectsArgmaxDotProduct(t *testing.T) {
	prompts := []Prompt{
		{ID: "rapport", Text: "nice to meet you"},
		{ID: "timeline-objection", Text: "the timeline is too tight"},
		{ID: "price-objection", Text: "that's too expensive"},
	}
	// Row i aligns to prompts[i]; construct so row 1 best matches the
	// query vector below.
	matrix := []float32{
		1, 0, 0,
		0, 1, 0,
		0, 0, 1,
	}
	c, err := New(&stubEmbedder{vec: []float32{0, 1, 0}}, prompts, 3, 3, matrix)
	if err != nil {
		t.Fatalf("unexpected error building classifier: %v", err)
	}

	id, score, err := c.Classify("that timeline is really tight for us")
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if id != "timeline-objection" {
		t.Fatalf("expected timeline-objection to win, got %q", id)
	}
	if score != 1 {
		t.Fatalf("expected dot product score 1, got %v", score)
	}
}

func TestClassifier_PropagatesEmbedderError(t *testing.T) {
	prompts := []Prompt{{ID: "a", Text: "x"}}
	c, err := New(&stubEmbedder{err: errors.New("embed down")}, prompts, 1, 2, []float32{1, 2})
	if err != nil {
		t.Fatalf("unexpected error building classifier: %v", err)
	}
	if _, _, err := c.Classify("anything"); err == nil {
		t.Fatal("expected embedder error to propagate")
	}
}

func TestClassifier_RejectsMismatchedMatrixDimensions(t *testing.T) {
	prompts := []Prompt{{ID: "a", Text: "x"}, {ID: "b", Text: "y"}}
	if _, err := New(&stubEmbedder{}, prompts, 3, 2, []float32{1, 2, 3, 4}); err == nil {
		t.Fatal("expected error when rows do not match len(prompts)")
	}
}

func TestClassifier_RejectsWrongEmbeddingDimension(t *testing.T) {
	prompts := []Prompt{{ID: "a", Text: "x"}}
	c, err := New(&stubEmbedder{vec: []float32{1, 2, 3}}, prompts, 1, 2, []float32{1, 2})
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if _, _, err := c.Classify("mismatched dims"); err == nil {
		t.Fatal("expected dimension mismatch error")
	}
}
