// Package promptintent implements IntentClassifier by embedding the
// transcribed utterance and scoring it against a pre-computed matrix of
// prompt embeddings via dot product, selecting the argmax. The embedder
// abstraction mirrors glyphoxa's embeddings.Provider interface.
package promptintent

import (
	"encoding/json"
	"fmt"
	"os"
	"strconv"
)

// Embedder maps a text string to a dense embedding vector. Any backend
// can implement this -- a local model server, a hosted API, or a test
// double -- as long as every vector it returns shares the dimensionality
// of the pre-computed prompt matrix.
type Embedder interface {
	Embed(text string) ([]float32, error)
}

// Prompt is one row of the pre-computed prompt table: a stable ID paired
// with the canonical phrasing its embedding was computed from.
type Prompt struct {
	ID   string `json:"id"`
	Text string `json:"text"`
}

// Classifier scores an utterance against a fixed prompt embedding matrix.
type Classifier struct {
	embedder Embedder
	prompts  []Prompt
	dim      int
	matrix   []float32 // rows * dim, row-major, row i corresponds to prompts[i]
}

// New builds a Classifier from an in-memory prompt table and embedding
// matrix. rows must equal len(prompts).
func New(embedder Embedder, prompts []Prompt, rows, dim int, matrix []float32) (*Classifier, error) {
	if rows != len(prompts) {
		return nil, fmt.Errorf("promptintent: embedding matrix has %d rows but %d prompts", rows, len(prompts))
	}
	if len(matrix) != rows*dim {
		return nil, fmt.Errorf("promptintent: embedding matrix size %d does not match %d x %d", len(matrix), rows, dim)
	}
	return &Classifier{
		embedder: embedder,
		prompts:  prompts,
		dim:      dim,
		matrix:   matrix,
	}, nil
}

// LoadFromFiles loads prompts from a JSON file (an array of strings, each
// prompt's ID being its index as a string) and the matching embedding
// matrix from a .npy file, then builds a Classifier.
func LoadFromFiles(embedder Embedder, promptsPath, embeddingsPath string) (*Classifier, error) {
	promptsData, err := os.ReadFile(promptsPath)
	if err != nil {
		return nil, fmt.Errorf("promptintent: reading prompts file: %w", err)
	}
	var texts []string
	if err := json.Unmarshal(promptsData, &texts); err != nil {
		return nil, fmt.Errorf("promptintent: parsing prompts JSON: %w", err)
	}
	prompts := make([]Prompt, len(texts))
	for i, text := range texts {
		prompts[i] = Prompt{ID: strconv.Itoa(i), Text: text}
	}

	npyData, err := os.ReadFile(embeddingsPath)
	if err != nil {
		return nil, fmt.Errorf("promptintent: reading embeddings file: %w", err)
	}
	rows, cols, matrix, err := readNpyFloat32Matrix(npyData)
	if err != nil {
		return nil, fmt.Errorf("promptintent: parsing embeddings .npy: %w", err)
	}

	return New(embedder, prompts, rows, cols, matrix)
}

// Classify embeds text and returns the prompt ID and dot-product score
// of the best-matching row.
func (c *Classifier) Classify(text string) (string, float64, error) {
	vec, err := c.embedder.Embed(text)
	if err != nil {
		return "", 0, fmt.Errorf("promptintent: embedding failed: %w", err)
	}
	if len(vec) != c.dim {
		return "", 0, fmt.Errorf("promptintent: embedder returned dimension %d, expected %d", len(vec), c.dim)
	}
	if len(c.prompts) == 0 {
		return "", 0, fmt.Errorf("promptintent: no prompts loaded")
	}

	bestIdx := 0
	bestScore := dotProductRow(c.matrix, 0, c.dim, vec)
	for i := 1; i < len(c.prompts); i++ {
		score := dotProductRow(c.matrix, i, c.dim, vec)
		if score > bestScore {
			bestScore = score
			bestIdx = i
		}
	}

	return c.prompts[bestIdx].ID, bestScore, nil
}

func dotProductRow(matrix []float32, row, dim int, vec []float32) float64 {
	offset := row * dim
	var sum float64
	for i := 0; i < dim; i++ {
		sum += float64(matrix[offset+i]) * float64(vec[i])
	}
	return sum
}
