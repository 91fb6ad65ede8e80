// Package providers declares the STT and intent-classification interfaces
// the Worker depends on, so concrete transports (HTTP multipart upload,
// streaming websocket, embedding dot-product) can be swapped without
// touching pkg/worker.
package providers

// STTEngine transcribes raw PCM audio to text over a network transport.
// Matches worker.STTEngine; kept as a separate declaration so concrete
// provider packages don't import pkg/worker.
type STTEngine interface {
	Transcribe(samples []float32) (string, error)
}

// IntentClassifier scores transcribed text against a fixed set of
// pre-computed prompt embeddings. Matches worker.IntentClassifier.
type IntentClassifier interface {
	Classify(text string) (promptID string, score float64, err error)
}
