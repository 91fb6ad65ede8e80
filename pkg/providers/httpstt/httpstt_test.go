package httpstt

import (
	"encoding/json"
	"mime"
	"mime/multipart"
	"net/http"
	"net/http/httptest"
	"testing"
)

func TestEngine_Transcribe_UploadsMultipartAndParsesResponse(t *testing.T) {
	var receivedModel string
	var receivedFilename string

	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		mediaType, params, err := mime.ParseMediaType(r.Header.Get("Content-Type"))
		if err != nil || mediaType != "multipart/form-data" {
			t.Errorf("expected multipart/form-data, got %q (%v)", r.Header.Get("Content-Type"), err)
		}
		mr := multipart.NewReader(r.Body, params["boundary"])
		for {
			part, err := mr.NextPart()
			if err != nil {
				break
			}
			if part.FormName() == "model" {
				buf := make([]byte, 256)
				n, _ := part.Read(buf)
				receivedModel = string(buf[:n])
			}
			if part.FormName() == "file" {
				receivedFilename = part.FileName()
			}
		}

		w.Header().Set("Content-Type", "application/json")
		json.NewEncoder(w).Encode(map[string]string{"text": "that timeline is tight"})
	}))
	defer srv.Close()

	e := New("test-key", srv.URL, "")
	text, err := e.Transcribe([]float32{0, 0.1, -0.1, 0.2})
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if text != "that timeline is tight" {
		t.Fatalf("expected parsed transcript, got %q", text)
	}
	if receivedModel != "whisper-large-v3-turbo" {
		t.Fatalf("expected default model name uploaded, got %q", receivedModel)
	}
	if receivedFilename != "snapshot.wav" {
		t.Fatalf("expected snapshot.wav filename, got %q", receivedFilename)
	}
}

func TestEngine_Transcribe_NonOKStatusIsError(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusInternalServerError)
		json.NewEncoder(w).Encode(map[string]string{"error": "boom"})
	}))
	defer srv.Close()

	e := New("test-key", srv.URL, "")
	if _, err := e.Transcribe([]float32{0}); err == nil {
		t.Fatal("expected error for non-200 response")
	}
}
