package capture

import (
	"bytes"
	"context"
	"image"
	"image/png"
	"mime/multipart"
	"net/http"
	"net/http/httptest"
	"testing"
)

func pngBytes(t *testing.T) []byte {
	t.Helper()
	var buf bytes.Buffer
	if err := png.Encode(&buf, image.NewRGBA(image.Rect(0, 0, 8, 8))); err != nil {
		t.Fatalf("encoding test image: %v", err)
	}
	return buf.Bytes()
}

func multipartRequest(t *testing.T, field string, files map[string][]byte) *http.Request {
	t.Helper()
	var body bytes.Buffer
	writer := multipart.NewWriter(&body)
	for name, data := range files {
		part, err := writer.CreateFormFile(field, name)
		if err != nil {
			t.Fatalf("creating form file: %v", err)
		}
		part.Write(data)
	}
	writer.Close()

	req := httptest.NewRequest(http.MethodPost, "/api/detect", &body)
	req.Header.Set("Content-Type", writer.FormDataContentType())
	if err := req.ParseMultipartForm(32 << 20); err != nil {
		t.Fatalf("parsing multipart: %v", err)
	}
	return req
}

func TestReadMultipartImagesSkipsInvalidFiles(t *testing.T) {
	req := multipartRequest(t, "images", map[string][]byte{
		"good.png":  pngBytes(t),
		"notes.txt": []byte("just some text, definitely not pixels"),
	})

	captures, errs := ReadMultipartImages(req, "images")

	if len(captures) != 1 {
		t.Fatalf("got %d captures, want 1", len(captures))
	}
	if captures[0].Filename != "good.png" {
		t.Errorf("kept file = %s", captures[0].Filename)
	}
	if captures[0].ID == "" {
		t.Error("capture missing ID")
	}
	if len(errs) != 1 || errs[0].Filename != "notes.txt" {
		t.Errorf("file errors = %+v, want one for notes.txt", errs)
	}
}

func TestReadMultipartImagesEmptyFile(t *testing.T) {
	req := multipartRequest(t, "images", map[string][]byte{
		"empty.png": {},
	})

	captures, errs := ReadMultipartImages(req, "images")
	if len(captures) != 0 {
		t.Errorf("empty file must be skipped, got %d captures", len(captures))
	}
	if len(errs) != 1 {
		t.Errorf("expected one file error, got %+v", errs)
	}
}

func TestCameraSourceSnapshot(t *testing.T) {
	frame := pngBytes(t)
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Write(frame)
	}))
	defer server.Close()

	src := NewCameraSource(server.URL, 0)
	got, err := src.Snapshot(context.Background())
	if err != nil {
		t.Fatalf("Snapshot: %v", err)
	}
	if !bytes.Equal(got, frame) {
		t.Error("frame bytes do not match camera output")
	}
}

func TestCameraSourceErrors(t *testing.T) {
	tests := []struct {
		name    string
		handler http.HandlerFunc
	}{
		{
			name: "server error",
			handler: func(w http.ResponseWriter, r *http.Request) {
				http.Error(w, "no device", http.StatusServiceUnavailable)
			},
		},
		{
			name: "non-image payload",
			handler: func(w http.ResponseWriter, r *http.Request) {
				w.Write([]byte("<html>login required</html>"))
			},
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			server := httptest.NewServer(tt.handler)
			defer server.Close()

			src := NewCameraSource(server.URL, 0)
			if _, err := src.Snapshot(context.Background()); err == nil {
				t.Error("expected error, got nil")
			}
		})
	}
}

func TestCameraSourceUnconfigured(t *testing.T) {
	src := NewCameraSource("", 0)
	if _, err := src.Snapshot(context.Background()); err == nil {
		t.Error("expected error for missing snapshot URL")
	}
}

func TestGateSingleOwnership(t *testing.T) {
	var g Gate
	evicted := false

	g.Acquire("camera", func() { evicted = true })
	if g.Owner() != "camera" {
		t.Fatalf("owner = %q, want camera", g.Owner())
	}

	g.Acquire("monitor", func() {})
	if !evicted {
		t.Error("previous owner's release hook did not run")
	}
	if g.Owner() != "monitor" {
		t.Errorf("owner = %q, want monitor", g.Owner())
	}

	// Stale release by the evicted owner must not clear the new owner.
	g.Release("camera")
	if g.Owner() != "monitor" {
		t.Errorf("stale release changed owner to %q", g.Owner())
	}

	g.Release("monitor")
	if g.Owner() != "" {
		t.Errorf("owner = %q after release, want empty", g.Owner())
	}
}
