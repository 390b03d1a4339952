package capture

import (
	"fmt"
	"io"
	"mime/multipart"
	"net/http"
	"path/filepath"
	"strings"

	"github.com/google/uuid"
)

// Capture is one raw still image headed into the detection pipeline,
// whatever its source.
type Capture struct {
	ID       string
	Filename string
	Bytes    []byte
}

// FileError reports one rejected upload file. A bad file never aborts the
// rest of the batch.
type FileError struct {
	Filename string `json:"filename"`
	Reason   string `json:"reason"`
}

var imageExtensions = map[string]bool{
	".jpg":  true,
	".jpeg": true,
	".png":  true,
}

// ReadMultipartImages pulls every file under the given form field out of an
// already-parsed multipart request, validating each independently as a
// JPEG/PNG image. Valid files come back as captures, invalid ones as
// per-file errors.
func ReadMultipartImages(r *http.Request, field string) ([]Capture, []FileError) {
	var captures []Capture
	var errs []FileError

	if r.MultipartForm == nil {
		return nil, nil
	}

	for _, header := range r.MultipartForm.File[field] {
		data, err := readFile(header)
		if err != nil {
			errs = append(errs, FileError{Filename: header.Filename, Reason: err.Error()})
			continue
		}
		captures = append(captures, Capture{
			ID:       uuid.New().String(),
			Filename: header.Filename,
			Bytes:    data,
		})
	}

	return captures, errs
}

func readFile(header *multipart.FileHeader) ([]byte, error) {
	file, err := header.Open()
	if err != nil {
		return nil, fmt.Errorf("failed to open file")
	}
	defer file.Close()

	data, err := io.ReadAll(file)
	if err != nil {
		return nil, fmt.Errorf("failed to read file")
	}
	if len(data) == 0 {
		return nil, fmt.Errorf("empty file")
	}

	if err := validateImage(header.Filename, data); err != nil {
		return nil, err
	}
	return data, nil
}

// validateImage checks the sniffed content type, falling back to the file
// extension the way the upload handler in any browser demo has to: some
// clients send application/octet-stream for perfectly good images.
func validateImage(filename string, data []byte) error {
	sniffed := http.DetectContentType(data)
	if strings.HasPrefix(sniffed, "image/") {
		return nil
	}
	if sniffed == "application/octet-stream" && imageExtensions[strings.ToLower(filepath.Ext(filename))] {
		return nil
	}
	return fmt.Errorf("not an image (detected %s)", sniffed)
}
