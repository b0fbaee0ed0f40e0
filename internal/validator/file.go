package validator

import (
	"context"
	"fmt"
	"io"
	"path/filepath"
	"strings"

	"github.com/gabriel-vasile/mimetype"
)

const DefaultMaxUploadSize int64 = 5 << 20

var (
	allowedExtensions = []string{"jpg", "jpeg", "png", "pdf"}
	allowedMIMETypes  = []string{"image/jpeg", "image/png", "application/pdf"}
)

// FileUpload is one uploaded file. An empty Name means no file was sent.
type FileUpload struct {
	Name    string
	Size    int64
	Err     error
	Content io.Reader
}

type FileResult struct {
	IsValid  bool     `json:"is_valid"`
	Errors   []string `json:"errors,omitempty"`
	MIMEType string   `json:"mime_type,omitempty"`
}

// ValidateFileUpload checks an optional attachment. The MIME type is sniffed
// from the content, not taken from the client.
func (v *Validator) ValidateFileUpload(ctx context.Context, file FileUpload, maxSize int64) FileResult {
	if file.Name == "" {
		return FileResult{IsValid: true}
	}
	if maxSize <= 0 {
		maxSize = DefaultMaxUploadSize
	}

	var errs []string
	if file.Err != nil {
		v.logger.Warn("file upload failed")
		errs = append(errs, "File upload failed")
		return FileResult{Errors: errs}
	}

	if file.Size > maxSize {
		errs = append(errs, fmt.Sprintf("File size exceeds maximum allowed (%dMB)", maxSize>>20))
	}

	ext := strings.ToLower(strings.TrimPrefix(filepath.Ext(file.Name), "."))
	if !contains(allowedExtensions, ext) {
		errs = append(errs, "File type not allowed")
	}

	var detected string
	if file.Content == nil {
		errs = append(errs, "Invalid file type")
	} else if mt, err := mimetype.DetectReader(file.Content); err != nil {
		errs = append(errs, "Invalid file type")
	} else {
		detected = mt.String()
		if !mimeAllowed(mt) {
			errs = append(errs, "Invalid file type")
		}
	}

	for _, msg := range errs {
		if v.incidents != nil {
			v.incidents.LogValidationError(ctx, "file_upload", file.Name, msg)
		}
	}
	return FileResult{IsValid: len(errs) == 0, Errors: errs, MIMEType: detected}
}

func mimeAllowed(mt *mimetype.MIME) bool {
	for _, allowed := range allowedMIMETypes {
		if mt.Is(allowed) {
			return true
		}
	}
	return false
}
