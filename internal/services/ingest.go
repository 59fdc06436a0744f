package services

import (
	"bytes"
	"encoding/base64"
	"fmt"
	"io"
	"log"
	"mime"
	"mime/multipart"
	"path/filepath"
	"strings"

	"github.com/ledongthuc/pdf"

	"skillbridge/recommender/internal/models"
)

// NormalizedFile is the transport-ready form of an uploaded resume. The
// source is read exactly once; both the multipart and base64 renditions are
// derived from the same buffer.
type NormalizedFile struct {
	Meta models.UploadedFileMeta
	data []byte
}

func (f *NormalizedFile) Bytes() []byte {
	return f.data
}

// Base64 returns the payload encoded for the JSON-only fallback path.
func (f *NormalizedFile) Base64() string {
	return base64.StdEncoding.EncodeToString(f.data)
}

// WriteMultipart writes the payload as a form file part under the given
// field name.
func (f *NormalizedFile) WriteMultipart(w *multipart.Writer, field string) error {
	part, err := w.CreateFormFile(field, f.Meta.Filename)
	if err != nil {
		return fmt.Errorf("failed to create form file: %w", err)
	}
	if _, err := part.Write(f.data); err != nil {
		return fmt.Errorf("failed to write form file: %w", err)
	}
	return nil
}

type IngestService interface {
	Normalize(filename, mimeType string, size int64, src io.Reader) (*NormalizedFile, error)
}

type ingestService struct {
	allowedExts map[string]bool
	maxSize     int64
}

func NewIngestService(allowedExtensions []string, maxSizeBytes int64) IngestService {
	exts := make(map[string]bool, len(allowedExtensions))
	for _, ext := range allowedExtensions {
		exts[strings.ToLower(strings.TrimSpace(ext))] = true
	}
	return &ingestService{
		allowedExts: exts,
		maxSize:     maxSizeBytes,
	}
}

// Normalize validates the upload and buffers it for transport. Size and
// extension are checked before the source is read, so rejected files cost
// nothing and never reach the network.
func (s *ingestService) Normalize(filename, mimeType string, size int64, src io.Reader) (*NormalizedFile, error) {
	if size > s.maxSize {
		return nil, &ValidationError{
			Reason:  ReasonTooLarge,
			Message: fmt.Sprintf("file too large: %d bytes (max %d)", size, s.maxSize),
		}
	}

	ext := strings.ToLower(filepath.Ext(filename))
	if !s.allowedExts[ext] {
		return nil, &ValidationError{
			Reason:  ReasonUnsupportedType,
			Message: fmt.Sprintf("unsupported file type: %q", ext),
		}
	}

	data, err := io.ReadAll(io.LimitReader(src, s.maxSize+1))
	if err != nil {
		return nil, fmt.Errorf("failed to read uploaded file: %w", err)
	}
	if int64(len(data)) > s.maxSize {
		// The declared size lied; treat it the same as an oversized header.
		return nil, &ValidationError{
			Reason:  ReasonTooLarge,
			Message: fmt.Sprintf("file too large: exceeds %d bytes", s.maxSize),
		}
	}

	if mimeType == "" {
		mimeType = mime.TypeByExtension(ext)
	}

	file := &NormalizedFile{
		Meta: models.UploadedFileMeta{
			Filename:  filepath.Base(filename),
			SizeBytes: int64(len(data)),
			MimeType:  mimeType,
		},
		data: data,
	}

	if ext == ".pdf" {
		if pages, err := countPDFPages(data); err != nil {
			log.Printf("⚠️  Could not inspect PDF %s: %v\n", file.Meta.Filename, err)
		} else {
			file.Meta.PageCount = pages
		}
	}

	return file, nil
}

// countPDFPages is best-effort metadata only. The pdf package panics on some
// malformed inputs, so the recover keeps a broken file from taking the
// request down with it.
func countPDFPages(data []byte) (pages int, err error) {
	defer func() {
		if r := recover(); r != nil {
			err = fmt.Errorf("failed to read PDF: %v", r)
		}
	}()
	r, err := pdf.NewReader(bytes.NewReader(data), int64(len(data)))
	if err != nil {
		return 0, fmt.Errorf("failed to read PDF: %w", err)
	}
	return r.NumPage(), nil
}
