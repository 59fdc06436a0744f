package services

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"log"
	"mime/multipart"
	"net/http"
	"path/filepath"
	"strings"
	"time"

	"github.com/google/uuid"

	"skillbridge/recommender/internal/models"
)

// ResumeUploader is one strategy for turning an ingested resume into a
// durable reference. The bridge tries the primary strategy once and the
// fallback once; there is no further retry.
type ResumeUploader interface {
	Name() string
	Upload(ctx context.Context, userID string, file *NormalizedFile) (*models.ResumeReference, error)
}

// PersistenceBridge durably records the resume on the user's profile. Its
// success is independent of the recommendation stages that follow.
type PersistenceBridge interface {
	SaveResume(ctx context.Context, userID string, file *NormalizedFile) (*models.ResumeReference, error)
}

type persistenceBridge struct {
	primary  ResumeUploader
	fallback ResumeUploader
	profile  ProfileClient
}

// NewPersistenceBridge wires the primary backend uploader with an optional
// object-store fallback. Pass a nil fallback when no upload credential is
// configured.
func NewPersistenceBridge(primary, fallback ResumeUploader, profile ProfileClient) PersistenceBridge {
	return &persistenceBridge{
		primary:  primary,
		fallback: fallback,
		profile:  profile,
	}
}

func (b *persistenceBridge) SaveResume(ctx context.Context, userID string, file *NormalizedFile) (*models.ResumeReference, error) {
	ref, err := b.primary.Upload(ctx, userID, file)
	if err != nil {
		log.Printf("⚠️  Primary resume upload failed: %v\n", err)

		if b.fallback == nil {
			return nil, &PersistenceError{
				Unconfigured: true,
				Message:      "resume upload failed and no fallback storage is configured",
				Err:          err,
			}
		}

		ref, err = b.fallback.Upload(ctx, userID, file)
		if err != nil {
			return nil, &PersistenceError{
				Message: fmt.Sprintf("resume upload failed on both %s and %s paths", b.primary.Name(), b.fallback.Name()),
				Err:     err,
			}
		}
	}

	if err := b.profile.PutResumeReference(ctx, userID, ref); err != nil {
		return nil, &PersistenceError{
			Message: "failed to record resume reference on profile",
			Err:     err,
		}
	}
	return ref, nil
}

////////////////////////////////////////////////////////////////////////
// Primary strategy: the backend's signed-upload endpoint.
////////////////////////////////////////////////////////////////////////

type backendUploader struct {
	baseURL      string
	serviceToken string
	client       *http.Client
}

func NewBackendUploader(baseURL, serviceToken string, timeout time.Duration) ResumeUploader {
	return &backendUploader{
		baseURL:      strings.TrimRight(baseURL, "/"),
		serviceToken: serviceToken,
		client:       &http.Client{Timeout: timeout},
	}
}

func (u *backendUploader) Name() string { return "backend" }

func (u *backendUploader) Upload(ctx context.Context, userID string, file *NormalizedFile) (*models.ResumeReference, error) {
	var body bytes.Buffer
	writer := multipart.NewWriter(&body)
	if err := file.WriteMultipart(writer, "resume"); err != nil {
		return nil, err
	}
	if err := writer.Close(); err != nil {
		return nil, fmt.Errorf("failed to finalize upload body: %w", err)
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, u.baseURL+"/users/profile/resume/upload", &body)
	if err != nil {
		return nil, fmt.Errorf("failed to build upload request: %w", err)
	}
	req.Header.Set("Content-Type", writer.FormDataContentType())
	req.Header.Set("X-User-ID", userID)
	if u.serviceToken != "" {
		req.Header.Set("Authorization", "Bearer "+u.serviceToken)
	}

	resp, err := u.client.Do(req)
	if err != nil {
		return nil, fmt.Errorf("backend upload unreachable: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		bodyBytes, _ := io.ReadAll(io.LimitReader(resp.Body, 4096))
		return nil, fmt.Errorf("backend upload returned %d: %s", resp.StatusCode, strings.TrimSpace(string(bodyBytes)))
	}

	var payload struct {
		Success bool `json:"success"`
		Data    struct {
			URL      string `json:"url"`
			PublicID string `json:"publicId"`
		} `json:"data"`
	}
	if err := json.NewDecoder(resp.Body).Decode(&payload); err != nil {
		return nil, fmt.Errorf("malformed upload response: %w", err)
	}
	if payload.Data.URL == "" {
		return nil, fmt.Errorf("upload response carried no URL")
	}

	return &models.ResumeReference{
		URL:        payload.Data.URL,
		PublicID:   payload.Data.PublicID,
		Filename:   file.Meta.Filename,
		SizeBytes:  file.Meta.SizeBytes,
		MimeType:   file.Meta.MimeType,
		UploadedAt: time.Now().UTC(),
	}, nil
}

////////////////////////////////////////////////////////////////////////
// Fallback strategy: unsigned direct upload to the object store.
////////////////////////////////////////////////////////////////////////

type storeUploader struct {
	store ObjectStore
}

func NewStoreUploader(store ObjectStore) ResumeUploader {
	return &storeUploader{store: store}
}

func (u *storeUploader) Name() string { return "object-store" }

func (u *storeUploader) Upload(ctx context.Context, userID string, file *NormalizedFile) (*models.ResumeReference, error) {
	ext := strings.ToLower(filepath.Ext(file.Meta.Filename))
	key := fmt.Sprintf("resumes/%s/%s%s", userID, uuid.New().String(), ext)

	url, err := u.store.Put(ctx, key, file.Bytes(), file.Meta.MimeType)
	if err != nil {
		return nil, err
	}

	return &models.ResumeReference{
		URL:        url,
		PublicID:   key,
		Filename:   file.Meta.Filename,
		SizeBytes:  file.Meta.SizeBytes,
		MimeType:   file.Meta.MimeType,
		UploadedAt: time.Now().UTC(),
	}, nil
}
