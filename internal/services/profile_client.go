package services

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"strings"
	"time"

	"skillbridge/recommender/internal/models"
)

// ProfileClient is the boundary to the profile-CRUD backend. The backend
// owns the user entity; this client only reads the techStack and replaces
// the resume reference.
type ProfileClient interface {
	GetProfile(ctx context.Context, userID string) (*models.UserProfileSnapshot, error)
	PutResumeReference(ctx context.Context, userID string, ref *models.ResumeReference) error
}

type profileClient struct {
	baseURL      string
	serviceToken string
	client       *http.Client
}

func NewProfileClient(baseURL, serviceToken string, timeout time.Duration) ProfileClient {
	return &profileClient{
		baseURL:      strings.TrimRight(baseURL, "/"),
		serviceToken: serviceToken,
		client:       &http.Client{Timeout: timeout},
	}
}

// envelope matches the profile backend's response wrapper.
type profileEnvelope struct {
	Success bool            `json:"success"`
	Data    json.RawMessage `json:"data"`
	Error   string          `json:"error"`
}

func (p *profileClient) GetProfile(ctx context.Context, userID string) (*models.UserProfileSnapshot, error) {
	data, err := p.do(ctx, http.MethodGet, "/users/profile", userID, nil)
	if err != nil {
		return nil, err
	}

	var snapshot models.UserProfileSnapshot
	if err := json.Unmarshal(data, &snapshot); err != nil {
		return nil, fmt.Errorf("failed to decode profile: %w", err)
	}
	return &snapshot, nil
}

// PutResumeReference fully replaces the profile's resumeData field. PUT
// semantics: the previous reference, if any, is overwritten, not merged.
func (p *profileClient) PutResumeReference(ctx context.Context, userID string, ref *models.ResumeReference) error {
	body, err := json.Marshal(map[string]any{"resumeData": ref})
	if err != nil {
		return fmt.Errorf("failed to encode resume reference: %w", err)
	}

	if _, err := p.do(ctx, http.MethodPut, "/users/profile/resume", userID, bytes.NewReader(body)); err != nil {
		return err
	}
	return nil
}

func (p *profileClient) do(ctx context.Context, method, path, userID string, body io.Reader) (json.RawMessage, error) {
	req, err := http.NewRequestWithContext(ctx, method, p.baseURL+path, body)
	if err != nil {
		return nil, fmt.Errorf("failed to build profile request: %w", err)
	}
	req.Header.Set("X-User-ID", userID)
	if p.serviceToken != "" {
		req.Header.Set("Authorization", "Bearer "+p.serviceToken)
	}
	if body != nil {
		req.Header.Set("Content-Type", "application/json")
	}

	resp, err := p.client.Do(req)
	if err != nil {
		return nil, fmt.Errorf("profile backend unreachable: %w", err)
	}
	defer resp.Body.Close()

	var env profileEnvelope
	if err := json.NewDecoder(resp.Body).Decode(&env); err != nil {
		return nil, fmt.Errorf("malformed profile response (status %d): %w", resp.StatusCode, err)
	}

	if resp.StatusCode < 200 || resp.StatusCode >= 300 || !env.Success {
		msg := env.Error
		if msg == "" {
			msg = fmt.Sprintf("status %d", resp.StatusCode)
		}
		return nil, fmt.Errorf("profile backend rejected %s %s: %s", method, path, msg)
	}
	return env.Data, nil
}
