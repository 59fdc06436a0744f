package services

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"mime/multipart"
	"net"
	"net/http"
	"sort"
	"strconv"
	"strings"
	"time"

	"skillbridge/recommender/internal/models"
)

// RecommenderGateway wraps the externally hosted inference services. Each
// call is an independent request/response with no shared mutable state and no
// internal retries; retry policy belongs to the orchestrator.
type RecommenderGateway interface {
	ParseResume(ctx context.Context, file *NormalizedFile) ([]string, error)
	RecommendJobs(ctx context.Context, skills []string) ([]models.JobMatch, error)
	ListJobTitles(ctx context.Context) ([]string, error)
	TechStackForTitle(ctx context.Context, title string) (*models.TechStackRecommendation, error)
}

type recommenderGateway struct {
	baseURL string
	client  *http.Client
}

func NewRecommenderGateway(baseURL string, timeout time.Duration) RecommenderGateway {
	return &recommenderGateway{
		baseURL: strings.TrimRight(baseURL, "/"),
		client:  &http.Client{Timeout: timeout},
	}
}

// flexibleID accepts both JSON strings and numbers; the recommendation
// service emits numeric ids but the client contract is a string.
type flexibleID string

func (f *flexibleID) UnmarshalJSON(data []byte) error {
	trimmed := bytes.TrimSpace(data)
	if len(trimmed) > 0 && trimmed[0] == '"' {
		var s string
		if err := json.Unmarshal(trimmed, &s); err != nil {
			return err
		}
		*f = flexibleID(s)
		return nil
	}
	var n json.Number
	if err := json.Unmarshal(trimmed, &n); err != nil {
		return err
	}
	*f = flexibleID(n.String())
	return nil
}

// ParseResume POSTs the resume as multipart form data to the skill
// extraction endpoint and returns the extracted skills in service order.
func (g *recommenderGateway) ParseResume(ctx context.Context, file *NormalizedFile) ([]string, error) {
	var body bytes.Buffer
	writer := multipart.NewWriter(&body)
	if err := file.WriteMultipart(writer, "file"); err != nil {
		return nil, fmt.Errorf("failed to build resume upload: %w", err)
	}
	if err := writer.Close(); err != nil {
		return nil, fmt.Errorf("failed to finalize resume upload: %w", err)
	}

	var payload struct {
		ExtractedSkills []string `json:"extracted_skills"`
	}
	if err := g.do(ctx, "parse_resume", http.MethodPost, "/api/resume_parser", writer.FormDataContentType(), &body, &payload); err != nil {
		return nil, err
	}
	return payload.ExtractedSkills, nil
}

// RecommendJobs POSTs the skill list and returns matches in the order the
// service scored them.
func (g *recommenderGateway) RecommendJobs(ctx context.Context, skills []string) ([]models.JobMatch, error) {
	body, err := jsonBody(map[string]any{"tech": skills})
	if err != nil {
		return nil, err
	}

	var payload struct {
		Matches []struct {
			ID    flexibleID `json:"id"`
			Title string     `json:"title"`
			Score float64    `json:"score"`
		} `json:"matches"`
	}
	if err := g.do(ctx, "recommend_jobs", http.MethodPost, "/api/job_recommender", "application/json", body, &payload); err != nil {
		return nil, err
	}

	matches := make([]models.JobMatch, len(payload.Matches))
	for i, m := range payload.Matches {
		matches[i] = models.JobMatch{
			ID:    string(m.ID),
			Title: m.Title,
			Score: m.Score,
		}
	}
	return matches, nil
}

// ListJobTitles fetches the title catalog. The service may present titles as
// an array or as an object whose values are titles; both shapes normalize to
// a flat list.
func (g *recommenderGateway) ListJobTitles(ctx context.Context) ([]string, error) {
	var payload struct {
		Titles json.RawMessage `json:"titles"`
	}
	if err := g.do(ctx, "list_job_titles", http.MethodGet, "/api/list_job_titles", "", nil, &payload); err != nil {
		return nil, err
	}
	titles, err := normalizeTitles(payload.Titles)
	if err != nil {
		return nil, &GatewayError{Op: "list_job_titles", Err: err}
	}
	return titles, nil
}

// TechStackForTitle POSTs a title and returns its expected technology stack.
func (g *recommenderGateway) TechStackForTitle(ctx context.Context, title string) (*models.TechStackRecommendation, error) {
	body, err := jsonBody(map[string]any{"title": title})
	if err != nil {
		return nil, err
	}

	var payload struct {
		TechStack []string `json:"tech_stack"`
	}
	if err := g.do(ctx, "job_title_techstack", http.MethodPost, "/api/job_title_techstack", "application/json", body, &payload); err != nil {
		return nil, err
	}
	return &models.TechStackRecommendation{
		Title:        title,
		Technologies: payload.TechStack,
	}, nil
}

func (g *recommenderGateway) do(ctx context.Context, op, method, path, contentType string, body io.Reader, out any) error {
	req, err := http.NewRequestWithContext(ctx, method, g.baseURL+path, body)
	if err != nil {
		return &GatewayError{Op: op, Err: err}
	}
	if contentType != "" {
		req.Header.Set("Content-Type", contentType)
	}

	resp, err := g.client.Do(req)
	if err != nil {
		return &GatewayError{Op: op, Timeout: isTimeout(err), Err: err}
	}
	defer resp.Body.Close()

	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		bodyBytes, _ := io.ReadAll(io.LimitReader(resp.Body, 4096))
		return &GatewayError{
			Op:     op,
			Status: resp.StatusCode,
			Body:   strings.TrimSpace(string(bodyBytes)),
		}
	}

	if err := json.NewDecoder(resp.Body).Decode(out); err != nil {
		return &GatewayError{Op: op, Err: fmt.Errorf("malformed response body: %w", err)}
	}
	return nil
}

func jsonBody(v any) (io.Reader, error) {
	data, err := json.Marshal(v)
	if err != nil {
		return nil, fmt.Errorf("failed to encode request body: %w", err)
	}
	return bytes.NewReader(data), nil
}

func isTimeout(err error) bool {
	if errors.Is(err, context.DeadlineExceeded) {
		return true
	}
	var netErr net.Error
	return errors.As(err, &netErr) && netErr.Timeout()
}

// normalizeTitles flattens either JSON shape of the catalog. Object keys are
// ordered numerically when every key parses as an integer, otherwise
// lexically, so "0"/"1"-keyed maps keep their intended order.
func normalizeTitles(raw json.RawMessage) ([]string, error) {
	if len(raw) == 0 {
		return nil, nil
	}

	var asList []string
	if err := json.Unmarshal(raw, &asList); err == nil {
		return asList, nil
	}

	var asMap map[string]string
	if err := json.Unmarshal(raw, &asMap); err != nil {
		return nil, fmt.Errorf("titles is neither an array nor an object of strings")
	}

	keys := make([]string, 0, len(asMap))
	for k := range asMap {
		keys = append(keys, k)
	}

	numeric := true
	for _, k := range keys {
		if _, err := strconv.Atoi(k); err != nil {
			numeric = false
			break
		}
	}
	sort.Slice(keys, func(i, j int) bool {
		if numeric {
			a, _ := strconv.Atoi(keys[i])
			b, _ := strconv.Atoi(keys[j])
			return a < b
		}
		return keys[i] < keys[j]
	})

	titles := make([]string, len(keys))
	for i, k := range keys {
		titles[i] = asMap[k]
	}
	return titles, nil
}
