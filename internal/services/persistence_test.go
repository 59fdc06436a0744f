package services

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"skillbridge/recommender/internal/models"
)

type fakeUploader struct {
	name  string
	ref   *models.ResumeReference
	err   error
	calls int
}

func (f *fakeUploader) Name() string { return f.name }

func (f *fakeUploader) Upload(_ context.Context, _ string, _ *NormalizedFile) (*models.ResumeReference, error) {
	f.calls++
	return f.ref, f.err
}

type fakeProfileClient struct {
	profile *models.UserProfileSnapshot
	putErr  error
	putRefs []*models.ResumeReference
}

func (f *fakeProfileClient) GetProfile(_ context.Context, _ string) (*models.UserProfileSnapshot, error) {
	if f.profile == nil {
		return nil, errors.New("no profile")
	}
	return f.profile, nil
}

func (f *fakeProfileClient) PutResumeReference(_ context.Context, _ string, ref *models.ResumeReference) error {
	f.putRefs = append(f.putRefs, ref)
	return f.putErr
}

func testUploadFile(t *testing.T) *NormalizedFile {
	t.Helper()
	svc := NewIngestService([]string{".docx"}, 1_000_000)
	file, err := svc.Normalize("resume.docx", "", 11, strings.NewReader("resume body"))
	require.NoError(t, err)
	return file
}

func TestSaveResumePrimaryPath(t *testing.T) {
	ref := &models.ResumeReference{URL: "https://cdn.example.com/resume.docx", PublicID: "abc"}
	primary := &fakeUploader{name: "backend", ref: ref}
	fallback := &fakeUploader{name: "object-store"}
	profile := &fakeProfileClient{}

	bridge := NewPersistenceBridge(primary, fallback, profile)
	got, err := bridge.SaveResume(context.Background(), "user-1", testUploadFile(t))

	require.NoError(t, err)
	assert.Equal(t, ref, got)
	assert.Equal(t, 1, primary.calls)
	assert.Zero(t, fallback.calls, "fallback must not run when the primary succeeds")
	require.Len(t, profile.putRefs, 1)
	assert.Equal(t, ref, profile.putRefs[0])
}

func TestSaveResumeFallbackPath(t *testing.T) {
	ref := &models.ResumeReference{URL: "https://store.example.com/resumes/user-1/x.docx"}
	primary := &fakeUploader{name: "backend", err: errors.New("502 from backend")}
	fallback := &fakeUploader{name: "object-store", ref: ref}
	profile := &fakeProfileClient{}

	bridge := NewPersistenceBridge(primary, fallback, profile)
	got, err := bridge.SaveResume(context.Background(), "user-1", testUploadFile(t))

	require.NoError(t, err)
	assert.Equal(t, ref, got)
	assert.Equal(t, 1, primary.calls)
	assert.Equal(t, 1, fallback.calls)
	require.Len(t, profile.putRefs, 1)
}

func TestSaveResumeWithoutFallbackConfigured(t *testing.T) {
	primary := &fakeUploader{name: "backend", err: errors.New("502 from backend")}
	profile := &fakeProfileClient{}

	bridge := NewPersistenceBridge(primary, nil, profile)
	_, err := bridge.SaveResume(context.Background(), "user-1", testUploadFile(t))

	var perr *PersistenceError
	require.ErrorAs(t, err, &perr)
	assert.True(t, perr.Unconfigured)
	assert.Empty(t, profile.putRefs)
}

func TestSaveResumeBothPathsFail(t *testing.T) {
	primary := &fakeUploader{name: "backend", err: errors.New("502 from backend")}
	fallback := &fakeUploader{name: "object-store", err: errors.New("credentials expired")}
	profile := &fakeProfileClient{}

	bridge := NewPersistenceBridge(primary, fallback, profile)
	_, err := bridge.SaveResume(context.Background(), "user-1", testUploadFile(t))

	var perr *PersistenceError
	require.ErrorAs(t, err, &perr)
	assert.False(t, perr.Unconfigured)
	assert.Contains(t, perr.Message, "backend")
	assert.Contains(t, perr.Message, "object-store")
	assert.Equal(t, 1, primary.calls, "each strategy gets exactly one attempt")
	assert.Equal(t, 1, fallback.calls)
	assert.Empty(t, profile.putRefs)
}

func TestSaveResumeProfileWriteFailure(t *testing.T) {
	primary := &fakeUploader{name: "backend", ref: &models.ResumeReference{URL: "https://cdn.example.com/r"}}
	profile := &fakeProfileClient{putErr: errors.New("profile backend down")}

	bridge := NewPersistenceBridge(primary, nil, profile)
	_, err := bridge.SaveResume(context.Background(), "user-1", testUploadFile(t))

	var perr *PersistenceError
	require.ErrorAs(t, err, &perr)
	assert.False(t, perr.Unconfigured)
}

func TestBackendUploader(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, "/users/profile/resume/upload", r.URL.Path)
		assert.Equal(t, "user-1", r.Header.Get("X-User-ID"))
		assert.Equal(t, "Bearer secret", r.Header.Get("Authorization"))

		_, header, err := r.FormFile("resume")
		require.NoError(t, err)
		assert.Equal(t, "resume.docx", header.Filename)

		json.NewEncoder(w).Encode(map[string]any{
			"success": true,
			"data": map[string]string{
				"url":      "https://cdn.example.com/resume.docx",
				"publicId": "resumes/abc123",
			},
		})
	}))
	defer server.Close()

	uploader := NewBackendUploader(server.URL, "secret", 5*time.Second)
	ref, err := uploader.Upload(context.Background(), "user-1", testUploadFile(t))

	require.NoError(t, err)
	assert.Equal(t, "https://cdn.example.com/resume.docx", ref.URL)
	assert.Equal(t, "resumes/abc123", ref.PublicID)
	assert.Equal(t, "resume.docx", ref.Filename)
	assert.False(t, ref.UploadedAt.IsZero())
}

func TestBackendUploaderRejectsErrorStatus(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusInternalServerError)
		w.Write([]byte("disk full"))
	}))
	defer server.Close()

	uploader := NewBackendUploader(server.URL, "", 5*time.Second)
	_, err := uploader.Upload(context.Background(), "user-1", testUploadFile(t))

	require.Error(t, err)
	assert.Contains(t, err.Error(), "500")
	assert.Contains(t, err.Error(), "disk full")
}

type fakeObjectStore struct {
	keys []string
	url  string
	err  error
}

func (f *fakeObjectStore) Put(_ context.Context, key string, _ []byte, _ string) (string, error) {
	f.keys = append(f.keys, key)
	return f.url, f.err
}

func (f *fakeObjectStore) Delete(context.Context, string) {}

func TestStoreUploaderKeyLayout(t *testing.T) {
	store := &fakeObjectStore{url: "https://store.example.com/obj"}
	uploader := NewStoreUploader(store)

	ref, err := uploader.Upload(context.Background(), "user-1", testUploadFile(t))

	require.NoError(t, err)
	assert.Equal(t, "https://store.example.com/obj", ref.URL)
	require.Len(t, store.keys, 1)
	assert.True(t, strings.HasPrefix(store.keys[0], "resumes/user-1/"))
	assert.True(t, strings.HasSuffix(store.keys[0], ".docx"))
	assert.Equal(t, store.keys[0], ref.PublicID)
}

func TestProfileClientRoundTrip(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		switch {
		case r.Method == http.MethodGet && r.URL.Path == "/users/profile":
			assert.Equal(t, "user-1", r.Header.Get("X-User-ID"))
			w.Write([]byte(`{"success": true, "data": {"name": "Ada", "techStack": ["Python"]}}`))
		case r.Method == http.MethodPut && r.URL.Path == "/users/profile/resume":
			var body map[string]models.ResumeReference
			require.NoError(t, json.NewDecoder(r.Body).Decode(&body))
			assert.Equal(t, "https://cdn.example.com/r", body["resumeData"].URL)
			w.Write([]byte(`{"success": true, "data": null}`))
		default:
			t.Errorf("unexpected request %s %s", r.Method, r.URL.Path)
		}
	}))
	defer server.Close()

	client := NewProfileClient(server.URL, "", 5*time.Second)

	profile, err := client.GetProfile(context.Background(), "user-1")
	require.NoError(t, err)
	assert.Equal(t, "Ada", profile.Name)
	assert.Equal(t, []string{"Python"}, profile.TechStack)

	err = client.PutResumeReference(context.Background(), "user-1", &models.ResumeReference{URL: "https://cdn.example.com/r"})
	require.NoError(t, err)
}

func TestProfileClientSurfacesBackendError(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusNotFound)
		w.Write([]byte(`{"success": false, "error": "user not found"}`))
	}))
	defer server.Close()

	client := NewProfileClient(server.URL, "", 5*time.Second)
	_, err := client.GetProfile(context.Background(), "user-1")

	require.Error(t, err)
	assert.Contains(t, err.Error(), "user not found")
}
