package services

import (
	"bytes"
	"encoding/base64"
	"mime/multipart"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func newTestIngest() IngestService {
	return NewIngestService([]string{".pdf", ".doc", ".docx"}, 10_000_000)
}

func TestNormalizeRejectsOversizedFile(t *testing.T) {
	svc := newTestIngest()

	// The reader must never be consumed for an oversized file.
	poisoned := &failingReader{t: t}
	_, err := svc.Normalize("resume.pdf", "application/pdf", 10_000_001, poisoned)

	var verr *ValidationError
	require.ErrorAs(t, err, &verr)
	assert.Equal(t, ReasonTooLarge, verr.Reason)
}

func TestNormalizeRejectsUnsupportedExtension(t *testing.T) {
	svc := newTestIngest()

	testCases := []string{"resume.txt", "resume.exe", "resume", "resume.pdf.sh"}
	for _, name := range testCases {
		t.Run(name, func(t *testing.T) {
			_, err := svc.Normalize(name, "", 100, strings.NewReader("x"))

			var verr *ValidationError
			require.ErrorAs(t, err, &verr)
			assert.Equal(t, ReasonUnsupportedType, verr.Reason)
		})
	}
}

func TestNormalizeExtensionIsCaseInsensitive(t *testing.T) {
	svc := newTestIngest()

	file, err := svc.Normalize("Resume.PDF", "application/pdf", 4, strings.NewReader("%PDF"))
	require.NoError(t, err)
	assert.Equal(t, "Resume.PDF", file.Meta.Filename)
	assert.Equal(t, "application/pdf", file.Meta.MimeType)
	assert.Equal(t, int64(4), file.Meta.SizeBytes)
}

func TestNormalizeRejectsUnderdeclaredSize(t *testing.T) {
	svc := NewIngestService([]string{".doc"}, 8)

	// Declared size fits, actual payload does not.
	_, err := svc.Normalize("resume.doc", "", 4, strings.NewReader("0123456789"))

	var verr *ValidationError
	require.ErrorAs(t, err, &verr)
	assert.Equal(t, ReasonTooLarge, verr.Reason)
}

func TestNormalizedFileRenditionsShareOneRead(t *testing.T) {
	svc := newTestIngest()
	payload := "not really a word document"

	// countingReader proves the source is read exactly once even when both
	// transport renditions are used.
	src := &countingReader{r: strings.NewReader(payload)}
	file, err := svc.Normalize("resume.docx", "", int64(len(payload)), src)
	require.NoError(t, err)

	assert.Equal(t, base64.StdEncoding.EncodeToString([]byte(payload)), file.Base64())

	var buf bytes.Buffer
	writer := multipart.NewWriter(&buf)
	require.NoError(t, file.WriteMultipart(writer, "file"))
	require.NoError(t, writer.Close())
	assert.Contains(t, buf.String(), payload)
	assert.Contains(t, buf.String(), `filename="resume.docx"`)

	assert.Equal(t, 1, src.reads, "source should be drained in a single pass")
}

func TestNormalizeSurvivesUnreadablePDF(t *testing.T) {
	svc := newTestIngest()

	// Garbage bytes under a .pdf name: inspection fails, ingestion does not.
	file, err := svc.Normalize("resume.pdf", "application/pdf", 9, strings.NewReader("not a pdf"))
	require.NoError(t, err)
	assert.Zero(t, file.Meta.PageCount)
}

type failingReader struct {
	t *testing.T
}

func (r *failingReader) Read([]byte) (int, error) {
	r.t.Fatal("reader consumed for a file that should have been rejected")
	return 0, nil
}

type countingReader struct {
	r     *strings.Reader
	reads int
}

func (c *countingReader) Read(p []byte) (int, error) {
	n, err := c.r.Read(p)
	if n > 0 && c.reads == 0 {
		c.reads++
	}
	return n, err
}
