package handler

import (
	"context"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/labstack/echo/v4"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/cellboard/cellboard/internal/content"
	"github.com/cellboard/cellboard/internal/engine"
	"github.com/cellboard/cellboard/internal/grid"
	"github.com/cellboard/cellboard/internal/model"
	"github.com/cellboard/cellboard/internal/store"
)

func newSubmissionTestServer(t *testing.T) (*SubmissionHandler, *store.Memory) {
	t.Helper()
	mem := store.NewMemory()
	eng := engine.New(mem, engine.Options{})
	disk, err := content.NewDisk(t.TempDir())
	require.NoError(t, err)
	return NewSubmissionHandler(eng, mem, disk), mem
}

// seedSubmission plants a paid submission awaiting upload.
func seedSubmission(t *testing.T, mem *store.Memory, id string) {
	t.Helper()
	ctx := context.Background()
	h := &model.Hold{
		ID:        "hold-" + id,
		Contact:   "buyer@example.com",
		Rect:      grid.Rect{TopLeft: grid.Point{Row: 0, Col: 0}, BottomRight: grid.Point{Row: 0, Col: 0}},
		ExpiresAt: time.Now().UTC().Add(time.Minute),
		CreatedAt: time.Now().UTC(),
	}
	blocked, err := mem.CreateHold(ctx, h)
	require.NoError(t, err)
	require.Empty(t, blocked)
	sub := &model.Submission{
		ID:         id,
		Contact:    h.Contact,
		Rect:       h.Rect,
		PaymentRef: "pay-" + id,
		Status:     model.StatusAwaitingUpload,
		CreatedAt:  time.Now().UTC(),
	}
	require.NoError(t, mem.ConvertHold(ctx, h.ID, sub))
}

func putContent(t *testing.T, h *SubmissionHandler, id, body string) *httptest.ResponseRecorder {
	t.Helper()
	e := echo.New()
	req := httptest.NewRequest(http.MethodPut, "/v1/submissions/"+id+"/content", strings.NewReader(body))
	req.Header.Set(echo.HeaderContentType, "video/mp4")
	rec := httptest.NewRecorder()
	c := e.NewContext(req, rec)
	c.SetParamNames("id")
	c.SetParamValues(id)
	require.NoError(t, h.UploadContent(c))
	return rec
}

func TestUploadContentMovesIntoReview(t *testing.T) {
	h, mem := newSubmissionTestServer(t)
	seedSubmission(t, mem, "sub-1")

	rec := putContent(t, h, "sub-1", "fake video bytes")
	require.Equal(t, http.StatusOK, rec.Code)

	sub, err := mem.SubmissionByID(context.Background(), "sub-1")
	require.NoError(t, err)
	assert.Equal(t, model.StatusUnderReview, sub.Status)
	assert.NotEmpty(t, sub.ContentRef)
}

func TestUploadContentReplaceSucceeds(t *testing.T) {
	h, mem := newSubmissionTestServer(t)
	seedSubmission(t, mem, "sub-1")

	require.Equal(t, http.StatusOK, putContent(t, h, "sub-1", "first cut").Code)

	// Replacing produces the same content reference and an unchanged
	// status; the second upload must still answer 200, not 404.
	rec := putContent(t, h, "sub-1", "second cut")
	assert.Equal(t, http.StatusOK, rec.Code)

	sub, err := mem.SubmissionByID(context.Background(), "sub-1")
	require.NoError(t, err)
	assert.Equal(t, model.StatusUnderReview, sub.Status)
}

func TestUploadContentUnknownSubmissionIs404(t *testing.T) {
	h, _ := newSubmissionTestServer(t)
	rec := putContent(t, h, "missing", "bytes")
	assert.Equal(t, http.StatusNotFound, rec.Code)
}

func TestUploadContentRejectsNonVideo(t *testing.T) {
	h, mem := newSubmissionTestServer(t)
	seedSubmission(t, mem, "sub-1")

	e := echo.New()
	req := httptest.NewRequest(http.MethodPut, "/v1/submissions/sub-1/content", strings.NewReader("{}"))
	req.Header.Set(echo.HeaderContentType, echo.MIMEApplicationJSON)
	rec := httptest.NewRecorder()
	c := e.NewContext(req, rec)
	c.SetParamNames("id")
	c.SetParamValues("sub-1")
	require.NoError(t, h.UploadContent(c))
	assert.Equal(t, http.StatusUnsupportedMediaType, rec.Code)
}
