package handler

import (
	"bytes"
	"encoding/json"
	"errors"
	"io"
	"mime/multipart"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"docsync/internal/model"
	"docsync/internal/service"
	serviceMocks "docsync/internal/service/mocks"
	"docsync/internal/store"

	"github.com/DATA-DOG/go-sqlmock"
	"github.com/gofiber/fiber/v2"
	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/require"
)

func TestHealthCheck(t *testing.T) {
	db, dbMock, err := sqlmock.New(sqlmock.MonitorPingsOption(true))
	require.NoError(t, err)
	defer db.Close()

	app := fiber.New()
	app.Get("/health", HealthCheck(db))

	t.Run("healthy", func(t *testing.T) {
		dbMock.ExpectPing().WillReturnError(nil)

		req := httptest.NewRequest(http.MethodGet, "/health", nil)
		resp, _ := app.Test(req)

		assert.Equal(t, http.StatusOK, resp.StatusCode)

		var body map[string]string
		json.NewDecoder(resp.Body).Decode(&body)
		assert.Equal(t, "healthy", body["status"])
	})

	t.Run("unhealthy", func(t *testing.T) {
		dbMock.ExpectPing().WillReturnError(errors.New("db error"))

		req := httptest.NewRequest(http.MethodGet, "/health", nil)
		resp, _ := app.Test(req)

		assert.Equal(t, http.StatusServiceUnavailable, resp.StatusCode)

		var body errorPayload
		json.NewDecoder(resp.Body).Decode(&body)
		assert.Equal(t, "SERVICE_UNAVAILABLE", body.Error.Code)
	})
}

func TestLivenessProbe(t *testing.T) {
	app := fiber.New()
	app.Get("/healthz", LivenessProbe())

	req := httptest.NewRequest(http.MethodGet, "/healthz", nil)
	resp, _ := app.Test(req)

	assert.Equal(t, http.StatusOK, resp.StatusCode)
}

func TestListDocuments(t *testing.T) {
	mockSvc := new(serviceMocks.MockDocumentService)
	app := fiber.New()
	app.Get("/documents", ListDocuments(mockSvc))

	t.Run("success", func(t *testing.T) {
		expectedRes := &service.DocumentListResult{
			Items: []model.Document{{ID: uuid.New().String(), Identifier: "DOC-001", Title: "report"}},
			Total: 1,
		}
		mockSvc.On("List", mock.Anything, 10, 0).Return(expectedRes, nil).Once()

		req := httptest.NewRequest(http.MethodGet, "/documents?limit=10&offset=0", nil)
		resp, _ := app.Test(req)

		assert.Equal(t, http.StatusOK, resp.StatusCode)

		var result service.DocumentListResult
		json.NewDecoder(resp.Body).Decode(&result)
		assert.Len(t, result.Items, 1)
		assert.Equal(t, 1, result.Total)
		mockSvc.AssertExpectations(t)
	})

	t.Run("invalid limit", func(t *testing.T) {
		req := httptest.NewRequest(http.MethodGet, "/documents?limit=abc", nil)
		resp, _ := app.Test(req)

		assert.Equal(t, http.StatusBadRequest, resp.StatusCode)
		var body errorPayload
		json.NewDecoder(resp.Body).Decode(&body)
		assert.Equal(t, "INVALID_LIMIT", body.Error.Code)
	})

	t.Run("service error", func(t *testing.T) {
		mockSvc.On("List", mock.Anything, 10, 0).Return(nil, errors.New("service error")).Once()

		req := httptest.NewRequest(http.MethodGet, "/documents", nil)
		resp, _ := app.Test(req)

		assert.Equal(t, http.StatusInternalServerError, resp.StatusCode)
		mockSvc.AssertExpectations(t)
	})
}

func createForm(t *testing.T, meta string, filename string, content []byte, values map[string]string) (*bytes.Buffer, string) {
	t.Helper()
	body := &bytes.Buffer{}
	writer := multipart.NewWriter(body)
	if meta != "" {
		require.NoError(t, writer.WriteField("document", meta))
	}
	for k, v := range values {
		require.NoError(t, writer.WriteField(k, v))
	}
	if filename != "" {
		part, err := writer.CreateFormFile("file", filename)
		require.NoError(t, err)
		part.Write(content)
	}
	writer.Close()
	return body, writer.FormDataContentType()
}

func TestCreateDocument(t *testing.T) {
	mockSvc := new(serviceMocks.MockDocumentService)
	app := fiber.New()
	app.Post("/documents", CreateDocument(mockSvc))

	t.Run("success with content", func(t *testing.T) {
		body, ct := createForm(t, `{"identifier":"DOC-001","title":"report"}`, "report.pdf", []byte("hello"), map[string]string{"case": "ZAAK-42"})

		expectedDoc := &model.Document{ID: uuid.New().String(), Identifier: "DOC-001", Title: "report"}
		mockSvc.On("Create", mock.Anything, mock.MatchedBy(func(in service.CreateDocumentInput) bool {
			return in.Document.Identifier == "DOC-001" &&
				in.CaseReference == "ZAAK-42" &&
				in.Filename == "report.pdf" &&
				in.Content != nil
		})).Return(expectedDoc, nil).Once()

		req := httptest.NewRequest(http.MethodPost, "/documents", body)
		req.Header.Set("Content-Type", ct)
		resp, _ := app.Test(req)

		assert.Equal(t, http.StatusCreated, resp.StatusCode)

		var result model.Document
		json.NewDecoder(resp.Body).Decode(&result)
		assert.Equal(t, expectedDoc.ID, result.ID)
		mockSvc.AssertExpectations(t)
	})

	t.Run("missing metadata", func(t *testing.T) {
		body, ct := createForm(t, "", "report.pdf", []byte("hello"), nil)

		req := httptest.NewRequest(http.MethodPost, "/documents", body)
		req.Header.Set("Content-Type", ct)
		resp, _ := app.Test(req)

		assert.Equal(t, http.StatusBadRequest, resp.StatusCode)
		var res errorPayload
		json.NewDecoder(resp.Body).Decode(&res)
		assert.Equal(t, "DOCUMENT_REQUIRED", res.Error.Code)
	})

	t.Run("duplicate identifier", func(t *testing.T) {
		body, ct := createForm(t, `{"identifier":"DOC-001","title":"report"}`, "", nil, nil)

		mockSvc.On("Create", mock.Anything, mock.Anything).Return(nil, service.ErrDocumentExists).Once()

		req := httptest.NewRequest(http.MethodPost, "/documents", body)
		req.Header.Set("Content-Type", ct)
		resp, _ := app.Test(req)

		assert.Equal(t, http.StatusConflict, resp.StatusCode)
		var res errorPayload
		json.NewDecoder(resp.Body).Decode(&res)
		assert.Equal(t, "DUPLICATE_IDENTIFIER", res.Error.Code)
		mockSvc.AssertExpectations(t)
	})
}

func TestGetDocument(t *testing.T) {
	mockSvc := new(serviceMocks.MockDocumentService)
	app := fiber.New()
	app.Get("/documents/:identifier", GetDocument(mockSvc))

	t.Run("success", func(t *testing.T) {
		expectedDoc := &model.Document{ID: uuid.New().String(), Identifier: "DOC-001"}
		mockSvc.On("Get", mock.Anything, "DOC-001").Return(expectedDoc, nil).Once()

		req := httptest.NewRequest(http.MethodGet, "/documents/DOC-001", nil)
		resp, _ := app.Test(req)

		assert.Equal(t, http.StatusOK, resp.StatusCode)
		var result model.Document
		json.NewDecoder(resp.Body).Decode(&result)
		assert.Equal(t, "DOC-001", result.Identifier)
		mockSvc.AssertExpectations(t)
	})

	t.Run("not found", func(t *testing.T) {
		mockSvc.On("Get", mock.Anything, "MISSING").Return(nil, service.ErrNotFound).Once()

		req := httptest.NewRequest(http.MethodGet, "/documents/MISSING", nil)
		resp, _ := app.Test(req)

		assert.Equal(t, http.StatusNotFound, resp.StatusCode)
		var res errorPayload
		json.NewDecoder(resp.Body).Decode(&res)
		assert.Equal(t, "NOT_FOUND", res.Error.Code)
		mockSvc.AssertExpectations(t)
	})
}

func TestDownloadDocument(t *testing.T) {
	mockSvc := new(serviceMocks.MockDocumentService)
	app := fiber.New()
	app.Get("/documents/:identifier/download", DownloadDocument(mockSvc))

	t.Run("streams content", func(t *testing.T) {
		mockSvc.On("Read", mock.Anything, "DOC-001").Return(&service.ReadResult{
			Filename: "report.pdf",
			Content:  io.NopCloser(strings.NewReader("file-content")),
		}, nil).Once()

		req := httptest.NewRequest(http.MethodGet, "/documents/DOC-001/download", nil)
		resp, _ := app.Test(req)

		assert.Equal(t, http.StatusOK, resp.StatusCode)
		assert.Contains(t, resp.Header.Get(fiber.HeaderContentDisposition), "report.pdf")
		got, _ := io.ReadAll(resp.Body)
		assert.Equal(t, "file-content", string(got))
		mockSvc.AssertExpectations(t)
	})

	t.Run("empty content yields 404", func(t *testing.T) {
		mockSvc.On("Read", mock.Anything, "DOC-002").Return(&service.ReadResult{
			Filename: "report.pdf",
			Content:  io.NopCloser(bytes.NewReader(nil)),
		}, nil).Once()

		req := httptest.NewRequest(http.MethodGet, "/documents/DOC-002/download", nil)
		resp, _ := app.Test(req)

		assert.Equal(t, http.StatusNotFound, resp.StatusCode)
		var res errorPayload
		json.NewDecoder(resp.Body).Decode(&res)
		assert.Equal(t, "NO_CONTENT", res.Error.Code)
		mockSvc.AssertExpectations(t)
	})
}

func TestLockHandlers(t *testing.T) {
	mockSvc := new(serviceMocks.MockDocumentService)
	app := fiber.New()
	app.Get("/documents/:identifier/lock", LockStatus(mockSvc))
	app.Post("/documents/:identifier/lock", CheckoutDocument(mockSvc))
	app.Delete("/documents/:identifier/lock", CancelCheckout(mockSvc))

	t.Run("checkout returns token", func(t *testing.T) {
		mockSvc.On("Checkout", mock.Anything, "DOC-001").Return(store.Lock{
			CheckoutID: "wc-1", CheckoutBy: "alice", ObjectID: "obj-1",
		}, nil).Once()

		req := httptest.NewRequest(http.MethodPost, "/documents/DOC-001/lock", nil)
		resp, _ := app.Test(req)

		assert.Equal(t, http.StatusCreated, resp.StatusCode)
		var body map[string]string
		json.NewDecoder(resp.Body).Decode(&body)
		assert.Equal(t, "wc-1", body["checkout_id"])
		mockSvc.AssertExpectations(t)
	})

	t.Run("checkout of locked document conflicts", func(t *testing.T) {
		mockSvc.On("Checkout", mock.Anything, "DOC-001").Return(store.Lock{}, service.ErrDocumentLocked).Once()

		req := httptest.NewRequest(http.MethodPost, "/documents/DOC-001/lock", nil)
		resp, _ := app.Test(req)

		assert.Equal(t, http.StatusConflict, resp.StatusCode)
		var res errorPayload
		json.NewDecoder(resp.Body).Decode(&res)
		assert.Equal(t, "DOCUMENT_LOCKED", res.Error.Code)
		mockSvc.AssertExpectations(t)
	})

	t.Run("cancel requires checkout_id", func(t *testing.T) {
		req := httptest.NewRequest(http.MethodDelete, "/documents/DOC-001/lock", nil)
		resp, _ := app.Test(req)

		assert.Equal(t, http.StatusBadRequest, resp.StatusCode)
	})

	t.Run("cancel unlocks", func(t *testing.T) {
		mockSvc.On("CancelCheckout", mock.Anything, "DOC-001", "wc-1").Return(nil).Once()

		req := httptest.NewRequest(http.MethodDelete, "/documents/DOC-001/lock?checkout_id=wc-1", nil)
		resp, _ := app.Test(req)

		assert.Equal(t, http.StatusNoContent, resp.StatusCode)
		mockSvc.AssertExpectations(t)
	})

	t.Run("status", func(t *testing.T) {
		mockSvc.On("IsLocked", mock.Anything, "DOC-001").Return(true, nil).Once()

		req := httptest.NewRequest(http.MethodGet, "/documents/DOC-001/lock", nil)
		resp, _ := app.Test(req)

		assert.Equal(t, http.StatusOK, resp.StatusCode)
		var body map[string]bool
		json.NewDecoder(resp.Body).Decode(&body)
		assert.True(t, body["locked"])
		mockSvc.AssertExpectations(t)
	})
}

func TestCaseLinkHandlers(t *testing.T) {
	mockSvc := new(serviceMocks.MockDocumentService)
	app := fiber.New()
	app.Post("/documents/:identifier/case", LinkToCase(mockSvc))
	app.Delete("/documents/:identifier/case", UnlinkFromCase(mockSvc))

	t.Run("link", func(t *testing.T) {
		mockSvc.On("LinkToCase", mock.Anything, "DOC-001", "ZAAK-42").Return(nil).Once()

		req := httptest.NewRequest(http.MethodPost, "/documents/DOC-001/case",
			strings.NewReader(`{"case":"ZAAK-42"}`))
		req.Header.Set("Content-Type", "application/json")
		resp, _ := app.Test(req)

		assert.Equal(t, http.StatusNoContent, resp.StatusCode)
		mockSvc.AssertExpectations(t)
	})

	t.Run("link requires case", func(t *testing.T) {
		req := httptest.NewRequest(http.MethodPost, "/documents/DOC-001/case",
			strings.NewReader(`{}`))
		req.Header.Set("Content-Type", "application/json")
		resp, _ := app.Test(req)

		assert.Equal(t, http.StatusBadRequest, resp.StatusCode)
	})

	t.Run("unlink", func(t *testing.T) {
		mockSvc.On("UnlinkFromCase", mock.Anything, "DOC-001", "ZAAK-42").Return(nil).Once()

		req := httptest.NewRequest(http.MethodDelete, "/documents/DOC-001/case?case=ZAAK-42", nil)
		resp, _ := app.Test(req)

		assert.Equal(t, http.StatusNoContent, resp.StatusCode)
		mockSvc.AssertExpectations(t)
	})
}

func TestDeleteDocument(t *testing.T) {
	mockSvc := new(serviceMocks.MockDocumentService)
	app := fiber.New()
	app.Delete("/documents/:identifier", DeleteDocument(mockSvc))

	t.Run("success", func(t *testing.T) {
		mockSvc.On("Delete", mock.Anything, "DOC-001").Return(nil).Once()

		req := httptest.NewRequest(http.MethodDelete, "/documents/DOC-001", nil)
		resp, _ := app.Test(req)

		assert.Equal(t, http.StatusNoContent, resp.StatusCode)
		mockSvc.AssertExpectations(t)
	})

	t.Run("not found", func(t *testing.T) {
		mockSvc.On("Delete", mock.Anything, "MISSING").Return(store.ErrNotFound).Once()

		req := httptest.NewRequest(http.MethodDelete, "/documents/MISSING", nil)
		resp, _ := app.Test(req)

		assert.Equal(t, http.StatusNotFound, resp.StatusCode)
		mockSvc.AssertExpectations(t)
	})
}

func TestRunSync(t *testing.T) {
	mockSvc := new(serviceMocks.MockSyncService)
	app := fiber.New()
	app.Post("/sync", RunSync(mockSvc))

	t.Run("returns totals", func(t *testing.T) {
		mockSvc.On("Sync", mock.Anything, false).Return(model.SyncTotals{Created: 2, Failed: 1}, nil).Once()

		req := httptest.NewRequest(http.MethodPost, "/sync", nil)
		resp, _ := app.Test(req)

		assert.Equal(t, http.StatusOK, resp.StatusCode)
		var body struct {
			DryRun bool             `json:"dry_run"`
			Totals model.SyncTotals `json:"totals"`
		}
		json.NewDecoder(resp.Body).Decode(&body)
		assert.False(t, body.DryRun)
		assert.Equal(t, 2, body.Totals.Created)
		assert.Equal(t, 1, body.Totals.Failed)
		mockSvc.AssertExpectations(t)
	})

	t.Run("dry run flag is passed through", func(t *testing.T) {
		mockSvc.On("Sync", mock.Anything, true).Return(model.SyncTotals{}, nil).Once()

		req := httptest.NewRequest(http.MethodPost, "/sync?dry_run=true", nil)
		resp, _ := app.Test(req)

		assert.Equal(t, http.StatusOK, resp.StatusCode)
		mockSvc.AssertExpectations(t)
	})

	t.Run("overlapping run conflicts", func(t *testing.T) {
		mockSvc.On("Sync", mock.Anything, false).Return(model.SyncTotals{}, service.ErrSyncConflict).Once()

		req := httptest.NewRequest(http.MethodPost, "/sync", nil)
		resp, _ := app.Test(req)

		assert.Equal(t, http.StatusConflict, resp.StatusCode)
		var res errorPayload
		json.NewDecoder(resp.Body).Decode(&res)
		assert.Equal(t, "SYNC_IN_PROGRESS", res.Error.Code)
		mockSvc.AssertExpectations(t)
	})
}
