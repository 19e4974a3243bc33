package handler

import (
	"bytes"
	"context"
	"database/sql"
	"encoding/json"
	"fmt"
	"io"
	"strconv"
	"time"

	"github.com/gofiber/fiber/v2"

	"docsync/internal/model"
	"docsync/internal/service"
)

// RegisterRoutes attaches HTTP routes to the provided Fiber app.
// Handlers translate between the wire format and the services; no business
// logic lives here.
func RegisterRoutes(app *fiber.App, db *sql.DB, docSvc service.DocumentService, syncSvc service.SyncService) {
	app.Get("/health", HealthCheck(db))
	app.Get("/healthz", LivenessProbe())

	app.Get("/documents", ListDocuments(docSvc))
	app.Post("/documents", CreateDocument(docSvc))
	app.Get("/documents/:identifier", GetDocument(docSvc))
	app.Put("/documents/:identifier", UpdateDocument(docSvc))
	app.Delete("/documents/:identifier", DeleteDocument(docSvc))

	app.Get("/documents/:identifier/download", DownloadDocument(docSvc))
	app.Put("/documents/:identifier/content", SetDocumentContent(docSvc))

	app.Get("/documents/:identifier/lock", LockStatus(docSvc))
	app.Post("/documents/:identifier/lock", CheckoutDocument(docSvc))
	app.Delete("/documents/:identifier/lock", CancelCheckout(docSvc))

	app.Post("/documents/:identifier/case", LinkToCase(docSvc))
	app.Delete("/documents/:identifier/case", UnlinkFromCase(docSvc))

	app.Post("/sync", RunSync(syncSvc))
}

// HealthCheck reports readiness by checking database connectivity.
func HealthCheck(db *sql.DB) fiber.Handler {
	return func(c *fiber.Ctx) error {
		ctx, cancel := context.WithTimeout(c.UserContext(), 2*time.Second)
		defer cancel()
		if err := db.PingContext(ctx); err != nil {
			return writeError(c, fiber.StatusServiceUnavailable, "SERVICE_UNAVAILABLE", "dependency unavailable")
		}
		return c.Status(fiber.StatusOK).JSON(fiber.Map{"status": "healthy"})
	}
}

// LivenessProbe is a plain liveness endpoint with no dependency checks.
func LivenessProbe() fiber.Handler {
	return func(c *fiber.Ctx) error {
		return c.SendStatus(fiber.StatusOK)
	}
}

// ListDocuments returns the paginated local registry.
func ListDocuments(svc service.DocumentService) fiber.Handler {
	return func(c *fiber.Ctx) error {
		limit, err := strconv.Atoi(c.Query("limit", "10"))
		if err != nil {
			return writeError(c, fiber.StatusBadRequest, "INVALID_LIMIT", "invalid limit")
		}
		offset, err := strconv.Atoi(c.Query("offset", "0"))
		if err != nil {
			return writeError(c, fiber.StatusBadRequest, "INVALID_OFFSET", "invalid offset")
		}

		res, err := svc.List(c.UserContext(), limit, offset)
		if err != nil {
			return serviceError(c, err)
		}
		return c.JSON(res)
	}
}

// CreateDocument registers a document and materializes it in the store.
// The request is multipart/form-data: a required "document" JSON part with the
// metadata, an optional "file" part with the content, and optional "case" and
// "sender" form values.
func CreateDocument(svc service.DocumentService) fiber.Handler {
	return func(c *fiber.Ctx) error {
		meta := c.FormValue("document")
		if meta == "" {
			return writeError(c, fiber.StatusBadRequest, "DOCUMENT_REQUIRED", "document metadata is required")
		}
		var doc model.Document
		if err := json.Unmarshal([]byte(meta), &doc); err != nil {
			return writeError(c, fiber.StatusBadRequest, "INVALID_DOCUMENT", "cannot parse document metadata")
		}

		in := service.CreateDocumentInput{
			Document:      doc,
			CaseReference: c.FormValue("case"),
			Sender:        c.FormValue("sender"),
		}

		if fh, err := c.FormFile("file"); err == nil {
			f, err := fh.Open()
			if err != nil {
				return writeError(c, fiber.StatusBadRequest, "FILE_OPEN_ERROR", "cannot open uploaded file")
			}
			defer f.Close()
			in.Content = f
			in.Filename = fh.Filename
			in.ContentType = fh.Header.Get("Content-Type")
			if in.ContentType == "" {
				in.ContentType = "application/octet-stream"
			}
		}

		created, err := svc.Create(c.UserContext(), in)
		if err != nil {
			return serviceError(c, err)
		}
		return c.Status(fiber.StatusCreated).JSON(created)
	}
}

// GetDocument returns the local record by its functional identifier.
func GetDocument(svc service.DocumentService) fiber.Handler {
	return func(c *fiber.Ctx) error {
		doc, err := svc.Get(c.UserContext(), c.Params("identifier"))
		if err != nil {
			return serviceError(c, err)
		}
		return c.JSON(doc)
	}
}

// DownloadDocument streams the document content. A document without a store
// object or without a content stream yields 404.
func DownloadDocument(svc service.DocumentService) fiber.Handler {
	return func(c *fiber.Ctx) error {
		res, err := svc.Read(c.UserContext(), c.Params("identifier"))
		if err != nil {
			return serviceError(c, err)
		}
		defer res.Content.Close()

		buf, err := io.ReadAll(res.Content)
		if err != nil {
			return writeError(c, fiber.StatusBadGateway, "STORE_ERROR", "cannot read content from store")
		}
		if len(buf) == 0 {
			return writeError(c, fiber.StatusNotFound, "NO_CONTENT", "document has no content")
		}

		c.Set(fiber.HeaderContentDisposition, fmt.Sprintf("attachment; filename=%q", res.Filename))
		c.Set(fiber.HeaderContentType, "application/octet-stream")
		return c.Send(buf)
	}
}

// UpdateDocument replaces the document metadata and optionally its content.
// The multipart layout matches CreateDocument plus an optional "checkout_id"
// value; the working copy is checked in when one is supplied.
func UpdateDocument(svc service.DocumentService) fiber.Handler {
	return func(c *fiber.Ctx) error {
		meta := c.FormValue("document")
		if meta == "" {
			return writeError(c, fiber.StatusBadRequest, "DOCUMENT_REQUIRED", "document metadata is required")
		}
		var doc model.Document
		if err := json.Unmarshal([]byte(meta), &doc); err != nil {
			return writeError(c, fiber.StatusBadRequest, "INVALID_DOCUMENT", "cannot parse document metadata")
		}
		doc.Identifier = c.Params("identifier")

		in := service.UpdateDocumentInput{
			Metadata:   doc,
			CheckoutID: c.FormValue("checkout_id"),
		}
		if fh, err := c.FormFile("file"); err == nil {
			f, err := fh.Open()
			if err != nil {
				return writeError(c, fiber.StatusBadRequest, "FILE_OPEN_ERROR", "cannot open uploaded file")
			}
			defer f.Close()
			in.Content = f
			in.Filename = fh.Filename
			in.ContentType = fh.Header.Get("Content-Type")
			if in.ContentType == "" {
				in.ContentType = "application/octet-stream"
			}
		}

		updated, err := svc.Update(c.UserContext(), in)
		if err != nil {
			return serviceError(c, err)
		}
		return c.JSON(updated)
	}
}

// SetDocumentContent overwrites the content stream, producing a new version.
// The raw request body is the content; checkout_id is passed as a query value
// when the write should go against a working copy.
func SetDocumentContent(svc service.DocumentService) fiber.Handler {
	return func(c *fiber.Ctx) error {
		ct := c.Get(fiber.HeaderContentType)
		if ct == "" {
			ct = "application/octet-stream"
		}
		err := svc.SetContent(c.UserContext(), c.Params("identifier"),
			bytes.NewReader(c.Body()), ct, c.Query("checkout_id"))
		if err != nil {
			return serviceError(c, err)
		}
		return c.SendStatus(fiber.StatusNoContent)
	}
}

// LockStatus reports whether the document is currently checked out.
func LockStatus(svc service.DocumentService) fiber.Handler {
	return func(c *fiber.Ctx) error {
		locked, err := svc.IsLocked(c.UserContext(), c.Params("identifier"))
		if err != nil {
			return serviceError(c, err)
		}
		return c.JSON(fiber.Map{"locked": locked})
	}
}

// CheckoutDocument locks the document and returns the working copy token.
func CheckoutDocument(svc service.DocumentService) fiber.Handler {
	return func(c *fiber.Ctx) error {
		lock, err := svc.Checkout(c.UserContext(), c.Params("identifier"))
		if err != nil {
			return serviceError(c, err)
		}
		return c.Status(fiber.StatusCreated).JSON(fiber.Map{
			"checkout_id": lock.CheckoutID,
			"checkout_by": lock.CheckoutBy,
		})
	}
}

// CancelCheckout discards the working copy without creating a version.
func CancelCheckout(svc service.DocumentService) fiber.Handler {
	return func(c *fiber.Ctx) error {
		checkoutID := c.Query("checkout_id")
		if checkoutID == "" {
			return writeError(c, fiber.StatusBadRequest, "CHECKOUT_ID_REQUIRED", "checkout_id is required")
		}
		if err := svc.CancelCheckout(c.UserContext(), c.Params("identifier"), checkoutID); err != nil {
			return serviceError(c, err)
		}
		return c.SendStatus(fiber.StatusNoContent)
	}
}

type caseLinkPayload struct {
	Case string `json:"case"`
}

// LinkToCase files the document under the case folder.
func LinkToCase(svc service.DocumentService) fiber.Handler {
	return func(c *fiber.Ctx) error {
		var payload caseLinkPayload
		if err := c.BodyParser(&payload); err != nil || payload.Case == "" {
			return writeError(c, fiber.StatusBadRequest, "CASE_REQUIRED", "case reference is required")
		}
		if err := svc.LinkToCase(c.UserContext(), c.Params("identifier"), payload.Case); err != nil {
			return serviceError(c, err)
		}
		return c.SendStatus(fiber.StatusNoContent)
	}
}

// UnlinkFromCase moves the document from its case folder to the trash folder.
func UnlinkFromCase(svc service.DocumentService) fiber.Handler {
	return func(c *fiber.Ctx) error {
		caseRef := c.Query("case")
		if caseRef == "" {
			return writeError(c, fiber.StatusBadRequest, "CASE_REQUIRED", "case reference is required")
		}
		if err := svc.UnlinkFromCase(c.UserContext(), c.Params("identifier"), caseRef); err != nil {
			return serviceError(c, err)
		}
		return c.SendStatus(fiber.StatusNoContent)
	}
}

// DeleteDocument hard-deletes the store object behind the identifier.
func DeleteDocument(svc service.DocumentService) fiber.Handler {
	return func(c *fiber.Ctx) error {
		if err := svc.Delete(c.UserContext(), c.Params("identifier")); err != nil {
			return serviceError(c, err)
		}
		return c.SendStatus(fiber.StatusNoContent)
	}
}

// RunSync triggers one reconciliation run and returns the per-category totals.
// Pass dry_run=true to compute totals without touching the registry.
func RunSync(svc service.SyncService) fiber.Handler {
	return func(c *fiber.Ctx) error {
		dryRun := c.Query("dry_run") == "true"
		totals, err := svc.Sync(c.UserContext(), dryRun)
		if err != nil {
			return serviceError(c, err)
		}
		return c.JSON(fiber.Map{
			"dry_run": dryRun,
			"totals":  totals,
		})
	}
}
