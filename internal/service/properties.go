package service

import (
	"time"

	"docsync/internal/model"
	"docsync/internal/store"
)

const storeDateLayout = time.RFC3339

// buildProperties maps a document's metadata to the store property set. Dates
// are rendered as RFC3339 strings so diffing against live store values is a
// plain comparison. When filename is non-empty it becomes the object name.
func buildProperties(doc *model.Document, filename string) map[string]any {
	props := map[string]any{
		store.PropObjectTypeID:    store.TypeDocument,
		store.PropIdentifier:      doc.Identifier,
		store.PropTitle:           doc.Title,
		store.PropDescription:     doc.Description,
		store.PropAuthor:          doc.Author,
		store.PropLanguage:        doc.Language,
		store.PropConfidentiality: doc.Confidentiality,
		store.PropCreationDate:    formatStoreDate(doc.CreationDate),
		store.PropReceiptDate:     formatStoreDate(doc.ReceiptDate),
		store.PropSendDate:        formatStoreDate(doc.SendDate),
	}
	if filename != "" {
		props[store.PropName] = filename
	}
	return props
}

// diffProperties returns the subset of next whose value differs from the live
// store value. Keys absent from live count as changed.
func diffProperties(live map[string]any, next map[string]any) map[string]any {
	diff := map[string]any{}
	for key, value := range next {
		if live[key] != value {
			diff[key] = value
		}
	}
	return diff
}

// applyStoreProperties writes the store's current property values onto the
// local record. Only the mapped metadata fields are touched.
func applyStoreProperties(doc *model.Document, props map[string]any) {
	if v, ok := props[store.PropIdentifier].(string); ok && v != "" {
		doc.Identifier = v
	}
	if v, ok := props[store.PropTitle].(string); ok {
		doc.Title = v
	}
	if v, ok := props[store.PropDescription].(string); ok {
		doc.Description = v
	}
	if v, ok := props[store.PropAuthor].(string); ok {
		doc.Author = v
	}
	if v, ok := props[store.PropLanguage].(string); ok {
		doc.Language = v
	}
	if v, ok := props[store.PropConfidentiality].(string); ok {
		doc.Confidentiality = v
	}
	doc.CreationDate = parseStoreDate(props[store.PropCreationDate], doc.CreationDate)
	doc.ReceiptDate = parseStoreDate(props[store.PropReceiptDate], doc.ReceiptDate)
	doc.SendDate = parseStoreDate(props[store.PropSendDate], doc.SendDate)
}

func formatStoreDate(t *time.Time) any {
	if t == nil {
		return nil
	}
	return t.UTC().Format(storeDateLayout)
}

func parseStoreDate(v any, fallback *time.Time) *time.Time {
	s, ok := v.(string)
	if !ok || s == "" {
		return fallback
	}
	t, err := time.Parse(storeDateLayout, s)
	if err != nil {
		return fallback
	}
	t = t.UTC()
	return &t
}
