package service

import (
	"context"
	"database/sql"
	"encoding/json"
	"errors"
	"fmt"
	"log"
	"time"

	"github.com/google/uuid"

	"docsync/internal/model"
	"docsync/internal/repository"
	"docsync/internal/store"
)

var (
	// ErrSyncConflict is returned when another run is already in progress or
	// the local ledger is ahead of the store's changelog token.
	ErrSyncConflict = errors.New("synchronization conflict")
	// ErrSyncConfig is returned when the store's changelog token cannot be
	// retrieved; the run aborts before any mutation.
	ErrSyncConfig = errors.New("store changelog unavailable")
)

// SyncService drives one changelog reconciliation run. At most one run may be
// active at a time: overlap is detected through the run ledger and rejected,
// not serialized. The whole run executes inside a single local transaction.
type SyncService interface {
	// Sync reconciles the store changelog into the local record and returns
	// per-category counts. With dryRun the ledger and local records are left
	// untouched while outcomes are still counted.
	Sync(ctx context.Context, dryRun bool) (model.SyncTotals, error)
}

type syncService struct {
	gateway store.Gateway
	tx      repository.TxManager
	metrics *SyncMetrics
}

// NewSyncService constructs a SyncService. metrics may be nil.
func NewSyncService(gateway store.Gateway, tx repository.TxManager, metrics *SyncMetrics) SyncService {
	return &syncService{gateway: gateway, tx: tx, metrics: metrics}
}

func (s *syncService) Sync(ctx context.Context, dryRun bool) (model.SyncTotals, error) {
	var totals model.SyncTotals

	token, err := s.gateway.LatestChangeToken(ctx)
	if err != nil {
		s.metrics.runFinished("config_error")
		return totals, fmt.Errorf("%w: %v", ErrSyncConfig, err)
	}

	err = s.tx.WithinTx(ctx, func(r repository.Repos) error {
		var run *model.SyncRun
		if !dryRun {
			created, err := r.Runs.Create(ctx, token)
			if err != nil {
				return fmt.Errorf("create run: %w", err)
			}
			run = created
			overlapping, err := r.Runs.CountInProgressExcept(ctx, run.ID)
			if err != nil {
				return fmt.Errorf("check overlapping runs: %w", err)
			}
			if overlapping > 0 {
				if err := r.Runs.Delete(ctx, run.ID); err != nil {
					return fmt.Errorf("back out run: %w", err)
				}
				return fmt.Errorf("%w: a synchronization run is already in progress", ErrSyncConflict)
			}
		}

		last, err := r.Runs.LastCompleted(ctx)
		if err != nil {
			return fmt.Errorf("read last completed run: %w", err)
		}
		var lastToken int64
		if last != nil {
			lastToken = last.Token
		}

		window := token - lastToken
		if window < 0 {
			// The store changelog moved backwards relative to our ledger;
			// that means store data loss or a reset, never something to
			// paper over.
			return fmt.Errorf("%w: store changelog token %d is older than the ledger token %d", ErrSyncConflict, token, lastToken)
		}
		if window == 0 {
			if run != nil {
				if err := r.Runs.Delete(ctx, run.ID); err != nil {
					return fmt.Errorf("discard no-op run: %w", err)
				}
			}
			return nil
		}

		changes, err := s.gateway.GetChanges(ctx, lastToken, window)
		if err != nil {
			return fmt.Errorf("open changelog window: %w", err)
		}

		// Store feeds may repeat entries; a (object, type) pair is processed
		// at most once per run.
		seen := map[string]struct{}{}
		for {
			entry, ok := changes.Next()
			if !ok {
				break
			}
			objectID := store.CanonicalObjectID(entry.ObjectID)
			key := objectID + "-" + string(entry.Type)
			if _, dup := seen[key]; dup {
				continue
			}
			seen[key] = struct{}{}
			s.applyEntry(ctx, r, entry, objectID, dryRun, &totals)
		}
		if err := changes.Err(); err != nil {
			return fmt.Errorf("drain changelog window: %w", err)
		}

		if run != nil {
			if err := r.Runs.MarkCompleted(ctx, run.ID); err != nil {
				return fmt.Errorf("complete run: %w", err)
			}
		}
		return nil
	})
	if err != nil {
		if errors.Is(err, ErrSyncConflict) {
			s.metrics.runFinished("conflict")
		} else {
			s.metrics.runFinished("error")
		}
		return model.SyncTotals{}, err
	}

	s.metrics.observeTotals(totals)
	s.metrics.runFinished("completed")
	return totals, nil
}

// applyEntry processes one changelog entry. Failures never abort the run: any
// error (or panic) is logged and counted as failed so the token window keeps
// moving despite individual bad records.
func (s *syncService) applyEntry(ctx context.Context, r repository.Repos, entry store.ChangeEntry, objectID string, dryRun bool, totals *model.SyncTotals) {
	defer func() {
		if p := recover(); p != nil {
			totals.Failed++
			logSyncEvent("entry_panic", entry, objectID, fmt.Sprint(p))
		}
	}()

	switch entry.Type {
	case store.ChangeCreated, store.ChangeUpdated:
		s.applyObjectChange(ctx, r, entry, objectID, dryRun, totals)
	case store.ChangeDeleted:
		_, err := r.Documents.FindByObjectID(ctx, objectID)
		if err != nil {
			if errors.Is(err, sql.ErrNoRows) {
				// Already gone locally, or never synced.
				totals.Failed++
				logSyncEvent("delete_unmatched", entry, objectID, "")
				return
			}
			totals.Failed++
			logSyncEvent("entry_error", entry, objectID, err.Error())
			return
		}
		if !dryRun {
			if _, err := r.Documents.DeleteByObjectID(ctx, objectID); err != nil {
				totals.Failed++
				logSyncEvent("entry_error", entry, objectID, err.Error())
				return
			}
		}
		totals.Deleted++
	case store.ChangeSecurity:
		// Security-metadata changes carry no local implication and are never
		// applied.
		totals.Security++
	default:
		totals.Failed++
		logSyncEvent("unsupported_change_type", entry, objectID, "")
	}
}

// applyObjectChange handles created and updated entries on the tracked
// document type. Entries for other object types pass through uncounted.
func (s *syncService) applyObjectChange(ctx context.Context, r repository.Repos, entry store.ChangeEntry, objectID string, dryRun bool, totals *model.SyncTotals) {
	handle, err := s.gateway.GetObject(ctx, objectID)
	if err != nil {
		if errors.Is(err, store.ErrNotFound) {
			totals.Failed++
			logSyncEvent("object_missing_in_store", entry, objectID, "")
			return
		}
		totals.Failed++
		logSyncEvent("entry_error", entry, objectID, err.Error())
		return
	}
	if typeID, _ := handle.Properties[store.PropObjectTypeID].(string); typeID != store.TypeDocument {
		return
	}

	if entry.Type == store.ChangeUpdated {
		identifier, _ := handle.Properties[store.PropIdentifier].(string)
		doc, err := r.Documents.FindByIdentifier(ctx, identifier)
		if err != nil {
			if errors.Is(err, sql.ErrNoRows) {
				totals.Failed++
				logSyncEvent("object_missing_locally", entry, objectID, "")
				return
			}
			totals.Failed++
			logSyncEvent("entry_error", entry, objectID, err.Error())
			return
		}
		applyStoreProperties(doc, handle.Properties)
		if !dryRun {
			if _, err := r.Documents.Update(ctx, doc); err != nil {
				totals.Failed++
				logSyncEvent("entry_error", entry, objectID, err.Error())
				return
			}
		}
		totals.Updated++
		return
	}

	// created: record the document and the case-folder association implied by
	// its current path.
	identifier, _ := handle.Properties[store.PropIdentifier].(string)
	if identifier == "" {
		totals.Failed++
		logSyncEvent("created_without_identifier", entry, objectID, "")
		return
	}
	if !dryRun {
		existing, err := r.Documents.FindByIdentifier(ctx, identifier)
		switch {
		case err == nil:
			if !existing.Materialized() {
				if err := r.Documents.SetObjectID(ctx, existing.ID, objectID); err != nil {
					totals.Failed++
					logSyncEvent("entry_error", entry, objectID, err.Error())
					return
				}
			}
		case errors.Is(err, sql.ErrNoRows):
			doc := &model.Document{
				ID:            uuid.NewString(),
				Identifier:    identifier,
				StoreObjectID: &objectID,
				CreatedAt:     time.Now().UTC(),
				UpdatedAt:     time.Now().UTC(),
			}
			applyStoreProperties(doc, handle.Properties)
			if _, err := r.Documents.Create(ctx, doc); err != nil {
				totals.Failed++
				logSyncEvent("entry_error", entry, objectID, err.Error())
				return
			}
		default:
			totals.Failed++
			logSyncEvent("entry_error", entry, objectID, err.Error())
			return
		}
	}
	totals.Created++
}

// logSyncEvent writes one JSON line per notable reconciliation event.
func logSyncEvent(event string, entry store.ChangeEntry, objectID string, detail string) {
	payload := map[string]any{
		"ts":          time.Now().UTC().Format(time.RFC3339Nano),
		"component":   "sync",
		"event":       event,
		"entry_id":    entry.ID,
		"object_id":   objectID,
		"change_type": string(entry.Type),
	}
	if detail != "" {
		payload["detail"] = detail
	}
	b, err := json.Marshal(payload)
	if err != nil {
		log.Printf("failed to marshal sync log: %v", err)
		return
	}
	log.SetFlags(0)
	log.Println(string(b))
}
