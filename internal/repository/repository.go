package repository

import "context"

// Package repository contains data access layer abstractions.
// Implementations can live in subpackages (e.g., postgres) inside this directory.

// Repos bundles the repositories bound to one transaction.
type Repos struct {
	Documents DocumentRepository
	Runs      SyncRunRepository
}

// TxManager runs a function with repositories bound to a single database
// transaction. The function's mutations and the transaction commit together;
// any returned error rolls everything back.
type TxManager interface {
	WithinTx(ctx context.Context, fn func(r Repos) error) error
}
