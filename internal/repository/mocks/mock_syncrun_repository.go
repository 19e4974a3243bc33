package mocks

import (
	"context"

	"docsync/internal/model"
	"docsync/internal/repository"
	"github.com/stretchr/testify/mock"
)

type MockSyncRunRepository struct {
	mock.Mock
}

func (m *MockSyncRunRepository) Create(ctx context.Context, token int64) (*model.SyncRun, error) {
	args := m.Called(ctx, token)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*model.SyncRun), args.Error(1)
}

func (m *MockSyncRunRepository) CountInProgressExcept(ctx context.Context, id string) (int, error) {
	args := m.Called(ctx, id)
	return args.Int(0), args.Error(1)
}

func (m *MockSyncRunRepository) LastCompleted(ctx context.Context) (*model.SyncRun, error) {
	args := m.Called(ctx)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*model.SyncRun), args.Error(1)
}

func (m *MockSyncRunRepository) MarkCompleted(ctx context.Context, id string) error {
	args := m.Called(ctx, id)
	return args.Error(0)
}

func (m *MockSyncRunRepository) Delete(ctx context.Context, id string) error {
	args := m.Called(ctx, id)
	return args.Error(0)
}

// StubTxManager satisfies repository.TxManager for service tests: it hands the
// given repositories straight to fn without any real transaction.
type StubTxManager struct {
	Repos repository.Repos
}

func (s *StubTxManager) WithinTx(ctx context.Context, fn func(r repository.Repos) error) error {
	return fn(s.Repos)
}
