package mocks

import (
	"context"

	"github.com/stretchr/testify/mock"

	"docsync/internal/model"
)

type MockSyncService struct {
	mock.Mock
}

func (m *MockSyncService) Sync(ctx context.Context, dryRun bool) (model.SyncTotals, error) {
	args := m.Called(ctx, dryRun)
	return args.Get(0).(model.SyncTotals), args.Error(1)
}
