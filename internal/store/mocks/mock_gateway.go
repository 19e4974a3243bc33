package mocks

import (
	"context"
	"io"

	"docsync/internal/store"

	"github.com/stretchr/testify/mock"
)

type MockGateway struct {
	mock.Mock
}

func (m *MockGateway) ResolveFolder(ctx context.Context, name string, typeID string, parent *store.Folder) (store.Folder, bool, error) {
	args := m.Called(ctx, name, typeID, parent)
	return args.Get(0).(store.Folder), args.Bool(1), args.Error(2)
}

func (m *MockGateway) ResolvePath(ctx context.Context, path string) (store.Folder, error) {
	args := m.Called(ctx, path)
	return args.Get(0).(store.Folder), args.Error(1)
}

func (m *MockGateway) QueryDocumentByIdentifier(ctx context.Context, identifier string) (store.DocumentHandle, error) {
	args := m.Called(ctx, identifier)
	return args.Get(0).(store.DocumentHandle), args.Error(1)
}

func (m *MockGateway) GetObject(ctx context.Context, objectID string) (store.DocumentHandle, error) {
	args := m.Called(ctx, objectID)
	return args.Get(0).(store.DocumentHandle), args.Error(1)
}

func (m *MockGateway) CreateDocument(ctx context.Context, parent store.Folder, name string, properties map[string]any, content io.Reader, contentType string) (store.DocumentHandle, error) {
	args := m.Called(ctx, parent, name, properties, content, contentType)
	return args.Get(0).(store.DocumentHandle), args.Error(1)
}

func (m *MockGateway) GetContent(ctx context.Context, handle store.DocumentHandle) (io.ReadCloser, error) {
	args := m.Called(ctx, handle)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(io.ReadCloser), args.Error(1)
}

func (m *MockGateway) SetContent(ctx context.Context, handle store.DocumentHandle, content io.Reader, contentType string) error {
	args := m.Called(ctx, handle, content, contentType)
	return args.Error(0)
}

func (m *MockGateway) UpdateProperties(ctx context.Context, handle store.DocumentHandle, diff map[string]any) error {
	args := m.Called(ctx, handle, diff)
	return args.Error(0)
}

func (m *MockGateway) Checkout(ctx context.Context, handle store.DocumentHandle) (store.Lock, error) {
	args := m.Called(ctx, handle)
	return args.Get(0).(store.Lock), args.Error(1)
}

func (m *MockGateway) CancelCheckout(ctx context.Context, lock store.Lock) error {
	args := m.Called(ctx, lock)
	return args.Error(0)
}

func (m *MockGateway) Checkin(ctx context.Context, lock store.Lock) error {
	args := m.Called(ctx, lock)
	return args.Error(0)
}

func (m *MockGateway) Move(ctx context.Context, handle store.DocumentHandle, from, to store.Folder) error {
	args := m.Called(ctx, handle, from, to)
	return args.Error(0)
}

func (m *MockGateway) Delete(ctx context.Context, handle store.DocumentHandle) error {
	args := m.Called(ctx, handle)
	return args.Error(0)
}

func (m *MockGateway) LatestChangeToken(ctx context.Context) (int64, error) {
	args := m.Called(ctx)
	return args.Get(0).(int64), args.Error(1)
}

func (m *MockGateway) GetChanges(ctx context.Context, sinceToken int64, maxItems int64) (store.ChangeIterator, error) {
	args := m.Called(ctx, sinceToken, maxItems)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(store.ChangeIterator), args.Error(1)
}
