package mocks

import (
	"context"
	"io"

	"github.com/stretchr/testify/mock"

	"docsync/internal/model"
	"docsync/internal/service"
	"docsync/internal/store"
)

type MockDocumentService struct {
	mock.Mock
}

func (m *MockDocumentService) Create(ctx context.Context, in service.CreateDocumentInput) (*model.Document, error) {
	args := m.Called(ctx, in)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*model.Document), args.Error(1)
}

func (m *MockDocumentService) Get(ctx context.Context, identifier string) (*model.Document, error) {
	args := m.Called(ctx, identifier)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*model.Document), args.Error(1)
}

func (m *MockDocumentService) List(ctx context.Context, limit, offset int) (*service.DocumentListResult, error) {
	args := m.Called(ctx, limit, offset)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*service.DocumentListResult), args.Error(1)
}

func (m *MockDocumentService) Read(ctx context.Context, identifier string) (*service.ReadResult, error) {
	args := m.Called(ctx, identifier)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*service.ReadResult), args.Error(1)
}

func (m *MockDocumentService) SetContent(ctx context.Context, identifier string, content io.Reader, contentType string, checkoutID string) error {
	args := m.Called(ctx, identifier, content, contentType, checkoutID)
	return args.Error(0)
}

func (m *MockDocumentService) Update(ctx context.Context, in service.UpdateDocumentInput) (*model.Document, error) {
	args := m.Called(ctx, in)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*model.Document), args.Error(1)
}

func (m *MockDocumentService) LinkToCase(ctx context.Context, identifier, caseRef string) error {
	args := m.Called(ctx, identifier, caseRef)
	return args.Error(0)
}

func (m *MockDocumentService) UnlinkFromCase(ctx context.Context, identifier, caseRef string) error {
	args := m.Called(ctx, identifier, caseRef)
	return args.Error(0)
}

func (m *MockDocumentService) Checkout(ctx context.Context, identifier string) (store.Lock, error) {
	args := m.Called(ctx, identifier)
	return args.Get(0).(store.Lock), args.Error(1)
}

func (m *MockDocumentService) CancelCheckout(ctx context.Context, identifier, checkoutID string) error {
	args := m.Called(ctx, identifier, checkoutID)
	return args.Error(0)
}

func (m *MockDocumentService) IsLocked(ctx context.Context, identifier string) (bool, error) {
	args := m.Called(ctx, identifier)
	return args.Bool(0), args.Error(1)
}

func (m *MockDocumentService) Delete(ctx context.Context, identifier string) error {
	args := m.Called(ctx, identifier)
	return args.Error(0)
}
