package mocks

import (
	"context"

	"docmanager/internal/model"
	"docmanager/internal/store"
	"github.com/stretchr/testify/mock"
)

type MockRecordStore struct {
	mock.Mock
}

func (m *MockRecordStore) Put(ctx context.Context, doc *model.Document) (*model.Document, error) {
	args := m.Called(ctx, doc)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*model.Document), args.Error(1)
}

func (m *MockRecordStore) Get(ctx context.Context, id string) (*model.Document, error) {
	args := m.Called(ctx, id)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*model.Document), args.Error(1)
}

func (m *MockRecordStore) UpdateStatus(ctx context.Context, id string, status model.Status) (*model.Document, error) {
	args := m.Called(ctx, id, status)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*model.Document), args.Error(1)
}

func (m *MockRecordStore) UpdateStatusGuarded(ctx context.Context, id string, status, forbidden model.Status) (*model.Document, error) {
	args := m.Called(ctx, id, status, forbidden)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*model.Document), args.Error(1)
}

func (m *MockRecordStore) Delete(ctx context.Context, id string) error {
	args := m.Called(ctx, id)
	return args.Error(0)
}

func (m *MockRecordStore) QueryByStatus(ctx context.Context, status model.Status, limit int, startKey *store.ContinuationKey, descending bool) (*store.QueryPage, error) {
	args := m.Called(ctx, status, limit, startKey, descending)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*store.QueryPage), args.Error(1)
}
