package mocks

import (
	"context"

	"docmanager/internal/model"
	"github.com/stretchr/testify/mock"
)

type MockBroadcaster struct {
	mock.Mock
}

func (m *MockBroadcaster) Broadcast(ctx context.Context, doc *model.Document) {
	m.Called(ctx, doc)
}
