package mocks

import (
	"context"

	"github.com/dukex/cadence/pkg/protocol"
	"github.com/stretchr/testify/mock"
)

// MockDispatcher is a mock implementation of protocol.Dispatcher interface.
type MockDispatcher struct {
	mock.Mock
}

func (m *MockDispatcher) Dispatch(ctx context.Context, req protocol.DispatchRequest) (string, error) {
	args := m.Called(ctx, req)

	return args.String(0), args.Error(1)
}
