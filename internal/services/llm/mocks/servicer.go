package mocks

import (
	"context"

	"github.com/gnzdotmx/chapterize/internal/services/llm"
	"github.com/stretchr/testify/mock"
)

// MockServicer is a testify mock of llm.Servicer
type MockServicer struct {
	mock.Mock
}

// NewMockServicer creates a mock that asserts its expectations on cleanup
func NewMockServicer(t interface {
	mock.TestingT
	Cleanup(func())
}) *MockServicer {
	m := &MockServicer{}
	m.Mock.Test(t)
	t.Cleanup(func() { m.AssertExpectations(t) })
	return m
}

// Complete provides a mock function
func (m *MockServicer) Complete(ctx context.Context, messages []llm.Message, opts llm.CompletionOptions) (*llm.Response, error) {
	args := m.Called(ctx, messages, opts)
	var resp *llm.Response
	if r := args.Get(0); r != nil {
		resp = r.(*llm.Response)
	}
	return resp, args.Error(1)
}

// GetContent provides a mock function
func (m *MockServicer) GetContent(ctx context.Context, messages []llm.Message, opts llm.CompletionOptions) (string, error) {
	args := m.Called(ctx, messages, opts)
	return args.String(0), args.Error(1)
}

var _ llm.Servicer = (*MockServicer)(nil)
