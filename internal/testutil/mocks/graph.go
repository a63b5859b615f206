package mocks

import (
	"context"

	"github.com/stretchr/testify/mock"

	"github.com/davidleathers/insurance-fraud-backend/internal/infrastructure/graph"
)

// GraphStore mock. When Tx is set, WriteTx callbacks run against it so
// tests can observe the statements issued inside the transaction.
type GraphStore struct {
	mock.Mock
	Tx graph.Tx
}

func (m *GraphStore) Query(ctx context.Context, query string, params map[string]any) ([]graph.Record, error) {
	args := m.Called(ctx, query, params)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).([]graph.Record), args.Error(1)
}

func (m *GraphStore) Write(ctx context.Context, query string, params map[string]any) (graph.Record, error) {
	args := m.Called(ctx, query, params)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(graph.Record), args.Error(1)
}

func (m *GraphStore) WriteTx(ctx context.Context, fn func(tx graph.Tx) error) error {
	args := m.Called(ctx, fn)
	if err := args.Error(0); err != nil {
		return err
	}
	if m.Tx != nil {
		return fn(m.Tx)
	}
	return nil
}

func (m *GraphStore) Ping(ctx context.Context) error {
	args := m.Called(ctx)
	return args.Error(0)
}

func (m *GraphStore) Close(ctx context.Context) error {
	args := m.Called(ctx)
	return args.Error(0)
}

var _ graph.Store = (*GraphStore)(nil)

// GraphTx mock
type GraphTx struct {
	mock.Mock
}

func (m *GraphTx) Write(query string, params map[string]any) (graph.Record, error) {
	args := m.Called(query, params)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(graph.Record), args.Error(1)
}

var _ graph.Tx = (*GraphTx)(nil)
