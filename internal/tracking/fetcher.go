package tracking

import (
	"context"

	"trackinghub/internal/core/domain/model/kernel"
	"trackinghub/internal/core/ports"
)

// SnapshotFetcher loads the ground truth of an order.
type SnapshotFetcher interface {
	FetchSnapshot(ctx context.Context, orderID kernel.ID) (ports.OrderTracking, error)
}

// SnapshotFetcherFunc adapts a function to SnapshotFetcher.
type SnapshotFetcherFunc func(ctx context.Context, orderID kernel.ID) (ports.OrderTracking, error)

func (f SnapshotFetcherFunc) FetchSnapshot(ctx context.Context, orderID kernel.ID) (ports.OrderTracking, error) {
	return f(ctx, orderID)
}

// ClientFetcher fetches snapshots from the REST backend on behalf of token.
func ClientFetcher(client ports.TrackingClient, token string) SnapshotFetcher {
	return SnapshotFetcherFunc(func(ctx context.Context, orderID kernel.ID) (ports.OrderTracking, error) {
		return client.GetOrderTracking(ctx, token, orderID)
	})
}
