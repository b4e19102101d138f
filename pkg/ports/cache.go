package ports

import (
	"context"

	"github.com/aescanero/taskorch/pkg/domain"
)

// ResultCache stores worker outputs by key. Get reports a miss with
// ok == false and a nil error.
type ResultCache interface {
	Get(ctx context.Context, key string) (out *domain.WorkerOutput, ok bool, err error)
	Set(ctx context.Context, key string, out *domain.WorkerOutput) error
	Clear(ctx context.Context) (int, error)
	Len(ctx context.Context) (int, error)
}
