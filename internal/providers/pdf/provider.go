package pdf

import (
	"context"
	"io"

	"go.uber.org/fx"
)

var Module = fx.Module("providers.pdf",
	fx.Provide(New),
)

// Provider renders printable documents handed out through public passes.
type Provider interface {
	GenerateCandidatePass(ctx context.Context, data CandidatePassData) (io.Reader, error)
}
