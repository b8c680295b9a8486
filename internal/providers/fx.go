package providers

import (
	"github.com/smallbiznis/talentflow/internal/providers/pdf"
	"go.uber.org/fx"
)

// Module bundles the outbound document and delivery adapters.
var Module = fx.Module("providers",
	pdf.Module,
)
