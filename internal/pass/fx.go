package pass

import (
	"github.com/smallbiznis/talentflow/internal/pass/repository"
	"github.com/smallbiznis/talentflow/internal/pass/service"
	"go.uber.org/fx"
)

var Module = fx.Module("pass.service",
	fx.Provide(repository.Provide),
	fx.Provide(service.New),
)
