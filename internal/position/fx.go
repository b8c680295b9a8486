package position

import (
	"github.com/smallbiznis/talentflow/internal/position/repository"
	"github.com/smallbiznis/talentflow/internal/position/service"
	"go.uber.org/fx"
)

var Module = fx.Module("position.service",
	fx.Provide(repository.Provide),
	fx.Provide(service.New),
)
