package interview

import (
	"github.com/smallbiznis/talentflow/internal/interview/repository"
	"github.com/smallbiznis/talentflow/internal/interview/service"
	"go.uber.org/fx"
)

var Module = fx.Module("interview.service",
	fx.Provide(repository.Provide),
	fx.Provide(service.New),
)
