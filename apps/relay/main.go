package main

import (
	"github.com/bwmarrin/snowflake"
	"github.com/smallbiznis/talentflow/internal/clock"
	"github.com/smallbiznis/talentflow/internal/config"
	"github.com/smallbiznis/talentflow/internal/events"
	"github.com/smallbiznis/talentflow/internal/observability"
	"github.com/smallbiznis/talentflow/internal/ratelimit"
	"github.com/smallbiznis/talentflow/pkg/db"
	"go.uber.org/fx"
)

// Outbox relay worker only. Run one or more replicas; the redis lease keeps
// a single active relayer.
func main() {
	app := fx.New(
		config.Module,
		observability.Module,
		fx.Provide(RegisterSnowflake),
		db.Module,
		clock.Module,
		ratelimit.Module,
		events.Module,
		fx.Invoke(events.RegisterRelay),
	)
	app.Run()
}

func RegisterSnowflake() *snowflake.Node {
	node, err := snowflake.NewNode(3)
	if err != nil {
		panic(err)
	}
	return node
}
