package main

import (
	"github.com/bwmarrin/snowflake"
	"github.com/smallbiznis/talentflow/internal/clock"
	"github.com/smallbiznis/talentflow/internal/config"
	"github.com/smallbiznis/talentflow/internal/observability"
	"github.com/smallbiznis/talentflow/internal/server"
	"github.com/smallbiznis/talentflow/pkg/db"
	"go.uber.org/fx"
)

func main() {
	app := fx.New(
		config.Module,
		observability.Module,
		fx.Provide(RegisterSnowflake),
		db.Module,
		clock.Module,
		server.Module,
	)
	app.Run()
}

func RegisterSnowflake() *snowflake.Node {
	node, err := snowflake.NewNode(2)
	if err != nil {
		panic(err)
	}
	return node
}
