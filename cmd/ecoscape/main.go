package main

import (
	"github.com/bwmarrin/snowflake"
	"go.uber.org/fx"

	"github.com/smallbiznis/ecoscape/internal/clock"
	"github.com/smallbiznis/ecoscape/internal/config"
	"github.com/smallbiznis/ecoscape/internal/migration"
	"github.com/smallbiznis/ecoscape/internal/observability"
	"github.com/smallbiznis/ecoscape/internal/server"
	"github.com/smallbiznis/ecoscape/pkg/db"
)

func main() {
	app := fx.New(
		config.Module,
		observability.Module,
		fx.Provide(RegisterSnowflake),
		db.Module,
		clock.Module,
		migration.Module,
		server.Module,
	)
	app.Run()
}

func RegisterSnowflake() (*snowflake.Node, error) {
	return snowflake.NewNode(1)
}
