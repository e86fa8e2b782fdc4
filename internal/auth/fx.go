package auth

import (
	"github.com/smallbiznis/ecoscape/internal/auth/repository"
	"github.com/smallbiznis/ecoscape/internal/auth/service"
	"github.com/smallbiznis/ecoscape/internal/auth/token"
	"go.uber.org/fx"
)

var Module = fx.Module("auth.service",
	fx.Provide(repository.New),
	fx.Provide(token.Provide),
	fx.Provide(service.New),
)
