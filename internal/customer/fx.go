package customer

import (
	"github.com/smallbiznis/ecoscape/internal/customer/repository"
	"github.com/smallbiznis/ecoscape/internal/customer/service"
	"go.uber.org/fx"
)

var Module = fx.Module("customer.service",
	fx.Provide(repository.Provide),
	fx.Provide(service.New),
)
