package audit

import (
	"github.com/smallbiznis/ecoscape/internal/audit/repository"
	"github.com/smallbiznis/ecoscape/internal/audit/service"
	"go.uber.org/fx"
)

// Module provides the audit trail writer and reader used by every account service.
var Module = fx.Module("audit.service",
	fx.Provide(
		repository.Provide,
		service.NewService,
	),
)
