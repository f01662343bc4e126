package catalog

import (
	"github.com/smallbiznis/storefront/internal/catalog/repository"
	"github.com/smallbiznis/storefront/internal/catalog/service"
	"go.uber.org/fx"
)

var Module = fx.Module("catalog",
	fx.Provide(
		repository.Provide,
		service.New,
	),
)
