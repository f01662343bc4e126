package gateway

import (
	"github.com/smallbiznis/storefront/internal/gateway/stripeclient"
	"go.uber.org/fx"
)

var Module = fx.Module("gateway.stripe",
	fx.Provide(stripeclient.New),
)
