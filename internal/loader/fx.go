package loader

import (
	"github.com/railzwaylabs/salesanalytics/internal/sales/domain"
	"go.uber.org/fx"
)

var Module = fx.Module("loader",
	fx.Provide(
		fx.Annotate(New, fx.As(new(domain.Loader))),
	),
)
