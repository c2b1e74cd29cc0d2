package modules

import (
	"github.com/planventa/planventa/modules/core"
	"github.com/planventa/planventa/modules/planning"
	"github.com/planventa/planventa/pkg/application"
)

var BuiltInModules = []application.Module{
	core.NewModule(),
	planning.NewModule(),
}

func Load(app application.Application, modules ...application.Module) error {
	for _, module := range modules {
		if err := module.Register(app); err != nil {
			return err
		}
	}
	return nil
}
