package intake

import (
	apphttp "github.com/phillipshepard1/internal-re-crm-sub000/internal/http"
)

// Module exposes the pipeline over HTTP and to the webhook and mailbox.
type Module struct {
	pipeline *Pipeline
	handler  *Handler
}

func NewModule(deps Deps, opts Options) *Module {
	if deps.Log != nil {
		deps.Log = deps.Log.WithComponent("intake")
	}
	p := New(deps, opts)
	return &Module{pipeline: p, handler: NewHandler(p)}
}

func (m *Module) Pipeline() *Pipeline {
	return m.pipeline
}

func (m *Module) Name() string {
	return "intake"
}

func (m *Module) RegisterRoutes(ctx *apphttp.RouterContext) {
	ctx.Protected.POST("/leads", m.handler.SubmitLead)

	admin := ctx.Admin.Group("/intake")
	admin.POST("/preview", m.handler.Preview)
	admin.POST("/messages", m.handler.ProcessMessage)
}

var _ apphttp.Module = (*Module)(nil)
