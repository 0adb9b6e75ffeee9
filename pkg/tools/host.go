package tools

import (
	"log/slog"

	"github.com/mentorvn/mentor/pkg/config"
	"github.com/mentorvn/mentor/pkg/portal"
	"github.com/mentorvn/mentor/pkg/retrieval"
)

// HostOptions carries the components the standard tool set is built from.
type HostOptions struct {
	Config config.ToolsConfig

	// Engine and Router back the retrieval tools. Both are required.
	Engine *retrieval.Engine
	Router *retrieval.Router

	// Portal backs the get_grades/get_schedule tools. Nil leaves the
	// portal tools unregistered.
	Portal *portal.Client
}

// NewHost assembles the standard tool set into an executor.
//
// Tools named in the disabled list are withheld; the portal tools are
// registered only when a portal client is provided.
func NewHost(opts HostOptions) (*Executor, error) {
	reg := NewRegistry()

	candidates := []Tool{
		NewRetrieveDocumentsTool(opts.Engine, opts.Router),
		NewRetrieveRegulationTool(opts.Engine),
		NewRetrieveCurriculumTool(opts.Engine),
	}
	if opts.Portal != nil {
		candidates = append(candidates,
			NewGetGradesTool(opts.Portal),
			NewGetScheduleTool(opts.Portal),
		)
	}

	for _, tool := range candidates {
		if opts.Config.IsDisabled(tool.GetName()) {
			slog.Debug("Tool disabled by config", "tool", tool.GetName())
			continue
		}
		if err := reg.RegisterTool(tool); err != nil {
			return nil, err
		}
	}

	slog.Info("Tool host ready", "tools", reg.Names())

	return NewExecutor(reg, opts.Config), nil
}
