package dhitools

import (
	"context"

	"github.com/vvoland/dhimcp/mcpservice"
	"github.com/vvoland/dhimcp/sessions"
)

type migrationInfoArgs struct {
	Image string `json:"image" jsonschema:"description=Image reference to look up (e.g. docker/dhi-node:18)"`
}

func (t *toolset) migrationInfoTool() mcpservice.StaticTool {
	return mcpservice.NewTool("get_migration_info",
		func(ctx context.Context, _ sessions.Session, w mcpservice.ToolResponseWriter, args migrationInfoArgs) error {
			return w.AppendText(t.docs.MigrationGuide(args.Image))
		},
		mcpservice.WithToolDescription("Return migration information for a given Docker Hardened Image."),
	)
}
