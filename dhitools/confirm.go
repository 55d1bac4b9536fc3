package dhitools

import (
	"context"
	"fmt"

	"github.com/vvoland/dhimcp/elicitation"
	"github.com/vvoland/dhimcp/mcpservice"
	"github.com/vvoland/dhimcp/sessions"
)

type confirmActionArgs struct {
	Action string `json:"action" jsonschema:"description=The action to confirm"`
}

// confirmActionTool asks the user to confirm an action before proceeding.
// An accepted-but-unconfirmed answer reads as a decline; a declined or
// cancelled elicitation is reported conversationally, never as an error.
func (t *toolset) confirmActionTool() mcpservice.StaticTool {
	return mcpservice.NewTool("confirm_action",
		func(ctx context.Context, session sessions.Session, w mcpservice.ToolResponseWriter, args confirmActionArgs) error {
			cap := elicitCapability(session)
			if cap == nil {
				w.SetError(true)
				return w.AppendText(noElicitationSupport)
			}

			schema := elicitation.NewSchema().
				Boolean("confirmed",
					elicitation.Description("Confirm this action"),
					elicitation.Default(false)).
				String("reason",
					elicitation.Description("Optional reason for your decision")).
				MustBuild()

			outcome, err := cap.Elicit(ctx,
				fmt.Sprintf("Are you sure you want to proceed with: %s?", args.Action),
				schema, t.elicitOpts()...)
			if err != nil {
				return err
			}

			switch outcome.Action {
			case elicitation.ActionAccept:
				confirmed, _ := outcome.Payload["confirmed"].(bool)
				if !confirmed {
					return w.AppendText(fmt.Sprintf("❌ Action declined: %s", args.Action))
				}
				text := fmt.Sprintf("✅ Action confirmed: %s.", args.Action)
				if reason, _ := outcome.Payload["reason"].(string); reason != "" {
					text += " Reason: " + reason
				}
				return w.AppendText(text)
			case elicitation.ActionDecline:
				return w.AppendText(fmt.Sprintf("❌ Confirmation declined for: %s", args.Action))
			default:
				return w.AppendText(fmt.Sprintf("⚠️ Confirmation cancelled for: %s", args.Action))
			}
		},
		mcpservice.WithToolDescription("Perform an action that requires user confirmation. Use this when you need to confirm something with the user."),
	)
}
