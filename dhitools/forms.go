package dhitools

import (
	"context"
	"encoding/json"
	"fmt"

	"github.com/vvoland/dhimcp/elicitation"
	"github.com/vvoland/dhimcp/mcpservice"
	"github.com/vvoland/dhimcp/sessions"
)

type noArgs struct{}

// createUserTool collects multi-field user details with validation.
func (t *toolset) createUserTool() mcpservice.StaticTool {
	return mcpservice.NewTool("create_user",
		func(ctx context.Context, session sessions.Session, w mcpservice.ToolResponseWriter, _ noArgs) error {
			cap := elicitCapability(session)
			if cap == nil {
				w.SetError(true)
				return w.AppendText(noElicitationSupport)
			}

			schema := elicitation.NewSchema().
				String("username",
					elicitation.Required(),
					elicitation.Description("Username (3-20 characters)"),
					elicitation.MinLength(3),
					elicitation.MaxLength(20)).
				String("email",
					elicitation.Required(),
					elicitation.Description("Email address")).
				Enum("role", []string{"admin", "editor", "viewer"},
					elicitation.Required(),
					elicitation.Description("User role")).
				String("bio",
					elicitation.Description("Short bio (optional)")).
				Boolean("active",
					elicitation.Description("Account active"),
					elicitation.Default(true)).
				MustBuild()

			outcome, err := cap.Elicit(ctx, "Please provide the new user details:", schema, t.elicitOpts()...)
			if err != nil {
				return err
			}

			switch outcome.Action {
			case elicitation.ActionAccept:
				return w.AppendText("✅ User created successfully!\n\nUser details:\n" + prettyJSON(outcome.Payload))
			case elicitation.ActionDecline:
				return w.AppendText("❌ User creation declined.")
			default:
				return w.AppendText("⚠️ User creation cancelled.")
			}
		},
		mcpservice.WithToolDescription("Create a new user with interactive form input."),
	)
}

type configureSettingsArgs struct {
	Preset string `json:"preset,omitempty" jsonschema:"description=Optional preset name to start from (default, performance, or reliable)"`
}

type settingsPreset struct {
	maxConnections int
	timeout        float64
	retryCount     int
}

var settingsPresets = map[string]settingsPreset{
	"default":     {maxConnections: 10, timeout: 30, retryCount: 3},
	"performance": {maxConnections: 100, timeout: 5, retryCount: 1},
	"reliable":    {maxConnections: 5, timeout: 60, retryCount: 5},
}

// configureSettingsTool elicits numeric settings. The chosen preset only
// seeds the schema defaults shown to the user; accepted payloads are
// validated against the bounds, not against the preset.
func (t *toolset) configureSettingsTool() mcpservice.StaticTool {
	return mcpservice.NewTool("configure_settings",
		func(ctx context.Context, session sessions.Session, w mcpservice.ToolResponseWriter, args configureSettingsArgs) error {
			cap := elicitCapability(session)
			if cap == nil {
				w.SetError(true)
				return w.AppendText(noElicitationSupport)
			}

			preset := args.Preset
			defaults, ok := settingsPresets[preset]
			if !ok {
				if preset == "" {
					preset = "default"
				}
				defaults = settingsPresets["default"]
			}

			schema := elicitation.NewSchema().
				Integer("max_connections",
					elicitation.Required(),
					elicitation.Description("Maximum concurrent connections (1-100)"),
					elicitation.Minimum(1),
					elicitation.Maximum(100),
					elicitation.Default(defaults.maxConnections)).
				Number("timeout",
					elicitation.Required(),
					elicitation.Description("Request timeout in seconds (1-300)"),
					elicitation.Minimum(1),
					elicitation.Maximum(300),
					elicitation.Default(defaults.timeout)).
				Integer("retry_count",
					elicitation.Description("Number of retries (0-10)"),
					elicitation.Minimum(0),
					elicitation.Maximum(10),
					elicitation.Default(defaults.retryCount)).
				MustBuild()

			outcome, err := cap.Elicit(ctx,
				fmt.Sprintf("Configure settings (preset: %s):", preset),
				schema, t.elicitOpts()...)
			if err != nil {
				return err
			}

			switch outcome.Action {
			case elicitation.ActionAccept:
				return w.AppendText("✅ Settings configured!\n\nConfiguration:\n" + prettyJSON(outcome.Payload))
			case elicitation.ActionDecline:
				return w.AppendText("❌ Settings configuration declined.")
			default:
				return w.AppendText("⚠️ Settings configuration cancelled.")
			}
		},
		mcpservice.WithToolDescription("Configure numeric settings with validation."),
	)
}

// setupPreferencesTool elicits boolean toggles.
func (t *toolset) setupPreferencesTool() mcpservice.StaticTool {
	return mcpservice.NewTool("setup_preferences",
		func(ctx context.Context, session sessions.Session, w mcpservice.ToolResponseWriter, _ noArgs) error {
			cap := elicitCapability(session)
			if cap == nil {
				w.SetError(true)
				return w.AppendText(noElicitationSupport)
			}

			schema := elicitation.NewSchema().
				Boolean("dark_mode",
					elicitation.Description("Enable dark mode theme"),
					elicitation.Default(false)).
				Boolean("notifications",
					elicitation.Description("Enable notifications"),
					elicitation.Default(true)).
				Boolean("auto_save",
					elicitation.Description("Auto-save documents"),
					elicitation.Default(true)).
				Boolean("telemetry",
					elicitation.Description("Share anonymous usage data"),
					elicitation.Default(false)).
				MustBuild()

			outcome, err := cap.Elicit(ctx, "Set up your preferences:", schema, t.elicitOpts()...)
			if err != nil {
				return err
			}

			switch outcome.Action {
			case elicitation.ActionAccept:
				return w.AppendText("✅ Preferences saved!\n\nYour preferences:\n" + prettyJSON(outcome.Payload))
			case elicitation.ActionDecline:
				return w.AppendText("❌ Preferences setup declined.")
			default:
				return w.AppendText("⚠️ Preferences setup cancelled.")
			}
		},
		mcpservice.WithToolDescription("Set up user preferences with boolean toggles."),
	)
}

// selectOptionTool elicits closed-set selections.
func (t *toolset) selectOptionTool() mcpservice.StaticTool {
	return mcpservice.NewTool("select_option",
		func(ctx context.Context, session sessions.Session, w mcpservice.ToolResponseWriter, _ noArgs) error {
			cap := elicitCapability(session)
			if cap == nil {
				w.SetError(true)
				return w.AppendText(noElicitationSupport)
			}

			schema := elicitation.NewSchema().
				Enum("environment", []string{"development", "staging", "production"},
					elicitation.Required(),
					elicitation.Description("Deployment environment")).
				Enum("region", []string{"us-east", "us-west", "eu-west", "ap-south"},
					elicitation.Required(),
					elicitation.Description("Server region")).
				Enum("tier", []string{"free", "starter", "professional", "enterprise"},
					elicitation.Description("Service tier")).
				MustBuild()

			outcome, err := cap.Elicit(ctx, "Make your selections:", schema, t.elicitOpts()...)
			if err != nil {
				return err
			}

			switch outcome.Action {
			case elicitation.ActionAccept:
				return w.AppendText("✅ Selection confirmed!\n\nYour choices:\n" + prettyJSON(outcome.Payload))
			case elicitation.ActionDecline:
				return w.AppendText("❌ Selection declined.")
			default:
				return w.AppendText("⚠️ Selection cancelled.")
			}
		},
		mcpservice.WithToolDescription("Select from a list of options."),
	)
}

func prettyJSON(v any) string {
	b, err := json.MarshalIndent(v, "", "  ")
	if err != nil {
		return fmt.Sprintf("%v", v)
	}
	return string(b)
}
