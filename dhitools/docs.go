package dhitools

import (
	"context"
	"fmt"
	"sort"
	"strings"

	"github.com/vvoland/dhimcp/elicitation"
	"github.com/vvoland/dhimcp/mcpservice"
	"github.com/vvoland/dhimcp/sessions"
)

var documentationURLs = map[string]string{
	"getting-started": "https://docs.example.com/getting-started",
	"api":             "https://docs.example.com/api-reference",
	"tutorials":       "https://docs.example.com/tutorials",
	"faq":             "https://docs.example.com/faq",
}

type visitDocumentationArgs struct {
	Topic string `json:"topic,omitempty" jsonschema:"description=Documentation topic (getting-started, api, tutorials, or faq)"`
}

// visitDocumentationTool is the URL-mode counterpart of the form tools: the
// user is pointed at an external page and the tool resumes once they report
// back, without any structured payload.
func (t *toolset) visitDocumentationTool() mcpservice.StaticTool {
	return mcpservice.NewTool("visit_documentation",
		func(ctx context.Context, session sessions.Session, w mcpservice.ToolResponseWriter, args visitDocumentationArgs) error {
			cap := elicitCapability(session)
			if cap == nil {
				w.SetError(true)
				return w.AppendText(noElicitationSupport)
			}

			topic := args.Topic
			if topic == "" {
				topic = "getting-started"
			}
			url, ok := documentationURLs[topic]
			if !ok {
				w.SetError(true)
				return w.AppendText(fmt.Sprintf("Unknown topic %q. Available topics: %s.", topic, strings.Join(documentationTopics(), ", ")))
			}

			outcome, err := cap.ElicitURL(ctx,
				fmt.Sprintf("Please visit the %s documentation at %s", topic, url),
				url, t.elicitOpts()...)
			if err != nil {
				return err
			}

			switch outcome.Action {
			case elicitation.ActionAccept:
				return w.AppendText(fmt.Sprintf("✅ Thanks for visiting the %s documentation!", topic))
			case elicitation.ActionDecline:
				return w.AppendText(fmt.Sprintf("❌ Declined to visit the %s documentation.", topic))
			default:
				return w.AppendText(fmt.Sprintf("⚠️ Documentation visit cancelled for %s.", topic))
			}
		},
		mcpservice.WithToolDescription("Direct the user to a documentation page and wait for them to finish reading."),
	)
}

func documentationTopics() []string {
	topics := make([]string, 0, len(documentationURLs))
	for topic := range documentationURLs {
		topics = append(topics, topic)
	}
	sort.Strings(topics)
	return topics
}
