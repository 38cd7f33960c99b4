package server

import "github.com/flyctl-dev/flymcp/internal/registry"

func buildPrompts() (*registry.PromptRegistry, error) {
	return registry.NewPromptRegistry(
		&registry.PromptStrategy{
			ID:          "flutter.doctor.triage",
			Title:       "Triage flutter doctor output",
			Description: "Summarizes a flutter doctor run and suggests next steps.",
			Variables: []registry.Variable{
				{Name: "doctorOutput", Required: true, Description: "Raw text captured from a flutter.doctor tool call."},
			},
			Render: func(vars map[string]string) ([]registry.RenderedMessage, error) {
				return []registry.RenderedMessage{
					{
						Role: "user",
						Content: registry.MessageContent{
							Type: "text",
							Text: "Here is the output of `flutter doctor`:\n\n" + vars["doctorOutput"] +
								"\n\nIdentify any failing checks and suggest the fix for each one.",
						},
					},
				}, nil
			},
		},
		&registry.PromptStrategy{
			ID:          "template.apply.explain",
			Title:       "Explain a template application",
			Description: "Summarizes which files a fly.template.apply call wrote and why.",
			Variables: []registry.Variable{
				{Name: "templateName", Required: true},
				{Name: "files", Required: true, Description: "Comma-separated list of written file paths."},
			},
			Render: func(vars map[string]string) ([]registry.RenderedMessage, error) {
				return []registry.RenderedMessage{
					{
						Role: "user",
						Content: registry.MessageContent{
							Type: "text",
							Text: "Template \"" + vars["templateName"] + "\" wrote the following files: " +
								vars["files"] + ". Summarize what each file is likely responsible for.",
						},
					},
				}, nil
			},
		},
	)
}
