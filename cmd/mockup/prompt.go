package main

import (
	"fmt"

	"github.com/spf13/cobra"

	"logo-mockup-studio/internal/catalog"
	"logo-mockup-studio/internal/mockup"
)

func (a *app) newPromptCommand() *cobra.Command {
	var (
		styleID        string
		keepBackground bool
		avoid          string
	)

	cmd := &cobra.Command{
		Use:   "prompt",
		Short: "Print the instruction document sent for a style",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			style, ok := catalog.Lookup(styleID)
			if !ok {
				return exitWithCode(exitValidation, fmt.Errorf("unknown style %q (see: mockup styles)", styleID))
			}

			text := mockup.BuildInstructions(style.Prompt, !keepBackground, avoid)
			if a.jsonOutput {
				return a.printJSON(map[string]string{"style_id": style.ID, "instructions": text})
			}
			_, err := fmt.Fprintln(a.stdout, text)
			return err
		},
	}

	cmd.Flags().StringVar(&styleID, "style", "", "style id (required)")
	cmd.Flags().BoolVar(&keepBackground, "keep-background", false, "use the whole input composition instead of isolating the logo")
	cmd.Flags().StringVar(&avoid, "avoid", "", "things the render should avoid")
	_ = cmd.MarkFlagRequired("style")
	return cmd
}
