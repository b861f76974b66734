package cli

import (
	"fmt"
	"io"

	"github.com/spf13/cobra"

	"github.com/apresai/mulmoprep/internal/script"
)

var profilesCmd = &cobra.Command{
	Use:   "profiles <script>",
	Short: "List the output profiles a script defines",
	Args:  cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		a, err := newApp()
		if err != nil {
			return err
		}
		s, err := a.loader.Load(cmd.Context(), args[0])
		if err != nil {
			return err
		}
		printProfiles(cmd.OutOrStdout(), script.ListProfiles(s))
		return nil
	},
}

func printProfiles(w io.Writer, profiles []script.ProfileInfo) {
	fmt.Fprintln(w, "\nAvailable profiles:")
	for _, p := range profiles {
		displayName := ""
		if p.DisplayName != "" {
			displayName = fmt.Sprintf(" (%s)", p.DisplayName)
		}
		skipped := ""
		if p.SkippedCount > 0 {
			skipped = fmt.Sprintf(", %d skipped", p.SkippedCount)
		}
		fmt.Fprintf(w, "  %s%s: %d beats%s\n", p.Name, displayName, p.BeatCount, skipped)
		if p.Description != "" {
			fmt.Fprintf(w, "    %s\n", p.Description)
		}
	}
	fmt.Fprintln(w)
}
