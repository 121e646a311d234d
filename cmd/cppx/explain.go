// SPDX-License-Identifier: MPL-2.0

package cmd

import (
	"fmt"
	"strings"

	"github.com/spf13/cobra"

	"github.com/cppx/cppx/internal/config"
	"github.com/cppx/cppx/internal/issue"
)

func newExplainCommand(app *App, flags *rootFlagValues) *cobra.Command {
	return &cobra.Command{
		Use:   "explain [GUIDE]",
		Short: "Show a troubleshooting guide",
		Long: `Render the troubleshooting guide named in an error message, for example
"cppx explain compiler-not-found". Without an argument the available
guides are listed.`,
		Args: cobra.MaximumNArgs(1),
		ValidArgsFunction: func(*cobra.Command, []string, string) ([]string, cobra.ShellCompDirective) {
			var names []string
			for _, i := range issue.Values() {
				names = append(names, i.Name())
			}
			return names, cobra.ShellCompDirectiveNoFileComp
		},
		RunE: func(cmd *cobra.Command, args []string) error {
			if len(args) == 0 {
				listGuides(app)
				return nil
			}
			return explainGuide(cmd, app, flags, args[0])
		},
	}
}

func listGuides(app *App) {
	fmt.Fprintln(app.stdout, TitleStyle.Render("Troubleshooting guides"))
	fmt.Fprintln(app.stdout)
	for _, i := range issue.Values() {
		fmt.Fprintf(app.stdout, "  %-24s %s\n", CmdStyle.Render(i.Name()), SubtitleStyle.Render(guideTitle(i)))
	}
}

func explainGuide(cmd *cobra.Command, app *App, flags *rootFlagValues, name string) error {
	guide, err := issue.Parse(name)
	if err != nil {
		return reportError(cmd, app.stderr, err, flags.verbose)
	}

	// A broken configuration must not hide its own guide.
	cfg, cfgErr := app.loadConfig(cmd, flags)
	if cfgErr != nil {
		cfg = config.DefaultConfig()
	}

	rendered, err := guide.Render(app.glamourStyle(cfg))
	if err != nil {
		return reportError(cmd, app.stderr, err, flags.verbose)
	}
	fmt.Fprint(app.stdout, rendered)
	return nil
}

// guideTitle returns the first heading of the guide's markdown.
func guideTitle(i *issue.Issue) string {
	for line := range strings.SplitSeq(string(i.MarkdownMsg()), "\n") {
		if title, ok := strings.CutPrefix(strings.TrimSpace(line), "#"); ok {
			return strings.TrimSpace(strings.TrimLeft(title, "#"))
		}
	}
	return ""
}
