package main

import (
	"bytes"
	"fmt"
	"regexp"

	"github.com/spf13/cobra"

	"github.com/alfredjeanlab/secondscreen/internal/ui"
)

// helpRule restyles every match of re in the help text.
type helpRule struct {
	re    *regexp.Regexp
	style func(groups []string) string
}

// helpRules colorize cobra's default help output, applied in order.
var helpRules = []helpRule{
	// Group headers such as "Sessions:" or "Flags:".
	{
		re:    regexp.MustCompile(`(?m)^([A-Z][A-Za-z ]*:)[ \t]*$`),
		style: func(g []string) string { return ui.RenderAccent(g[1]) },
	},
	// Command names in the command list: "  list        List ...".
	{
		re:    regexp.MustCompile(`(?m)^(  )([a-z][\w-]*)(  +)`),
		style: func(g []string) string { return g[1] + ui.RenderCommand(g[2]) + g[3] },
	},
	// Flag value types: "--url string", "--wait duration".
	{
		re:    regexp.MustCompile(`(--[\w-]+ )(string|stringArray|duration|int)\b`),
		style: func(g []string) string { return g[1] + ui.RenderMuted(g[2]) },
	},
	// Defaults: (default "http://localhost:3456").
	{
		re:    regexp.MustCompile(`\(default [^)]*\)`),
		style: func(g []string) string { return ui.RenderMuted(g[0]) },
	},
}

// colorizedHelpFunc returns a help function that renders cobra's usage
// text with ANSI colors when stdout supports them.
func colorizedHelpFunc() func(*cobra.Command, []string) {
	return func(cmd *cobra.Command, args []string) {
		out := cmd.OutOrStdout()
		if cmd.Long != "" {
			fmt.Fprintln(out, cmd.Long)
			fmt.Fprintln(out)
		} else if cmd.Short != "" {
			fmt.Fprintln(out, cmd.Short)
			fmt.Fprintln(out)
		}

		if !ui.ShouldUseColor() {
			// Usage writes to stderr unless an output is set.
			cmd.SetOut(out)
			_ = cmd.Usage()
			return
		}

		var buf bytes.Buffer
		cmd.SetOut(&buf)
		_ = cmd.Usage()
		cmd.SetOut(out)
		fmt.Fprint(out, colorizeHelp(buf.String()))
	}
}

func colorizeHelp(s string) string {
	for _, r := range helpRules {
		s = r.re.ReplaceAllStringFunc(s, func(match string) string {
			return r.style(r.re.FindStringSubmatch(match))
		})
	}
	return s
}
