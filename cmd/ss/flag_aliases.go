package main

import (
	"github.com/spf13/pflag"
)

var updateFlagAliases = map[string]string{
	"state":  "status",
	"issues": "issue",
}

// setFlagAliases makes each alias resolve to its flag. Aliases do not show
// in help.
func setFlagAliases(flags *pflag.FlagSet, aliases map[string]string) {
	if len(aliases) == 0 {
		return
	}

	normalize := flags.GetNormalizeFunc()
	flags.SetNormalizeFunc(func(f *pflag.FlagSet, name string) pflag.NormalizedName {
		if alias, ok := aliases[name]; ok {
			name = alias
		}
		return normalize(f, name)
	})
}
