package remote

import (
	"strings"

	"github.com/ledgerworks/hnetctl/pkg/types"
)

// persistedFlagNames is the fixed set of common flags carried inside the
// document across invocations.
var persistedFlagNames = []string{
	"deployment",
	"namespace",
	"context",
	"quiet-mode",
	"dev",
}

// persistedFlags filters an invocation's flags down to the persisted common
// set.
func persistedFlags(flags types.Flags) types.Flags {
	out := types.Flags{}
	for _, name := range persistedFlagNames {
		if v, ok := flags[name]; ok {
			out[name] = v
		}
	}
	return out
}

// sensitiveFlagMarkers are substrings of flag names whose values never reach
// the command history.
var sensitiveFlagMarkers = []string{"password", "secret", "token", "key"}

// redactFlags replaces sensitive flag values with a placeholder before they
// are recorded in the command history.
func redactFlags(flags types.Flags) types.Flags {
	out := make(types.Flags, len(flags))
	for name, value := range flags {
		if isSensitiveFlag(name) {
			out[name] = "*****"
			continue
		}
		out[name] = value
	}
	return out
}

func isSensitiveFlag(name string) bool {
	lower := strings.ToLower(name)
	for _, marker := range sensitiveFlagMarkers {
		if strings.Contains(lower, marker) {
			return true
		}
	}
	return false
}
