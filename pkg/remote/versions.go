package remote

import (
	"github.com/ledgerworks/hnetctl/pkg/types"
)

// Default subsystem versions used when a deploy/upgrade command does not
// carry an explicit version flag.
const (
	DefaultPlatformVersion   = "v0.58.10"
	DefaultMirrorNodeVersion = "v0.126.0"
	DefaultExplorerVersion   = "v24.12.0"
	DefaultRelayVersion      = "v0.63.2"
)

// versionRule maps one command to the version flag that feeds a metadata
// field, with a command-specific default when the flag is absent.
type versionRule struct {
	flag           string
	defaultVersion string
	apply          func(*types.Metadata, string)
}

// versionRules is the fixed table of {command -> version back-fill} rules
// applied by LoadAndValidate after a successful load.
var versionRules = map[string][]versionRule{
	"network deploy": {
		{
			flag:           "release-tag",
			defaultVersion: DefaultPlatformVersion,
			apply:          func(md *types.Metadata, v string) { md.PlatformVersion = v },
		},
		{
			flag:  "network-chart-version",
			apply: func(md *types.Metadata, v string) { md.NetworkChartVersion = v },
		},
	},
	"node upgrade": {
		{
			flag:           "upgrade-version",
			defaultVersion: DefaultPlatformVersion,
			apply:          func(md *types.Metadata, v string) { md.PlatformVersion = v },
		},
	},
	"mirror-node deploy": {
		{
			flag:           "mirror-node-version",
			defaultVersion: DefaultMirrorNodeVersion,
			apply:          func(md *types.Metadata, v string) { md.MirrorNodeChartVersion = v },
		},
	},
	"explorer deploy": {
		{
			flag:           "explorer-version",
			defaultVersion: DefaultExplorerVersion,
			apply:          func(md *types.Metadata, v string) { md.ExplorerChartVersion = v },
		},
	},
	"relay deploy": {
		{
			flag:           "relay-version",
			defaultVersion: DefaultRelayVersion,
			apply:          func(md *types.Metadata, v string) { md.RelayChartVersion = v },
		},
	},
}

// backfillVersions applies the version rules matching the invoked command.
// An explicit flag value wins; otherwise the rule's default is used, and
// rules without a default are skipped when the flag is absent.
func backfillVersions(md *types.Metadata, inv *types.CommandInvocation) {
	rules, ok := versionRules[inv.Command()]
	if !ok {
		return
	}
	for _, rule := range rules {
		v := inv.Flags[rule.flag]
		if v == "" {
			v = rule.defaultVersion
		}
		if v == "" {
			continue
		}
		rule.apply(md, v)
	}
}
