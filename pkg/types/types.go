package types

import (
	"fmt"
	"sort"
	"time"

	"github.com/go-playground/validator/v10"
	"github.com/google/uuid"

	"github.com/ledgerworks/hnetctl/pkg/errdefs"
)

// ClusterRef is the short alias used inside a remote configuration in place of
// a raw kubeconfig context identifier.
type ClusterRef = string

// Cluster holds connection and DNS metadata for one member cluster of a
// deployment. The DNS pattern and base domain are stored here and consumed by
// callers that render fully-qualified consensus node hostnames.
type Cluster struct {
	Name                    string `yaml:"name" json:"name"`
	Namespace               string `yaml:"namespace" json:"namespace"`
	Deployment              string `yaml:"deployment" json:"deployment"`
	DNSBaseDomain           string `yaml:"dnsBaseDomain" json:"dnsBaseDomain"`
	DNSConsensusNodePattern string `yaml:"dnsConsensusNodePattern" json:"dnsConsensusNodePattern"`
}

// DeploymentState represents the lifecycle state of a deployment
type DeploymentState string

const (
	DeploymentStatePreGenesis  DeploymentState = "pre-genesis"
	DeploymentStateGenesis     DeploymentState = "genesis"
	DeploymentStatePostGenesis DeploymentState = "post-genesis"
)

// NodeState represents the lifecycle state of a consensus node
type NodeState string

const (
	NodeStateNonDeployed NodeState = "non-deployed"
	NodeStateInitialized NodeState = "initialized"
	NodeStateSetup       NodeState = "setup"
	NodeStateStarted     NodeState = "started"
	NodeStateFrozen      NodeState = "frozen"
)

// Migration is an immutable record of a schema migration: when it ran, who ran
// it, and the version it migrated from. Only the most recent migration is
// tracked; creating a new one replaces any prior record.
type Migration struct {
	ID          string    `yaml:"id" json:"id"`
	MigratedAt  time.Time `yaml:"migratedAt" json:"migratedAt"`
	MigratedBy  string    `yaml:"migratedBy" json:"migratedBy"`
	FromVersion string    `yaml:"fromVersion" json:"fromVersion"`
}

// NewMigration creates a migration record timestamped now.
func NewMigration(author, fromVersion string) *Migration {
	return &Migration{
		ID:          uuid.NewString(),
		MigratedAt:  time.Now().UTC(),
		MigratedBy:  author,
		FromVersion: fromVersion,
	}
}

// Metadata carries deployment identity, lifecycle state, and the version
// strings of every deployed subsystem.
type Metadata struct {
	Namespace      string          `yaml:"namespace" json:"namespace" validate:"required"`
	DeploymentName string          `yaml:"deploymentName" json:"deploymentName" validate:"required"`
	State          DeploymentState `yaml:"state" json:"state" validate:"required,oneof=pre-genesis genesis post-genesis"`
	LastUpdatedAt  time.Time       `yaml:"lastUpdatedAt" json:"lastUpdatedAt"`
	LastUpdatedBy  string          `yaml:"lastUpdatedBy" json:"lastUpdatedBy" validate:"required"`
	CLIVersion     string          `yaml:"cliVersion" json:"cliVersion" validate:"required"`

	// Per-subsystem versions, back-filled from deploy/upgrade commands.
	PlatformVersion        string `yaml:"platformVersion,omitempty" json:"platformVersion,omitempty"`
	NetworkChartVersion    string `yaml:"networkChartVersion,omitempty" json:"networkChartVersion,omitempty"`
	MirrorNodeChartVersion string `yaml:"mirrorNodeChartVersion,omitempty" json:"mirrorNodeChartVersion,omitempty"`
	ExplorerChartVersion   string `yaml:"explorerChartVersion,omitempty" json:"explorerChartVersion,omitempty"`
	RelayChartVersion      string `yaml:"relayChartVersion,omitempty" json:"relayChartVersion,omitempty"`

	Migration *Migration `yaml:"migration,omitempty" json:"migration,omitempty"`
}

var metadataValidator = validator.New()

// Validate checks that the metadata carries a well-formed identity and a known
// lifecycle state.
func (m *Metadata) Validate() error {
	if err := metadataValidator.Struct(m); err != nil {
		return errdefs.Schemaf("invalid remote configuration metadata: %v", err)
	}
	return nil
}

// MakeMigration records a migration from the given version, replacing any
// prior record.
func (m *Metadata) MakeMigration(author, fromVersion string) {
	m.Migration = NewMigration(author, fromVersion)
}

// Clone returns a deep copy of the metadata.
func (m *Metadata) Clone() *Metadata {
	out := *m
	if m.Migration != nil {
		mig := *m.Migration
		out.Migration = &mig
	}
	return &out
}

// Flags holds persisted common CLI flag values, keyed by flag name.
type Flags map[string]string

// Merge overlays other on top of f, returning a new map. Values in other win.
func (f Flags) Merge(other Flags) Flags {
	out := make(Flags, len(f)+len(other))
	for k, v := range f {
		out[k] = v
	}
	for k, v := range other {
		out[k] = v
	}
	return out
}

// Clone returns a copy of the flag map.
func (f Flags) Clone() Flags {
	if f == nil {
		return nil
	}
	out := make(Flags, len(f))
	for k, v := range f {
		out[k] = v
	}
	return out
}

// CommandInvocation describes one CLI invocation: the command path, its flag
// values, and the operator who ran it. It feeds both the command history and
// default resolution.
type CommandInvocation struct {
	// Path is the command path, e.g. ["network", "deploy"].
	Path []string
	// Flags holds the string form of every flag set on the invocation.
	Flags Flags
	// Operator identifies who ran the command, e.g. "alice@build-host".
	Operator string
}

// Command returns the space-joined command path.
func (ci *CommandInvocation) Command() string {
	out := ""
	for i, p := range ci.Path {
		if i > 0 {
			out += " "
		}
		out += p
	}
	return out
}

// HistoryEntry renders the "actor: command flags" form appended to the
// command history.
func (ci *CommandInvocation) HistoryEntry() string {
	entry := fmt.Sprintf("%s: %s", ci.Operator, ci.Command())
	for _, k := range sortedKeys(ci.Flags) {
		entry += fmt.Sprintf(" --%s %s", k, ci.Flags[k])
	}
	return entry
}

func sortedKeys(m Flags) []string {
	keys := make([]string, 0, len(m))
	for k := range m {
		keys = append(keys, k)
	}
	sort.Strings(keys)
	return keys
}
