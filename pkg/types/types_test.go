package types

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/ledgerworks/hnetctl/pkg/errdefs"
)

func validMetadata() *Metadata {
	return &Metadata{
		Namespace:      "testnet",
		DeploymentName: "testnet",
		State:          DeploymentStatePreGenesis,
		LastUpdatedAt:  time.Now().UTC(),
		LastUpdatedBy:  "alice@build-host",
		CLIVersion:     "1.2.3",
	}
}

func TestMetadataValidate(t *testing.T) {
	tests := []struct {
		name    string
		mutate  func(*Metadata)
		wantErr bool
	}{
		{
			name:   "valid",
			mutate: func(m *Metadata) {},
		},
		{
			name:    "missing namespace",
			mutate:  func(m *Metadata) { m.Namespace = "" },
			wantErr: true,
		},
		{
			name:    "missing deployment name",
			mutate:  func(m *Metadata) { m.DeploymentName = "" },
			wantErr: true,
		},
		{
			name:    "missing author",
			mutate:  func(m *Metadata) { m.LastUpdatedBy = "" },
			wantErr: true,
		},
		{
			name:    "missing tool version",
			mutate:  func(m *Metadata) { m.CLIVersion = "" },
			wantErr: true,
		},
		{
			name:    "unknown lifecycle state",
			mutate:  func(m *Metadata) { m.State = "rebooting" },
			wantErr: true,
		},
		{
			name:   "post-genesis state",
			mutate: func(m *Metadata) { m.State = DeploymentStatePostGenesis },
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			m := validMetadata()
			tt.mutate(m)
			err := m.Validate()
			if tt.wantErr {
				assert.True(t, errdefs.IsSchema(err), "expected schema error, got %v", err)
			} else {
				assert.NoError(t, err)
			}
		})
	}
}

func TestMakeMigrationReplacesPrior(t *testing.T) {
	m := validMetadata()
	m.MakeMigration("alice@build-host", "0.9.0")
	require.NotNil(t, m.Migration)
	first := *m.Migration

	m.MakeMigration("bob@build-host", "1.0.0")
	require.NotNil(t, m.Migration)
	assert.NotEqual(t, first.ID, m.Migration.ID)
	assert.Equal(t, "bob@build-host", m.Migration.MigratedBy)
	assert.Equal(t, "1.0.0", m.Migration.FromVersion)
	assert.False(t, m.Migration.MigratedAt.IsZero())
}

func TestMetadataCloneIsDeep(t *testing.T) {
	m := validMetadata()
	m.MakeMigration("alice@build-host", "0.9.0")

	clone := m.Clone()
	clone.Namespace = "other"
	clone.Migration.MigratedBy = "mallory"

	assert.Equal(t, "testnet", m.Namespace)
	assert.Equal(t, "alice@build-host", m.Migration.MigratedBy)
}

func TestFlagsMerge(t *testing.T) {
	base := Flags{"namespace": "testnet", "dev": "false"}
	merged := base.Merge(Flags{"dev": "true", "quiet-mode": "true"})

	assert.Equal(t, Flags{
		"namespace":  "testnet",
		"dev":        "true",
		"quiet-mode": "true",
	}, merged)
	// Merge never mutates the receiver.
	assert.Equal(t, Flags{"namespace": "testnet", "dev": "false"}, base)
}

func TestCommandInvocationHistoryEntry(t *testing.T) {
	inv := &CommandInvocation{
		Path:     []string{"network", "deploy"},
		Flags:    Flags{"release-tag": "v0.58.10", "deployment": "testnet"},
		Operator: "alice@build-host",
	}
	assert.Equal(t, "network deploy", inv.Command())
	// Flags render in sorted order for a stable history entry.
	assert.Equal(t,
		"alice@build-host: network deploy --deployment testnet --release-tag v0.58.10",
		inv.HistoryEntry())
}
