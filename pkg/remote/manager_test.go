package remote

import (
	"context"
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/ledgerworks/hnetctl/pkg/components"
	"github.com/ledgerworks/hnetctl/pkg/errdefs"
	"github.com/ledgerworks/hnetctl/pkg/kube"
	"github.com/ledgerworks/hnetctl/pkg/types"
)

func newTestManager(t *testing.T, factory kube.Factory, localConfig string) *Manager {
	t.Helper()
	m, err := NewManager(&Config{
		CLIVersion: "1.2.3",
		Strict:     true,
		Factory:    factory,
		Local:      newTestLocal(t, localConfig),
	})
	require.NoError(t, err)
	return m
}

func createInvocation() *types.CommandInvocation {
	return &types.CommandInvocation{
		Path:     []string{"deployment", "create"},
		Flags:    types.Flags{"deployment": "testnet", "node-aliases": "node1,node2"},
		Operator: "alice@build-host",
	}
}

func createTestnet(t *testing.T, m *Manager) {
	t.Helper()
	err := m.Create(context.Background(), createInvocation(), "testnet",
		[]string{"node1", "node2"}, testClusters())
	require.NoError(t, err)
}

func TestNewManagerRequiresCollaborators(t *testing.T) {
	_, err := NewManager(&Config{Local: newTestLocal(t, testLocalConfig)})
	assert.True(t, errdefs.IsConfiguration(err))

	_, err = NewManager(&Config{Factory: kube.NewFakeFactory(kube.NewFake())})
	assert.True(t, errdefs.IsConfiguration(err))
}

func TestCreatePersistsDocument(t *testing.T) {
	fake := kube.NewFake()
	m := newTestManager(t, kube.NewFakeFactory(fake), testLocalConfig)
	createTestnet(t, m)

	assert.Equal(t, StateLoaded, m.State())
	assert.Equal(t, "testnet", m.Namespace())

	data, err := fake.ReadConfigMap(context.Background(), "testnet", ConfigMapName)
	require.NoError(t, err)
	doc, err := FromConfigMap(data)
	require.NoError(t, err)

	metadata := doc.Metadata()
	assert.Equal(t, "testnet", metadata.DeploymentName)
	assert.Equal(t, types.DeploymentStatePreGenesis, metadata.State)
	assert.Equal(t, "1.2.3", metadata.CLIVersion)
	assert.Equal(t, "alice@build-host", metadata.LastUpdatedBy)

	registry := doc.Components()
	require.Equal(t, 2, registry.Len(components.KindConsensusNode))
	for i, name := range []string{"node1", "node2"} {
		got, err := registry.Get(components.KindConsensusNode, name)
		require.NoError(t, err)
		node := got.(*components.ConsensusNode)
		assert.Equal(t, i, node.NodeID)
		assert.Equal(t, types.NodeStateNonDeployed, node.State)
		assert.Equal(t, "clusterA", node.Cluster)
	}

	assert.Equal(t, testClusters(), doc.Clusters())

	// Only the common flag set is persisted; node-aliases is command-local.
	assert.Equal(t, types.Flags{"deployment": "testnet"}, doc.Flags())
	assert.Equal(t,
		"alice@build-host: deployment create --deployment testnet --node-aliases node1,node2",
		doc.LastExecutedCommand())
}

func TestCreateTwiceConflicts(t *testing.T) {
	fake := kube.NewFake()
	m := newTestManager(t, kube.NewFakeFactory(fake), testLocalConfig)
	createTestnet(t, m)

	err := m.Create(context.Background(), createInvocation(), "testnet",
		[]string{"node1", "node2"}, testClusters())
	assert.True(t, errdefs.IsAlreadyExists(err))
}

func TestCreateUnknownDeployment(t *testing.T) {
	fake := kube.NewFake()
	m := newTestManager(t, kube.NewFakeFactory(fake), testLocalConfig)

	err := m.Create(context.Background(), createInvocation(), "mainnet",
		[]string{"node1"}, testClusters())
	assert.True(t, errdefs.IsConfiguration(err))
}

func TestLoadMissingConfigMapIsSoft(t *testing.T) {
	fake := kube.NewFake()
	m := newTestManager(t, kube.NewFakeFactory(fake), testLocalConfig)

	found, err := m.Load(context.Background(), "", "")
	require.NoError(t, err)
	assert.False(t, found)
	assert.Equal(t, StateUnloaded, m.State())
}

func TestLoadWithExplicitTarget(t *testing.T) {
	// No deployments configured locally; an explicit namespace and context
	// must be enough to load.
	fake := kube.NewFake()
	doc := testDocument(t)
	serialized, err := doc.Serialize()
	require.NoError(t, err)
	require.NoError(t, fake.CreateConfigMap(context.Background(), "testnet", ConfigMapName,
		ConfigMapLabels(), map[string]string{ConfigMapDataKey: serialized}))

	m := newTestManager(t, kube.NewFakeFactory(fake), "userIdentity: tester@host\n")
	found, err := m.Load(context.Background(), "testnet", "kind-clusterA")
	require.NoError(t, err)
	assert.True(t, found)

	loaded, err := m.Document()
	require.NoError(t, err)
	assert.Equal(t, doc, loaded)
}

func TestLoadAndValidateUnresolvableDeployment(t *testing.T) {
	fake := kube.NewFake()
	m := newTestManager(t, kube.NewFakeFactory(fake), "userIdentity: tester@host\n")

	inv := &types.CommandInvocation{Path: []string{"network", "deploy"}, Flags: types.Flags{}}
	err := m.LoadAndValidate(context.Background(), inv, false, false)
	assert.True(t, errdefs.IsConfiguration(err))
	// Resolution fails before any store access.
	assert.Equal(t, 0, fake.Reads)
}

func TestLoadAndValidateMissingConfigMapIsHard(t *testing.T) {
	fake := kube.NewFake()
	m := newTestManager(t, kube.NewFakeFactory(fake), testLocalConfig)

	inv := &types.CommandInvocation{Path: []string{"network", "deploy"}, Flags: types.Flags{}}
	err := m.LoadAndValidate(context.Background(), inv, false, false)
	assert.True(t, errdefs.IsNotFound(err))
}

func TestLoadAndValidateRecordsCommand(t *testing.T) {
	fake := kube.NewFake()
	m := newTestManager(t, kube.NewFakeFactory(fake), testLocalConfig)
	createTestnet(t, m)
	replacesBefore := fake.Replaces

	inv := &types.CommandInvocation{
		Path: []string{"network", "deploy"},
		Flags: types.Flags{
			"release-tag": "v0.61.0",
			"quiet-mode":  "true",
			"admin-key":   "supersecret",
		},
		Operator: "alice@build-host",
	}
	require.NoError(t, m.LoadAndValidate(context.Background(), inv, false, false))

	doc, err := m.Document()
	require.NoError(t, err)

	// Explicit version flag wins over the command default.
	assert.Equal(t, "v0.61.0", doc.Metadata().PlatformVersion)
	// Sensitive flag values never reach the history.
	assert.Equal(t,
		"alice@build-host: network deploy --admin-key ***** --quiet-mode true --release-tag v0.61.0",
		doc.LastExecutedCommand())
	// Persisted flags are merged on top of the existing set.
	assert.Equal(t, types.Flags{"deployment": "testnet", "quiet-mode": "true"}, doc.Flags())

	// The updated document was written back to the store.
	assert.Equal(t, replacesBefore+1, fake.Replaces)
	data, err := fake.ReadConfigMap(context.Background(), "testnet", ConfigMapName)
	require.NoError(t, err)
	stored, err := FromConfigMap(data)
	require.NoError(t, err)
	assert.Equal(t, doc, stored)
}

func TestLoadAndValidateBackfillsDefaultVersions(t *testing.T) {
	fake := kube.NewFake()
	m := newTestManager(t, kube.NewFakeFactory(fake), testLocalConfig)
	createTestnet(t, m)

	inv := &types.CommandInvocation{Path: []string{"mirror-node", "deploy"}, Flags: types.Flags{}}
	require.NoError(t, m.LoadAndValidate(context.Background(), inv, false, false))

	doc, err := m.Document()
	require.NoError(t, err)
	assert.Equal(t, DefaultMirrorNodeVersion, doc.Metadata().MirrorNodeChartVersion)
	// network-chart-version has no default and stays empty.
	assert.Empty(t, doc.Metadata().NetworkChartVersion)
}

func TestLoadAndValidateDriftFails(t *testing.T) {
	fake := kube.NewFake()
	m := newTestManager(t, kube.NewFakeFactory(fake), testLocalConfig)
	createTestnet(t, m)
	replacesBefore := fake.Replaces

	// No pods exist, so live validation reports drift and nothing is saved.
	inv := &types.CommandInvocation{Path: []string{"network", "deploy"}, Flags: types.Flags{}}
	err := m.LoadAndValidate(context.Background(), inv, true, false)
	assert.True(t, errdefs.IsValidation(err))
	assert.Equal(t, replacesBefore, fake.Replaces)

	// Skipping consensus nodes makes the same pass succeed: they are the only
	// components in a freshly created document.
	require.NoError(t, m.LoadAndValidate(context.Background(), inv, true, true))
}

func TestModifyUnloadedStrict(t *testing.T) {
	m := newTestManager(t, kube.NewFakeFactory(kube.NewFake()), testLocalConfig)
	err := m.Modify(context.Background(), func(*Document) error { return nil })
	assert.ErrorIs(t, err, ErrNotLoaded)
}

func TestModifyUnloadedLenient(t *testing.T) {
	m, err := NewManager(&Config{
		CLIVersion: "1.2.3",
		Factory:    kube.NewFakeFactory(kube.NewFake()),
		Local:      newTestLocal(t, testLocalConfig),
	})
	require.NoError(t, err)

	called := false
	err = m.Modify(context.Background(), func(*Document) error {
		called = true
		return nil
	})
	assert.NoError(t, err)
	assert.False(t, called, "callback must be skipped when nothing is loaded")
}

func TestModifyCommits(t *testing.T) {
	fake := kube.NewFake()
	m := newTestManager(t, kube.NewFakeFactory(fake), testLocalConfig)
	createTestnet(t, m)
	replacesBefore := fake.Replaces

	err := m.Modify(context.Background(), func(d *Document) error {
		return d.AddComponent(components.NewRelay("relay-node1", "clusterA", "testnet", []string{"node1"}))
	})
	require.NoError(t, err)
	assert.Equal(t, replacesBefore+1, fake.Replaces)

	doc, err := m.Document()
	require.NoError(t, err)
	_, err = doc.GetComponent(components.KindRelay, "relay-node1")
	assert.NoError(t, err)

	data, err := fake.ReadConfigMap(context.Background(), "testnet", ConfigMapName)
	require.NoError(t, err)
	stored, err := FromConfigMap(data)
	require.NoError(t, err)
	_, err = stored.GetComponent(components.KindRelay, "relay-node1")
	assert.NoError(t, err)
}

func TestModifyRollsBackOnCallbackError(t *testing.T) {
	fake := kube.NewFake()
	m := newTestManager(t, kube.NewFakeFactory(fake), testLocalConfig)
	createTestnet(t, m)

	before, err := m.Document()
	require.NoError(t, err)
	replacesBefore := fake.Replaces

	boom := errors.New("callback failure")
	err = m.Modify(context.Background(), func(d *Document) error {
		if err := d.AddComponent(components.NewMirrorNode("mirror", "clusterA", "testnet")); err != nil {
			return err
		}
		return boom
	})
	assert.ErrorIs(t, err, boom)
	assert.Equal(t, replacesBefore, fake.Replaces, "nothing may be written on failure")

	after, err := m.Document()
	require.NoError(t, err)
	assert.Equal(t, before, after, "committed state must be untouched")
}

func TestModifyRollsBackOnValidationFailure(t *testing.T) {
	fake := kube.NewFake()
	m := newTestManager(t, kube.NewFakeFactory(fake), testLocalConfig)
	createTestnet(t, m)
	replacesBefore := fake.Replaces

	err := m.Modify(context.Background(), func(d *Document) error {
		d.UpdateMetadata(func(md *types.Metadata) { md.State = "rebooting" })
		return nil
	})
	assert.True(t, errdefs.IsSchema(err))
	assert.Equal(t, replacesBefore, fake.Replaces)

	doc, err := m.Document()
	require.NoError(t, err)
	assert.Equal(t, types.DeploymentStatePreGenesis, doc.Metadata().State)
}

const multiClusterConfig = `
userIdentity: tester@host
currentDeployment: testnet
deployments:
  testnet:
    namespace: testnet
    clusters:
      - clusterA
      - clusterB
clusterContexts:
  clusterA: ctx-a
  clusterB: ctx-b
`

func multiClusterSet() map[types.ClusterRef]*types.Cluster {
	return map[types.ClusterRef]*types.Cluster{
		"clusterA": {Name: "clusterA", Namespace: "testnet", Deployment: "testnet"},
		"clusterB": {Name: "clusterB", Namespace: "testnet", Deployment: "testnet"},
	}
}

func TestCreateReplicatesToAllClusters(t *testing.T) {
	fakeA, fakeB := kube.NewFake(), kube.NewFake()
	factory := &kube.FakeFactory{Clients: map[string]*kube.Fake{"ctx-a": fakeA, "ctx-b": fakeB}}
	m := newTestManager(t, factory, multiClusterConfig)

	err := m.Create(context.Background(), createInvocation(), "testnet",
		[]string{"node1"}, multiClusterSet())
	require.NoError(t, err)

	for _, fake := range []*kube.Fake{fakeA, fakeB} {
		_, err := fake.ReadConfigMap(context.Background(), "testnet", ConfigMapName)
		assert.NoError(t, err)
	}
}

func TestSavePartialReplicationFails(t *testing.T) {
	fakeA, fakeB := kube.NewFake(), kube.NewFake()
	factory := &kube.FakeFactory{Clients: map[string]*kube.Fake{"ctx-a": fakeA, "ctx-b": fakeB}}
	m := newTestManager(t, factory, multiClusterConfig)

	err := m.Create(context.Background(), createInvocation(), "testnet",
		[]string{"node1"}, multiClusterSet())
	require.NoError(t, err)

	before, err := m.Document()
	require.NoError(t, err)

	fakeB.ReplaceErr = errors.New("apiserver unavailable")
	err = m.Modify(context.Background(), func(d *Document) error {
		return d.AddComponent(components.NewHaProxy("haproxy-node1", "clusterA", "testnet"))
	})
	require.Error(t, err)
	assert.True(t, errdefs.IsWrite(err))
	assert.Contains(t, err.Error(), "clusterB")

	// The in-memory document keeps the prior committed state.
	after, err := m.Document()
	require.NoError(t, err)
	assert.Equal(t, before, after)
}

func TestGetNotFound(t *testing.T) {
	m := newTestManager(t, kube.NewFakeFactory(kube.NewFake()), testLocalConfig)
	_, err := m.Get(context.Background(), "")
	assert.True(t, errdefs.IsNotFound(err))
}

func TestGetValidatesLiveState(t *testing.T) {
	fake := kube.NewFake()
	m := newTestManager(t, kube.NewFakeFactory(fake), testLocalConfig)
	createTestnet(t, m)

	_, err := m.Get(context.Background(), "")
	assert.True(t, errdefs.IsValidation(err), "missing pods must fail the get")

	fake.AddPod("testnet", "node1-0", map[string]string{"app": "network-node1"})
	fake.AddPod("testnet", "node2-0", map[string]string{"app": "network-node2"})

	doc, err := m.Get(context.Background(), "")
	require.NoError(t, err)
	assert.Equal(t, 2, doc.Components().Len(components.KindConsensusNode))
}

func TestGetErrorNamesExplicitContext(t *testing.T) {
	// Deployment with no member clusters: the cluster reference stays
	// unresolved and the explicit context identifies the target instead.
	const cfg = `
userIdentity: tester@host
currentDeployment: testnet
deployments:
  testnet:
    namespace: testnet
clusterContexts:
  clusterA: kind-clusterA
`
	fake := kube.NewFake()
	doc := testDocument(t)
	serialized, err := doc.Serialize()
	require.NoError(t, err)
	require.NoError(t, fake.CreateConfigMap(context.Background(), "testnet", ConfigMapName,
		ConfigMapLabels(), map[string]string{ConfigMapDataKey: serialized}))

	m := newTestManager(t, kube.NewFakeFactory(fake), cfg)
	_, err = m.Get(context.Background(), "kind-clusterA")
	require.Error(t, err)
	assert.True(t, errdefs.IsValidation(err))
	assert.Contains(t, err.Error(), `"kind-clusterA"`)
	assert.NotContains(t, err.Error(), `cluster ""`)
}

func TestUnload(t *testing.T) {
	fake := kube.NewFake()
	m := newTestManager(t, kube.NewFakeFactory(fake), testLocalConfig)
	createTestnet(t, m)

	m.Unload()
	assert.Equal(t, StateUnloaded, m.State())
	_, err := m.Document()
	assert.ErrorIs(t, err, ErrNotLoaded)
}
