package remote

import (
	"context"
	"errors"
	"fmt"
	"sort"
	"strings"
	"sync"
	"time"

	"github.com/rs/zerolog"
	"golang.org/x/sync/errgroup"

	"github.com/ledgerworks/hnetctl/pkg/cache"
	"github.com/ledgerworks/hnetctl/pkg/components"
	"github.com/ledgerworks/hnetctl/pkg/errdefs"
	"github.com/ledgerworks/hnetctl/pkg/kube"
	"github.com/ledgerworks/hnetctl/pkg/local"
	"github.com/ledgerworks/hnetctl/pkg/log"
	"github.com/ledgerworks/hnetctl/pkg/metrics"
	"github.com/ledgerworks/hnetctl/pkg/types"
)

// State represents the manager's load state
type State string

const (
	StateUnloaded State = "unloaded"
	StateLoaded   State = "loaded"
)

// ErrNotLoaded is returned by Modify in strict mode when no document is
// loaded.
var ErrNotLoaded = errors.New("remote configuration not loaded")

// Config holds configuration and collaborators for creating a Manager.
type Config struct {
	// CLIVersion is the tool version stamped into metadata on every save.
	CLIVersion string

	// Strict controls Modify on an unloaded manager: when true the call
	// fails with ErrNotLoaded, when false it logs a warning and skips the
	// callback. Kept as an explicit switch rather than a fixed behavior.
	Strict bool

	Factory  kube.Factory
	Local    *local.Registry
	Cache    *cache.Cache   // optional
	Prompter local.Prompter // optional
}

// Manager orchestrates create/load/validate/modify/save of the remote
// configuration. It is constructed per command invocation and holds only the
// currently loaded document plus its collaborators; there is no process-wide
// state. Concurrent operators are serialized by an external lease obtained
// before any mutating command sequence, not by this type.
type Manager struct {
	cliVersion string
	strict     bool
	factory    kube.Factory
	local      *local.Registry
	cache      *cache.Cache
	prompter   local.Prompter
	validator  *Validator
	logger     zerolog.Logger

	state State
	doc   *Document

	deployment  *local.Deployment
	namespace   string
	clusterRef  string
	contextName string
}

// NewManager creates a manager from its collaborators.
func NewManager(cfg *Config) (*Manager, error) {
	if cfg.Factory == nil {
		return nil, errdefs.Configurationf("kube client factory is required")
	}
	if cfg.Local == nil {
		return nil, errdefs.Configurationf("local registry is required")
	}
	return &Manager{
		cliVersion: cfg.CLIVersion,
		strict:     cfg.Strict,
		factory:    cfg.Factory,
		local:      cfg.Local,
		cache:      cfg.Cache,
		prompter:   cfg.Prompter,
		validator:  NewValidator(cfg.Factory, cfg.Local),
		logger:     log.WithComponent("remote-config"),
		state:      StateUnloaded,
	}, nil
}

// State returns the current load state.
func (m *Manager) State() State { return m.state }

// Namespace returns the resolved target namespace, empty before resolution.
func (m *Manager) Namespace() string { return m.namespace }

// Document returns a deep copy of the loaded document.
func (m *Manager) Document() (*Document, error) {
	if m.state != StateLoaded {
		return nil, ErrNotLoaded
	}
	return m.doc.Clone(), nil
}

// Unload discards the loaded document unconditionally.
func (m *Manager) Unload() {
	m.state = StateUnloaded
	m.doc = nil
}

// Create builds a brand-new document for a deployment and persists it to
// every member cluster. It fails with ErrAlreadyExists when a remote
// configuration is already present, and with ErrConfiguration when the
// deployment is not locally configured.
func (m *Manager) Create(ctx context.Context, inv *types.CommandInvocation, deploymentName string, nodeAliases []string, clusters map[types.ClusterRef]*types.Cluster) error {
	deployment, err := m.local.Deployment(deploymentName)
	if err != nil {
		return err
	}
	m.deployment = deployment
	m.namespace = deployment.Namespace
	if len(deployment.Clusters) > 0 {
		m.clusterRef = deployment.Clusters[0]
	}

	primaryRef := m.clusterRef
	if primaryRef == "" {
		refs := sortedRefs(clusters)
		if len(refs) == 0 {
			return errdefs.Configurationf("deployment %q has no clusters", deploymentName)
		}
		primaryRef = refs[0]
		m.clusterRef = primaryRef
	}

	metadata := &types.Metadata{
		Namespace:      deployment.Namespace,
		DeploymentName: deploymentName,
		State:          types.DeploymentStatePreGenesis,
		LastUpdatedAt:  time.Now().UTC(),
		LastUpdatedBy:  m.operator(inv),
		CLIVersion:     m.cliVersion,
	}

	registry := components.NewRegistry()
	if err := registry.InitializeWithNodes(nodeAliases, primaryRef, deployment.Namespace); err != nil {
		return err
	}

	doc := NewDocument(metadata, clusters, registry, persistedFlags(inv.Flags))
	if err := doc.AddCommandToHistory(m.historyEntry(inv)); err != nil {
		return err
	}

	serialized, err := doc.Serialize()
	if err != nil {
		return err
	}
	data := map[string]string{ConfigMapDataKey: serialized}

	for _, ref := range sortedRefs(doc.Clusters()) {
		client, err := m.clientFor(ref)
		if err != nil {
			return err
		}
		if err := client.CreateConfigMap(ctx, deployment.Namespace, ConfigMapName, ConfigMapLabels(), data); err != nil {
			return err
		}
	}

	m.doc = doc
	m.state = StateLoaded
	m.storeSnapshot(serialized)
	metrics.SavesTotal.Inc()
	m.logger.Info().
		Str("deployment", deploymentName).
		Str("namespace", deployment.Namespace).
		Int("nodes", len(nodeAliases)).
		Msg("remote configuration created")
	return nil
}

// Load fetches the document from the target cluster. Absence of the backing
// ConfigMap is a soft failure: it logs a warning and returns (false, nil) so
// a create flow can proceed. Any other read or parse failure is hard.
func (m *Manager) Load(ctx context.Context, namespace, contextName string) (bool, error) {
	if err := m.resolveTarget(namespace, contextName, ""); err != nil {
		return false, err
	}
	return m.load(ctx)
}

// Get resolves the effective namespace from local configuration when not
// supplied, loads the document, and validates it against live cluster state.
func (m *Manager) Get(ctx context.Context, contextName string) (*Document, error) {
	if err := m.resolveTarget("", contextName, ""); err != nil {
		return nil, err
	}
	found, err := m.load(ctx)
	if err != nil {
		return nil, err
	}
	if !found {
		return nil, errdefs.NotFoundf("remote configuration in namespace %q", m.namespace)
	}
	if err := m.validator.ValidateComponents(ctx, m.doc, false); err != nil {
		return nil, fmt.Errorf("remote configuration for cluster %q is invalid: %w", m.targetLabel(), err)
	}
	return m.doc.Clone(), nil
}

// Modify applies fn to the document inside a validate-then-save transaction.
// The callback works on a clone; on any failure the prior committed state is
// left untouched. With no document loaded the behavior follows the Strict
// switch.
func (m *Manager) Modify(ctx context.Context, fn func(*Document) error) error {
	if m.state != StateLoaded {
		if m.strict {
			return ErrNotLoaded
		}
		m.logger.Warn().Msg("modify called with no loaded remote configuration, skipping")
		return nil
	}

	working := m.doc.Clone()
	if err := fn(working); err != nil {
		return err
	}
	working.UpdateMetadata(func(md *types.Metadata) {
		md.LastUpdatedAt = time.Now().UTC()
		md.LastUpdatedBy = m.local.OperatorIdentity()
	})
	if err := working.Validate(); err != nil {
		return err
	}
	if err := m.save(ctx, working); err != nil {
		return err
	}
	m.doc = working
	return nil
}

// LoadAndValidate is the canonical pre-command hook. It resolves the target
// namespace and context from the invocation (falling back to local deployment
// configuration), loads the document, optionally validates it against live
// cluster state, records the command in history, back-fills per-subsystem
// version metadata, merges persisted flags, and saves. Any hard failure
// aborts the whole sequence without partial persistence.
func (m *Manager) LoadAndValidate(ctx context.Context, inv *types.CommandInvocation, validate, skipConsensusNodes bool) error {
	if err := m.resolveTarget(inv.Flags["namespace"], inv.Flags["context"], inv.Flags["deployment"]); err != nil {
		return err
	}

	found, err := m.load(ctx)
	if err != nil {
		return err
	}
	if !found {
		return errdefs.NotFoundf("remote configuration in namespace %q", m.namespace)
	}

	if validate {
		if err := m.validator.ValidateComponents(ctx, m.doc, skipConsensusNodes); err != nil {
			return err
		}
	}

	working := m.doc.Clone()
	if err := working.AddCommandToHistory(m.historyEntry(inv)); err != nil {
		return err
	}
	working.UpdateMetadata(func(md *types.Metadata) {
		md.LastUpdatedAt = time.Now().UTC()
		md.LastUpdatedBy = m.operator(inv)
		md.CLIVersion = m.cliVersion
		backfillVersions(md, inv)
	})
	working.MergeFlags(persistedFlags(inv.Flags))
	if err := working.Validate(); err != nil {
		return err
	}

	if err := m.save(ctx, working); err != nil {
		return err
	}
	m.doc = working
	return nil
}

// resolveTarget determines the effective deployment, namespace, cluster
// reference, and kubeconfig context for this invocation. Explicit values win;
// everything else comes from the local deployment registry. Resolution
// happens before any store access, so a ConfigurationError here guarantees
// nothing was read or written.
func (m *Manager) resolveTarget(namespace, contextName, deploymentName string) error {
	deployment, err := m.local.ResolveDeployment(deploymentName, m.prompter)
	if err != nil {
		// Fully explicit targets can proceed without a local deployment.
		if namespace != "" && contextName != "" {
			m.deployment = nil
			m.namespace = namespace
			m.contextName = contextName
			m.clusterRef = ""
			return nil
		}
		return err
	}

	m.deployment = deployment
	m.namespace = deployment.Namespace
	if namespace != "" {
		m.namespace = namespace
	}
	if len(deployment.Clusters) > 0 {
		m.clusterRef = deployment.Clusters[0]
	}
	if contextName != "" {
		m.contextName = contextName
		return nil
	}
	if m.clusterRef == "" {
		return errdefs.Configurationf("deployment %q has no clusters and no context was given", deployment.Name)
	}
	resolved, err := m.local.ContextForCluster(m.clusterRef)
	if err != nil {
		return err
	}
	m.contextName = resolved
	return nil
}

// load fetches and parses the document for the already-resolved target.
func (m *Manager) load(ctx context.Context) (bool, error) {
	client, err := m.factory.Client(m.contextName)
	if err != nil {
		return false, err
	}
	data, err := client.ReadConfigMap(ctx, m.namespace, ConfigMapName)
	if err != nil {
		if errdefs.IsNotFound(err) {
			m.logger.Warn().
				Str("namespace", m.namespace).
				Msg("remote configuration not found, deployment may not be bootstrapped yet")
			return false, nil
		}
		return false, err
	}
	doc, err := FromConfigMap(data)
	if err != nil {
		return false, err
	}
	m.doc = doc
	m.state = StateLoaded
	metrics.LoadsTotal.Inc()
	return true, nil
}

// save serializes the document and replaces the ConfigMap on every member
// cluster concurrently. The multi-cluster replace is not atomic: a failure
// after some contexts succeeded leaves the document partially replicated.
// That partial state is surfaced in the returned error and the warning log;
// no automatic reconciliation is attempted on the next load.
func (m *Manager) save(ctx context.Context, doc *Document) error {
	serialized, err := doc.Serialize()
	if err != nil {
		return err
	}
	data := map[string]string{ConfigMapDataKey: serialized}

	targets, err := m.replicaTargets(doc)
	if err != nil {
		return err
	}

	var (
		mu     sync.Mutex
		failed []string
	)
	g, gctx := errgroup.WithContext(ctx)
	for ref, client := range targets {
		ref, client := ref, client
		g.Go(func() error {
			if err := client.ReplaceConfigMap(gctx, doc.metadata.Namespace, ConfigMapName, ConfigMapLabels(), data); err != nil {
				mu.Lock()
				failed = append(failed, ref)
				mu.Unlock()
				return err
			}
			return nil
		})
	}
	if err := g.Wait(); err != nil {
		metrics.SaveFailuresTotal.Inc()
		sort.Strings(failed)
		if len(targets) > 1 {
			m.logger.Warn().
				Strs("failed_clusters", failed).
				Msg("remote configuration may be partially replicated across clusters")
		}
		return errdefs.Writef(err, "replacing remote configuration on clusters [%s]", strings.Join(failed, ", "))
	}

	m.storeSnapshot(serialized)
	metrics.SavesTotal.Inc()
	return nil
}

// replicaTargets resolves one client per member cluster. When the invocation
// carries only an explicit namespace/context, the single resolved context is
// the only target.
func (m *Manager) replicaTargets(doc *Document) (map[string]kube.Client, error) {
	targets := make(map[string]kube.Client)
	refs := sortedRefs(doc.Clusters())
	if m.deployment == nil || len(refs) == 0 {
		client, err := m.factory.Client(m.contextName)
		if err != nil {
			return nil, err
		}
		targets[m.clusterRef] = client
		return targets, nil
	}
	for _, ref := range refs {
		client, err := m.clientFor(ref)
		if err != nil {
			return nil, err
		}
		targets[ref] = client
	}
	return targets, nil
}

func (m *Manager) clientFor(ref types.ClusterRef) (kube.Client, error) {
	contextName, err := m.local.ContextForCluster(ref)
	if err != nil {
		if ref == m.clusterRef && m.contextName != "" {
			return m.factory.Client(m.contextName)
		}
		return nil, err
	}
	return m.factory.Client(contextName)
}

// targetLabel names the resolved target for error messages: the cluster
// reference when one was resolved, otherwise the explicit context or
// namespace.
func (m *Manager) targetLabel() string {
	if m.clusterRef != "" {
		return m.clusterRef
	}
	if m.contextName != "" {
		return m.contextName
	}
	return m.namespace
}

func (m *Manager) operator(inv *types.CommandInvocation) string {
	if inv != nil && inv.Operator != "" {
		return inv.Operator
	}
	return m.local.OperatorIdentity()
}

func (m *Manager) historyEntry(inv *types.CommandInvocation) string {
	redacted := types.CommandInvocation{
		Path:     inv.Path,
		Flags:    redactFlags(inv.Flags),
		Operator: m.operator(inv),
	}
	return redacted.HistoryEntry()
}

func (m *Manager) storeSnapshot(serialized string) {
	if m.cache == nil || m.deployment == nil {
		return
	}
	if err := m.cache.Store(m.deployment.Name, m.namespace, serialized); err != nil {
		m.logger.Warn().Err(err).Msg("failed to store local snapshot")
	}
}

func sortedRefs(clusters map[types.ClusterRef]*types.Cluster) []string {
	refs := make([]string, 0, len(clusters))
	for ref := range clusters {
		refs = append(refs, ref)
	}
	sort.Strings(refs)
	return refs
}
