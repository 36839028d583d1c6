package remote

import (
	"context"
	"fmt"

	"github.com/rs/zerolog"
	"golang.org/x/sync/errgroup"

	"github.com/ledgerworks/hnetctl/pkg/components"
	"github.com/ledgerworks/hnetctl/pkg/errdefs"
	"github.com/ledgerworks/hnetctl/pkg/kube"
	"github.com/ledgerworks/hnetctl/pkg/local"
	"github.com/ledgerworks/hnetctl/pkg/log"
	"github.com/ledgerworks/hnetctl/pkg/metrics"
)

// Validator cross-checks a document's declared components against live
// cluster state. For every component it resolves a kind-specific label
// selector and requires at least one matching pod.
type Validator struct {
	factory kube.Factory
	local   *local.Registry
	logger  zerolog.Logger
}

// NewValidator creates a validator using the given client factory and local
// registry (for cluster reference to context resolution).
func NewValidator(factory kube.Factory, localRegistry *local.Registry) *Validator {
	return &Validator{
		factory: factory,
		local:   localRegistry,
		logger:  log.WithComponent("validator"),
	}
}

// ValidateComponents checks every component group concurrently. The checks
// are independent pure reads, so they run without locking; the pass fails on
// the first component whose selector matches zero pods.
//
// skipConsensusNodes skips the consensus node group. Used during in-flight
// node lifecycle operations where the node set is intentionally not yet
// consistent, e.g. mid node-add before the new pod exists.
func (v *Validator) ValidateComponents(ctx context.Context, doc *Document, skipConsensusNodes bool) error {
	timer := metrics.NewTimer()
	defer timer.ObserveDuration(metrics.ValidationDuration)

	registry := doc.Components()
	g, gctx := errgroup.WithContext(ctx)

	for _, kind := range components.Kinds() {
		if kind == components.KindConsensusNode && skipConsensusNodes {
			v.logger.Debug().Msg("skipping consensus node validation")
			continue
		}
		for _, c := range registry.Group(kind) {
			c := c
			g.Go(func() error {
				return v.validateComponent(gctx, c)
			})
		}
	}

	if err := g.Wait(); err != nil {
		metrics.ValidationFailuresTotal.Inc()
		return err
	}
	return nil
}

func (v *Validator) validateComponent(ctx context.Context, c components.Component) error {
	contextName, err := v.local.ContextForCluster(c.GetCluster())
	if err != nil {
		return err
	}
	client, err := v.factory.Client(contextName)
	if err != nil {
		return err
	}

	selector := selectorFor(c)
	pods, err := client.ListPodsByLabel(ctx, c.GetNamespace(), selector)
	if err != nil {
		return err
	}
	if len(pods) == 0 {
		return &errdefs.DriftError{
			Kind:      string(c.Kind()),
			Name:      c.GetName(),
			Namespace: c.GetNamespace(),
			Cluster:   c.GetCluster(),
		}
	}
	return nil
}

// selectorFor resolves the kind-specific label selector for a component.
// Consensus nodes and proxies are matched by name; mirror node, explorer, and
// relay carry fixed product labels.
func selectorFor(c components.Component) string {
	switch c.Kind() {
	case components.KindConsensusNode:
		return fmt.Sprintf("app=network-%s", c.GetName())
	case components.KindHaProxy, components.KindEnvoyProxy:
		return fmt.Sprintf("app=%s", c.GetName())
	case components.KindMirrorNode:
		return "app.kubernetes.io/name=importer"
	case components.KindMirrorNodeExplorer:
		return "app.kubernetes.io/name=hedera-explorer"
	case components.KindRelay:
		return "app=hedera-json-rpc-relay"
	}
	return ""
}
