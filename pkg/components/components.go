package components

import (
	"github.com/ledgerworks/hnetctl/pkg/types"
)

// Kind identifies one of the closed set of component variants tracked by the
// remote configuration.
type Kind string

const (
	KindConsensusNode      Kind = "consensus-node"
	KindHaProxy            Kind = "haproxy"
	KindEnvoyProxy         Kind = "envoy-proxy"
	KindMirrorNode         Kind = "mirror-node"
	KindMirrorNodeExplorer Kind = "mirror-node-explorer"
	KindRelay              Kind = "relay"
)

// Kinds returns every component kind in a fixed order.
func Kinds() []Kind {
	return []Kind{
		KindConsensusNode,
		KindHaProxy,
		KindEnvoyProxy,
		KindMirrorNode,
		KindMirrorNodeExplorer,
		KindRelay,
	}
}

// Component is a tracked unit within a deployment. Implementations form a
// closed set; the registry rejects any value whose runtime type disagrees
// with its declared kind.
type Component interface {
	GetName() string
	GetCluster() string
	GetNamespace() string
	Kind() Kind
	// Copy returns a deep copy so registry accessors never leak live state.
	Copy() Component
}

// BaseComponent holds the fields common to every component variant.
type BaseComponent struct {
	Name      string `yaml:"name" json:"name"`
	Cluster   string `yaml:"cluster" json:"cluster"`
	Namespace string `yaml:"namespace" json:"namespace"`
}

func (b *BaseComponent) GetName() string      { return b.Name }
func (b *BaseComponent) GetCluster() string   { return b.Cluster }
func (b *BaseComponent) GetNamespace() string { return b.Namespace }

// ConsensusNode is a Hedera consensus node with a numeric id and its own
// lifecycle state.
type ConsensusNode struct {
	BaseComponent `yaml:",inline" json:",inline"`
	NodeID        int             `yaml:"nodeId" json:"nodeId"`
	State         types.NodeState `yaml:"state" json:"state"`
}

// NewConsensusNode creates a consensus node component.
func NewConsensusNode(name, cluster, namespace string, nodeID int, state types.NodeState) *ConsensusNode {
	return &ConsensusNode{
		BaseComponent: BaseComponent{Name: name, Cluster: cluster, Namespace: namespace},
		NodeID:        nodeID,
		State:         state,
	}
}

func (c *ConsensusNode) Kind() Kind { return KindConsensusNode }

func (c *ConsensusNode) Copy() Component {
	out := *c
	return &out
}

// HaProxy is a load-balancing proxy fronting a consensus node.
type HaProxy struct {
	BaseComponent `yaml:",inline" json:",inline"`
}

// NewHaProxy creates an haproxy component.
func NewHaProxy(name, cluster, namespace string) *HaProxy {
	return &HaProxy{BaseComponent: BaseComponent{Name: name, Cluster: cluster, Namespace: namespace}}
}

func (c *HaProxy) Kind() Kind { return KindHaProxy }

func (c *HaProxy) Copy() Component {
	out := *c
	return &out
}

// EnvoyProxy is a gRPC-web proxy fronting a consensus node.
type EnvoyProxy struct {
	BaseComponent `yaml:",inline" json:",inline"`
}

// NewEnvoyProxy creates an envoy proxy component.
func NewEnvoyProxy(name, cluster, namespace string) *EnvoyProxy {
	return &EnvoyProxy{BaseComponent: BaseComponent{Name: name, Cluster: cluster, Namespace: namespace}}
}

func (c *EnvoyProxy) Kind() Kind { return KindEnvoyProxy }

func (c *EnvoyProxy) Copy() Component {
	out := *c
	return &out
}

// MirrorNode is a Hedera mirror node deployment.
type MirrorNode struct {
	BaseComponent `yaml:",inline" json:",inline"`
}

// NewMirrorNode creates a mirror node component.
func NewMirrorNode(name, cluster, namespace string) *MirrorNode {
	return &MirrorNode{BaseComponent: BaseComponent{Name: name, Cluster: cluster, Namespace: namespace}}
}

func (c *MirrorNode) Kind() Kind { return KindMirrorNode }

func (c *MirrorNode) Copy() Component {
	out := *c
	return &out
}

// MirrorNodeExplorer is the web explorer attached to a mirror node.
type MirrorNodeExplorer struct {
	BaseComponent `yaml:",inline" json:",inline"`
}

// NewMirrorNodeExplorer creates a mirror node explorer component.
func NewMirrorNodeExplorer(name, cluster, namespace string) *MirrorNodeExplorer {
	return &MirrorNodeExplorer{BaseComponent: BaseComponent{Name: name, Cluster: cluster, Namespace: namespace}}
}

func (c *MirrorNodeExplorer) Kind() Kind { return KindMirrorNodeExplorer }

func (c *MirrorNodeExplorer) Copy() Component {
	out := *c
	return &out
}

// Relay is a JSON-RPC relay serving a set of consensus nodes.
type Relay struct {
	BaseComponent `yaml:",inline" json:",inline"`
	// ConsensusNodes lists the names of the consensus nodes this relay serves.
	ConsensusNodes []string `yaml:"consensusNodes" json:"consensusNodes"`
}

// NewRelay creates a relay component serving the given consensus nodes.
func NewRelay(name, cluster, namespace string, consensusNodes []string) *Relay {
	return &Relay{
		BaseComponent:  BaseComponent{Name: name, Cluster: cluster, Namespace: namespace},
		ConsensusNodes: append([]string(nil), consensusNodes...),
	}
}

func (c *Relay) Kind() Kind { return KindRelay }

func (c *Relay) Copy() Component {
	out := *c
	out.ConsensusNodes = append([]string(nil), c.ConsensusNodes...)
	return &out
}

// matchesKind reports whether the runtime type of c agrees with its declared
// kind. The switch is exhaustive over the closed kind set; adding a variant
// means adding exactly one case here.
func matchesKind(c Component) bool {
	switch c.Kind() {
	case KindConsensusNode:
		_, ok := c.(*ConsensusNode)
		return ok
	case KindHaProxy:
		_, ok := c.(*HaProxy)
		return ok
	case KindEnvoyProxy:
		_, ok := c.(*EnvoyProxy)
		return ok
	case KindMirrorNode:
		_, ok := c.(*MirrorNode)
		return ok
	case KindMirrorNodeExplorer:
		_, ok := c.(*MirrorNodeExplorer)
		return ok
	case KindRelay:
		_, ok := c.(*Relay)
		return ok
	}
	return false
}
