package components

import (
	"sort"

	"github.com/ledgerworks/hnetctl/pkg/errdefs"
	"github.com/ledgerworks/hnetctl/pkg/types"
)

// Registry is the typed, grouped collection of deployment components. Each
// variant lives in its own group keyed by component name; names are unique
// within a group, not across groups.
//
// All mutation dispatches through an exhaustive check against the closed kind
// set, so no code path can insert an untyped or mistyped entry.
type Registry struct {
	groups map[Kind]map[string]Component
}

// NewRegistry creates an empty registry with every group allocated.
func NewRegistry() *Registry {
	groups := make(map[Kind]map[string]Component, len(Kinds()))
	for _, kind := range Kinds() {
		groups[kind] = make(map[string]Component)
	}
	return &Registry{groups: groups}
}

// Add inserts a component into its group. It fails with ErrAlreadyExists when
// a component of the same name exists in that group, and with ErrSchema when
// the value's runtime type disagrees with its declared kind.
func (r *Registry) Add(c Component) error {
	group, err := r.checked(c)
	if err != nil {
		return err
	}
	if _, exists := group[c.GetName()]; exists {
		return errdefs.Conflictf("%s %q", c.Kind(), c.GetName())
	}
	group[c.GetName()] = c.Copy()
	return nil
}

// Edit replaces an existing component. It fails with ErrNotFound when no
// component of that name exists in the group.
func (r *Registry) Edit(c Component) error {
	group, err := r.checked(c)
	if err != nil {
		return err
	}
	if _, exists := group[c.GetName()]; !exists {
		return errdefs.NotFoundf("%s %q", c.Kind(), c.GetName())
	}
	group[c.GetName()] = c.Copy()
	return nil
}

// Remove deletes a component by kind and name, failing with ErrNotFound when
// absent.
func (r *Registry) Remove(kind Kind, name string) error {
	group, ok := r.groups[kind]
	if !ok {
		return errdefs.Schemaf("unknown component kind %q", kind)
	}
	if _, exists := group[name]; !exists {
		return errdefs.NotFoundf("%s %q", kind, name)
	}
	delete(group, name)
	return nil
}

// Get returns a copy of the named component, failing with ErrNotFound when
// absent.
func (r *Registry) Get(kind Kind, name string) (Component, error) {
	group, ok := r.groups[kind]
	if !ok {
		return nil, errdefs.Schemaf("unknown component kind %q", kind)
	}
	c, exists := group[name]
	if !exists {
		return nil, errdefs.NotFoundf("%s %q", kind, name)
	}
	return c.Copy(), nil
}

// Group returns a copy of every component in the given kind's group.
func (r *Registry) Group(kind Kind) map[string]Component {
	out := make(map[string]Component, len(r.groups[kind]))
	for name, c := range r.groups[kind] {
		out[name] = c.Copy()
	}
	return out
}

// Names returns the sorted component names of a group.
func (r *Registry) Names(kind Kind) []string {
	names := make([]string, 0, len(r.groups[kind]))
	for name := range r.groups[kind] {
		names = append(names, name)
	}
	sort.Strings(names)
	return names
}

// Len returns the number of components in a group.
func (r *Registry) Len(kind Kind) int {
	return len(r.groups[kind])
}

// Validate checks every stored value's runtime type against its declared
// group, failing with ErrSchema on the first disagreement.
func (r *Registry) Validate() error {
	for _, kind := range Kinds() {
		for name, c := range r.groups[kind] {
			if c == nil {
				return errdefs.Schemaf("%s %q holds a nil component", kind, name)
			}
			if c.Kind() != kind || !matchesKind(c) {
				return errdefs.Schemaf("%s %q holds a %T, which is not a %s", kind, name, c, kind)
			}
		}
	}
	return nil
}

// Clone returns a deep copy of the registry. Accessors that expose the
// registry outside a transaction hand out clones so callers cannot bypass
// validation.
func (r *Registry) Clone() *Registry {
	out := NewRegistry()
	for kind, group := range r.groups {
		for name, c := range group {
			out.groups[kind][name] = c.Copy()
		}
	}
	return out
}

// InitializeWithNodes bulk-seeds consensus node entries in state
// non-deployed, one per alias, with node ids assigned by position. Used by
// deployment bootstrap.
func (r *Registry) InitializeWithNodes(aliases []string, clusterRef, namespace string) error {
	for i, alias := range aliases {
		node := NewConsensusNode(alias, clusterRef, namespace, i, types.NodeStateNonDeployed)
		if err := r.Add(node); err != nil {
			return err
		}
	}
	return nil
}

func (r *Registry) checked(c Component) (map[string]Component, error) {
	if c == nil {
		return nil, errdefs.Schemaf("nil component")
	}
	if c.GetName() == "" {
		return nil, errdefs.Schemaf("%s component with empty name", c.Kind())
	}
	if !matchesKind(c) {
		return nil, errdefs.Schemaf("%T does not belong to group %s", c, c.Kind())
	}
	group, ok := r.groups[c.Kind()]
	if !ok {
		return nil, errdefs.Schemaf("unknown component kind %q", c.Kind())
	}
	return group, nil
}

// Object is the exact serialized form of a registry: six fixed groups keyed
// by component name.
type Object struct {
	ConsensusNodes      map[string]*ConsensusNode      `yaml:"consensusNodes" json:"consensusNodes"`
	HaProxies           map[string]*HaProxy            `yaml:"haProxies" json:"haProxies"`
	EnvoyProxies        map[string]*EnvoyProxy         `yaml:"envoyProxies" json:"envoyProxies"`
	MirrorNodes         map[string]*MirrorNode         `yaml:"mirrorNodes" json:"mirrorNodes"`
	MirrorNodeExplorers map[string]*MirrorNodeExplorer `yaml:"mirrorNodeExplorers" json:"mirrorNodeExplorers"`
	Relays              map[string]*Relay              `yaml:"relays" json:"relays"`
}

// ToObject converts the registry to its serialized form.
func (r *Registry) ToObject() *Object {
	obj := &Object{
		ConsensusNodes:      map[string]*ConsensusNode{},
		HaProxies:           map[string]*HaProxy{},
		EnvoyProxies:        map[string]*EnvoyProxy{},
		MirrorNodes:         map[string]*MirrorNode{},
		MirrorNodeExplorers: map[string]*MirrorNodeExplorer{},
		Relays:              map[string]*Relay{},
	}
	for name, c := range r.groups[KindConsensusNode] {
		obj.ConsensusNodes[name] = c.Copy().(*ConsensusNode)
	}
	for name, c := range r.groups[KindHaProxy] {
		obj.HaProxies[name] = c.Copy().(*HaProxy)
	}
	for name, c := range r.groups[KindEnvoyProxy] {
		obj.EnvoyProxies[name] = c.Copy().(*EnvoyProxy)
	}
	for name, c := range r.groups[KindMirrorNode] {
		obj.MirrorNodes[name] = c.Copy().(*MirrorNode)
	}
	for name, c := range r.groups[KindMirrorNodeExplorer] {
		obj.MirrorNodeExplorers[name] = c.Copy().(*MirrorNodeExplorer)
	}
	for name, c := range r.groups[KindRelay] {
		obj.Relays[name] = c.Copy().(*Relay)
	}
	return obj
}

// FromObject reconstructs a registry from its serialized form. Every entry
// passes through Add, so a malformed object fails with ErrSchema or
// ErrAlreadyExists rather than producing a partially typed registry.
func FromObject(obj *Object) (*Registry, error) {
	if obj == nil {
		return nil, errdefs.Schemaf("nil component registry object")
	}
	r := NewRegistry()
	for _, c := range obj.ConsensusNodes {
		if err := r.Add(c); err != nil {
			return nil, err
		}
	}
	for _, c := range obj.HaProxies {
		if err := r.Add(c); err != nil {
			return nil, err
		}
	}
	for _, c := range obj.EnvoyProxies {
		if err := r.Add(c); err != nil {
			return nil, err
		}
	}
	for _, c := range obj.MirrorNodes {
		if err := r.Add(c); err != nil {
			return nil, err
		}
	}
	for _, c := range obj.MirrorNodeExplorers {
		if err := r.Add(c); err != nil {
			return nil, err
		}
	}
	for _, c := range obj.Relays {
		if err := r.Add(c); err != nil {
			return nil, err
		}
	}
	return r, nil
}
