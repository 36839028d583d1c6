package remote

import (
	"golang.org/x/mod/semver"
	"gopkg.in/yaml.v3"

	"github.com/ledgerworks/hnetctl/pkg/components"
	"github.com/ledgerworks/hnetctl/pkg/errdefs"
	"github.com/ledgerworks/hnetctl/pkg/types"
)

const (
	// SchemaVersion is the schema version written by this build of the tool.
	SchemaVersion = "1.0.0"

	// HistoryCap bounds the command history. When an append would exceed it,
	// the oldest entries are evicted first.
	HistoryCap = 50

	// ConfigMapName is the fixed name of the in-cluster store.
	ConfigMapName = "hnetctl-remote-config"

	// ConfigMapDataKey is the single data field holding the serialized
	// document.
	ConfigMapDataKey = "remote-config.yaml"
)

// ConfigMapLabels identify the remote configuration ConfigMap.
func ConfigMapLabels() map[string]string {
	return map[string]string{"hnetctl.ledgerworks.io/type": "remote-config"}
}

// Document is the authoritative, versioned record of a deployment's topology.
// All fields are private; read accessors hand out snapshots and mutation goes
// through the typed methods, so nothing outside a manager transaction can
// alter committed state.
type Document struct {
	version             string
	metadata            *types.Metadata
	clusters            map[types.ClusterRef]*types.Cluster
	components          *components.Registry
	commandHistory      []string
	lastExecutedCommand string
	flags               types.Flags
}

// NewDocument assembles a document at the current schema version.
func NewDocument(metadata *types.Metadata, clusters map[types.ClusterRef]*types.Cluster, registry *components.Registry, flags types.Flags) *Document {
	d := &Document{
		version:    SchemaVersion,
		metadata:   metadata.Clone(),
		clusters:   cloneClusters(clusters),
		components: registry.Clone(),
		flags:      flags.Clone(),
	}
	if d.flags == nil {
		d.flags = types.Flags{}
	}
	return d
}

// Version returns the document's schema version string.
func (d *Document) Version() string { return d.version }

// Metadata returns a snapshot of the document metadata.
func (d *Document) Metadata() *types.Metadata { return d.metadata.Clone() }

// SetMetadata replaces the document metadata.
func (d *Document) SetMetadata(m *types.Metadata) { d.metadata = m.Clone() }

// UpdateMetadata applies fn to the metadata in place. Used inside manager
// transactions for partial updates like version back-fill.
func (d *Document) UpdateMetadata(fn func(*types.Metadata)) { fn(d.metadata) }

// Clusters returns a snapshot of the cluster map.
func (d *Document) Clusters() map[types.ClusterRef]*types.Cluster {
	return cloneClusters(d.clusters)
}

// Cluster returns the cluster for the given reference, failing with
// ErrNotFound when absent.
func (d *Document) Cluster(ref types.ClusterRef) (*types.Cluster, error) {
	c, ok := d.clusters[ref]
	if !ok {
		return nil, errdefs.NotFoundf("cluster %q", ref)
	}
	out := *c
	return &out, nil
}

// SetCluster adds or replaces a cluster entry.
func (d *Document) SetCluster(ref types.ClusterRef, c *types.Cluster) {
	out := *c
	d.clusters[ref] = &out
}

// Components returns a deep copy of the component registry. Mutating the copy
// has no effect on the document; use the Add/Edit/RemoveComponent methods
// inside a transaction instead.
func (d *Document) Components() *components.Registry { return d.components.Clone() }

// AddComponent inserts a component into the registry.
func (d *Document) AddComponent(c components.Component) error { return d.components.Add(c) }

// EditComponent replaces an existing component.
func (d *Document) EditComponent(c components.Component) error { return d.components.Edit(c) }

// RemoveComponent deletes a component by kind and name.
func (d *Document) RemoveComponent(kind components.Kind, name string) error {
	return d.components.Remove(kind, name)
}

// GetComponent returns a copy of the named component.
func (d *Document) GetComponent(kind components.Kind, name string) (components.Component, error) {
	return d.components.Get(kind, name)
}

// CommandHistory returns a snapshot of the bounded command history, oldest
// first.
func (d *Document) CommandHistory() []string {
	return append([]string(nil), d.commandHistory...)
}

// LastExecutedCommand returns the most recently recorded command entry.
func (d *Document) LastExecutedCommand() string { return d.lastExecutedCommand }

// Flags returns a snapshot of the persisted common flag values.
func (d *Document) Flags() types.Flags { return d.flags.Clone() }

// MergeFlags overlays the given flags onto the persisted set.
func (d *Document) MergeFlags(flags types.Flags) {
	d.flags = d.flags.Merge(flags)
}

// AddCommandToHistory appends a formatted "actor: command args" entry,
// evicting the oldest entries when the cap is exceeded, then re-validates the
// document.
func (d *Document) AddCommandToHistory(entry string) error {
	d.commandHistory = append(d.commandHistory, entry)
	if excess := len(d.commandHistory) - HistoryCap; excess > 0 {
		d.commandHistory = append([]string(nil), d.commandHistory[excess:]...)
	}
	d.lastExecutedCommand = entry
	return d.Validate()
}

// Validate checks the whole document: a parseable semantic version, valid
// metadata, well-formed cluster entries, a typed component registry, and a
// recorded last command.
func (d *Document) Validate() error {
	// semver.IsValid alone accepts short forms like "1.0"; the stored version
	// must be the canonical three-part form.
	if v := "v" + d.version; !semver.IsValid(v) || semver.Canonical(v) != v {
		return errdefs.Schemaf("version %q is not a valid semantic version", d.version)
	}
	if d.metadata == nil {
		return errdefs.Schemaf("missing metadata")
	}
	if err := d.metadata.Validate(); err != nil {
		return err
	}
	for ref, c := range d.clusters {
		if ref == "" {
			return errdefs.Schemaf("cluster entry with empty reference")
		}
		if c == nil || c.Name == "" || c.Namespace == "" {
			return errdefs.Schemaf("cluster %q must carry a name and namespace", ref)
		}
	}
	if err := d.components.Validate(); err != nil {
		return err
	}
	if d.lastExecutedCommand == "" {
		return errdefs.Schemaf("missing last executed command")
	}
	return nil
}

// Clone returns a deep copy of the document.
func (d *Document) Clone() *Document {
	return &Document{
		version:             d.version,
		metadata:            d.metadata.Clone(),
		clusters:            cloneClusters(d.clusters),
		components:          d.components.Clone(),
		commandHistory:      append([]string(nil), d.commandHistory...),
		lastExecutedCommand: d.lastExecutedCommand,
		flags:               d.flags.Clone(),
	}
}

// Object is the exact serialized form of a document, the layout persisted in
// the ConfigMap data field.
type Object struct {
	Version             string                            `yaml:"version" json:"version"`
	Metadata            *types.Metadata                   `yaml:"metadata" json:"metadata"`
	Clusters            map[types.ClusterRef]*types.Cluster `yaml:"clusters" json:"clusters"`
	Components          *components.Object                `yaml:"components" json:"components"`
	CommandHistory      []string                          `yaml:"commandHistory" json:"commandHistory"`
	LastExecutedCommand string                            `yaml:"lastExecutedCommand" json:"lastExecutedCommand"`
	Flags               types.Flags                       `yaml:"flags" json:"flags"`
}

// ToObject converts the document to its serialized form. FromObject is the
// exact inverse.
func (d *Document) ToObject() *Object {
	return &Object{
		Version:             d.version,
		Metadata:            d.metadata.Clone(),
		Clusters:            cloneClusters(d.clusters),
		Components:          d.components.ToObject(),
		CommandHistory:      append([]string(nil), d.commandHistory...),
		LastExecutedCommand: d.lastExecutedCommand,
		Flags:               d.flags.Clone(),
	}
}

// FromObject reconstructs a document from its serialized form, failing with
// ErrSchema on any missing or malformed field.
func FromObject(obj *Object) (*Document, error) {
	if obj == nil {
		return nil, errdefs.Schemaf("nil document object")
	}
	if obj.Metadata == nil {
		return nil, errdefs.Schemaf("document missing metadata")
	}
	if obj.Clusters == nil {
		return nil, errdefs.Schemaf("document missing clusters")
	}
	registry, err := components.FromObject(obj.Components)
	if err != nil {
		return nil, err
	}
	d := &Document{
		version:             obj.Version,
		metadata:            obj.Metadata.Clone(),
		clusters:            cloneClusters(obj.Clusters),
		components:          registry,
		commandHistory:      append([]string(nil), obj.CommandHistory...),
		lastExecutedCommand: obj.LastExecutedCommand,
		flags:               obj.Flags.Clone(),
	}
	if d.flags == nil {
		d.flags = types.Flags{}
	}
	if err := d.Validate(); err != nil {
		return nil, err
	}
	return d, nil
}

// Serialize renders the document as the YAML payload stored in the ConfigMap.
func (d *Document) Serialize() (string, error) {
	raw, err := yaml.Marshal(d.ToObject())
	if err != nil {
		return "", errdefs.Schemaf("serializing document: %v", err)
	}
	return string(raw), nil
}

// FromConfigMap parses the serialized blob out of ConfigMap data and
// reconstructs the document.
func FromConfigMap(data map[string]string) (*Document, error) {
	raw, ok := data[ConfigMapDataKey]
	if !ok || raw == "" {
		return nil, errdefs.Schemaf("configmap missing data key %q", ConfigMapDataKey)
	}
	var obj Object
	if err := yaml.Unmarshal([]byte(raw), &obj); err != nil {
		return nil, errdefs.Schemaf("parsing stored document: %v", err)
	}
	return FromObject(&obj)
}

func cloneClusters(in map[types.ClusterRef]*types.Cluster) map[types.ClusterRef]*types.Cluster {
	out := make(map[types.ClusterRef]*types.Cluster, len(in))
	for ref, c := range in {
		if c == nil {
			out[ref] = nil
			continue
		}
		cc := *c
		out[ref] = &cc
	}
	return out
}
