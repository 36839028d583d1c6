package local

import (
	"fmt"
	"os"
	"os/user"
	"path/filepath"
	"sort"
	"strings"

	"github.com/spf13/viper"

	"github.com/ledgerworks/hnetctl/pkg/errdefs"
)

// DefaultConfigDir is the directory under the operator's home that holds the
// local configuration file.
const DefaultConfigDir = ".hnetctl"

// Deployment is one locally configured deployment: the namespace it maps to
// and the cluster references that are members of it.
type Deployment struct {
	Name      string
	Namespace string
	Clusters  []string
}

// Prompter is the collaborator seam for interactive deployment selection.
// Prompting itself lives in the CLI layer; the registry only calls it when a
// deployment cannot be inferred from flags or configuration.
type Prompter interface {
	SelectDeployment(names []string) (string, error)
}

// Registry reads the operator's local configuration file: known deployments,
// the cluster reference to kubeconfig context mapping, and the operator's
// identity.
type Registry struct {
	v *viper.Viper
}

type deploymentConfig struct {
	Namespace string   `mapstructure:"namespace"`
	Clusters  []string `mapstructure:"clusters"`
}

// NewRegistry loads the local configuration from path. An empty path loads
// ~/.hnetctl/config.yaml. A missing file yields an empty registry; queries
// against it fail with ErrConfiguration.
func NewRegistry(path string) (*Registry, error) {
	v := viper.New()
	if path == "" {
		home, err := os.UserHomeDir()
		if err != nil {
			return nil, errdefs.Configurationf("resolving home directory: %v", err)
		}
		path = filepath.Join(home, DefaultConfigDir, "config.yaml")
	}
	v.SetConfigFile(path)
	v.SetConfigType("yaml")

	if err := v.ReadInConfig(); err != nil {
		if os.IsNotExist(err) {
			return &Registry{v: v}, nil
		}
		if _, ok := err.(viper.ConfigFileNotFoundError); ok {
			return &Registry{v: v}, nil
		}
		return nil, errdefs.Configurationf("reading local config %q: %v", path, err)
	}
	return &Registry{v: v}, nil
}

// Deployment returns the named deployment, failing with ErrConfiguration when
// it is not configured or has no namespace.
func (r *Registry) Deployment(name string) (*Deployment, error) {
	deployments, err := r.deployments()
	if err != nil {
		return nil, err
	}
	cfg, ok := deployments[strings.ToLower(name)]
	if !ok {
		return nil, errdefs.Configurationf("deployment %q not found in local config", name)
	}
	if cfg.Namespace == "" {
		return nil, errdefs.Configurationf("deployment %q has no namespace in local config", name)
	}
	return &Deployment{
		Name:      name,
		Namespace: cfg.Namespace,
		Clusters:  append([]string(nil), cfg.Clusters...),
	}, nil
}

// DeploymentNames returns the sorted names of every configured deployment.
func (r *Registry) DeploymentNames() []string {
	deployments, err := r.deployments()
	if err != nil {
		return nil
	}
	names := make([]string, 0, len(deployments))
	for name := range deployments {
		names = append(names, name)
	}
	sort.Strings(names)
	return names
}

// ResolveDeployment picks the effective deployment for a command: the
// explicit name when given, otherwise the configured current deployment,
// otherwise a prompt. With nothing to go on it fails with ErrConfiguration
// before any store access happens.
func (r *Registry) ResolveDeployment(explicit string, prompter Prompter) (*Deployment, error) {
	if explicit != "" {
		return r.Deployment(explicit)
	}
	if current := r.v.GetString("currentDeployment"); current != "" {
		return r.Deployment(current)
	}
	names := r.DeploymentNames()
	if prompter != nil && len(names) > 0 {
		chosen, err := prompter.SelectDeployment(names)
		if err != nil {
			return nil, errdefs.Configurationf("selecting deployment: %v", err)
		}
		return r.Deployment(chosen)
	}
	return nil, errdefs.Configurationf("no deployment selected and no default configured")
}

// ContextForCluster maps a cluster reference to its kubeconfig context name.
// Viper lowercases configuration keys, so the lookup is case-insensitive.
func (r *Registry) ContextForCluster(clusterRef string) (string, error) {
	contexts := r.v.GetStringMapString("clusterContexts")
	ctx, ok := contexts[strings.ToLower(clusterRef)]
	if !ok || ctx == "" {
		return "", errdefs.Configurationf("no kubeconfig context configured for cluster %q", clusterRef)
	}
	return ctx, nil
}

// OperatorIdentity returns the configured operator identity, falling back to
// user@hostname.
func (r *Registry) OperatorIdentity() string {
	if id := r.v.GetString("userIdentity"); id != "" {
		return id
	}
	username := "unknown"
	if u, err := user.Current(); err == nil && u.Username != "" {
		username = u.Username
	}
	hostname, err := os.Hostname()
	if err != nil || hostname == "" {
		hostname = "localhost"
	}
	return fmt.Sprintf("%s@%s", username, hostname)
}

func (r *Registry) deployments() (map[string]deploymentConfig, error) {
	if !r.v.IsSet("deployments") {
		return nil, errdefs.Configurationf("no deployments in local config")
	}
	var deployments map[string]deploymentConfig
	if err := r.v.UnmarshalKey("deployments", &deployments); err != nil {
		return nil, errdefs.Configurationf("malformed deployments in local config: %v", err)
	}
	return deployments, nil
}
