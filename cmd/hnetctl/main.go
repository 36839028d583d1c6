package main

import (
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"github.com/spf13/cobra"
	"github.com/spf13/pflag"

	"github.com/ledgerworks/hnetctl/pkg/cache"
	"github.com/ledgerworks/hnetctl/pkg/kube"
	"github.com/ledgerworks/hnetctl/pkg/local"
	"github.com/ledgerworks/hnetctl/pkg/log"
	"github.com/ledgerworks/hnetctl/pkg/remote"
	"github.com/ledgerworks/hnetctl/pkg/types"
)

var (
	// Version information (set via ldflags during build)
	Version   = "dev"
	Commit    = "unknown"
	BuildTime = "unknown"
)

func main() {
	if err := rootCmd.Execute(); err != nil {
		fmt.Fprintf(os.Stderr, "Error: %v\n", err)
		os.Exit(1)
	}
}

var rootCmd = &cobra.Command{
	Use:   "hnetctl",
	Short: "hnetctl - Hedera network deployment lifecycle manager",
	Long: `hnetctl manages the lifecycle of multi-node Hedera consensus networks
deployed across one or more Kubernetes clusters.

Deployment topology is tracked in a remote configuration stored inside the
target cluster itself, reloaded by every command and reconciled against what
is actually running.`,
	Version: Version,
	PersistentPreRun: func(cmd *cobra.Command, args []string) {
		level, _ := cmd.Flags().GetString("log-level")
		jsonOut, _ := cmd.Flags().GetBool("log-json")
		log.Init(log.Config{Level: log.Level(level), JSONOutput: jsonOut})
	},
}

func init() {
	rootCmd.SetVersionTemplate(fmt.Sprintf(
		"hnetctl version %s\nCommit: %s\nBuilt: %s\n",
		Version, Commit, BuildTime,
	))

	rootCmd.PersistentFlags().String("log-level", "info", "Log level (debug, info, warn, error)")
	rootCmd.PersistentFlags().Bool("log-json", false, "Emit JSON logs")
	rootCmd.PersistentFlags().String("kubeconfig", "", "Path to kubeconfig (defaults to $KUBECONFIG or ~/.kube/config)")
	rootCmd.PersistentFlags().String("config", "", "Path to local config file (defaults to ~/.hnetctl/config.yaml)")

	rootCmd.AddCommand(deploymentCmd)
	rootCmd.AddCommand(remoteConfigCmd)
}

// Deployment commands
var deploymentCmd = &cobra.Command{
	Use:   "deployment",
	Short: "Manage deployments",
}

var deploymentCreateCmd = &cobra.Command{
	Use:   "create",
	Short: "Create the remote configuration for a deployment",
	Long: `Create the remote configuration for a locally configured deployment.

Seeds one consensus node entry per alias, all in state non-deployed, and
writes the document to every member cluster. Fails if a remote configuration
already exists for the namespace.`,
	RunE: func(cmd *cobra.Command, args []string) error {
		deploymentName, _ := cmd.Flags().GetString("deployment")
		nodeAliases, _ := cmd.Flags().GetStringSlice("node-aliases")
		dnsBaseDomain, _ := cmd.Flags().GetString("dns-base-domain")
		dnsPattern, _ := cmd.Flags().GetString("dns-consensus-node-pattern")

		mgr, localReg, cleanup, err := newManager(cmd)
		if err != nil {
			return err
		}
		defer cleanup()

		deployment, err := localReg.Deployment(deploymentName)
		if err != nil {
			return err
		}

		clusters := make(map[types.ClusterRef]*types.Cluster, len(deployment.Clusters))
		for _, ref := range deployment.Clusters {
			clusters[ref] = &types.Cluster{
				Name:                    ref,
				Namespace:               deployment.Namespace,
				Deployment:              deploymentName,
				DNSBaseDomain:           dnsBaseDomain,
				DNSConsensusNodePattern: dnsPattern,
			}
		}

		inv := invocationFrom(cmd, localReg)
		if err := mgr.Create(cmd.Context(), inv, deploymentName, nodeAliases, clusters); err != nil {
			return err
		}

		fmt.Printf("Remote configuration created for deployment '%s'\n", deploymentName)
		fmt.Printf("  Namespace: %s\n", deployment.Namespace)
		fmt.Printf("  Clusters:  %s\n", strings.Join(deployment.Clusters, ", "))
		fmt.Printf("  Nodes:     %s\n", strings.Join(nodeAliases, ", "))
		return nil
	},
}

var deploymentListCmd = &cobra.Command{
	Use:   "list",
	Short: "List locally known deployments and their cached topology",
	RunE: func(cmd *cobra.Command, args []string) error {
		configPath, _ := cmd.Flags().GetString("config")
		localReg, err := local.NewRegistry(configPath)
		if err != nil {
			return err
		}

		snapshots := map[string]*cache.Snapshot{}
		if c, err := openCache(); err == nil {
			defer c.Close()
			if list, err := c.List(); err == nil {
				for _, s := range list {
					snapshots[s.Deployment] = s
				}
			}
		}

		for _, name := range localReg.DeploymentNames() {
			deployment, err := localReg.Deployment(name)
			if err != nil {
				fmt.Printf("%s\t(misconfigured: %v)\n", name, err)
				continue
			}
			line := fmt.Sprintf("%s\tnamespace=%s\tclusters=%s", name, deployment.Namespace, strings.Join(deployment.Clusters, ","))
			if s, ok := snapshots[name]; ok {
				line += fmt.Sprintf("\tlast-saved=%s", s.StoredAt.Format("2006-01-02 15:04:05"))
			}
			fmt.Println(line)
		}
		return nil
	},
}

func init() {
	deploymentCmd.AddCommand(deploymentCreateCmd)
	deploymentCmd.AddCommand(deploymentListCmd)

	deploymentCreateCmd.Flags().String("deployment", "", "Deployment name from local config")
	deploymentCreateCmd.Flags().StringSlice("node-aliases", nil, "Consensus node aliases to seed (e.g. node1,node2)")
	deploymentCreateCmd.Flags().String("dns-base-domain", "cluster.local", "Cluster DNS base domain")
	deploymentCreateCmd.Flags().String("dns-consensus-node-pattern", "network-{nodeAlias}-svc.{namespace}.svc", "DNS pattern for consensus node hostnames")
	deploymentCreateCmd.MarkFlagRequired("deployment")
	deploymentCreateCmd.MarkFlagRequired("node-aliases")
}

// Remote configuration commands
var remoteConfigCmd = &cobra.Command{
	Use:   "remote-config",
	Short: "Inspect the in-cluster remote configuration",
}

var remoteConfigGetCmd = &cobra.Command{
	Use:   "get",
	Short: "Print the remote configuration",
	RunE: func(cmd *cobra.Command, args []string) error {
		namespace, _ := cmd.Flags().GetString("namespace")
		contextName, _ := cmd.Flags().GetString("context")

		mgr, _, cleanup, err := newManager(cmd)
		if err != nil {
			return err
		}
		defer cleanup()

		found, err := mgr.Load(cmd.Context(), namespace, contextName)
		if err != nil {
			return err
		}
		if !found {
			return fmt.Errorf("no remote configuration found in namespace %q", mgr.Namespace())
		}
		doc, err := mgr.Document()
		if err != nil {
			return err
		}
		serialized, err := doc.Serialize()
		if err != nil {
			return err
		}
		fmt.Print(serialized)
		return nil
	},
}

var remoteConfigValidateCmd = &cobra.Command{
	Use:   "validate",
	Short: "Validate the remote configuration against live cluster state",
	RunE: func(cmd *cobra.Command, args []string) error {
		contextName, _ := cmd.Flags().GetString("context")

		mgr, _, cleanup, err := newManager(cmd)
		if err != nil {
			return err
		}
		defer cleanup()

		if _, err := mgr.Get(cmd.Context(), contextName); err != nil {
			return err
		}
		fmt.Println("✓ Remote configuration matches live cluster state")
		return nil
	},
}

func init() {
	remoteConfigCmd.AddCommand(remoteConfigGetCmd)
	remoteConfigCmd.AddCommand(remoteConfigValidateCmd)

	remoteConfigGetCmd.Flags().String("namespace", "", "Target namespace (defaults from local config)")
	remoteConfigGetCmd.Flags().String("context", "", "Kubeconfig context (defaults from local config)")
	remoteConfigValidateCmd.Flags().String("context", "", "Kubeconfig context (defaults from local config)")
}

// newManager wires a remote configuration manager from the command's flags.
func newManager(cmd *cobra.Command) (*remote.Manager, *local.Registry, func(), error) {
	configPath, _ := cmd.Flags().GetString("config")
	kubeconfig, _ := cmd.Flags().GetString("kubeconfig")

	localReg, err := local.NewRegistry(configPath)
	if err != nil {
		return nil, nil, nil, err
	}

	cleanup := func() {}
	var snapshotCache *cache.Cache
	if c, err := openCache(); err == nil {
		snapshotCache = c
		cleanup = func() { c.Close() }
	} else {
		log.Logger.Warn().Err(err).Msg("snapshot cache unavailable")
	}

	mgr, err := remote.NewManager(&remote.Config{
		CLIVersion: Version,
		Strict:     true,
		Factory:    kube.NewFactory(kubeconfig),
		Local:      localReg,
		Cache:      snapshotCache,
	})
	if err != nil {
		cleanup()
		return nil, nil, nil, err
	}
	return mgr, localReg, cleanup, nil
}

func openCache() (*cache.Cache, error) {
	home, err := os.UserHomeDir()
	if err != nil {
		return nil, err
	}
	dir := filepath.Join(home, local.DefaultConfigDir)
	if err := os.MkdirAll(dir, 0755); err != nil {
		return nil, err
	}
	return cache.Open(dir)
}

// invocationFrom captures the command path and every changed flag of the
// invocation, for history recording and default resolution.
func invocationFrom(cmd *cobra.Command, localReg *local.Registry) *types.CommandInvocation {
	flags := types.Flags{}
	cmd.Flags().Visit(func(f *pflag.Flag) {
		flags[f.Name] = f.Value.String()
	})

	path := strings.Fields(cmd.CommandPath())
	if len(path) > 0 {
		path = path[1:] // drop the binary name
	}
	return &types.CommandInvocation{
		Path:     path,
		Flags:    flags,
		Operator: localReg.OperatorIdentity(),
	}
}
