package kube

import (
	"context"

	corev1 "k8s.io/api/core/v1"
	apierrors "k8s.io/apimachinery/pkg/api/errors"
	metav1 "k8s.io/apimachinery/pkg/apis/meta/v1"
	"k8s.io/client-go/kubernetes"
	"k8s.io/client-go/tools/clientcmd"

	"github.com/ledgerworks/hnetctl/pkg/errdefs"
)

// Client is the cluster API surface the remote configuration subsystem
// consumes: ConfigMap read/create/replace plus pod listing by label selector.
type Client interface {
	// ReadConfigMap returns the data of the named ConfigMap, failing with
	// ErrNotFound when it does not exist.
	ReadConfigMap(ctx context.Context, namespace, name string) (map[string]string, error)

	// CreateConfigMap creates the named ConfigMap, failing with
	// ErrAlreadyExists when one is present.
	CreateConfigMap(ctx context.Context, namespace, name string, labels, data map[string]string) error

	// ReplaceConfigMap overwrites the named ConfigMap's labels and data.
	ReplaceConfigMap(ctx context.Context, namespace, name string, labels, data map[string]string) error

	// ListPodsByLabel lists pods in the namespace matching the label selector.
	ListPodsByLabel(ctx context.Context, namespace, selector string) ([]corev1.Pod, error)
}

// Factory resolves a named kubeconfig context to a Client. The empty context
// name selects the kubeconfig's current context.
type Factory interface {
	Client(contextName string) (Client, error)
}

type kubeconfigFactory struct {
	explicitPath string
}

// NewFactory creates a Factory backed by the operator's kubeconfig. An empty
// path uses the default loading rules ($KUBECONFIG, ~/.kube/config).
func NewFactory(kubeconfigPath string) Factory {
	return &kubeconfigFactory{explicitPath: kubeconfigPath}
}

func (f *kubeconfigFactory) Client(contextName string) (Client, error) {
	loadingRules := clientcmd.NewDefaultClientConfigLoadingRules()
	if f.explicitPath != "" {
		loadingRules.ExplicitPath = f.explicitPath
	}
	overrides := &clientcmd.ConfigOverrides{CurrentContext: contextName}

	restConfig, err := clientcmd.NewNonInteractiveDeferredLoadingClientConfig(loadingRules, overrides).ClientConfig()
	if err != nil {
		return nil, errdefs.Configurationf("resolving kubeconfig context %q: %v", contextName, err)
	}

	clientset, err := kubernetes.NewForConfig(restConfig)
	if err != nil {
		return nil, errdefs.Configurationf("building client for context %q: %v", contextName, err)
	}
	return &client{clientset: clientset}, nil
}

type client struct {
	clientset kubernetes.Interface
}

// NewClient wraps an existing clientset. Used by tests and by callers that
// already hold a configured clientset.
func NewClient(clientset kubernetes.Interface) Client {
	return &client{clientset: clientset}
}

func (c *client) ReadConfigMap(ctx context.Context, namespace, name string) (map[string]string, error) {
	cm, err := c.clientset.CoreV1().ConfigMaps(namespace).Get(ctx, name, metav1.GetOptions{})
	if err != nil {
		if apierrors.IsNotFound(err) {
			return nil, errdefs.NotFoundf("configmap %q in namespace %q", name, namespace)
		}
		return nil, errdefs.Readf(err, "reading configmap %q in namespace %q", name, namespace)
	}
	return cm.Data, nil
}

func (c *client) CreateConfigMap(ctx context.Context, namespace, name string, labels, data map[string]string) error {
	cm := &corev1.ConfigMap{
		ObjectMeta: metav1.ObjectMeta{
			Name:      name,
			Namespace: namespace,
			Labels:    labels,
		},
		Data: data,
	}
	if _, err := c.clientset.CoreV1().ConfigMaps(namespace).Create(ctx, cm, metav1.CreateOptions{}); err != nil {
		if apierrors.IsAlreadyExists(err) {
			return errdefs.Conflictf("configmap %q in namespace %q", name, namespace)
		}
		return errdefs.Writef(err, "creating configmap %q in namespace %q", name, namespace)
	}
	return nil
}

func (c *client) ReplaceConfigMap(ctx context.Context, namespace, name string, labels, data map[string]string) error {
	cm := &corev1.ConfigMap{
		ObjectMeta: metav1.ObjectMeta{
			Name:      name,
			Namespace: namespace,
			Labels:    labels,
		},
		Data: data,
	}
	if _, err := c.clientset.CoreV1().ConfigMaps(namespace).Update(ctx, cm, metav1.UpdateOptions{}); err != nil {
		if apierrors.IsNotFound(err) {
			return errdefs.NotFoundf("configmap %q in namespace %q", name, namespace)
		}
		return errdefs.Writef(err, "replacing configmap %q in namespace %q", name, namespace)
	}
	return nil
}

func (c *client) ListPodsByLabel(ctx context.Context, namespace, selector string) ([]corev1.Pod, error) {
	pods, err := c.clientset.CoreV1().Pods(namespace).List(ctx, metav1.ListOptions{LabelSelector: selector})
	if err != nil {
		return nil, errdefs.Readf(err, "listing pods with selector %q in namespace %q", selector, namespace)
	}
	return pods.Items, nil
}
