package kube

import (
	"context"
	"fmt"
	"strings"
	"sync"

	corev1 "k8s.io/api/core/v1"

	"github.com/ledgerworks/hnetctl/pkg/errdefs"
)

// Fake is an in-memory Client used by tests. ConfigMaps are keyed by
// namespace/name; pods are registered per namespace and matched against exact
// selector strings.
type Fake struct {
	mu         sync.Mutex
	configMaps map[string]map[string]string
	pods       map[string][]corev1.Pod

	// Error overrides for failure injection. When set, the matching call
	// returns the error instead of touching state.
	ReadErr    error
	CreateErr  error
	ReplaceErr error
	ListErr    error

	// Reads and Replaces count calls, for tests asserting when the store was
	// touched.
	Reads    int
	Replaces int
}

// NewFake creates an empty fake client.
func NewFake() *Fake {
	return &Fake{
		configMaps: make(map[string]map[string]string),
		pods:       make(map[string][]corev1.Pod),
	}
}

// AddPod registers a pod in the namespace with the given labels.
func (f *Fake) AddPod(namespace, name string, labels map[string]string) {
	f.mu.Lock()
	defer f.mu.Unlock()
	pod := corev1.Pod{}
	pod.Name = name
	pod.Namespace = namespace
	pod.Labels = labels
	f.pods[namespace] = append(f.pods[namespace], pod)
}

func (f *Fake) ReadConfigMap(_ context.Context, namespace, name string) (map[string]string, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.Reads++
	if f.ReadErr != nil {
		return nil, f.ReadErr
	}
	data, ok := f.configMaps[key(namespace, name)]
	if !ok {
		return nil, errdefs.NotFoundf("configmap %q in namespace %q", name, namespace)
	}
	out := make(map[string]string, len(data))
	for k, v := range data {
		out[k] = v
	}
	return out, nil
}

func (f *Fake) CreateConfigMap(_ context.Context, namespace, name string, _ map[string]string, data map[string]string) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.CreateErr != nil {
		return f.CreateErr
	}
	if _, exists := f.configMaps[key(namespace, name)]; exists {
		return errdefs.Conflictf("configmap %q in namespace %q", name, namespace)
	}
	f.configMaps[key(namespace, name)] = copyMap(data)
	return nil
}

func (f *Fake) ReplaceConfigMap(_ context.Context, namespace, name string, _ map[string]string, data map[string]string) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.Replaces++
	if f.ReplaceErr != nil {
		return f.ReplaceErr
	}
	f.configMaps[key(namespace, name)] = copyMap(data)
	return nil
}

func (f *Fake) ListPodsByLabel(_ context.Context, namespace, selector string) ([]corev1.Pod, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.ListErr != nil {
		return nil, f.ListErr
	}
	var out []corev1.Pod
	for _, pod := range f.pods[namespace] {
		if matchesSelector(pod.Labels, selector) {
			out = append(out, pod)
		}
	}
	return out, nil
}

// FakeFactory maps context names to fake clients.
type FakeFactory struct {
	Clients map[string]*Fake
	// Default is returned for context names not present in Clients.
	Default *Fake
}

// NewFakeFactory creates a factory whose every context resolves to the same
// fake client.
func NewFakeFactory(def *Fake) *FakeFactory {
	return &FakeFactory{Clients: map[string]*Fake{}, Default: def}
}

func (f *FakeFactory) Client(contextName string) (Client, error) {
	if c, ok := f.Clients[contextName]; ok {
		return c, nil
	}
	if f.Default != nil {
		return f.Default, nil
	}
	return nil, errdefs.Configurationf("unknown context %q", contextName)
}

func key(namespace, name string) string {
	return fmt.Sprintf("%s/%s", namespace, name)
}

func copyMap(in map[string]string) map[string]string {
	out := make(map[string]string, len(in))
	for k, v := range in {
		out[k] = v
	}
	return out
}

// matchesSelector supports the "key=value" selectors this subsystem uses;
// multiple comma-separated requirements must all match.
func matchesSelector(labels map[string]string, selector string) bool {
	for _, req := range strings.Split(selector, ",") {
		if req == "" {
			continue
		}
		k, v, ok := strings.Cut(req, "=")
		if !ok || labels[k] != v {
			return false
		}
	}
	return true
}
