package kubernetes

import k8sclient "k8s.io/client-go/kubernetes"

// KubeClientProvider creates kubernetes clientsets for named kubeconfig contexts.
// It abstracts kubeconfig loading so callers and tests can inject any clientset
// without touching the filesystem.
type KubeClientProvider interface {
	// ClientsetForContext returns a clientset and the resolved ClusterInfo for
	// the given kubeconfig context. Pass an empty string to use the current
	// context from the loaded kubeconfig.
	ClientsetForContext(contextName string) (k8sclient.Interface, ClusterInfo, error)
}

// DefaultKubeClientProvider loads kubeconfig from an explicit path, then
// $KUBECONFIG, then ~/.kube/config.
type DefaultKubeClientProvider struct {
	kubeconfig string
}

// NewDefaultKubeClientProvider returns a provider backed by the kubeconfig at
// path. An empty path uses the standard lookup.
func NewDefaultKubeClientProvider(path string) *DefaultKubeClientProvider {
	return &DefaultKubeClientProvider{kubeconfig: path}
}

// ClientsetForContext implements KubeClientProvider.
func (p *DefaultKubeClientProvider) ClientsetForContext(contextName string) (k8sclient.Interface, ClusterInfo, error) {
	path := p.kubeconfig
	if path == "" {
		path = resolveKubeconfigPath()
	}
	return LoadClientset(path, contextName)
}
