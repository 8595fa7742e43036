package kubernetes

import (
	"fmt"
	"os"
	"path/filepath"
	"time"

	k8sclient "k8s.io/client-go/kubernetes"
	"k8s.io/client-go/rest"
	"k8s.io/client-go/tools/clientcmd"
)

// requestTimeout bounds every API call; a scan reads at most one ConfigMap.
const requestTimeout = 15 * time.Second

// resolveKubeconfigPath returns the effective kubeconfig file path.
// Prefers $KUBECONFIG if set; falls back to ~/.kube/config.
func resolveKubeconfigPath() string {
	if path := os.Getenv("KUBECONFIG"); path != "" {
		return path
	}
	home, err := os.UserHomeDir()
	if err != nil {
		return ""
	}
	return filepath.Join(home, ".kube", "config")
}

// restConfig resolves the REST config and cluster identity for contextName
// (empty = current context) from the kubeconfig at path.
func restConfig(path, contextName string) (*rest.Config, ClusterInfo, error) {
	rules := &clientcmd.ClientConfigLoadingRules{ExplicitPath: path}
	overrides := &clientcmd.ConfigOverrides{CurrentContext: contextName}
	cc := clientcmd.NewNonInteractiveDeferredLoadingClientConfig(rules, overrides)

	raw, err := cc.RawConfig()
	if err != nil {
		return nil, ClusterInfo{}, fmt.Errorf("load kubeconfig %q: %w", path, err)
	}

	info := ClusterInfo{ContextName: raw.CurrentContext}
	if contextName != "" {
		info.ContextName = contextName
	}
	if kctx, ok := raw.Contexts[info.ContextName]; ok {
		if cluster, ok := raw.Clusters[kctx.Cluster]; ok {
			info.Server = cluster.Server
		}
	}

	cfg, err := cc.ClientConfig()
	if err != nil {
		return nil, ClusterInfo{}, fmt.Errorf("build REST config for context %q: %w", info.ContextName, err)
	}
	cfg.Timeout = requestTimeout
	cfg.UserAgent = "iacguard"
	return cfg, info, nil
}

// LoadClientset builds a kubernetes clientset from the kubeconfig file at path,
// targeting the given context (empty = current context).
func LoadClientset(kubeconfigPath, contextName string) (k8sclient.Interface, ClusterInfo, error) {
	cfg, info, err := restConfig(kubeconfigPath, contextName)
	if err != nil {
		return nil, ClusterInfo{}, err
	}
	clientset, err := k8sclient.NewForConfig(cfg)
	if err != nil {
		return nil, ClusterInfo{}, fmt.Errorf("build clientset for context %q: %w", info.ContextName, err)
	}
	return clientset, info, nil
}
