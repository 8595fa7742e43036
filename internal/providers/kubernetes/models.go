package kubernetes

import (
	"fmt"
	"strings"
)

// ClusterInfo identifies a Kubernetes cluster and the kubeconfig context used
// to connect to it.
type ClusterInfo struct {
	// ContextName is the kubeconfig context name used to connect.
	ContextName string

	// Server is the Kubernetes API server URL resolved from the kubeconfig.
	Server string
}

// DefaultSuppressionsKey is the ConfigMap data key read when a reference
// does not name one.
const DefaultSuppressionsKey = "suppressions"

// ConfigMapRef addresses one data key of a ConfigMap.
type ConfigMapRef struct {
	Namespace string
	Name      string
	Key       string
}

func (r ConfigMapRef) String() string {
	return fmt.Sprintf("configmap/%s/%s#%s", r.Namespace, r.Name, r.Key)
}

// ParseConfigMapRef parses "namespace/name" or "namespace/name:key".
func ParseConfigMapRef(s string) (ConfigMapRef, error) {
	ref, key, hasKey := strings.Cut(strings.TrimSpace(s), ":")
	ns, name, ok := strings.Cut(ref, "/")
	if !ok || ns == "" || name == "" || strings.Contains(name, "/") {
		return ConfigMapRef{}, fmt.Errorf("invalid ConfigMap reference %q; want namespace/name[:key]", s)
	}
	if !hasKey {
		key = DefaultSuppressionsKey
	}
	if key == "" {
		return ConfigMapRef{}, fmt.Errorf("invalid ConfigMap reference %q: empty key", s)
	}
	return ConfigMapRef{Namespace: ns, Name: name, Key: key}, nil
}
