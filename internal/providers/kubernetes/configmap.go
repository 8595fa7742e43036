package kubernetes

import (
	"context"
	"fmt"
	"strings"

	metav1 "k8s.io/apimachinery/pkg/apis/meta/v1"
	k8sclient "k8s.io/client-go/kubernetes"

	"github.com/pankaj-dahiya-devops/iacguard/internal/suppression"
)

// SuppressionSource reads a suppression list stored in a ConfigMap, so a
// cluster can carry the ignore list shared by every pipeline scanning it.
//
// The clientset parameter is an interface so tests can inject a fake clientset.
type SuppressionSource struct {
	client k8sclient.Interface
	ref    ConfigMapRef
}

// NewSuppressionSource returns a source for ref.
func NewSuppressionSource(client k8sclient.Interface, ref ConfigMapRef) *SuppressionSource {
	return &SuppressionSource{client: client, ref: ref}
}

// Load fetches the ConfigMap and parses the configured key with the
// suppression file grammar. A missing key is an error; an empty value yields
// no entries.
func (s *SuppressionSource) Load(ctx context.Context) ([]suppression.Entry, error) {
	cm, err := s.client.CoreV1().ConfigMaps(s.ref.Namespace).Get(ctx, s.ref.Name, metav1.GetOptions{})
	if err != nil {
		return nil, fmt.Errorf("get configmap %s/%s: %w", s.ref.Namespace, s.ref.Name, err)
	}
	data, ok := cm.Data[s.ref.Key]
	if !ok {
		return nil, fmt.Errorf("configmap %s/%s has no key %q", s.ref.Namespace, s.ref.Name, s.ref.Key)
	}
	return suppression.Parse(strings.NewReader(data), s.ref.String())
}

// ServerVersion reports the API server version, used to check reachability.
func ServerVersion(client k8sclient.Interface) (string, error) {
	v, err := client.Discovery().ServerVersion()
	if err != nil {
		return "", fmt.Errorf("query server version: %w", err)
	}
	return v.GitVersion, nil
}
