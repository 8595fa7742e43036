package kubernetes

import (
	"context"
	"os"
	"path/filepath"
	"testing"

	corev1 "k8s.io/api/core/v1"
	metav1 "k8s.io/apimachinery/pkg/apis/meta/v1"
	"k8s.io/client-go/kubernetes/fake"
)

// makeConfigMap is a test helper that builds a corev1.ConfigMap.
func makeConfigMap(namespace, name string, data map[string]string) *corev1.ConfigMap {
	return &corev1.ConfigMap{
		ObjectMeta: metav1.ObjectMeta{Name: name, Namespace: namespace},
		Data:       data,
	}
}

// ── ParseConfigMapRef ────────────────────────────────────────────────────────

func TestParseConfigMapRef(t *testing.T) {
	ref, err := ParseConfigMapRef("security/iacguard")
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if ref.Namespace != "security" || ref.Name != "iacguard" || ref.Key != DefaultSuppressionsKey {
		t.Errorf("unexpected ref %+v", ref)
	}

	ref, err = ParseConfigMapRef("security/iacguard:ignore.txt")
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if ref.Key != "ignore.txt" {
		t.Errorf("Key = %q; want ignore.txt", ref.Key)
	}

	for _, bad := range []string{"", "iacguard", "/name", "ns/", "a/b/c", "ns/name:"} {
		if _, err := ParseConfigMapRef(bad); err == nil {
			t.Errorf("ParseConfigMapRef(%q): expected error", bad)
		}
	}
}

// ── SuppressionSource ────────────────────────────────────────────────────────

// TestSuppressionSource_Load verifies that entries are parsed from the
// ConfigMap key and carry the ConfigMap as their source.
func TestSuppressionSource_Load(t *testing.T) {
	client := fake.NewSimpleClientset(makeConfigMap("security", "iacguard", map[string]string{
		"suppressions": "# shared ignores\nRULE-042\nSG_OPEN_ADMIN_PORT:module.bastion.*:2030-01-01\n",
	}))
	ref, _ := ParseConfigMapRef("security/iacguard")

	entries, err := NewSuppressionSource(client, ref).Load(context.Background())
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if len(entries) != 2 {
		t.Fatalf("expected 2 entries, got %d", len(entries))
	}
	if entries[0].RuleID != "RULE-042" || entries[0].Scope != "" {
		t.Errorf("unexpected first entry %+v", entries[0])
	}
	if entries[1].Scope != "module.bastion.*" || entries[1].Expires.IsZero() {
		t.Errorf("unexpected second entry %+v", entries[1])
	}
	if entries[1].Source != "configmap/security/iacguard#suppressions" || entries[1].Line != 3 {
		t.Errorf("unexpected origin %s:%d", entries[1].Source, entries[1].Line)
	}
}

func TestSuppressionSource_MissingConfigMap(t *testing.T) {
	client := fake.NewSimpleClientset()
	ref, _ := ParseConfigMapRef("security/iacguard")

	if _, err := NewSuppressionSource(client, ref).Load(context.Background()); err == nil {
		t.Fatal("expected error for missing ConfigMap")
	}
}

func TestSuppressionSource_MissingKey(t *testing.T) {
	client := fake.NewSimpleClientset(makeConfigMap("security", "iacguard", map[string]string{"other": "x"}))
	ref, _ := ParseConfigMapRef("security/iacguard")

	if _, err := NewSuppressionSource(client, ref).Load(context.Background()); err == nil {
		t.Fatal("expected error for missing key")
	}
}

func TestSuppressionSource_InvalidEntry(t *testing.T) {
	client := fake.NewSimpleClientset(makeConfigMap("security", "iacguard", map[string]string{
		"suppressions": "RULE-1:module.a.*:not-a-date\n",
	}))
	ref, _ := ParseConfigMapRef("security/iacguard")

	if _, err := NewSuppressionSource(client, ref).Load(context.Background()); err == nil {
		t.Fatal("expected parse error")
	}
}

// ── ServerVersion / LoadClientset ────────────────────────────────────────────

func TestServerVersion_Fake(t *testing.T) {
	if _, err := ServerVersion(fake.NewSimpleClientset()); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
}

func TestLoadClientset_ResolvesContext(t *testing.T) {
	kubeconfig := `apiVersion: v1
kind: Config
current-context: dev
clusters:
- name: dev-cluster
  cluster:
    server: https://dev.example.internal:6443
- name: prod-cluster
  cluster:
    server: https://prod.example.internal:6443
contexts:
- name: dev
  context:
    cluster: dev-cluster
    user: ci
- name: prod
  context:
    cluster: prod-cluster
    user: ci
users:
- name: ci
  user:
    token: test-token
`
	path := filepath.Join(t.TempDir(), "config")
	if err := os.WriteFile(path, []byte(kubeconfig), 0o600); err != nil {
		t.Fatal(err)
	}

	_, info, err := LoadClientset(path, "")
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if info.ContextName != "dev" || info.Server != "https://dev.example.internal:6443" {
		t.Errorf("unexpected cluster info %+v", info)
	}

	_, info, err = NewDefaultKubeClientProvider(path).ClientsetForContext("prod")
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if info.Server != "https://prod.example.internal:6443" {
		t.Errorf("Server = %q", info.Server)
	}
}

func TestLoadClientset_MissingFile(t *testing.T) {
	if _, _, err := LoadClientset(filepath.Join(t.TempDir(), "nope"), ""); err == nil {
		t.Fatal("expected error for missing kubeconfig")
	}
}
