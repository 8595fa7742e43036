package main

import (
	"bytes"
	"context"
	"errors"
	"io"
	"os"
	"path/filepath"
	"sort"
	"strings"
	"testing"

	"github.com/aws/aws-sdk-go-v2/aws"
	s3svc "github.com/aws/aws-sdk-go-v2/service/s3"
	"github.com/aws/aws-sdk-go-v2/service/s3/types"
	k8sclient "k8s.io/client-go/kubernetes"

	"github.com/pankaj-dahiya-devops/iacguard/internal/providers/aws/common"
	kube "github.com/pankaj-dahiya-devops/iacguard/internal/providers/kubernetes"
)

// ── AWS mock ──────────────────────────────────────────────────────────────────

type mockAWSProvider struct {
	profileResult *common.ProfileConfig
	profileErr    error
	lastProfile   string // records the profile name passed to LoadProfile
	lastRegion    string
}

func (m *mockAWSProvider) LoadProfile(_ context.Context, profile, region string) (*common.ProfileConfig, error) {
	m.lastProfile = profile
	m.lastRegion = region
	return m.profileResult, m.profileErr
}

// mockS3 serves a fixed object set in a single page.
type mockS3 struct {
	objects map[string]string
	listErr error
}

func (m *mockS3) ListObjectsV2(_ context.Context, in *s3svc.ListObjectsV2Input, _ ...func(*s3svc.Options)) (*s3svc.ListObjectsV2Output, error) {
	if m.listErr != nil {
		return nil, m.listErr
	}
	var keys []string
	for k := range m.objects {
		if strings.HasPrefix(k, aws.ToString(in.Prefix)) {
			keys = append(keys, k)
		}
	}
	sort.Strings(keys)
	out := &s3svc.ListObjectsV2Output{IsTruncated: aws.Bool(false)}
	for _, k := range keys {
		out.Contents = append(out.Contents, types.Object{Key: aws.String(k), Size: aws.Int64(int64(len(m.objects[k])))})
	}
	return out, nil
}

func (m *mockS3) GetObject(_ context.Context, in *s3svc.GetObjectInput, _ ...func(*s3svc.Options)) (*s3svc.GetObjectOutput, error) {
	body, ok := m.objects[aws.ToString(in.Key)]
	if !ok {
		return nil, errors.New("NoSuchKey")
	}
	return &s3svc.GetObjectOutput{Body: io.NopCloser(strings.NewReader(body))}, nil
}

func awsWithS3(s3 common.S3Client) *mockAWSProvider {
	return &mockAWSProvider{
		profileResult: &common.ProfileConfig{
			ProfileName: "default",
			AccountID:   "123456789012",
			Region:      "us-east-1",
			Clients:     &common.ClientSet{S3: s3},
		},
	}
}

// ── Kubernetes mocks ──────────────────────────────────────────────────────────

// testKubeProvider implements kube.KubeClientProvider backed by a pre-built
// fake clientset. It records the kubeconfig path and context name it was
// asked for so tests can assert the flags are forwarded correctly.
type testKubeProvider struct {
	clientset      k8sclient.Interface
	info           kube.ClusterInfo
	err            error
	calledWithPath string
	calledWithCtx  string
}

func (p *testKubeProvider) ClientsetForContext(contextName string) (k8sclient.Interface, kube.ClusterInfo, error) {
	p.calledWithCtx = contextName
	if p.err != nil {
		return nil, kube.ClusterInfo{}, p.err
	}
	return p.clientset, p.info, nil
}

func (p *testKubeProvider) factory() func(string) kube.KubeClientProvider {
	return func(path string) kube.KubeClientProvider {
		p.calledWithPath = path
		return p
	}
}

// ── helpers ───────────────────────────────────────────────────────────────────

func testDeps(awsP common.AWSClientProvider, kubeP *testKubeProvider) deps {
	if awsP == nil {
		awsP = &mockAWSProvider{profileErr: errors.New("aws not configured in test")}
	}
	if kubeP == nil {
		kubeP = &testKubeProvider{err: errors.New("kubernetes not configured in test")}
	}
	return deps{aws: awsP, kube: kubeP.factory()}
}

// writeFiles creates files under a fresh temp dir and returns its path.
func writeFiles(t *testing.T, files map[string]string) string {
	t.Helper()
	dir := t.TempDir()
	for name, body := range files {
		path := filepath.Join(dir, filepath.FromSlash(name))
		if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
			t.Fatal(err)
		}
		if err := os.WriteFile(path, []byte(body), 0o644); err != nil {
			t.Fatal(err)
		}
	}
	return dir
}

// emptyConfig returns a config file with no keys so tests never read the
// developer's ~/.config/iacguard/config.yaml.
func emptyConfig(t *testing.T) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), "config.yaml")
	if err := os.WriteFile(path, []byte("{}\n"), 0o644); err != nil {
		t.Fatal(err)
	}
	return path
}

// execute runs the CLI with d and returns the exit code, stdout and stderr.
func execute(t *testing.T, d deps, args ...string) (int, string, string) {
	t.Helper()
	var stdout, stderr bytes.Buffer
	code := run(newRootCmdWith(d), args, &stdout, &stderr)
	return code, stdout.String(), stderr.String()
}
