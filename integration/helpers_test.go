//go:build integration

package integration

import (
	"context"
	"fmt"
	"os"
	"sync"
	"testing"

	"github.com/stretchr/testify/require"
	"github.com/testcontainers/testcontainers-go"
	"github.com/testcontainers/testcontainers-go/wait"

	"github.com/meigma/aurb"
	"github.com/meigma/aurb/internal/testutil"
)

// --- Registry Container Setup ---

var (
	registryOnce sync.Once
	registryAddr string
	registryErr  error
)

// getRegistry returns the shared registry address, starting the container if needed.
// The container is shared across all tests.
func getRegistry(tb testing.TB) string {
	tb.Helper()

	if os.Getenv("SKIP_DOCKER_TESTS") == "1" {
		tb.Skip("SKIP_DOCKER_TESTS is set")
	}

	registryOnce.Do(func() {
		registryAddr, registryErr = startRegistryContainer(context.Background())
	})
	if registryErr != nil {
		tb.Fatalf("start registry container: %v", registryErr)
	}
	return registryAddr
}

// startRegistryContainer starts a registry:2 container and returns the host:port address.
func startRegistryContainer(ctx context.Context) (string, error) {
	req := testcontainers.ContainerRequest{
		Image:        "registry:2",
		ExposedPorts: []string{"5000/tcp"},
		WaitingFor:   wait.ForHTTP("/v2/").WithPort("5000/tcp").WithStatusCodeMatcher(isOKStatus),
	}

	container, err := testcontainers.GenericContainer(ctx, testcontainers.GenericContainerRequest{
		ContainerRequest: req,
		Started:          true,
	})
	if err != nil {
		return "", fmt.Errorf("start registry container: %w", err)
	}

	host, err := container.Host(ctx)
	if err != nil {
		return "", fmt.Errorf("resolve registry host: %w", err)
	}
	port, err := container.MappedPort(ctx, "5000/tcp")
	if err != nil {
		return "", fmt.Errorf("resolve registry port: %w", err)
	}
	return fmt.Sprintf("%s:%s", host, port.Port()), nil
}

func isOKStatus(status int) bool {
	return status >= 200 && status < 300
}

// --- Test Client Factory ---

// newTestClient creates a client configured for the local test registry.
func newTestClient(tb testing.TB, opts ...aurb.Option) *aurb.Client {
	tb.Helper()

	allOpts := append([]aurb.Option{aurb.WithPlainHTTP(true)}, opts...)
	client, err := aurb.NewClient(allOpts...)
	require.NoError(tb, err, "create test client")
	tb.Cleanup(func() { _ = client.Close() })
	return client
}

// --- Test Reference Helpers ---

// testRef generates a unique reference for a test to avoid collisions.
func testRef(registryAddr, testName string) string {
	return fmt.Sprintf("oci://%s/test/%s:latest", registryAddr, testName)
}

// testRefWithTag generates a reference with a specific tag.
func testRefWithTag(registryAddr, testName, tag string) string {
	return fmt.Sprintf("oci://%s/test/%s:%s", registryAddr, testName, tag)
}

// --- Test Data Helpers ---

// drumKit returns WAV assets of known lengths: kick 100ms, snare 50ms,
// hat 25ms at 8 kHz.
func drumKit() []aurb.BankAsset {
	return []aurb.BankAsset{
		{ID: "kick", Path: "kick.wav", Data: testutil.SineWAV(8000, 800)},
		{ID: "snare", Path: "snare.wav", Data: testutil.SineWAV(8000, 400)},
		{ID: "hat", Path: "hat.wav", Data: testutil.SineWAV(8000, 200)},
	}
}

// encodeKit encodes drumKit under bankID.
func encodeKit(tb testing.TB, bankID string, opts ...aurb.EncodeOption) ([]byte, *aurb.Metadata) {
	tb.Helper()
	blob, meta, err := aurb.Encode(drumKit(), append([]aurb.EncodeOption{aurb.WithBankID(bankID)}, opts...)...)
	require.NoError(tb, err)
	return blob, meta
}
