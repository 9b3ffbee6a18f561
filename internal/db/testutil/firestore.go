//go:build integration

package testutil

import (
	"context"
	"testing"
	"time"

	"cloud.google.com/go/firestore"
	"github.com/stretchr/testify/require"
	"github.com/testcontainers/testcontainers-go"
	"github.com/testcontainers/testcontainers-go/modules/gcloud"
)

const (
	emulatorImage = "gcr.io/google.com/cloudsdktool/cloud-sdk:367.0.0-emulators"
	testProjectID = "clubledger-test"
)

// SetupFirestore starts a Firestore emulator container and returns a client
// connected to it. The container is terminated when the test ends.
func SetupFirestore(t *testing.T) *firestore.Client {
	ctx := context.Background()

	labels := map[string]string{
		"test":      "clubledger-db",
		"test-name": t.Name(),
		"timestamp": time.Now().Format("20060102-150405"),
		"cleanup":   "auto",
	}

	container, err := gcloud.RunFirestore(ctx, emulatorImage,
		gcloud.WithProjectID(testProjectID),
		testcontainers.WithLabels(labels),
	)
	require.NoError(t, err)
	t.Cleanup(func() {
		if err := testcontainers.TerminateContainer(container); err != nil {
			t.Logf("failed to terminate firestore emulator: %v", err)
		}
	})

	// The client library routes to the emulator when this is set.
	t.Setenv("FIRESTORE_EMULATOR_HOST", container.URI)

	client, err := firestore.NewClient(ctx, testProjectID)
	require.NoError(t, err)
	t.Cleanup(func() { _ = client.Close() })

	return client
}
