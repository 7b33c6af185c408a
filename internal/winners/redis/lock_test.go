package redis_test

import (
	"context"
	"testing"
	"time"

	goredis "github.com/go-redis/redis/v8"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/testcontainers/testcontainers-go"
	"github.com/testcontainers/testcontainers-go/wait"

	winnersredis "ms-raffle/internal/winners/redis"
)

// TestGenerationLockIntegration tests the generation lock against a real
// Redis container
func TestGenerationLockIntegration(t *testing.T) {
	// Skip if short test mode
	if testing.Short() {
		t.Skip("Skipping Redis integration test in short mode")
	}

	ctx := context.Background()
	redisContainer, err := testcontainers.GenericContainer(ctx, testcontainers.GenericContainerRequest{
		ContainerRequest: testcontainers.ContainerRequest{
			Image:        "redis:latest",
			ExposedPorts: []string{"6379/tcp"},
			WaitingFor:   wait.ForLog("Ready to accept connections"),
		},
		Started: true,
	})
	if err != nil {
		t.Fatalf("Failed to start Redis container: %v", err)
	}
	defer redisContainer.Terminate(ctx)

	host, err := redisContainer.Host(ctx)
	require.NoError(t, err)
	port, err := redisContainer.MappedPort(ctx, "6379")
	require.NoError(t, err)

	client := goredis.NewClient(&goredis.Options{
		Addr: host + ":" + port.Port(),
	})
	defer client.Close()

	lockA := winnersredis.NewLock(client, "instance-a", 30*time.Second)
	lockB := winnersredis.NewLock(client, "instance-b", 30*time.Second)

	// First acquire wins
	ok, err := lockA.Acquire("comp1")
	require.NoError(t, err)
	assert.True(t, ok)

	locked, err := lockA.IsLocked("comp1")
	require.NoError(t, err)
	assert.True(t, locked)

	// Second instance cannot take a held lock
	ok, err = lockB.Acquire("comp1")
	require.NoError(t, err)
	assert.False(t, ok)

	// Only the owner's release frees it
	require.NoError(t, lockB.Release("comp1"))
	locked, err = lockA.IsLocked("comp1")
	require.NoError(t, err)
	assert.True(t, locked, "Expected non-owner release to be a no-op")

	require.NoError(t, lockA.Release("comp1"))
	locked, err = lockA.IsLocked("comp1")
	require.NoError(t, err)
	assert.False(t, locked)

	// Releasable lock can be re-acquired by anyone
	ok, err = lockB.Acquire("comp1")
	require.NoError(t, err)
	assert.True(t, ok)

	// Locks are per competition
	ok, err = lockA.Acquire("comp2")
	require.NoError(t, err)
	assert.True(t, ok)

	// Releasing a lock nobody holds is fine
	require.NoError(t, lockA.Release("comp-unknown"))

	// The configured TTL bounds how long a crashed run keeps the lock
	shortLock := winnersredis.NewLock(client, "instance-c", time.Second)
	ok, err = shortLock.Acquire("comp-ttl")
	require.NoError(t, err)
	require.True(t, ok)

	time.Sleep(1500 * time.Millisecond)
	locked, err = shortLock.IsLocked("comp-ttl")
	require.NoError(t, err)
	assert.False(t, locked, "Expected lock to expire after its TTL")
}
