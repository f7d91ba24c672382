// Package container starts and stops the docker compose stack a benchmark runs
// against and samples its block I/O.
package container

import (
	"context"
	"fmt"
	"os/exec"
	"time"

	"github.com/avast/retry-go"
	log "github.com/sirupsen/logrus"
)

const readyPollInterval = 500 * time.Millisecond

// Compose drives `docker compose` for one compose file.
type Compose struct {
	File     string
	Services []string

	run func(ctx context.Context, name string, args ...string) ([]byte, error)
}

func NewCompose(file string, services []string) *Compose {
	return &Compose{File: file, Services: services, run: combinedOutput}
}

func combinedOutput(ctx context.Context, name string, args ...string) ([]byte, error) {
	return exec.CommandContext(ctx, name, args...).CombinedOutput()
}

// Up starts the stack detached.
func (c *Compose) Up(ctx context.Context) error {
	fmt.Printf("Starting fresh containers from %s...\n", c.File)

	args := append([]string{"compose", "-f", c.File, "up", "-d"}, c.Services...)
	output, err := c.run(ctx, "docker", args...)
	if err != nil {
		return fmt.Errorf("start containers: %w\nOutput: %s", err, string(output))
	}
	return nil
}

// Down stops the stack and removes its volumes.
func (c *Compose) Down(ctx context.Context) error {
	fmt.Println("\nCleaning up containers...")

	output, err := c.run(ctx, "docker", "compose", "-f", c.File, "down", "-v")
	if err != nil {
		return fmt.Errorf("stop containers: %w\nOutput: %s", err, string(output))
	}

	fmt.Println("Containers stopped and removed")
	return nil
}

// WaitForReady polls ping until it succeeds or timeout passes. It is used
// during container startup to ensure the store is accepting connections.
func WaitForReady(ctx context.Context, name string, ping func(context.Context) error, timeout time.Duration) error {
	fmt.Printf("Waiting for %s to initialize...\n", name)

	ctx, cancel := context.WithTimeout(ctx, timeout)
	defer cancel()

	attempts := uint(timeout/readyPollInterval) + 1
	err := retry.Do(
		func() error { return ping(ctx) },
		retry.Context(ctx),
		retry.Attempts(attempts),
		retry.Delay(readyPollInterval),
		retry.DelayType(retry.FixedDelay),
		retry.LastErrorOnly(true),
		retry.OnRetry(func(n uint, err error) {
			log.WithField("attempt", n+1).WithError(err).Debug("store not ready")
		}),
	)
	if err != nil {
		return fmt.Errorf("timeout waiting for %s after %v: %w", name, timeout, err)
	}

	fmt.Println("Container ready")
	return nil
}
