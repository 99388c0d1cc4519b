package docker

import (
	"context"
	"fmt"
	"os"
	"runtime"
	"time"

	"github.com/docker/docker/client"

	"github.com/shinji-kodama/cacti-sweep/internal/model"
)

const defaultPingTimeout = 5 * time.Second

// Client wraps the Docker SDK client with host detection and
// CLIError-typed failures.
type Client struct {
	inner *client.Client
}

// NewClient connects to DOCKER_HOST when it is set, otherwise to the
// platform's default daemon socket. API versions are negotiated, so the
// client works against older daemons as well.
//
// Returns a CLIError with ExitDockerNotRunning if no daemon endpoint is
// found or the client cannot be created.
func NewClient() (*Client, error) {
	host := os.Getenv("DOCKER_HOST")
	if host == "" {
		detected, err := detectDockerHost()
		if err != nil {
			return nil, model.WrapCLIError(model.ExitDockerNotRunning, "Docker socket not found", err)
		}
		host = detected
	}

	c, err := client.NewClientWithOpts(
		client.WithHost(host),
		client.WithAPIVersionNegotiation(),
	)
	if err != nil {
		return nil, model.WrapCLIError(model.ExitDockerNotRunning,
			fmt.Sprintf("failed to create Docker client for host %q", host), err)
	}
	return &Client{inner: c}, nil
}

// detectDockerHost returns the first existing daemon socket for this
// platform. Windows always uses the Docker Desktop named pipe.
func detectDockerHost() (string, error) {
	if runtime.GOOS == "windows" {
		return "npipe:////./pipe/docker_engine", nil
	}

	candidates := []string{"/var/run/docker.sock"}
	if home, err := os.UserHomeDir(); err == nil {
		candidates = append(candidates,
			home+"/.docker/run/docker.sock",
			home+"/.colima/default/docker.sock")
	}
	for _, path := range candidates {
		if _, err := os.Stat(path); err == nil {
			return "unix://" + path, nil
		}
	}
	return "", fmt.Errorf("no Docker socket at any of %v; is Docker running?", candidates)
}

// Ping verifies that the daemon answers within defaultPingTimeout.
func (c *Client) Ping(ctx context.Context) error {
	pingCtx, cancel := context.WithTimeout(ctx, defaultPingTimeout)
	defer cancel()

	if _, err := c.inner.Ping(pingCtx); err != nil {
		return model.WrapCLIError(model.ExitDockerNotRunning,
			"Docker daemon is not responding; is Docker running?", err)
	}
	return nil
}

// Close releases the underlying HTTP connections. Safe to call more than once.
func (c *Client) Close() error {
	if c.inner != nil {
		return c.inner.Close()
	}
	return nil
}

// Inner exposes the SDK client for calls the wrapper does not cover.
func (c *Client) Inner() *client.Client {
	return c.inner
}
