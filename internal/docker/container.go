// container.go implements the container backend: one short-lived
// container per CACTI invocation, created from the configured image with
// the config directory bind-mounted read-only.
//
// The image's entrypoint must be the CACTI binary; the backend only
// supplies "-infile <config>" as the command.

package docker

import (
	"context"
	"fmt"
	"io"
	"path"
	"path/filepath"
	"strings"
	"time"

	"github.com/docker/docker/api/types/container"
	"github.com/docker/docker/api/types/filters"
	"github.com/docker/docker/api/types/image"
	"github.com/docker/docker/api/types/mount"
	"github.com/docker/docker/pkg/stdcopy"
	"go.uber.org/zap"

	"github.com/shinji-kodama/cacti-sweep/internal/model"
	"github.com/shinji-kodama/cacti-sweep/internal/runner"
)

// WorkDir is where the config directory is mounted inside the container.
const WorkDir = "/work"

// logTimeout bounds the log fetch after the invocation context is done.
const logTimeout = 10 * time.Second

// Backend runs CACTI in a container. It implements runner.Backend.
type Backend struct {
	cli    *Client
	image  string
	logger *zap.Logger
}

// NewBackend returns a container backend for image. logger may be nil.
func NewBackend(cli *Client, image string, logger *zap.Logger) *Backend {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &Backend{cli: cli, image: image, logger: logger}
}

// Name implements runner.Backend.
func (b *Backend) Name() string {
	return "docker"
}

// Prepare checks that the daemon is reachable and, when pull is set,
// pulls the image before the first invocation.
func (b *Backend) Prepare(ctx context.Context, pull bool) error {
	if err := b.cli.Ping(ctx); err != nil {
		return err
	}
	if !pull {
		return nil
	}

	b.logger.Info("pulling image", zap.String("image", b.image))
	rc, err := b.cli.Inner().ImagePull(ctx, b.image, image.PullOptions{})
	if err != nil {
		return model.WrapCLIError(model.ExitDockerNotRunning,
			fmt.Sprintf("failed to pull image %q", b.image), err)
	}
	defer func() { _ = rc.Close() }()

	// The pull only completes once its progress stream is drained.
	if _, err := io.Copy(io.Discard, rc); err != nil {
		return model.WrapCLIError(model.ExitDockerNotRunning,
			fmt.Sprintf("failed to pull image %q", b.image), err)
	}
	return nil
}

// ContainerSpec returns the container and host configuration used for an
// invocation. The working directory is left to the image, which knows
// where the CACTI binary and its technology files live; the mount is
// read-only, so CACTI must not write next to the config.
func (b *Backend) ContainerSpec(inv runner.Invocation) (*container.Config, *container.HostConfig) {
	cfg := &container.Config{
		Image:  b.image,
		Cmd:    []string{"-infile", path.Join(WorkDir, filepath.Base(inv.ConfigPath))},
		Labels: BuildLabels(inv),
	}
	host := &container.HostConfig{
		Mounts: []mount.Mount{{
			Type:     mount.TypeBind,
			Source:   filepath.Dir(inv.ConfigPath),
			Target:   WorkDir,
			ReadOnly: true,
		}},
	}
	return cfg, host
}

// Run implements runner.Backend: create, start, wait, copy logs, remove.
func (b *Backend) Run(ctx context.Context, inv runner.Invocation, out io.Writer) (int, error) {
	cfg, host := b.ContainerSpec(inv)
	name := ContainerName(inv)

	created, err := b.cli.Inner().ContainerCreate(ctx, cfg, host, nil, nil, name)
	if err != nil {
		return -1, fmt.Errorf("failed to create container %s: %w", name, err)
	}
	log := b.logger.With(zap.String("container", name))
	log.Debug("container created", zap.String("id", created.ID))

	// Removal uses a fresh context: on timeout or Ctrl-C the invocation
	// context is already done, and that is exactly when the container
	// must be force-removed.
	defer func() {
		if err := RemoveContainer(context.Background(), b.cli, created.ID, true); err != nil {
			log.Warn("failed to remove container", zap.Error(err))
		}
	}()

	if err := b.cli.Inner().ContainerStart(ctx, created.ID, container.StartOptions{}); err != nil {
		return -1, fmt.Errorf("failed to start container %s: %w", name, err)
	}

	statusCh, errCh := b.cli.Inner().ContainerWait(ctx, created.ID, container.WaitConditionNotRunning)
	select {
	case err := <-errCh:
		if ctx.Err() != nil {
			// ctx is done; fetch what the tool printed before it was stopped.
			logCtx, cancel := context.WithTimeout(context.Background(), logTimeout)
			defer cancel()
			if err := b.copyLogs(logCtx, created.ID, name, out); err != nil {
				log.Warn("failed to read logs after interruption", zap.Error(err))
			}
			return -1, ctx.Err()
		}
		return -1, fmt.Errorf("failed waiting for container %s: %w", name, err)
	case status := <-statusCh:
		if status.Error != nil && status.Error.Message != "" {
			return -1, fmt.Errorf("container %s: %s", name, status.Error.Message)
		}
		exitCode := int(status.StatusCode)
		if err := b.copyLogs(ctx, created.ID, name, out); err != nil {
			return exitCode, err
		}
		return exitCode, nil
	}
}

// copyLogs writes the container's stdout and stderr to out. Without a
// TTY the log stream is multiplexed; both streams go to the same result
// file.
func (b *Backend) copyLogs(ctx context.Context, id, name string, out io.Writer) error {
	logs, err := b.cli.Inner().ContainerLogs(ctx, id, container.LogsOptions{
		ShowStdout: true,
		ShowStderr: true,
	})
	if err != nil {
		return fmt.Errorf("failed to read logs of container %s: %w", name, err)
	}
	defer func() { _ = logs.Close() }()

	if _, err := stdcopy.StdCopy(out, out, logs); err != nil {
		return fmt.Errorf("failed to copy logs of container %s: %w", name, err)
	}
	return nil
}

// ManagedContainer is a container left on the daemon by the backend.
type ManagedContainer struct {
	ID      string
	Name    string
	State   string
	BatchID string
	Config  model.CacheConfig
}

// ListManagedContainers returns containers carrying the managed-by label,
// including exited ones. A non-empty batchID narrows the result to one
// sweep. Containers with unparseable labels are skipped.
func ListManagedContainers(ctx context.Context, cli *Client, batchID string) ([]ManagedContainer, error) {
	args := filters.NewArgs(filters.Arg("label", LabelManagedBy+"="+ManagedByValue))
	if batchID != "" {
		args.Add("label", LabelBatch+"="+batchID)
	}

	containers, err := cli.Inner().ContainerList(ctx, container.ListOptions{All: true, Filters: args})
	if err != nil {
		return nil, model.WrapCLIError(model.ExitDockerNotRunning, "failed to list Docker containers", err)
	}

	result := make([]ManagedContainer, 0, len(containers))
	for _, c := range containers {
		batch, cfg, err := ParseLabels(c.Labels)
		if err != nil {
			continue
		}
		name := ""
		if len(c.Names) > 0 {
			name = strings.TrimPrefix(c.Names[0], "/")
		}
		result = append(result, ManagedContainer{
			ID:      c.ID,
			Name:    name,
			State:   c.State,
			BatchID: batch,
			Config:  cfg,
		})
	}
	return result, nil
}

// RemoveContainer removes a container; force kills it first if running.
func RemoveContainer(ctx context.Context, cli *Client, containerID string, force bool) error {
	err := cli.Inner().ContainerRemove(ctx, containerID, container.RemoveOptions{Force: force})
	if err != nil {
		return model.WrapCLIError(model.ExitDockerNotRunning,
			fmt.Sprintf("failed to remove container %q", containerID), err)
	}
	return nil
}
