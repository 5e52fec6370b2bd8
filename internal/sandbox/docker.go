package sandbox

import (
	"context"
	"fmt"

	"github.com/docker/docker/api/types"
	"github.com/docker/docker/api/types/filters"
	"github.com/docker/docker/client"
)

// DockerClient talks to the daemon through the Docker SDK. It implements
// Remover and backs Available, ImageExists and CleanupAll.
type DockerClient struct {
	cli *client.Client
}

// NewDockerClient connects using DOCKER_HOST and friends from the environment.
func NewDockerClient() (*DockerClient, error) {
	cli, err := client.NewClientWithOpts(client.FromEnv, client.WithAPIVersionNegotiation())
	if err != nil {
		return nil, fmt.Errorf("%w: %v", ErrDockerUnavailable, err)
	}
	return &DockerClient{cli: cli}, nil
}

func (d *DockerClient) Close() error { return d.cli.Close() }

func (d *DockerClient) Ping(ctx context.Context) error {
	if _, err := d.cli.Ping(ctx); err != nil {
		return fmt.Errorf("%w: %v", ErrDockerUnavailable, err)
	}
	return nil
}

// Remove force-removes the container. A container that no longer exists is
// not an error.
func (d *DockerClient) Remove(ctx context.Context, name string) error {
	err := d.cli.ContainerRemove(ctx, name, types.ContainerRemoveOptions{Force: true})
	if err != nil && !client.IsErrNotFound(err) {
		return fmt.Errorf("remove container %s: %w", name, err)
	}
	return nil
}

func (d *DockerClient) ImageExists(ctx context.Context, image string) (bool, error) {
	_, _, err := d.cli.ImageInspectWithRaw(ctx, image)
	if err == nil {
		return true, nil
	}
	if client.IsErrNotFound(err) {
		return false, nil
	}
	return false, fmt.Errorf("inspect image %s: %w", image, err)
}

// ListUnits returns the ids of all containers (running or not) named scanner-*.
func (d *DockerClient) ListUnits(ctx context.Context) ([]string, error) {
	list, err := d.cli.ContainerList(ctx, types.ContainerListOptions{
		All:     true,
		Filters: filters.NewArgs(filters.Arg("name", unitPrefix)),
	})
	if err != nil {
		return nil, fmt.Errorf("list containers: %w", err)
	}
	ids := make([]string, 0, len(list))
	for _, c := range list {
		ids = append(ids, c.ID)
	}
	return ids, nil
}
