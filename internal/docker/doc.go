// Package docker provides the container backend for cacti-sweep.
//
// This package handles:
//   - Docker client initialization with socket detection (DOCKER_HOST,
//     the standard socket, Docker Desktop and Colima user sockets)
//   - One container per CACTI invocation: create, start, wait, copy the
//     demultiplexed logs into the result file, force-remove
//   - Labels that tie each container to its batch and configuration, so
//     containers orphaned by an interrupted sweep can be listed and removed
//
// The package uses github.com/docker/docker/client with API version
// negotiation enabled.
package docker
