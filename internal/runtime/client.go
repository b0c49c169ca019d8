// Package runtime queries a container runtime (docker or podman) about the
// firewall's proxy and agent containers. Every query shells out to the
// runtime binary with a bounded timeout; squidsight never talks to the
// daemon socket directly.
package runtime

import (
	"bytes"
	"context"
	"fmt"
	"os/exec"
	"strings"
	"time"
)

// Client runs queries against one runtime binary.
type Client struct {
	bin     string
	timeout time.Duration
}

// NewClient creates a client for the given runtime binary ("docker",
// "podman"). A non-positive timeout falls back to five seconds.
func NewClient(bin string, timeout time.Duration) *Client {
	if timeout <= 0 {
		timeout = 5 * time.Second
	}
	return &Client{bin: bin, timeout: timeout}
}

// Binary returns the runtime binary this client shells out to.
func (c *Client) Binary() string { return c.bin }

// ContainerRunning reports whether the named container exists and is
// running. A missing container is (false, nil), not an error.
func (c *Client) ContainerRunning(ctx context.Context, name string) (bool, error) {
	out, err := c.run(ctx, "inspect", "-f", "{{.State.Running}}", name)
	if err != nil {
		if isNoSuchObject(err) {
			return false, nil
		}
		return false, err
	}
	return strings.TrimSpace(out) == "true", nil
}

// ContainerHealth returns the container's health state ("healthy",
// "unhealthy", "starting"), or "none" when no healthcheck is configured.
func (c *Client) ContainerHealth(ctx context.Context, name string) (string, error) {
	out, err := c.run(ctx, "inspect", "-f",
		"{{if .State.Health}}{{.State.Health.Status}}{{else}}none{{end}}", name)
	if err != nil {
		return "", err
	}
	return strings.TrimSpace(out), nil
}

// ContainerIP returns the container's address on the given network, or ""
// when the container is not attached to it.
func (c *Client) ContainerIP(ctx context.Context, name, network string) (string, error) {
	format := fmt.Sprintf(`{{with index .NetworkSettings.Networks %q}}{{.IPAddress}}{{end}}`, network)
	out, err := c.run(ctx, "inspect", "-f", format, name)
	if err != nil {
		return "", err
	}
	return strings.TrimSpace(out), nil
}

// NetworkExists reports whether the named runtime network exists.
func (c *Client) NetworkExists(ctx context.Context, name string) (bool, error) {
	_, err := c.run(ctx, "network", "inspect", name)
	if err != nil {
		if isNoSuchObject(err) {
			return false, nil
		}
		return false, err
	}
	return true, nil
}

// Processes returns the container's process listing, one process per line.
func (c *Client) Processes(ctx context.Context, name string) ([]string, error) {
	out, err := c.run(ctx, "top", name)
	if err != nil {
		return nil, err
	}
	lines := strings.Split(strings.TrimSpace(out), "\n")
	if len(lines) <= 1 {
		return nil, nil
	}
	return lines[1:], nil // drop the header row
}

func (c *Client) run(ctx context.Context, args ...string) (string, error) {
	ctx, cancel := context.WithTimeout(ctx, c.timeout)
	defer cancel()

	cmd := exec.CommandContext(ctx, c.bin, args...)
	var stdout, stderr bytes.Buffer
	cmd.Stdout = &stdout
	cmd.Stderr = &stderr

	if err := cmd.Run(); err != nil {
		msg := strings.TrimSpace(stderr.String())
		if msg == "" {
			return "", fmt.Errorf("%s %s: %w", c.bin, args[0], err)
		}
		return "", fmt.Errorf("%s %s: %s", c.bin, args[0], msg)
	}
	return stdout.String(), nil
}

// isNoSuchObject matches the runtime's "not found" phrasing; docker and
// podman word it differently.
func isNoSuchObject(err error) bool {
	msg := strings.ToLower(err.Error())
	return strings.Contains(msg, "no such object") ||
		strings.Contains(msg, "no such container") ||
		strings.Contains(msg, "no such network") ||
		strings.Contains(msg, "not found")
}
