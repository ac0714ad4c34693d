package cli

import (
	"context"

	"github.com/neilberkman/qbench/internal/core/session"
	"github.com/neilberkman/qbench/pkg/buildbench"
)

// capturingBuilder remembers the last response so it can be recorded in
// the history after the session has merged it
type capturingBuilder struct {
	session.Builder
	last *buildbench.Response
}

func (c *capturingBuilder) Build(ctx context.Context, req buildbench.BuildRequest) (*buildbench.Response, error) {
	resp, err := c.Builder.Build(ctx, req)
	c.last = resp
	return resp, err
}

func (c *capturingBuilder) Fetch(ctx context.Context, id string) (*buildbench.Response, error) {
	resp, err := c.Builder.Fetch(ctx, id)
	c.last = resp
	return resp, err
}
