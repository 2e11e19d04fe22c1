package api

import (
	"context"
	"fmt"
)

// GetServerInfo fetches server identification.
func (c *Client) GetServerInfo(ctx context.Context) (*ServerInfo, error) {
	var resp ServerInfo
	if err := c.get(ctx, "/api", nil, &resp); err != nil {
		return nil, fmt.Errorf("get server info: %w", err)
	}
	return &resp, nil
}
