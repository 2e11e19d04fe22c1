package api

import (
	"context"
	"fmt"
	"net/url"
	"strconv"
	"time"

	"github.com/yamcs-studio/yamcs-ws/internal/protocol"
)

// DefaultPaginationTimeout bounds ListAllParameters when ctx has no deadline.
const DefaultPaginationTimeout = 2 * time.Minute

// ListParameters fetches a page of mission database parameters.
func (c *Client) ListParameters(ctx context.Context, instance string, opts ListParametersOptions) (*ListParametersResponse, error) {
	query := url.Values{}

	if opts.Namespace != "" {
		query.Set("system", opts.Namespace)
	}
	if opts.Recurse {
		query.Set("recurse", "true")
	}
	if opts.Query != "" {
		query.Set("q", opts.Query)
	}
	if opts.Limit > 0 {
		query.Set("limit", strconv.Itoa(opts.Limit))
	}
	if opts.Next != "" {
		query.Set("next", opts.Next)
	}

	var resp ListParametersResponse
	path := "/api/mdb/" + url.PathEscape(instance) + "/parameters"
	if err := c.get(ctx, path, query, &resp); err != nil {
		return nil, fmt.Errorf("list parameters: %w", err)
	}

	return &resp, nil
}

// ListAllParameters follows continuation tokens until every page is read.
func (c *Client) ListAllParameters(ctx context.Context, instance string, opts ListParametersOptions) ([]Parameter, error) {
	if _, ok := ctx.Deadline(); !ok {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, DefaultPaginationTimeout)
		defer cancel()
	}

	var all []Parameter
	opts.Limit = 1000 // Max page size

	for {
		resp, err := c.ListParameters(ctx, instance, opts)
		if err != nil {
			return nil, err
		}

		all = append(all, resp.Parameters...)

		if resp.ContinuationToken == "" {
			break
		}
		opts.Next = resp.ContinuationToken
	}

	return all, nil
}

// ResolveNamespace returns the ids of every parameter under namespace.
func (c *Client) ResolveNamespace(ctx context.Context, instance, namespace string) ([]protocol.NamedObjectID, error) {
	params, err := c.ListAllParameters(ctx, instance, ListParametersOptions{
		Namespace: namespace,
		Recurse:   true,
	})
	if err != nil {
		return nil, fmt.Errorf("resolve namespace %s: %w", namespace, err)
	}

	ids := make([]protocol.NamedObjectID, 0, len(params))
	for _, p := range params {
		ids = append(ids, p.ID())
	}

	c.logger.Debug("resolved namespace", "namespace", namespace, "parameters", len(ids))
	return ids, nil
}
