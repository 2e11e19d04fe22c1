package main

import (
	"context"
	"log/slog"
	"sync"

	"golang.org/x/sync/errgroup"

	"github.com/yamcs-studio/yamcs-ws/internal/config"
	"github.com/yamcs-studio/yamcs-ws/internal/protocol"
	"github.com/yamcs-studio/yamcs-ws/internal/request"
)

// namespaceResolver expands a namespace into parameter ids. *api.Client satisfies it.
type namespaceResolver interface {
	ResolveNamespace(ctx context.Context, instance, namespace string) ([]protocol.NamedObjectID, error)
}

// maxConcurrentResolves bounds parallel REST calls while expanding namespaces.
const maxConcurrentResolves = 4

// resolveSubscriptions returns the configured parameters followed by the
// parameters of every configured namespace, without duplicates.
func resolveSubscriptions(ctx context.Context, r namespaceResolver, cfg *config.MonitorConfig, logger *slog.Logger) ([]protocol.NamedObjectID, error) {
	ids := make([]protocol.NamedObjectID, 0, len(cfg.Subscriptions.Parameters))
	for _, p := range cfg.Subscriptions.Parameters {
		ids = append(ids, protocol.NamedObjectID{Name: p.Name, Namespace: p.Namespace})
	}

	if len(cfg.Subscriptions.Namespaces) == 0 {
		return ids, nil
	}

	var mu sync.Mutex
	resolved := make([][]protocol.NamedObjectID, len(cfg.Subscriptions.Namespaces))

	g, gctx := errgroup.WithContext(ctx)
	g.SetLimit(maxConcurrentResolves)

	for i, ns := range cfg.Subscriptions.Namespaces {
		i, ns := i, ns
		g.Go(func() error {
			found, err := r.ResolveNamespace(gctx, cfg.Server.Instance, ns)
			if err != nil {
				return err
			}
			logger.Info("resolved namespace", "namespace", ns, "parameters", len(found))

			mu.Lock()
			resolved[i] = found
			mu.Unlock()
			return nil
		})
	}

	if err := g.Wait(); err != nil {
		return nil, err
	}

	for _, list := range resolved {
		ids = request.Union(ids, list)
	}
	return ids, nil
}
