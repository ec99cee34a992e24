package commands

import (
	"context"

	"instoo/internal/domain"
)

// Proxy authorizes an actor for a command before it runs.
type Proxy interface {
	Authorize(ctx context.Context, actor domain.Actor, cmd Command) error
}

type ProxyChain struct {
	proxies []Proxy
}

func NewProxyChain(proxies ...Proxy) *ProxyChain {
	items := make([]Proxy, 0, len(proxies))
	for _, proxy := range proxies {
		if proxy != nil {
			items = append(items, proxy)
		}
	}
	return &ProxyChain{proxies: items}
}

func (p *ProxyChain) Authorize(ctx context.Context, actor domain.Actor, cmd Command) error {
	if p == nil {
		return nil
	}
	for _, proxy := range p.proxies {
		if err := proxy.Authorize(ctx, actor, cmd); err != nil {
			return err
		}
	}
	return nil
}
