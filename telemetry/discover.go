package telemetry

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"time"

	"github.com/grandcat/zeroconf"
)

const (
	mqttServiceType = "_mqtt._tcp"
	mdnsDomain      = "local."
	mdnsTimeout     = 3 * time.Second
)

// ErrNoBroker is returned when no broker answers the mDNS browse.
var ErrNoBroker = errors.New("no mqtt broker found via mdns")

// DiscoverBroker browses the local network for an MQTT broker advertised
// over DNS-SD and returns the first one's host:port.
func DiscoverBroker(ctx context.Context, logger *slog.Logger) (string, error) {
	resolver, err := zeroconf.NewResolver(nil)
	if err != nil {
		return "", fmt.Errorf("mdns resolver: %w", err)
	}

	ctx, cancel := context.WithTimeout(ctx, mdnsTimeout)
	defer cancel()

	entries := make(chan *zeroconf.ServiceEntry)
	if err := resolver.Browse(ctx, mqttServiceType, mdnsDomain, entries); err != nil {
		return "", fmt.Errorf("mdns browse: %w", err)
	}

	for {
		select {
		case <-ctx.Done():
			return "", ErrNoBroker
		case entry, ok := <-entries:
			if !ok {
				return "", ErrNoBroker
			}
			if addr := entryAddress(entry); addr != "" {
				logger.Info("mqtt broker discovered", "instance", entry.Instance, "address", addr)
				return addr, nil
			}
		}
	}
}

func entryAddress(entry *zeroconf.ServiceEntry) string {
	switch {
	case len(entry.AddrIPv4) > 0:
		return fmt.Sprintf("%s:%d", entry.AddrIPv4[0], entry.Port)
	case len(entry.AddrIPv6) > 0:
		return fmt.Sprintf("[%s]:%d", entry.AddrIPv6[0], entry.Port)
	default:
		return ""
	}
}
