package discovery

import (
	"context"
	"time"

	"github.com/enbility/zeroconf/v3"
)

// BrowseTimeout is the default time Browse collects responses.
const BrowseTimeout = 3 * time.Second

// Service is a fixture found on the network.
type Service struct {
	Info
	Host      string
	Addresses []string
}

// Browse collects advertised fixtures until ctx is done or timeout
// elapses. Instances seen on several interfaces are merged.
func Browse(ctx context.Context, timeout time.Duration) ([]Service, error) {
	if timeout <= 0 {
		timeout = BrowseTimeout
	}
	ctx, cancel := context.WithTimeout(ctx, timeout)
	defer cancel()

	entries := make(chan *zeroconf.ServiceEntry)
	removed := make(chan *zeroconf.ServiceEntry)

	errc := make(chan error, 1)
	go func() {
		errc <- zeroconf.Browse(ctx, ServiceType, Domain, entries, removed)
	}()

	var order []string
	found := make(map[string]*Service)
	for {
		select {
		case entry, ok := <-entries:
			if !ok {
				entries = nil
				continue
			}
			svc := entryToService(entry)
			if svc == nil {
				continue
			}
			if existing, ok := found[svc.Instance]; ok {
				existing.Addresses = mergeAddresses(existing.Addresses, svc.Addresses)
				continue
			}
			found[svc.Instance] = svc
			order = append(order, svc.Instance)

		case entry, ok := <-removed:
			if !ok {
				removed = nil
				continue
			}
			if _, ok := found[entry.Instance]; ok {
				delete(found, entry.Instance)
			}

		case err := <-errc:
			if err != nil {
				return nil, err
			}
			errc = nil

		case <-ctx.Done():
			out := make([]Service, 0, len(found))
			for _, name := range order {
				if svc, ok := found[name]; ok {
					out = append(out, *svc)
				}
			}
			return out, nil
		}
	}
}

// entryToService converts a zeroconf entry, returning nil for entries
// without a valid TXT record.
func entryToService(entry *zeroconf.ServiceEntry) *Service {
	info, err := DecodeTXT(entry.Text)
	if err != nil {
		return nil
	}
	info.Instance = entry.Instance
	info.Port = entry.Port

	addrs := make([]string, 0, len(entry.AddrIPv4)+len(entry.AddrIPv6))
	for _, ip := range entry.AddrIPv4 {
		addrs = append(addrs, ip.String())
	}
	for _, ip := range entry.AddrIPv6 {
		addrs = append(addrs, ip.String())
	}
	return &Service{Info: *info, Host: entry.HostName, Addresses: addrs}
}

func mergeAddresses(existing, more []string) []string {
	seen := make(map[string]bool, len(existing))
	for _, a := range existing {
		seen[a] = true
	}
	for _, a := range more {
		if !seen[a] {
			existing = append(existing, a)
			seen[a] = true
		}
	}
	return existing
}
