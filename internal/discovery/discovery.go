// Package discovery resolves a hub URL via mDNS when the caller has not
// set one explicitly, ported from hass_atlas/discovery.py's discover_ha.
//
// Browsing itself — service-type semantics, TXT record layout — is named
// by spec §1 as an external collaborator outside the engine's scope; this
// package exists only as the orchestrator's URL-resolution fallback, the
// same role zeroconf plays in original_source's CLI.
package discovery

import (
	"context"
	"fmt"
	"time"

	"github.com/enbility/zeroconf/v3"
)

// ServiceType is the mDNS service browsed for Home Assistant instances.
const ServiceType = "_home-assistant._tcp"

// Domain is the mDNS domain browsed.
const Domain = "local."

// DefaultTimeout matches discover_ha's default browse window.
const DefaultTimeout = 5 * time.Second

// Instance is a discovered hub.
type Instance struct {
	Name         string
	Host         string
	IP           string
	Port         int
	Version      string
	LocationName string
	UUID         string
}

// URL returns the instance's base HTTP URL.
func (i Instance) URL() string {
	port := i.Port
	if port == 0 {
		port = 8123
	}
	return fmt.Sprintf("http://%s:%d", i.IP, port)
}

// Discover browses for Home Assistant instances for timeout, or
// DefaultTimeout if timeout <= 0. Returns every instance seen in the
// window; may be empty if none answered.
func Discover(ctx context.Context, timeout time.Duration) ([]Instance, error) {
	if timeout <= 0 {
		timeout = DefaultTimeout
	}
	ctx, cancel := context.WithTimeout(ctx, timeout)
	defer cancel()

	entries := make(chan *zeroconf.ServiceEntry, 8)
	removed := make(chan *zeroconf.ServiceEntry, 8)

	go func() {
		_ = zeroconf.Browse(ctx, ServiceType, Domain, entries, removed)
	}()

	var out []Instance
	seen := make(map[string]bool)
	for {
		select {
		case entry, ok := <-entries:
			if !ok {
				return out, nil
			}
			inst, ok := toInstance(entry)
			if !ok || seen[inst.Name] {
				continue
			}
			seen[inst.Name] = true
			out = append(out, inst)
		case <-removed:
			// Removal events are ignored: a single bounded browse window
			// only ever reports instances that existed at some point
			// during the window.
		case <-ctx.Done():
			return out, nil
		}
	}
}

func toInstance(entry *zeroconf.ServiceEntry) (Instance, bool) {
	var ip string
	switch {
	case len(entry.AddrIPv4) > 0:
		ip = entry.AddrIPv4[0].String()
	case len(entry.AddrIPv6) > 0:
		ip = entry.AddrIPv6[0].String()
	default:
		return Instance{}, false
	}

	props := txtProperties(entry.Text)
	return Instance{
		Name:         entry.Instance,
		Host:         entry.HostName,
		IP:           ip,
		Port:         entry.Port,
		Version:      props["version"],
		LocationName: props["location_name"],
		UUID:         props["uuid"],
	}, true
}

// txtProperties parses "key=value" TXT strings into a map, per the
// key/value convention Home Assistant publishes in its mDNS record.
func txtProperties(txt []string) map[string]string {
	props := make(map[string]string, len(txt))
	for _, kv := range txt {
		for i := 0; i < len(kv); i++ {
			if kv[i] == '=' {
				props[kv[:i]] = kv[i+1:]
				break
			}
		}
	}
	return props
}
