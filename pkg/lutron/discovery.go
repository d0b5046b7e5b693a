package lutron

import (
	"context"
	"fmt"
	"net"
	"sort"
	"sync"
	"time"

	"github.com/enbility/zeroconf/v3"
	"golang.org/x/sync/errgroup"
)

// mDNS service advertised by Caseta and RadioRA2 bridges.
const (
	MDNSService = "_lutron._tcp"
	MDNSDomain  = "local."
)

// DiscoveryResult represents a discovered hub.
type DiscoveryResult struct {
	IP     string
	Port   int
	Name   string // mDNS instance name, empty for sweep-only results
	Source string // "mdns", "scan" or "mdns+scan"
}

// Discover searches the local network for hubs. It browses mDNS and
// sweeps each local /24 for an open telnet port at the same time.
// The context controls the overall discovery timeout.
// If the context has no deadline, a 3-second timeout is applied.
func Discover(ctx context.Context) ([]DiscoveryResult, error) {
	// Apply default timeout if context has no deadline
	if _, hasDeadline := ctx.Deadline(); !hasDeadline {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, 3*time.Second)
		defer cancel()
	}

	ips, err := getLocalIPs()
	if err != nil {
		return nil, fmt.Errorf("get local IPs: %w", err)
	}

	var mdnsResults, scanResults []DiscoveryResult
	g, gctx := errgroup.WithContext(ctx)
	g.Go(func() error {
		mdnsResults = browseMDNS(gctx)
		return nil
	})
	g.Go(func() error {
		scanResults = sweep(gctx, ips, DefaultPort)
		return nil
	})
	if err := g.Wait(); err != nil {
		return nil, err
	}

	return mergeResults(mdnsResults, scanResults), nil
}

func browseMDNS(ctx context.Context) []DiscoveryResult {
	entries := make(chan *zeroconf.ServiceEntry)
	removed := make(chan *zeroconf.ServiceEntry)

	go func() {
		_ = zeroconf.Browse(ctx, MDNSService, MDNSDomain, entries, removed)
	}()

	seen := make(map[string]DiscoveryResult)
	for {
		select {
		case entry, ok := <-entries:
			if !ok {
				return sortedResults(seen)
			}
			for _, ip := range entry.AddrIPv4 {
				seen[ip.String()] = DiscoveryResult{
					IP:     ip.String(),
					Port:   DefaultPort,
					Name:   entry.Instance,
					Source: "mdns",
				}
			}
		case <-removed:
		case <-ctx.Done():
			return sortedResults(seen)
		}
	}
}

// sweep dials port on every host of the /24 around each base address.
func sweep(ctx context.Context, bases []net.IP, port int) []DiscoveryResult {
	count := 0
	for range bases {
		count += 254 // 1-254 for each /24 subnet
	}

	// Use buffered channel to prevent goroutine leaks
	found := make(chan string, count)
	var wg sync.WaitGroup

	for _, ip := range bases {
		base := ip.To4().Mask(net.CIDRMask(24, 32))
		if base == nil {
			continue
		}

		for i := 1; i < 255; i++ {
			target := net.IP{base[0], base[1], base[2], byte(i)}
			wg.Add(1)
			go func(ip string) {
				defer wg.Done()
				var d net.Dialer
				dialCtx, dialCancel := context.WithTimeout(ctx, 200*time.Millisecond)
				defer dialCancel()
				conn, err := d.DialContext(dialCtx, "tcp", net.JoinHostPort(ip, fmt.Sprint(port)))
				if err == nil {
					conn.Close()
					found <- ip
				}
			}(target.String())
		}
	}

	go func() {
		wg.Wait()
		close(found)
	}()

	seen := make(map[string]DiscoveryResult)
	for {
		select {
		case ip, ok := <-found:
			if !ok {
				return sortedResults(seen)
			}
			seen[ip] = DiscoveryResult{IP: ip, Port: port, Source: "scan"}
		case <-ctx.Done():
			return sortedResults(seen)
		}
	}
}

func mergeResults(mdns, scan []DiscoveryResult) []DiscoveryResult {
	merged := make(map[string]DiscoveryResult, len(mdns)+len(scan))
	for _, r := range mdns {
		merged[r.IP] = r
	}
	for _, r := range scan {
		if existing, ok := merged[r.IP]; ok {
			existing.Source = "mdns+scan"
			merged[r.IP] = existing
			continue
		}
		merged[r.IP] = r
	}
	return sortedResults(merged)
}

func sortedResults(m map[string]DiscoveryResult) []DiscoveryResult {
	out := make([]DiscoveryResult, 0, len(m))
	for _, r := range m {
		out = append(out, r)
	}
	sort.Slice(out, func(i, j int) bool {
		a, b := net.ParseIP(out[i].IP).To4(), net.ParseIP(out[j].IP).To4()
		if a == nil || b == nil {
			return out[i].IP < out[j].IP
		}
		for k := range a {
			if a[k] != b[k] {
				return a[k] < b[k]
			}
		}
		return false
	})
	return out
}

func getLocalIPs() ([]net.IP, error) {
	addrs, err := net.InterfaceAddrs()
	if err != nil {
		return nil, err
	}

	var ips []net.IP
	for _, addr := range addrs {
		if ipnet, ok := addr.(*net.IPNet); ok && !ipnet.IP.IsLoopback() {
			if ipnet.IP.To4() != nil {
				ips = append(ips, ipnet.IP)
			}
		}
	}
	return ips, nil
}
