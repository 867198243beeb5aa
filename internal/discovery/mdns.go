// ABOUTME: mDNS discovery collaborator: browses for Sendspin servers and advertises this player
// ABOUTME: Implements supervisor.Discovery; the wire format itself is left entirely to hashicorp/mdns
package discovery

import (
	"context"
	"fmt"
	"net"
	"time"

	"github.com/hashicorp/mdns"
)

const (
	playerServiceType = "_sendspin._tcp"
	serverServiceType = "_sendspin-server._tcp"
	serverQueryDomain = "local"
)

// Manager browses for `_sendspin-server._tcp.local` servers and advertises
// this player as `_sendspin._tcp.local`, satisfying supervisor.Discovery.
type Manager struct {
	playerName string
}

// NewManager returns a discovery manager that advertises under playerName.
func NewManager(playerName string) *Manager {
	return &Manager{playerName: playerName}
}

// Discover browses for a Sendspin server and returns the first one found
// before timeout elapses. ok is false if nothing answered in time.
func (m *Manager) Discover(ctx context.Context, timeout time.Duration) (string, bool, error) {
	queryCtx, cancel := context.WithTimeout(ctx, timeout)
	defer cancel()

	entries := make(chan *mdns.ServiceEntry, 10)
	resultCh := make(chan *mdns.ServiceEntry, 1)
	errCh := make(chan error, 1)

	go func() {
		defer close(entries)
		err := mdns.Query(&mdns.QueryParam{
			Service:     serverServiceType,
			Domain:      serverQueryDomain,
			Timeout:     timeout,
			Entries:     entries,
			DisableIPv6: true,
		})
		if err != nil {
			errCh <- err
		}
	}()

	go func() {
		for e := range entries {
			select {
			case resultCh <- e:
			default:
			}
		}
	}()

	select {
	case <-queryCtx.Done():
		return "", false, nil
	case err := <-errCh:
		return "", false, fmt.Errorf("discovery: mdns query: %w", err)
	case entry := <-resultCh:
		if entry == nil || entry.AddrV4 == nil {
			return "", false, nil
		}
		return fmt.Sprintf("%s:%d", entry.AddrV4.String(), entry.Port), true, nil
	}
}

// Advertise announces this player as `_sendspin._tcp.local` on port until
// ctx is cancelled.
func (m *Manager) Advertise(ctx context.Context, port int) error {
	ips, err := localIPs()
	if err != nil {
		return fmt.Errorf("discovery: local IPs: %w", err)
	}

	service, err := mdns.NewMDNSService(
		m.playerName,
		playerServiceType,
		"",
		"",
		port,
		ips,
		[]string{"path=/sendspin"},
	)
	if err != nil {
		return fmt.Errorf("discovery: build service: %w", err)
	}

	server, err := mdns.NewServer(&mdns.Config{Zone: service})
	if err != nil {
		return fmt.Errorf("discovery: start server: %w", err)
	}

	go func() {
		<-ctx.Done()
		server.Shutdown()
	}()

	return nil
}

func localIPs() ([]net.IP, error) {
	var ips []net.IP

	ifaces, err := net.Interfaces()
	if err != nil {
		return nil, err
	}

	for _, iface := range ifaces {
		if iface.Flags&net.FlagUp == 0 || iface.Flags&net.FlagLoopback != 0 {
			continue
		}

		addrs, err := iface.Addrs()
		if err != nil {
			continue
		}

		for _, addr := range addrs {
			ipnet, ok := addr.(*net.IPNet)
			if ok && !ipnet.IP.IsLoopback() && ipnet.IP.To4() != nil {
				ips = append(ips, ipnet.IP)
			}
		}
	}

	return ips, nil
}
