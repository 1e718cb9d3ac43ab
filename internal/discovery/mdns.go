// Package discovery advertises the notebook server on the local network so
// tablets on the same LAN can find it without configuration.
package discovery

import (
	"context"
	"fmt"
	"log/slog"
	"net"
	"os"
	"time"

	"github.com/hashicorp/mdns"
)

// ServiceType is the DNS-SD service the server registers.
const ServiceType = "_inkbook._tcp"

// Server is one advertised notebook server found by Browse.
type Server struct {
	Instance string
	Addr     string
	Info     []string
}

// Advertise announces the server on port until ctx is cancelled.
func Advertise(ctx context.Context, instance string, port int) error {
	service, err := newService(instance, "", port, nil)
	if err != nil {
		return err
	}
	server, err := mdns.NewServer(&mdns.Config{Zone: service})
	if err != nil {
		return fmt.Errorf("start mdns server: %w", err)
	}
	slog.Info("mdns advertising", "instance", instance, "service", ServiceType, "port", port)

	<-ctx.Done()
	if err := server.Shutdown(); err != nil {
		return fmt.Errorf("shutdown mdns server: %w", err)
	}
	return nil
}

// newService builds the zone. An empty host uses the machine hostname and
// nil ips are resolved from it.
func newService(instance, host string, port int, ips []net.IP) (*mdns.MDNSService, error) {
	if instance == "" {
		h, err := os.Hostname()
		if err != nil {
			return nil, fmt.Errorf("hostname: %w", err)
		}
		instance = h
	}
	info := []string{"inkbook", "ws=/ws/notebook"}
	service, err := mdns.NewMDNSService(instance, ServiceType, "", host, port, ips, info)
	if err != nil {
		return nil, fmt.Errorf("create mdns service: %w", err)
	}
	return service, nil
}

// Browse lists the servers that answer within timeout.
func Browse(ctx context.Context, timeout time.Duration) ([]Server, error) {
	entries := make(chan *mdns.ServiceEntry, 8)
	var found []Server
	done := make(chan struct{})
	go func() {
		defer close(done)
		for e := range entries {
			if s, ok := fromEntry(e); ok {
				found = append(found, s)
			}
		}
	}()

	params := mdns.DefaultParams(ServiceType)
	params.Entries = entries
	params.Timeout = timeout
	params.DisableIPv6 = true
	err := mdns.QueryContext(ctx, params)
	close(entries)
	<-done
	if err != nil {
		return nil, fmt.Errorf("mdns query: %w", err)
	}
	return found, nil
}

func fromEntry(e *mdns.ServiceEntry) (Server, bool) {
	if e == nil || e.AddrV4 == nil || e.Port == 0 {
		return Server{}, false
	}
	return Server{
		Instance: e.Name,
		Addr:     net.JoinHostPort(e.AddrV4.String(), fmt.Sprint(e.Port)),
		Info:     e.InfoFields,
	}, true
}
