package cluster

import (
	"context"
	"fmt"
	"net/http"
	"time"

	log "github.com/activeshadow/libminimega/minilog"
)

// probeInterval is how often both the master's liveness probe and a
// client's rejoin check run.
const probeInterval = 10 * time.Second

// apiPort is every cluster member's own HTTP API port (web.endpoint's
// ":3000" default), the same constant internal/executor's host check uses.
const apiPort = 3000

// MasterMonitor periodically probes every non-master member's
// /api/config/status and evicts any that don't answer with 2xx.
type MasterMonitor struct {
	Manager *Manager
	Client  *http.Client

	stop chan struct{}
}

// Start launches the probe loop in its own goroutine; Stop ends it.
func (m *MasterMonitor) Start(ctx context.Context) {
	if m.Client == nil {
		m.Client = &http.Client{Timeout: 5 * time.Second}
	}
	m.stop = make(chan struct{})

	go func() {
		t := time.NewTicker(probeInterval)
		defer t.Stop()

		for {
			select {
			case <-m.stop:
				return
			case <-ctx.Done():
				return
			case <-t.C:
				m.probeOnce(ctx)
			}
		}
	}()
}

func (m *MasterMonitor) Stop() {
	if m.stop != nil {
		close(m.stop)
	}
}

func (m *MasterMonitor) probeOnce(ctx context.Context) {
	for _, host := range m.Manager.NonMasterHosts() {
		url := fmt.Sprintf("http://%s:%d/api/config/status", host.IP, apiPort)

		req, err := http.NewRequestWithContext(ctx, http.MethodGet, url, nil)
		if err != nil {
			continue
		}

		resp, err := m.Client.Do(req)
		if err != nil {
			log.Warn("cluster: %s did not respond, evicting: %v", host.Name, err)
			m.Manager.Evict(host.Name)
			continue
		}
		resp.Body.Close()

		if resp.StatusCode < 200 || resp.StatusCode >= 300 {
			log.Warn("cluster: %s returned status %d, evicting", host.Name, resp.StatusCode)
			m.Manager.Evict(host.Name)
		}
	}
}

// Joiner issues the join request a client sends to ask the master to add it
// to the cluster, implemented by the HTTP client wrapper in cmd/ or web/
// that knows how to POST its own host config to /api/cluster.
type Joiner interface {
	PostJoin(ctx context.Context, masterIP string) error
}

// ClientRejoin periodically asks the master whether it still recognises
// this host as a member and re-posts its own config if not, covering the
// case where the master restarted (and so forgot every client) without the
// client itself ever going down.
type ClientRejoin struct {
	MasterIP string
	Self     Joiner

	Client *http.Client
	stop   chan struct{}
}

func (c *ClientRejoin) Start(ctx context.Context, selfName string) {
	if c.Client == nil {
		c.Client = &http.Client{Timeout: 5 * time.Second}
	}
	c.stop = make(chan struct{})

	go func() {
		t := time.NewTicker(probeInterval)
		defer t.Stop()

		for {
			select {
			case <-c.stop:
				return
			case <-ctx.Done():
				return
			case <-t.C:
				c.checkOnce(ctx, selfName)
			}
		}
	}()
}

func (c *ClientRejoin) Stop() {
	if c.stop != nil {
		close(c.stop)
	}
}

func (c *ClientRejoin) checkOnce(ctx context.Context, selfName string) {
	url := fmt.Sprintf("http://%s:%d/api/cluster/%s", c.MasterIP, apiPort, selfName)

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, url, nil)
	if err != nil {
		return
	}

	resp, err := c.Client.Do(req)
	member := err == nil && resp != nil && resp.StatusCode == http.StatusOK
	if resp != nil {
		resp.Body.Close()
	}

	if member {
		return
	}

	log.Warn("cluster: master %s does not recognise us as a member, rejoining", c.MasterIP)
	if err := c.Self.PostJoin(ctx, c.MasterIP); err != nil {
		log.Error("cluster: rejoin attempt failed: %v", err)
	}
}
