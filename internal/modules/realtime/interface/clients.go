package transport

import (
	"sync"

	"chatWs/internal/modules/realtime/infrastructure"
)

// clientSet tracks upgraded sockets so shutdown can close them.
type clientSet struct {
	mu      sync.Mutex
	clients map[*infrastructure.Client]struct{}
}

func newClientSet() *clientSet {
	return &clientSet{clients: make(map[*infrastructure.Client]struct{})}
}

func (s *clientSet) add(c *infrastructure.Client) {
	s.mu.Lock()
	s.clients[c] = struct{}{}
	s.mu.Unlock()
}

func (s *clientSet) remove(c *infrastructure.Client) {
	s.mu.Lock()
	delete(s.clients, c)
	s.mu.Unlock()
}

func (s *clientSet) closeAll() int {
	s.mu.Lock()
	clients := make([]*infrastructure.Client, 0, len(s.clients))
	for c := range s.clients {
		clients = append(clients, c)
	}
	s.mu.Unlock()

	for _, c := range clients {
		c.Close()
	}
	return len(clients)
}

func (s *clientSet) len() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return len(s.clients)
}
