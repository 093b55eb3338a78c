package wsconn

import (
	"sync"
)

// ConnectionManager tracks live peers so shutdown can close them all.
type ConnectionManager struct {
	connections sync.Map // map[*Peer]struct{}
}

func NewConnectionManager() *ConnectionManager {
	return &ConnectionManager{}
}

func (cm *ConnectionManager) Add(p *Peer) {
	cm.connections.Store(p, struct{}{})
}

func (cm *ConnectionManager) Remove(p *Peer) {
	cm.connections.Delete(p)
}

// Len counts live peers.
func (cm *ConnectionManager) Len() int {
	n := 0
	cm.connections.Range(func(_, _ any) bool {
		n++
		return true
	})
	return n
}

// CloseAll closes every tracked peer. Their read loops then exit and
// deliver the usual disconnect notifications.
func (cm *ConnectionManager) CloseAll() {
	cm.connections.Range(func(k, _ any) bool {
		k.(*Peer).Close()
		return true
	})
}
