package websocket

import (
	"encoding/json"
	"sync"
)

// WalletUpdate is pushed to a wallet owner's open connections after any
// credit or debit commits.
type WalletUpdate struct {
	WalletID  string `json:"wallet_id"`
	OwnerType string `json:"owner_type"`
	Balance   string `json:"balance"`
	Currency  string `json:"currency"`
}

// Hub fans wallet updates out to subscribers. Connections are keyed by owner
// key ("care_home:<id>" or "worker:<id>"), not by the authenticated user, so
// every manager of a care home shares that home's stream.
type Hub struct {
	mu      sync.RWMutex
	clients map[string]map[*Client]struct{}
}

func NewHub() *Hub {
	return &Hub{
		clients: make(map[string]map[*Client]struct{}),
	}
}

func (h *Hub) Register(ownerKey string, client *Client) {
	h.mu.Lock()
	defer h.mu.Unlock()
	if h.clients[ownerKey] == nil {
		h.clients[ownerKey] = make(map[*Client]struct{})
	}
	h.clients[ownerKey][client] = struct{}{}
}

func (h *Hub) Unregister(ownerKey string, client *Client) {
	h.mu.Lock()
	defer h.mu.Unlock()
	if h.clients[ownerKey] == nil {
		return
	}
	delete(h.clients[ownerKey], client)
	if len(h.clients[ownerKey]) == 0 {
		delete(h.clients, ownerKey)
	}
}

// BroadcastWallet delivers best-effort: a slow client's full buffer drops the
// message rather than blocking the settlement path.
func (h *Hub) BroadcastWallet(ownerKey string, update WalletUpdate) {
	payload, _ := json.Marshal(update)
	h.mu.RLock()
	defer h.mu.RUnlock()
	for client := range h.clients[ownerKey] {
		select {
		case client.send <- payload:
		default:
		}
	}
}
