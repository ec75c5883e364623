// Copyright (C) 2020-2025, Lux Industries Inc. All rights reserved.
// See the file LICENSE for licensing terms.

package cache

import (
	"github.com/luxfi/ids"
)

// InvalidationReason discriminates why an InvalidationEvent fired.
type InvalidationReason int

const (
	ReasonTopologyChange InvalidationReason = iota
	ReasonKinematicsChange
	ReasonExplicit
	ReasonClear
)

func (r InvalidationReason) String() string {
	switch r {
	case ReasonTopologyChange:
		return "TopologyChange"
	case ReasonKinematicsChange:
		return "KinematicsChange"
	case ReasonExplicit:
		return "Explicit"
	case ReasonClear:
		return "Clear"
	default:
		return "Unknown"
	}
}

// InvalidationEvent is delivered to subscribers whenever cache entries are
// removed (spec section 4.G).
type InvalidationEvent struct {
	Reason             InvalidationReason
	TopologyStreamHash ids.ID
	KinematicsModelID  string
}

// Subscriber receives invalidation notifications.
type Subscriber func(InvalidationEvent)

// Subscribe registers fn to receive every future InvalidationEvent. There
// is no unsubscribe; subscriptions live for the Cache's lifetime, matching
// the scope of a single process's derived-product listeners.
func (c *Cache) Subscribe(fn Subscriber) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.subscribers = append(c.subscribers, fn)
}

func (c *Cache) notify(event InvalidationEvent) {
	c.mu.Lock()
	subs := append([]Subscriber(nil), c.subscribers...)
	c.mu.Unlock()
	for _, sub := range subs {
		sub(event)
	}
}
