// Copyright (C) 2020-2025, Lux Industries Inc. All rights reserved.
// See the file LICENSE for licensing terms.

package des

import (
	"container/heap"
	"sync"
)

// Scheduler owns the priority queue of pending work items for one
// Runtime. Drivers receive a *Scheduler in their DesContext and call
// Schedule to enqueue further work; TieBreak is always assigned here,
// never by the caller (spec section 3).
type Scheduler struct {
	mu       sync.Mutex
	queue    workQueue
	tieBreak uint64
}

// NewScheduler returns an empty Scheduler.
func NewScheduler() *Scheduler {
	s := &Scheduler{}
	heap.Init(&s.queue)
	return s
}

// Schedule enqueues a work item at (when, sphere, kind) with an
// automatically assigned, monotonically increasing TieBreak so that two
// items scheduled at an identical (When, Sphere, Kind) execute in the
// order Schedule was called (spec section 4.F, testable property 6).
func (s *Scheduler) Schedule(when int64, sphere Sphere, kind Kind, payload []byte) WorkItem {
	s.mu.Lock()
	defer s.mu.Unlock()
	item := WorkItem{
		When:     when,
		Sphere:   sphere,
		Kind:     kind,
		TieBreak: s.tieBreak,
		Payload:  payload,
	}
	s.tieBreak++
	heap.Push(&s.queue, item)
	return item
}

// Len reports the number of pending work items.
func (s *Scheduler) Len() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.queue.Len()
}

// peek returns the head item without removing it.
func (s *Scheduler) peek() (WorkItem, bool) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.queue.Len() == 0 {
		return WorkItem{}, false
	}
	return s.queue[0], true
}

// dequeue removes and returns the head item.
func (s *Scheduler) dequeue() (WorkItem, bool) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.queue.Len() == 0 {
		return WorkItem{}, false
	}
	item := heap.Pop(&s.queue).(WorkItem)
	return item, true
}
