// Copyright (C) 2020-2025, Lux Industries Inc. All rights reserved.
// See the file LICENSE for licensing terms.

package des

import "container/heap"

// workQueue is a container/heap min-heap over WorkItem ordered by less.
// No third-party priority-queue library appears anywhere in the
// retrieved corpus; container/heap is the idiomatic stdlib mechanism for
// this and is used as-is (see DESIGN.md).
type workQueue []WorkItem

func (q workQueue) Len() int            { return len(q) }
func (q workQueue) Less(i, j int) bool  { return less(q[i], q[j]) }
func (q workQueue) Swap(i, j int)       { q[i], q[j] = q[j], q[i] }
func (q *workQueue) Push(x interface{}) { *q = append(*q, x.(WorkItem)) }
func (q *workQueue) Pop() interface{} {
	old := *q
	n := len(old)
	item := old[n-1]
	*q = old[:n-1]
	return item
}

var _ heap.Interface = (*workQueue)(nil)
