// Copyright (c) 2025 Tulir Asokan
//
// This Source Code Form is subject to the terms of the Mozilla Public
// License, v. 2.0. If a copy of the MPL was not distributed with this
// file, You can obtain one at http://mozilla.org/MPL/2.0/.

package store

import (
	"context"
	"sync"

	"github.com/google/uuid"

	"go.mau.fi/tgbridge"
	waLog "go.mau.fi/tgbridge/util/log"
)

const queueBuffer = 256

// BackgroundQueue runs fire-and-forget tasks on a single worker
// goroutine in submission order. Task failures are logged, never
// reported back: callers must not depend on task completion.
type BackgroundQueue struct {
	tasks  chan queuedTask
	log    waLog.Logger
	wg     sync.WaitGroup
	cancel context.CancelFunc
}

type queuedTask struct {
	id uuid.UUID
	fn tgbridge.Task
}

var _ tgbridge.TaskQueue = (*BackgroundQueue)(nil)

func NewBackgroundQueue(log waLog.Logger) *BackgroundQueue {
	if log == nil {
		log = waLog.Noop
	}
	return &BackgroundQueue{
		tasks: make(chan queuedTask, queueBuffer),
		log:   log,
	}
}

// Start launches the worker. The queue stops when Stop is called or the
// given context is cancelled.
func (q *BackgroundQueue) Start(ctx context.Context) {
	ctx, q.cancel = context.WithCancel(ctx)
	q.wg.Add(1)
	go q.loop(ctx)
}

// Stop cancels the worker and waits for the task in flight to finish.
// Tasks still buffered are dropped.
func (q *BackgroundQueue) Stop() {
	if q.cancel != nil {
		q.cancel()
	}
	q.wg.Wait()
}

// Enqueue implements tgbridge.TaskQueue. It never blocks: when the
// buffer is full the task is dropped with a warning.
func (q *BackgroundQueue) Enqueue(task tgbridge.Task) {
	item := queuedTask{id: uuid.New(), fn: task}
	select {
	case q.tasks <- item:
		q.log.Debugf("Enqueued background task %s", item.id)
	default:
		q.log.Warnf("Background queue is full, dropping task %s", item.id)
	}
}

func (q *BackgroundQueue) loop(ctx context.Context) {
	defer q.wg.Done()
	for {
		select {
		case <-ctx.Done():
			return
		case item := <-q.tasks:
			if err := item.fn(ctx); err != nil {
				q.log.Warnf("Background task %s failed: %v", item.id, err)
			}
		}
	}
}
