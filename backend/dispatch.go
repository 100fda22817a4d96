/*
 * FolderSync - Copyright (C) 2022 Zane van Iperen.
 *    Contact: zane@zanevaniperen.com
 *
 * This program is free software; you can redistribute it and/or modify
 * it under the terms of the GNU General Public License version 2, and only
 * version 2 as published by the Free Software Foundation.
 *
 * This program is distributed in the hope that it will be useful,
 * but WITHOUT ANY WARRANTY; without even the implied warranty of
 * MERCHANTABILITY or FITNESS FOR A PARTICULAR PURPOSE.  See the
 * GNU General Public License for more details.
 *
 * You should have received a copy of the GNU General Public License
 * along with this program; if not, write to the Free Software
 * Foundation, Inc., 59 Temple Place, Suite 330, Boston, MA  02111-1307  USA
 */

package backend

import (
	"context"

	log "github.com/sirupsen/logrus"
)

func newDispatcher(handle func(req interface{})) *dispatcher {
	d := &dispatcher{
		wake:   make(chan struct{}, 1),
		quit:   make(chan struct{}),
		done:   make(chan struct{}),
		handle: handle,
	}

	go d.run()
	return d
}

// Post queues req. The queue is unbounded so posting never blocks, even from
// the dispatcher itself. Returns false once the dispatcher has shut down.
func (d *dispatcher) Post(req interface{}) bool {
	d.mu.Lock()
	if d.closed {
		d.mu.Unlock()
		log.WithField("request", req).Trace("dispatch_post_after_close")
		return false
	}

	d.queue = append(d.queue, req)
	d.mu.Unlock()

	select {
	case d.wake <- struct{}{}:
	default:
	}

	return true
}

// Invoke runs fn on the dispatcher and waits for its result. If ctx is done
// first, fn may still run later.
func (d *dispatcher) Invoke(ctx context.Context, fn func() error) error {
	r := make(chan error, 1)
	if !d.Post(invokeRequest{r: r, fn: fn}) {
		return ErrClosed
	}

	select {
	case err := <-r:
		return err
	case <-ctx.Done():
		return ctx.Err()
	}
}

func (d *dispatcher) take() []interface{} {
	d.mu.Lock()
	defer d.mu.Unlock()

	q := d.queue
	d.queue = nil
	return q
}

func (d *dispatcher) run() {
	for {
		reqs := d.take()
		for _, _req := range reqs {
			switch req := _req.(type) {
			case invokeRequest:
				log.Trace("dispatch_invoke_request")
				req.r <- req.fn()
			default:
				d.handle(req)
			}
		}

		if len(reqs) > 0 {
			continue
		}

		select {
		case <-d.wake:
		case <-d.quit:
			goto done
		}
	}
done:
	d.mu.Lock()
	d.closed = true
	pending := d.queue
	d.queue = nil
	d.mu.Unlock()

	drainRequests(pending)
	close(d.done)
}

func drainRequests(reqs []interface{}) {
	for _, _req := range reqs {
		switch req := _req.(type) {
		case invokeRequest:
			log.Trace("dispatch_drain_invoke")
			req.r <- ErrClosed
		default:
			log.WithField("request", req).Trace("dispatch_drain_dropped")
		}
	}
}

// Close stops the dispatcher. Requests still queued are rejected.
func (d *dispatcher) Close() {
	select {
	case <-d.quit:
	default:
		close(d.quit)
	}
	<-d.done
}
