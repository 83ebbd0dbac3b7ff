// SPDX-License-Identifier: Apache-2.0
// Copyright (c) 2025 Kaz Walker, Thermoquad

package gnss

import (
	"sync"

	"github.com/Thermoquad/sextant/pkg/nmea"
	"github.com/Thermoquad/sextant/pkg/ubx"
)

// Handler receives a dispatched frame. Handlers run on the polling goroutine
// and must not call Device.Poll.
type Handler func(*Frame)

// Dispatcher routes frames to handlers by message identity.
type Dispatcher struct {
	mu        sync.RWMutex
	sentences map[nmea.Message][]Handler
	messages  map[ubx.MessageID][]Handler
	bad       []Handler
	all       []Handler
}

// NewDispatcher creates an empty dispatcher.
func NewDispatcher() *Dispatcher {
	return &Dispatcher{
		sentences: make(map[nmea.Message][]Handler),
		messages:  make(map[ubx.MessageID][]Handler),
	}
}

// OnSentence registers h for valid NMEA sentences of message m.
func (d *Dispatcher) OnSentence(m nmea.Message, h Handler) {
	d.mu.Lock()
	d.sentences[m] = append(d.sentences[m], h)
	d.mu.Unlock()
}

// OnMessage registers h for valid UBX messages with the given class/id.
func (d *Dispatcher) OnMessage(id ubx.MessageID, h Handler) {
	d.mu.Lock()
	d.messages[id] = append(d.messages[id], h)
	d.mu.Unlock()
}

// OnBad registers h for frames that failed validation.
func (d *Dispatcher) OnBad(h Handler) {
	d.mu.Lock()
	d.bad = append(d.bad, h)
	d.mu.Unlock()
}

// OnFrame registers h for every frame, valid or not. It runs after the
// specific handlers.
func (d *Dispatcher) OnFrame(h Handler) {
	d.mu.Lock()
	d.all = append(d.all, h)
	d.mu.Unlock()
}

// Dispatch delivers f to its handlers.
func (d *Dispatcher) Dispatch(f *Frame) {
	d.mu.RLock()
	var hs []Handler
	switch {
	case f.Bad():
		hs = d.bad
	case f.Sentence != nil:
		hs = d.sentences[f.Sentence.Message()]
	case f.Message != nil:
		hs = d.messages[f.Message.MessageID()]
	}
	all := d.all
	d.mu.RUnlock()

	for _, h := range hs {
		h(f)
	}
	for _, h := range all {
		h(f)
	}
}
