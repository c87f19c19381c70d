package service

import "sync"

// ErrorChannel is the process-wide slot holding the most recent user-visible error.
//
// Primary operations publish their failure message here and clear it on success.
// Silent background work never touches it. Listeners registered with Subscribe
// are called with the new message (empty when cleared) after every change.
type ErrorChannel struct {
	mu        sync.Mutex
	current   string
	listeners []func(string)
}

// NewErrorChannel creates an empty error channel.
func NewErrorChannel() *ErrorChannel {
	return &ErrorChannel{}
}

// Publish replaces the current message. An empty message is equivalent to Clear.
func (c *ErrorChannel) Publish(msg string) {
	c.set(msg)
}

// Clear removes the current message after a successful primary operation.
func (c *ErrorChannel) Clear() {
	c.set("")
}

// Dismiss removes the current message on explicit user request.
func (c *ErrorChannel) Dismiss() {
	c.set("")
}

// Current returns the current message, or "" when there is none.
func (c *ErrorChannel) Current() string {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.current
}

// Subscribe registers fn to be called on every change.
func (c *ErrorChannel) Subscribe(fn func(string)) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.listeners = append(c.listeners, fn)
}

func (c *ErrorChannel) set(msg string) {
	c.mu.Lock()
	if c.current == msg {
		c.mu.Unlock()
		return
	}
	c.current = msg
	listeners := append([]func(string){}, c.listeners...)
	c.mu.Unlock()

	for _, fn := range listeners {
		fn(msg)
	}
}
