// Package errors defines the structured errors reported by canopy.
//
// Tree mutation and traversal report contract violations (invalid
// operation, missing child, nil argument) synchronously to the caller. The
// builder reports malformed documents as parse errors, gathering every
// problem of a document in a Collector before failing.
package errors

import (
	"errors"
	"sync"
)

// Collector collects errors found while processing a document.
type Collector struct {
	errors []*CanopyError
	mutex  sync.RWMutex
}

// NewCollector creates a new error collector
func NewCollector() *Collector {
	return &Collector{
		errors: make([]*CanopyError, 0),
	}
}

// Add adds an error to the collector. Nil errors are ignored.
func (c *Collector) Add(err *CanopyError) {
	if err == nil {
		return
	}
	c.mutex.Lock()
	defer c.mutex.Unlock()
	c.errors = append(c.errors, err)
}

// Errors returns a copy of the collected errors in insertion order.
func (c *Collector) Errors() []*CanopyError {
	c.mutex.RLock()
	defer c.mutex.RUnlock()
	result := make([]*CanopyError, len(c.errors))
	copy(result, c.errors)
	return result
}

// HasErrors returns true if there are any errors
func (c *Collector) HasErrors() bool {
	c.mutex.RLock()
	defer c.mutex.RUnlock()
	return len(c.errors) > 0
}

// Len returns the number of collected errors.
func (c *Collector) Len() int {
	c.mutex.RLock()
	defer c.mutex.RUnlock()
	return len(c.errors)
}

// Clear clears all errors
func (c *Collector) Clear() {
	c.mutex.Lock()
	defer c.mutex.Unlock()
	c.errors = c.errors[:0]
}

// Err joins the collected errors, or returns nil when there are none.
func (c *Collector) Err() error {
	c.mutex.RLock()
	defer c.mutex.RUnlock()
	switch len(c.errors) {
	case 0:
		return nil
	case 1:
		return c.errors[0]
	}
	all := make([]error, len(c.errors))
	for i, err := range c.errors {
		all[i] = err
	}
	return errors.Join(all...)
}
