/*
Copyright © 2025 Acronis International GmbH.

Released under MIT license.
*/

package service

import (
	"errors"
	"strings"
	"sync"
)

// CompositeUnit runs several units as one.
type CompositeUnit struct {
	Units []Unit
}

var _ MetricsRegisterer = (*CompositeUnit)(nil)

// NewCompositeUnit groups units.
func NewCompositeUnit(units ...Unit) *CompositeUnit {
	return &CompositeUnit{Units: units}
}

// Start starts every unit in its own goroutine and returns when all of them have returned.
// The first failure stops the others at once and a *CompositeUnitError is sent to fatalErr.
func (cu *CompositeUnit) Start(fatalErr chan<- error) {
	failures := make(chan error, len(cu.Units))
	var wg sync.WaitGroup
	wg.Add(len(cu.Units))
	for _, u := range cu.Units {
		go func(u Unit) {
			defer wg.Done()
			unitErr := make(chan error, 1)
			u.Start(unitErr)
			select {
			case err := <-unitErr:
				failures <- err
			default:
			}
		}(u)
	}
	allReturned := make(chan struct{})
	go func() {
		wg.Wait()
		close(allReturned)
	}()

	var first error
	select {
	case first = <-failures:
	case <-allReturned:
		select {
		case first = <-failures:
		default:
			return
		}
	}

	errs := []error{first}
	stopErr := cu.Stop(false)
	for drained := false; !drained; {
		select {
		case err := <-failures:
			errs = append(errs, err)
		default:
			drained = true
		}
	}
	var stopErrs *CompositeUnitError
	if errors.As(stopErr, &stopErrs) {
		errs = append(errs, stopErrs.UnitErrors...)
	}
	fatalErr <- &CompositeUnitError{UnitErrors: errs}
}

// Stop stops every unit concurrently. The errors are gathered into a *CompositeUnitError.
func (cu *CompositeUnit) Stop(gracefully bool) error {
	errs := make([]error, len(cu.Units))
	var wg sync.WaitGroup
	wg.Add(len(cu.Units))
	for i, u := range cu.Units {
		go func(i int, u Unit) {
			defer wg.Done()
			errs[i] = u.Stop(gracefully)
		}(i, u)
	}
	wg.Wait()

	failed := errs[:0]
	for _, err := range errs {
		if err != nil {
			failed = append(failed, err)
		}
	}
	if len(failed) == 0 {
		return nil
	}
	return &CompositeUnitError{UnitErrors: failed}
}

// MustRegisterMetrics implements MetricsRegisterer.
func (cu *CompositeUnit) MustRegisterMetrics() {
	cu.eachRegisterer(MetricsRegisterer.MustRegisterMetrics)
}

// UnregisterMetrics implements MetricsRegisterer.
func (cu *CompositeUnit) UnregisterMetrics() {
	cu.eachRegisterer(MetricsRegisterer.UnregisterMetrics)
}

func (cu *CompositeUnit) eachRegisterer(fn func(MetricsRegisterer)) {
	for _, u := range cu.Units {
		if mr, ok := u.(MetricsRegisterer); ok {
			fn(mr)
		}
	}
}

// CompositeUnitError holds the errors of units started or stopped together.
type CompositeUnitError struct {
	UnitErrors []error
}

func (e *CompositeUnitError) Error() string {
	var sb strings.Builder
	for i, err := range e.UnitErrors {
		if i > 0 {
			sb.WriteString("; ")
		}
		sb.WriteString(err.Error())
	}
	return sb.String()
}

// Unwrap lets errors.Is and errors.As see every unit error.
func (e *CompositeUnitError) Unwrap() []error {
	return e.UnitErrors
}
