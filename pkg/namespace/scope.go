package namespace

import "errors"

// scope collects release functions for resources acquired one after another
// and runs them newest first unless the scope was committed.
type scope struct {
	releases  []func() error
	committed bool
}

// acquire registers the release function of a resource that was just acquired.
func (s *scope) acquire(release func() error) {
	s.releases = append(s.releases, release)
}

// commit hands ownership of every acquired resource to the caller.
func (s *scope) commit() {
	s.committed = true
}

// close releases everything in reverse order if the scope was not committed.
// Every release runs even when an earlier one fails.
func (s *scope) close() error {
	if s.committed {
		return nil
	}
	var errs []error
	for i := len(s.releases) - 1; i >= 0; i-- {
		if err := s.releases[i](); err != nil {
			errs = append(errs, err)
		}
	}
	s.releases = nil
	return errors.Join(errs...)
}
