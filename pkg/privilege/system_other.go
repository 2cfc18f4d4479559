//go:build !unix

package privilege

import "errors"

var errUnsupported = errors.New("privilege dropping is not supported on this platform")

// System reports a non-root identity so Drop is always a no-op.
type System struct{}

func (System) Geteuid() int                        { return -1 }
func (System) UserByID(int) (Account, error)       { return Account{}, errUnsupported }
func (System) UserByName(string) (Account, error)  { return Account{}, errUnsupported }
func (System) GroupByID(int) (Account, error)      { return Account{}, errUnsupported }
func (System) GroupByName(string) (Account, error) { return Account{}, errUnsupported }
func (System) Setgroups([]int) error               { return errUnsupported }
func (System) Setgid(int) error                    { return errUnsupported }
func (System) Setuid(int) error                    { return errUnsupported }
