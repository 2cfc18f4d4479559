//go:build unix

package privilege

import (
	"os/user"
	"strconv"
	"syscall"

	"golang.org/x/sys/unix"
)

// Lookup functions are variables so tests can stub the identity database.
var (
	lookupUser    = user.Lookup
	lookupUserID  = user.LookupId
	lookupGroup   = user.LookupGroup
	lookupGroupID = user.LookupGroupId
)

// System is the Identity of the running process on a Unix host.
type System struct{}

func (System) Geteuid() int { return unix.Geteuid() }

func (System) UserByID(uid int) (Account, error) {
	u, err := lookupUserID(strconv.Itoa(uid))
	if err != nil {
		return Account{}, err
	}
	return userAccount(u)
}

func (System) UserByName(name string) (Account, error) {
	u, err := lookupUser(name)
	if err != nil {
		return Account{}, err
	}
	return userAccount(u)
}

func (System) GroupByID(gid int) (Account, error) {
	g, err := lookupGroupID(strconv.Itoa(gid))
	if err != nil {
		return Account{}, err
	}
	return groupAccount(g)
}

func (System) GroupByName(name string) (Account, error) {
	g, err := lookupGroup(name)
	if err != nil {
		return Account{}, err
	}
	return groupAccount(g)
}

// Setgroups goes through syscall, which applies the change to every thread
// of the process; unix.Setgroups only changes the calling thread.
func (System) Setgroups(gids []int) error { return syscall.Setgroups(gids) }

func (System) Setgid(gid int) error { return unix.Setgid(gid) }
func (System) Setuid(uid int) error { return unix.Setuid(uid) }

func userAccount(u *user.User) (Account, error) {
	uid, err := strconv.Atoi(u.Uid)
	if err != nil {
		return Account{}, err
	}
	gid, err := strconv.Atoi(u.Gid)
	if err != nil {
		return Account{}, err
	}
	return Account{Name: u.Username, ID: uid, PrimaryGID: gid}, nil
}

func groupAccount(g *user.Group) (Account, error) {
	gid, err := strconv.Atoi(g.Gid)
	if err != nil {
		return Account{}, err
	}
	return Account{Name: g.Name, ID: gid}, nil
}
