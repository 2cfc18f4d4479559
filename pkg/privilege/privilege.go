// Package privilege drops superuser privileges at startup.
//
// Drop runs once, before any listener is opened. When the process is root
// and a target user and/or group is configured, it resolves the target
// against the host identity database, switches the group identity first and
// the user identity second, and finally verifies that the process no longer
// runs as root. Every failure is fatal to startup.
//
// All OS interaction goes through the Identity interface so the sequence can
// be exercised without root.
package privilege

import (
	"fmt"
	"strconv"

	"github.com/bert42/fileserver/internal/logger"
	"github.com/bert42/fileserver/pkg/fserrors"
)

// Account is a resolved user or group.
type Account struct {
	Name string
	ID   int

	// PrimaryGID is the user's primary group. Unused for groups.
	PrimaryGID int
}

// UserString formats a resolved user for logs: "name (UID: n)".
func (a Account) UserString() string {
	return fmt.Sprintf("%s (UID: %d)", a.Name, a.ID)
}

// GroupString formats a resolved group for logs: "name (GID: n)".
func (a Account) GroupString() string {
	return fmt.Sprintf("%s (GID: %d)", a.Name, a.ID)
}

// Identity abstracts the process identity and the host identity database.
type Identity interface {
	// Geteuid returns the effective user id of the process.
	Geteuid() int

	UserByID(uid int) (Account, error)
	UserByName(name string) (Account, error)
	GroupByID(gid int) (Account, error)
	GroupByName(name string) (Account, error)

	// Setgroups replaces the supplementary group list.
	Setgroups(gids []int) error
	Setgid(gid int) error
	Setuid(uid int) error
}

// Target is the configured identity to switch to. Each value is either a
// numeric id or a symbolic name; empty means not configured.
type Target struct {
	User  string
	Group string
}

// IsZero reports whether no user or group is configured.
func (t Target) IsZero() bool {
	return t.User == "" && t.Group == ""
}

// Plan is a fully resolved Target.
type Plan struct {
	User  *Account
	Group *Account
}

// Resolve looks up the target user and group. Numeric values are resolved by
// id, anything else by name.
//
// When only a user is configured, the user's primary group becomes the group
// target so that no root group membership survives the drop.
func Resolve(id Identity, t Target) (Plan, error) {
	var plan Plan

	if t.User != "" {
		u, err := resolveUser(id, t.User)
		if err != nil {
			return Plan{}, err
		}
		plan.User = &u
	}

	switch {
	case t.Group != "":
		g, err := resolveGroup(id, t.Group)
		if err != nil {
			return Plan{}, err
		}
		plan.Group = &g
	case plan.User != nil:
		g, err := id.GroupByID(plan.User.PrimaryGID)
		if err != nil {
			g = Account{Name: strconv.Itoa(plan.User.PrimaryGID), ID: plan.User.PrimaryGID}
		}
		plan.Group = &g
	}

	return plan, nil
}

func resolveUser(id Identity, value string) (Account, error) {
	if uid, err := strconv.Atoi(value); err == nil {
		u, err := id.UserByID(uid)
		if err != nil {
			return Account{}, fserrors.Wrap(fserrors.Config, err, "User with UID %d not found", uid)
		}
		return u, nil
	}

	u, err := id.UserByName(value)
	if err != nil {
		return Account{}, fserrors.Wrap(fserrors.Config, err, "User '%s' not found", value)
	}
	return u, nil
}

func resolveGroup(id Identity, value string) (Account, error) {
	if gid, err := strconv.Atoi(value); err == nil {
		g, err := id.GroupByID(gid)
		if err != nil {
			return Account{}, fserrors.Wrap(fserrors.Config, err, "Group with GID %d not found", gid)
		}
		return g, nil
	}

	g, err := id.GroupByName(value)
	if err != nil {
		return Account{}, fserrors.Wrap(fserrors.Config, err, "Group '%s' not found", value)
	}
	return g, nil
}

// Drop performs the privilege drop for t.
//
// Sequence:
//  1. No target, or not running as root: log and return nil
//  2. Resolve user and group (unknown identity is fatal)
//  3. Setgroups + Setgid, then Setuid
//  4. Verify the effective uid is no longer 0
//
// Returns a Config error on any failure; the caller must not start serving.
func Drop(id Identity, t Target) error {
	if t.IsZero() {
		logger.Debug("No user/group configured, keeping current identity")
		return nil
	}

	if id.Geteuid() != 0 {
		logger.Info("Not running as root, ignoring user/group configuration (user=%q group=%q)", t.User, t.Group)
		return nil
	}

	plan, err := Resolve(id, t)
	if err != nil {
		return err
	}

	// Group first: once the uid changes the process may no longer change gid.
	if plan.Group != nil {
		if err := id.Setgroups([]int{plan.Group.ID}); err != nil {
			return fserrors.Wrap(fserrors.Config, err, "Failed to set supplementary groups to %s", plan.Group.GroupString())
		}
		if err := id.Setgid(plan.Group.ID); err != nil {
			return fserrors.Wrap(fserrors.Config, err, "Failed to set group to %s", plan.Group.GroupString())
		}
		logger.Info("Dropped group privileges to %s", plan.Group.GroupString())
	}

	if plan.User != nil {
		if err := id.Setuid(plan.User.ID); err != nil {
			return fserrors.Wrap(fserrors.Config, err, "Failed to set user to %s", plan.User.UserString())
		}
		logger.Info("Dropped user privileges to %s", plan.User.UserString())
	}

	if id.Geteuid() == 0 {
		return fserrors.New(fserrors.Config, "Failed to drop root privileges - still running as root")
	}

	return nil
}
