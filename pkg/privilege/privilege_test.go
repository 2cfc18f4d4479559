package privilege

import (
	"errors"
	"testing"

	"github.com/bert42/fileserver/pkg/fserrors"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// fakeIdentity simulates the host identity database and records every
// identity change in order.
type fakeIdentity struct {
	euid  int
	users map[string]Account
	group map[string]Account
	calls []string

	// stuck keeps euid at 0 after Setuid.
	stuck   bool
	failGid bool
}

func newFake(euid int) *fakeIdentity {
	return &fakeIdentity{
		euid: euid,
		users: map[string]Account{
			"nobody": {Name: "nobody", ID: 65534, PrimaryGID: 65533},
			"svc":    {Name: "svc", ID: 1001, PrimaryGID: 1001},
		},
		group: map[string]Account{
			"nogroup": {Name: "nogroup", ID: 65533},
			"svc":     {Name: "svc", ID: 1001},
		},
	}
}

func (f *fakeIdentity) Geteuid() int { return f.euid }

func (f *fakeIdentity) UserByID(uid int) (Account, error) {
	for _, u := range f.users {
		if u.ID == uid {
			return u, nil
		}
	}
	return Account{}, errors.New("unknown user")
}

func (f *fakeIdentity) UserByName(name string) (Account, error) {
	if u, ok := f.users[name]; ok {
		return u, nil
	}
	return Account{}, errors.New("unknown user")
}

func (f *fakeIdentity) GroupByID(gid int) (Account, error) {
	for _, g := range f.group {
		if g.ID == gid {
			return g, nil
		}
	}
	return Account{}, errors.New("unknown group")
}

func (f *fakeIdentity) GroupByName(name string) (Account, error) {
	if g, ok := f.group[name]; ok {
		return g, nil
	}
	return Account{}, errors.New("unknown group")
}

func (f *fakeIdentity) Setgroups(gids []int) error {
	f.calls = append(f.calls, "setgroups")
	return nil
}

func (f *fakeIdentity) Setgid(gid int) error {
	if f.failGid {
		return errors.New("EPERM")
	}
	f.calls = append(f.calls, "setgid")
	return nil
}

func (f *fakeIdentity) Setuid(uid int) error {
	f.calls = append(f.calls, "setuid")
	if !f.stuck {
		f.euid = uid
	}
	return nil
}

func TestDropOrdersGroupBeforeUser(t *testing.T) {
	id := newFake(0)

	require.NoError(t, Drop(id, Target{User: "nobody", Group: "nogroup"}))
	assert.Equal(t, []string{"setgroups", "setgid", "setuid"}, id.calls)
	assert.Equal(t, 65534, id.euid)
}

func TestDropStillRootIsFatal(t *testing.T) {
	id := newFake(0)
	id.stuck = true

	err := Drop(id, Target{User: "nobody", Group: "nogroup"})
	require.Error(t, err)
	assert.Equal(t, fserrors.Config, fserrors.CodeOf(err))
	assert.Contains(t, err.Error(), "still running as root")
	assert.Equal(t, []string{"setgroups", "setgid", "setuid"}, id.calls)
}

func TestDropNonRootIsNoop(t *testing.T) {
	id := newFake(1000)

	require.NoError(t, Drop(id, Target{User: "nobody", Group: "nogroup"}))
	assert.Empty(t, id.calls)
}

func TestDropWithoutTarget(t *testing.T) {
	id := newFake(0)

	require.NoError(t, Drop(id, Target{}))
	assert.Empty(t, id.calls)
}

func TestDropUnknownIdentityAbortsBeforeChanges(t *testing.T) {
	tests := []struct {
		name   string
		target Target
		msg    string
	}{
		{"UnknownUserName", Target{User: "ghost"}, "User 'ghost' not found"},
		{"UnknownUID", Target{User: "4242"}, "User with UID 4242 not found"},
		{"UnknownGroupName", Target{User: "nobody", Group: "ghosts"}, "Group 'ghosts' not found"},
		{"UnknownGID", Target{Group: "4242"}, "Group with GID 4242 not found"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			id := newFake(0)
			err := Drop(id, tt.target)
			require.Error(t, err)
			assert.Equal(t, fserrors.Config, fserrors.CodeOf(err))
			assert.Contains(t, err.Error(), tt.msg)
			assert.Empty(t, id.calls)
		})
	}
}

func TestDropNumericSpecs(t *testing.T) {
	id := newFake(0)

	require.NoError(t, Drop(id, Target{User: "1001", Group: "1001"}))
	assert.Equal(t, 1001, id.euid)
}

func TestDropUserOnlyUsesPrimaryGroup(t *testing.T) {
	id := newFake(0)

	plan, err := Resolve(id, Target{User: "nobody"})
	require.NoError(t, err)
	require.NotNil(t, plan.Group)
	assert.Equal(t, 65533, plan.Group.ID)

	require.NoError(t, Drop(id, Target{User: "nobody"}))
	assert.Equal(t, []string{"setgroups", "setgid", "setuid"}, id.calls)
}

func TestDropGroupOnlyStaysRoot(t *testing.T) {
	id := newFake(0)

	err := Drop(id, Target{Group: "nogroup"})
	assert.Equal(t, fserrors.Config, fserrors.CodeOf(err))
	assert.Equal(t, []string{"setgroups", "setgid"}, id.calls)
}

func TestDropSetgidFailure(t *testing.T) {
	id := newFake(0)
	id.failGid = true

	err := Drop(id, Target{User: "nobody", Group: "nogroup"})
	assert.Equal(t, fserrors.Config, fserrors.CodeOf(err))
	assert.NotContains(t, id.calls, "setuid")
}

func TestAccountStrings(t *testing.T) {
	a := Account{Name: "nobody", ID: 65534}
	assert.Equal(t, "nobody (UID: 65534)", a.UserString())
	assert.Equal(t, "nobody (GID: 65534)", a.GroupString())
}
