package catalog

import (
	"context"
	"errors"
	"fmt"
	"slices"
	"sort"
	"sync"

	"github.com/vango-dev/waypoint/pkg/router"
)

// ErrUserNotFound is returned by LoadUser for unknown ids.
var ErrUserNotFound = errors.New("user not found")

// User is a directory entry.
type User struct {
	ID    string
	Name  string
	Email string
	Roles []string
}

// Directory is an in-memory user store.
type Directory struct {
	mu    sync.RWMutex
	users map[string]User
}

// NewDirectory returns a directory holding users.
func NewDirectory(users ...User) *Directory {
	d := &Directory{users: make(map[string]User, len(users))}
	for _, u := range users {
		d.users[u.ID] = u
	}
	return d
}

// DemoDirectory returns the users of the demo application.
func DemoDirectory() *Directory {
	return NewDirectory(
		User{ID: "1", Name: "Ada Lovelace", Email: "ada@example.com", Roles: []string{"admin"}},
		User{ID: "2", Name: "Alan Turing", Email: "alan@example.com", Roles: []string{"editor"}},
		User{ID: "3", Name: "Grace Hopper", Email: "grace@example.com"},
	)
}

// Get returns the user with id.
func (d *Directory) Get(ctx context.Context, id string) (User, error) {
	if err := ctx.Err(); err != nil {
		return User{}, err
	}
	d.mu.RLock()
	defer d.mu.RUnlock()
	u, ok := d.users[id]
	if !ok {
		return User{}, fmt.Errorf("user %q: %w", id, ErrUserNotFound)
	}
	return u, nil
}

// List returns all users ordered by id.
func (d *Directory) List(ctx context.Context) ([]User, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	d.mu.RLock()
	defer d.mu.RUnlock()
	out := make([]User, 0, len(d.users))
	for _, u := range d.users {
		out = append(out, u)
	}
	sort.Slice(out, func(i, j int) bool { return out[i].ID < out[j].ID })
	return out, nil
}

// Put adds or replaces a user.
func (d *Directory) Put(u User) {
	d.mu.Lock()
	defer d.mu.Unlock()
	d.users[u.ID] = u
}

type userParams struct {
	ID string `param:"id"`
}

type listParams struct {
	Role string `query:"role"`
}

// LoadUser resolves the user named by the "id" parameter.
func (d *Directory) LoadUser() router.Resolver {
	return router.ResolverFunc(func(ctx context.Context, m *router.MatchResult, nav *router.NavigationContext) (any, error) {
		var p userParams
		if err := router.Bind(m, nav.Query, &p); err != nil {
			return nil, err
		}
		return d.Get(ctx, p.ID)
	})
}

// ListUsers resolves every user, or only those holding the role given by
// the "role" query parameter.
func (d *Directory) ListUsers() router.Resolver {
	return router.ResolverFunc(func(ctx context.Context, m *router.MatchResult, nav *router.NavigationContext) (any, error) {
		var p listParams
		if err := router.Bind(m, nav.Query, &p); err != nil {
			return nil, err
		}
		users, err := d.List(ctx)
		if err != nil || p.Role == "" {
			return users, err
		}
		return slices.DeleteFunc(users, func(u User) bool {
			return !slices.Contains(u.Roles, p.Role)
		}), nil
	})
}

// CurrentUser resolves the signed-in user.
func (d *Directory) CurrentUser() router.Resolver {
	return router.ResolverFunc(func(ctx context.Context, _ *router.MatchResult, nav *router.NavigationContext) (any, error) {
		id, _ := nav.SessionValue(KeyUser).(string)
		if id == "" {
			return nil, errors.New("no signed-in user")
		}
		return d.Get(ctx, id)
	})
}
