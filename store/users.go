// ABOUTME: Read-only user directory with name lookups
// ABOUTME: Names are weak references, so duplicates are reported rather than resolved
package store

import (
	"context"
	"sort"

	"github.com/incial/crm/models"
)

// Directory lists the people records can be assigned to.
type Directory struct {
	users []models.User
}

func newDirectory(users []models.User) *Directory {
	d := &Directory{users: make([]models.User, len(users))}
	copy(d.users, users)
	return d
}

// List returns every user.
func (d *Directory) List(ctx context.Context) ([]models.User, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	return d.all(), nil
}

// Named returns every user whose display name is exactly name.
func (d *Directory) Named(name string) []models.User {
	var out []models.User
	for _, u := range d.users {
		if u.Name == name {
			out = append(out, u)
		}
	}
	return out
}

// DuplicateNames lists display names shared by more than one user. Records
// assigned to these names cannot be attributed to a single person.
func (d *Directory) DuplicateNames() []string {
	counts := make(map[string]int)
	for _, u := range d.users {
		counts[u.Name]++
	}
	var out []string
	for name, n := range counts {
		if n > 1 {
			out = append(out, name)
		}
	}
	sort.Strings(out)
	return out
}

func (d *Directory) all() []models.User {
	out := make([]models.User, len(d.users))
	copy(out, d.users)
	return out
}
