package engine

import (
	"cmp"
	"encoding/json"
	"fmt"
	"slices"

	"round_dao/internal/domain"
)

// Registry owns user records. Records live in an arena keyed by numeric id;
// a secondary index maps external identity to id. Every mutation updates both.
type Registry struct {
	byID       map[uint32]*domain.User
	byIdentity map[string]uint32
}

// NewRegistry returns an empty registry
func NewRegistry() *Registry {
	return &Registry{
		byID:       make(map[uint32]*domain.User),
		byIdentity: make(map[string]uint32),
	}
}

// Len returns the number of registered users
func (r *Registry) Len() int { return len(r.byID) }

// InUse reports whether identity is registered
func (r *Registry) InUse(identity string) bool {
	_, ok := r.byIdentity[identity]
	return ok
}

// Get looks a user up by external identity
func (r *Registry) Get(identity string) (*domain.User, bool) {
	id, ok := r.byIdentity[identity]
	if !ok {
		return nil, false
	}
	return r.GetByID(id)
}

// GetByID looks a user up by numeric id
func (r *Registry) GetByID(id uint32) (*domain.User, bool) {
	u, ok := r.byID[id]
	return u, ok
}

// Insert adds u under u.Identity and u.ID
func (r *Registry) Insert(u *domain.User) error {
	if r.InUse(u.Identity) {
		return domain.ErrUserExists
	}
	if _, ok := r.byID[u.ID]; ok {
		return fmt.Errorf("user id %d already assigned", u.ID)
	}
	r.byID[u.ID] = u
	r.byIdentity[u.Identity] = u.ID
	return nil
}

// Remove drops the user registered under identity from both indexes
func (r *Registry) Remove(identity string) (*domain.User, bool) {
	id, ok := r.byIdentity[identity]
	if !ok {
		return nil, false
	}
	u := r.byID[id]
	delete(r.byIdentity, identity)
	delete(r.byID, id)
	return u, true
}

// Move re-keys the account under from to the identity to, keeping its id
func (r *Registry) Move(from, to string) (*domain.User, error) {
	if r.InUse(to) {
		return nil, domain.ErrUserExists
	}
	id, ok := r.byIdentity[from]
	if !ok {
		return nil, domain.ErrUserNotFound
	}
	u := r.byID[id]
	delete(r.byIdentity, from)
	r.byIdentity[to] = id
	u.Identity = to
	return u, nil
}

// All returns every user ordered by id
func (r *Registry) All() []*domain.User {
	out := make([]*domain.User, 0, len(r.byID))
	for _, u := range r.byID {
		out = append(out, u)
	}
	slices.SortFunc(out, func(a, b *domain.User) int { return cmp.Compare(a.ID, b.ID) })
	return out
}

// ResetRound clears every user's votes and post counter
func (r *Registry) ResetRound() {
	for _, u := range r.byID {
		u.Upvotes = domain.NewSet[uint32]()
		u.Downvotes = domain.NewSet[uint32]()
		u.PostsThisRound = 0
	}
}

// forgetProposal removes a deleted proposal from every vote set
func (r *Registry) forgetProposal(id uint32) {
	for _, u := range r.byID {
		u.Upvotes.Remove(id)
		u.Downvotes.Remove(id)
	}
}

// The identity index is derived, so only the arena is persisted.

func (r *Registry) MarshalJSON() ([]byte, error) {
	return json.Marshal(r.All())
}

func (r *Registry) UnmarshalJSON(data []byte) error {
	var users []*domain.User
	if err := json.Unmarshal(data, &users); err != nil {
		return err
	}
	fresh := NewRegistry()
	for _, u := range users {
		if u.Upvotes == nil {
			u.Upvotes = domain.NewSet[uint32]()
		}
		if u.Downvotes == nil {
			u.Downvotes = domain.NewSet[uint32]()
		}
		if err := fresh.Insert(u); err != nil {
			return fmt.Errorf("restore user %d: %w", u.ID, err)
		}
	}
	*r = *fresh
	return nil
}
