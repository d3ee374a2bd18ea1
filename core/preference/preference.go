package preference

import (
	"context"
	"sync"

	"github.com/pkg/errors"
)

type (
	// Key addresses one preference of a user.
	Key struct {
		Namespace string
		Name      string
	}

	// Preferences are the loaded key/value preferences of one user.
	Preferences interface {
		Get(namespace, key string) (string, bool)
		Put(namespace, key, value string)
		// Save persists the values Put since the last Save.
		Save(ctx context.Context) error
	}

	Store interface {
		Load(ctx context.Context, identityID int64) (Preferences, error)
	}

	Repository interface {
		LoadPreferences(ctx context.Context, identityID int64) (map[Key]string, error)
		// SavePreferences upserts values.
		SavePreferences(ctx context.Context, identityID int64, values map[Key]string) error
	}

	store struct {
		repo Repository
	}

	userPreferences struct {
		mu       sync.Mutex
		repo     Repository
		identity int64
		values   map[Key]string
		dirty    map[Key]struct{}
	}
)

var (
	_ Store       = (*store)(nil)
	_ Preferences = (*userPreferences)(nil)
)

func NewStore(repo Repository) Store {
	return &store{repo: repo}
}

func (s *store) Load(ctx context.Context, identityID int64) (Preferences, error) {
	values, err := s.repo.LoadPreferences(ctx, identityID)
	if err != nil {
		return nil, errors.Wrap(err, "loading preferences")
	}
	if values == nil {
		values = make(map[Key]string)
	}
	return &userPreferences{
		repo:     s.repo,
		identity: identityID,
		values:   values,
		dirty:    make(map[Key]struct{}),
	}, nil
}

func (p *userPreferences) Get(namespace, key string) (string, bool) {
	p.mu.Lock()
	defer p.mu.Unlock()
	v, ok := p.values[Key{namespace, key}]
	return v, ok
}

func (p *userPreferences) Put(namespace, key, value string) {
	p.mu.Lock()
	defer p.mu.Unlock()
	k := Key{namespace, key}
	p.values[k] = value
	p.dirty[k] = struct{}{}
}

func (p *userPreferences) Save(ctx context.Context) error {
	p.mu.Lock()
	defer p.mu.Unlock()
	if len(p.dirty) == 0 {
		return nil
	}
	changes := make(map[Key]string, len(p.dirty))
	for k := range p.dirty {
		changes[k] = p.values[k]
	}
	if err := p.repo.SavePreferences(ctx, p.identity, changes); err != nil {
		return errors.Wrap(err, "saving preferences")
	}
	p.dirty = make(map[Key]struct{})
	return nil
}
