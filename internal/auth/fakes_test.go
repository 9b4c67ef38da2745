package auth

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/require"
	"go.mongodb.org/mongo-driver/bson/primitive"
	"golang.org/x/crypto/bcrypt"

	"github.com/ayush/videotube/backend/internal/media"
	"github.com/ayush/videotube/backend/internal/models"
	"github.com/ayush/videotube/backend/internal/store"
)

// memStore is an in-memory AccountStore with the same conflict and
// not-found semantics as the MongoDB store.
type memStore struct {
	mu        sync.Mutex
	accounts  map[primitive.ObjectID]*models.Account
	err       error
	createErr error
}

func newMemStore() *memStore {
	return &memStore{accounts: map[primitive.ObjectID]*models.Account{}}
}

func (s *memStore) get(id string) (*models.Account, error) {
	oid, err := primitive.ObjectIDFromHex(id)
	if err != nil {
		return nil, store.ErrNotFound
	}
	acct, ok := s.accounts[oid]
	if !ok {
		return nil, store.ErrNotFound
	}
	return acct, nil
}

func (s *memStore) Create(_ context.Context, acct *models.Account) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.err != nil {
		return s.err
	}
	if s.createErr != nil {
		return s.createErr
	}
	for _, a := range s.accounts {
		if a.Username == acct.Username || a.Email == acct.Email {
			return store.ErrConflict
		}
	}
	acct.ID = primitive.NewObjectID()
	acct.CreatedAt = time.Now().UTC()
	acct.UpdatedAt = acct.CreatedAt
	cp := *acct
	s.accounts[acct.ID] = &cp
	return nil
}

func (s *memStore) FindByID(_ context.Context, id string) (*models.Account, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.err != nil {
		return nil, s.err
	}
	acct, err := s.get(id)
	if err != nil {
		return nil, err
	}
	cp := *acct
	return &cp, nil
}

func (s *memStore) FindSanitizedByID(ctx context.Context, id string) (*models.Account, error) {
	acct, err := s.FindByID(ctx, id)
	if err != nil {
		return nil, err
	}
	return acct.Sanitized(), nil
}

func (s *memStore) FindByLogin(_ context.Context, username, email string) (*models.Account, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.err != nil {
		return nil, s.err
	}
	for _, a := range s.accounts {
		if (username != "" && a.Username == username) || (email != "" && a.Email == email) {
			cp := *a
			return &cp, nil
		}
	}
	return nil, store.ErrNotFound
}

func (s *memStore) ExistsByIdentity(_ context.Context, username, email string) (bool, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.err != nil {
		return false, s.err
	}
	for _, a := range s.accounts {
		if a.Username == username || a.Email == email {
			return true, nil
		}
	}
	return false, nil
}

func (s *memStore) update(id string, fn func(*models.Account)) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.err != nil {
		return s.err
	}
	acct, err := s.get(id)
	if err != nil {
		return err
	}
	fn(acct)
	return nil
}

func (s *memStore) SetPassword(_ context.Context, id, hash string) error {
	return s.update(id, func(a *models.Account) { a.Password = hash })
}

func (s *memStore) SetRefreshToken(_ context.Context, id, token string) error {
	return s.update(id, func(a *models.Account) { a.RefreshToken = token })
}

func (s *memStore) SwapRefreshToken(_ context.Context, id, current, next string) (bool, error) {
	swapped := false
	err := s.update(id, func(a *models.Account) {
		if a.RefreshToken == current {
			a.RefreshToken = next
			swapped = true
		}
	})
	if errors.Is(err, store.ErrNotFound) {
		return false, nil
	}
	return swapped, err
}

func (s *memStore) UnsetRefreshToken(_ context.Context, id string) error {
	return s.update(id, func(a *models.Account) { a.RefreshToken = "" })
}

func (s *memStore) stored(t *testing.T, id primitive.ObjectID) models.Account {
	t.Helper()
	s.mu.Lock()
	defer s.mu.Unlock()
	acct, ok := s.accounts[id]
	require.True(t, ok, "account %s not stored", id.Hex())
	return *acct
}

// memMedia records uploads and discards.
type memMedia struct {
	mu        sync.Mutex
	uploads   []string
	discarded []string
	failOn    string
	n         int
}

func (m *memMedia) Upload(_ context.Context, folder string, f media.File) (string, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	if folder == m.failOn {
		return "", errors.New("object store down")
	}
	m.n++
	url := fmt.Sprintf("http://cdn.local/media/%s/%d-%s", folder, m.n, f.Name)
	m.uploads = append(m.uploads, url)
	return url, nil
}

func (m *memMedia) Discard(_ context.Context, url string) <-chan error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.discarded = append(m.discarded, url)
	done := make(chan error, 1)
	close(done)
	return done
}

// memCache is a map-backed AccountCache.
type memCache struct {
	mu      sync.Mutex
	entries map[string]*models.Account
	reads   int
}

func newMemCache() *memCache { return &memCache{entries: map[string]*models.Account{}} }

func (c *memCache) Get(_ context.Context, id string) (*models.Account, error) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.reads++
	return c.entries[id], nil
}

func (c *memCache) Set(_ context.Context, acct *models.Account) error {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.entries[acct.ID.Hex()] = acct.Sanitized()
	return nil
}

func (c *memCache) Invalidate(_ context.Context, id string) error {
	c.mu.Lock()
	defer c.mu.Unlock()
	delete(c.entries, id)
	return nil
}

// memObjects is an in-memory media.ObjectStore for running the real relay.
type memObjects struct {
	mu      sync.Mutex
	objects map[string][]byte
	down    bool
}

func newMemObjects() *memObjects { return &memObjects{objects: map[string][]byte{}} }

func (o *memObjects) Upload(_ context.Context, key string, data []byte, _ string) error {
	o.mu.Lock()
	defer o.mu.Unlock()
	if o.down {
		return errors.New("object store down")
	}
	o.objects[key] = data
	return nil
}

func (o *memObjects) Remove(_ context.Context, key string) error {
	o.mu.Lock()
	defer o.mu.Unlock()
	delete(o.objects, key)
	return nil
}

func (o *memObjects) len() int {
	o.mu.Lock()
	defer o.mu.Unlock()
	return len(o.objects)
}

var testTokenConfig = TokenConfig{
	AccessSecret:  "access-secret",
	AccessTTL:     time.Hour,
	RefreshSecret: "refresh-secret",
	RefreshTTL:    10 * 24 * time.Hour,
}

// t0 is a whole second so expiry boundaries are exact.
var t0 = time.Unix(1_700_000_000, 0)

func newTestIssuer(t *testing.T, now *time.Time) *TokenIssuer {
	t.Helper()
	issuer, err := NewTokenIssuer(testTokenConfig)
	require.NoError(t, err)
	if now != nil {
		issuer.now = func() time.Time { return *now }
	}
	return issuer
}

type fixture struct {
	store   *memStore
	media   *memMedia
	issuer  *TokenIssuer
	manager *Manager
}

func newFixture(t *testing.T) *fixture {
	t.Helper()
	f := &fixture{store: newMemStore(), media: &memMedia{}, issuer: newTestIssuer(t, nil)}
	f.manager = NewManager(f.store, f.media, f.issuer, NewHasher(bcrypt.MinCost))
	return f
}

var avatarFile = &media.File{Name: "me.png", ContentType: "image/png", Data: []byte("png")}

func (f *fixture) register(t *testing.T, username, email, password string) *models.Account {
	t.Helper()
	acct, err := f.manager.Register(context.Background(), RegisterInput{
		FullName: "Test " + username,
		Email:    email,
		Username: username,
		Password: password,
		Avatar:   avatarFile,
	})
	require.NoError(t, err)
	return acct
}
