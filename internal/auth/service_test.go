package auth

import (
	"context"
	"errors"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"golang.org/x/crypto/bcrypt"

	"github.com/iradmi/vidstream-backend/internal/model"
	"github.com/iradmi/vidstream-backend/internal/repository"
)

// memStore is an in-memory UserStore + SessionStore with the same
// semantics as the MySQL repositories, including the compare-and-swap on
// the stored refresh token.
type memStore struct {
	mu     sync.Mutex
	users  map[uint64]*model.User
	nextID uint64
}

func newMemStore() *memStore {
	return &memStore{users: make(map[uint64]*model.User), nextID: 1}
}

func (m *memStore) Create(_ context.Context, in repository.NewUserInput) (uint64, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	for _, u := range m.users {
		if u.Username == in.Username || u.Email == in.Email {
			return 0, repository.ErrDuplicate
		}
	}
	id := m.nextID
	m.nextID++
	m.users[id] = &model.User{
		ID: id, Username: in.Username, Email: in.Email, FullName: in.FullName,
		PasswordHash: in.PasswordHash, AvatarURL: in.AvatarURL, CoverURL: in.CoverURL,
		CreatedAt: time.Now(), UpdatedAt: time.Now(),
	}
	return id, nil
}

func (m *memStore) GetByIdentifier(_ context.Context, identifier string) (model.User, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	for _, u := range m.users {
		if u.Username == identifier || u.Email == identifier {
			return *u, nil
		}
	}
	return model.User{}, repository.ErrNotFound
}

func (m *memStore) GetByID(_ context.Context, id uint64) (model.User, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	if u, ok := m.users[id]; ok {
		return *u, nil
	}
	return model.User{}, repository.ErrNotFound
}

func (m *memStore) UpdateProfile(_ context.Context, id uint64, fullName, username, email string) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	u, ok := m.users[id]
	if !ok {
		return repository.ErrNotFound
	}
	for oid, other := range m.users {
		if oid != id && (other.Username == username || other.Email == email) {
			return repository.ErrDuplicate
		}
	}
	u.FullName, u.Username, u.Email = fullName, username, email
	return nil
}

func (m *memStore) UpdatePasswordHash(_ context.Context, id uint64, hash string) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	u, ok := m.users[id]
	if !ok {
		return repository.ErrNotFound
	}
	u.PasswordHash = hash
	return nil
}

func (m *memStore) UpdateAvatarURL(_ context.Context, id uint64, url string) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	u, ok := m.users[id]
	if !ok {
		return repository.ErrNotFound
	}
	u.AvatarURL = url
	return nil
}

func (m *memStore) UpdateCoverURL(_ context.Context, id uint64, url string) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	u, ok := m.users[id]
	if !ok {
		return repository.ErrNotFound
	}
	u.CoverURL = url
	return nil
}

func (m *memStore) Begin(_ context.Context, userID uint64, token string) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	u, ok := m.users[userID]
	if !ok {
		return repository.ErrNotFound
	}
	u.RefreshToken = token
	return nil
}

func (m *memStore) Replace(_ context.Context, userID uint64, old, next string) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	u, ok := m.users[userID]
	if !ok || u.RefreshToken != old {
		return repository.ErrStaleSession
	}
	u.RefreshToken = next
	return nil
}

func (m *memStore) End(_ context.Context, userID uint64) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if u, ok := m.users[userID]; ok {
		u.RefreshToken = ""
	}
	return nil
}

func (m *memStore) IsCurrent(_ context.Context, userID uint64, presented string) (bool, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	u, ok := m.users[userID]
	if !ok {
		return false, repository.ErrNotFound
	}
	return u.RefreshToken != "" && u.RefreshToken == presented, nil
}

// ----- helpers -----

func newTestService(t *testing.T) (*Service, *memStore) {
	t.Helper()
	store := newMemStore()
	svc := NewService(store, store, NewHasher(bcrypt.MinCost), testCodec())
	return svc, store
}

func registerAlice(t *testing.T, svc *Service) model.User {
	t.Helper()
	u, err := svc.Register(context.Background(), RegisterInput{
		FullName: "Alice Example", Username: "alice", Email: "alice@x.com",
		Password: "P@ss1", AvatarURL: "http://cdn/avatars/a.png",
	})
	require.NoError(t, err)
	return u
}

// ----- tests -----

func TestRegister_HashesPassword(t *testing.T) {
	svc, store := newTestService(t)
	u := registerAlice(t, svc)

	stored, err := store.GetByID(context.Background(), u.ID)
	require.NoError(t, err)
	assert.NotEqual(t, "P@ss1", stored.PasswordHash)
	assert.NoError(t, bcrypt.CompareHashAndPassword([]byte(stored.PasswordHash), []byte("P@ss1")))
}

func TestRegister_Duplicate(t *testing.T) {
	svc, _ := newTestService(t)
	registerAlice(t, svc)

	_, err := svc.Register(context.Background(), RegisterInput{
		FullName: "Other", Username: "alice", Email: "other@x.com", Password: "x",
	})
	assert.ErrorIs(t, err, ErrDuplicate)

	_, err = svc.Register(context.Background(), RegisterInput{
		FullName: "Other", Username: "other", Email: "alice@x.com", Password: "x",
	})
	assert.ErrorIs(t, err, ErrDuplicate)
}

func TestLogin_SubjectMatchesUser(t *testing.T) {
	svc, _ := newTestService(t)
	alice := registerAlice(t, svc)

	u, pair, err := svc.Login(context.Background(), "alice", "P@ss1")
	require.NoError(t, err)
	assert.Equal(t, alice.ID, u.ID)

	claims, err := svc.Codec().VerifyAccess(pair.AccessToken)
	require.NoError(t, err)
	assert.Equal(t, alice.ID, claims.UserID)
	assert.Equal(t, "alice", claims.Username)
	assert.Equal(t, "alice@x.com", claims.Email)
}

func TestLogin_ByEmail(t *testing.T) {
	svc, _ := newTestService(t)
	registerAlice(t, svc)

	_, _, err := svc.Login(context.Background(), "alice@x.com", "P@ss1")
	assert.NoError(t, err)
}

func TestLogin_StoresRefreshToken(t *testing.T) {
	svc, store := newTestService(t)
	alice := registerAlice(t, svc)

	_, pair, err := svc.Login(context.Background(), "alice", "P@ss1")
	require.NoError(t, err)

	stored, err := store.GetByID(context.Background(), alice.ID)
	require.NoError(t, err)
	assert.Equal(t, pair.RefreshToken, stored.RefreshToken)
}

func TestLogin_UnknownUser(t *testing.T) {
	svc, _ := newTestService(t)

	_, _, err := svc.Login(context.Background(), "nobody", "pw")
	assert.ErrorIs(t, err, ErrNotFound)
}

func TestLogin_WrongPassword(t *testing.T) {
	svc, _ := newTestService(t)
	registerAlice(t, svc)

	_, _, err := svc.Login(context.Background(), "alice", "wrong")
	assert.ErrorIs(t, err, ErrInvalidCredentials)
}

func TestLogin_ReplacesPreviousSession(t *testing.T) {
	svc, store := newTestService(t)
	alice := registerAlice(t, svc)

	_, first, err := svc.Login(context.Background(), "alice", "P@ss1")
	require.NoError(t, err)
	_, second, err := svc.Login(context.Background(), "alice", "P@ss1")
	require.NoError(t, err)

	stored, err := store.GetByID(context.Background(), alice.ID)
	require.NoError(t, err)
	assert.Equal(t, second.RefreshToken, stored.RefreshToken)
	assert.NotEqual(t, first.RefreshToken, stored.RefreshToken)
}

// Mirrors the full credential lifecycle: login issues (A1,R1), refresh
// rotates to (A2,R2) with R2 distinct from R1, the already-rotated R1 is
// rejected even though its signature and TTL are fine, and R2 keeps
// working.
func TestRefresh_RotationLifecycle(t *testing.T) {
	svc, _ := newTestService(t)
	registerAlice(t, svc)
	ctx := context.Background()

	_, t1, err := svc.Login(ctx, "alice", "P@ss1")
	require.NoError(t, err)

	t2, err := svc.Refresh(ctx, t1.RefreshToken)
	require.NoError(t, err)
	assert.NotEqual(t, t1.RefreshToken, t2.RefreshToken, "rotation must mint a distinct refresh token")

	// R1 still verifies cryptographically but is no longer current.
	_, err = svc.Codec().VerifyRefresh(t1.RefreshToken)
	require.NoError(t, err)
	_, err = svc.Refresh(ctx, t1.RefreshToken)
	assert.ErrorIs(t, err, ErrTokenReuse)

	// The rotated token remains the valid one.
	t3, err := svc.Refresh(ctx, t2.RefreshToken)
	require.NoError(t, err)
	assert.NotEqual(t, t2.RefreshToken, t3.RefreshToken)
}

func TestRefresh_MissingToken(t *testing.T) {
	svc, _ := newTestService(t)

	_, err := svc.Refresh(context.Background(), "")
	assert.ErrorIs(t, err, ErrMissingToken)
}

func TestRefresh_GarbageToken(t *testing.T) {
	svc, _ := newTestService(t)

	_, err := svc.Refresh(context.Background(), "not-a-jwt")
	assert.ErrorIs(t, err, ErrInvalidToken)
}

func TestRefresh_AccessTokenRejected(t *testing.T) {
	svc, _ := newTestService(t)
	registerAlice(t, svc)

	_, pair, err := svc.Login(context.Background(), "alice", "P@ss1")
	require.NoError(t, err)

	_, err = svc.Refresh(context.Background(), pair.AccessToken)
	assert.ErrorIs(t, err, ErrInvalidToken, "access token must not pass refresh-scope verification")
}

func TestRefresh_AfterLogout(t *testing.T) {
	svc, _ := newTestService(t)
	alice := registerAlice(t, svc)
	ctx := context.Background()

	_, pair, err := svc.Login(ctx, "alice", "P@ss1")
	require.NoError(t, err)

	require.NoError(t, svc.Logout(ctx, alice.ID))

	_, err = svc.Refresh(ctx, pair.RefreshToken)
	assert.ErrorIs(t, err, ErrTokenReuse, "pre-logout token must fail after the session is cleared")
}

func TestRefresh_ConcurrentRotationSingleWinner(t *testing.T) {
	svc, _ := newTestService(t)
	registerAlice(t, svc)
	ctx := context.Background()

	_, pair, err := svc.Login(ctx, "alice", "P@ss1")
	require.NoError(t, err)

	const n = 8
	var wg sync.WaitGroup
	errs := make([]error, n)
	for i := 0; i < n; i++ {
		wg.Add(1)
		go func(i int) {
			defer wg.Done()
			_, errs[i] = svc.Refresh(ctx, pair.RefreshToken)
		}(i)
	}
	wg.Wait()

	wins := 0
	for _, e := range errs {
		if e == nil {
			wins++
		} else {
			assert.ErrorIs(t, e, ErrTokenReuse)
		}
	}
	assert.Equal(t, 1, wins, "exactly one concurrent refresh may win")
}

func TestLogout_Idempotent(t *testing.T) {
	svc, _ := newTestService(t)
	alice := registerAlice(t, svc)
	ctx := context.Background()

	_, _, err := svc.Login(ctx, "alice", "P@ss1")
	require.NoError(t, err)

	assert.NoError(t, svc.Logout(ctx, alice.ID))
	assert.NoError(t, svc.Logout(ctx, alice.ID))
}

func TestChangePassword_Lifecycle(t *testing.T) {
	svc, _ := newTestService(t)
	alice := registerAlice(t, svc)
	ctx := context.Background()

	err := svc.ChangePassword(ctx, alice.ID, "P@ss1", "N3w!pass", "N3w!pass")
	require.NoError(t, err)

	_, _, err = svc.Login(ctx, "alice", "P@ss1")
	assert.ErrorIs(t, err, ErrInvalidCredentials, "old password must stop working")

	_, _, err = svc.Login(ctx, "alice", "N3w!pass")
	assert.NoError(t, err, "new password must work")
}

func TestChangePassword_ConfirmMismatch(t *testing.T) {
	svc, _ := newTestService(t)
	alice := registerAlice(t, svc)

	err := svc.ChangePassword(context.Background(), alice.ID, "P@ss1", "new1", "new2")
	assert.ErrorIs(t, err, ErrPasswordMismatch)
}

func TestChangePassword_WrongOld(t *testing.T) {
	svc, _ := newTestService(t)
	alice := registerAlice(t, svc)

	err := svc.ChangePassword(context.Background(), alice.ID, "nope", "new", "new")
	assert.ErrorIs(t, err, ErrWrongOldPassword)
}

func TestChangePassword_UnknownUser(t *testing.T) {
	svc, _ := newTestService(t)

	err := svc.ChangePassword(context.Background(), 999, "a", "b", "b")
	assert.ErrorIs(t, err, ErrNotFound)
}

func TestChangePassword_KeepsSession(t *testing.T) {
	svc, store := newTestService(t)
	alice := registerAlice(t, svc)
	ctx := context.Background()

	_, pair, err := svc.Login(ctx, "alice", "P@ss1")
	require.NoError(t, err)

	require.NoError(t, svc.ChangePassword(ctx, alice.ID, "P@ss1", "N3w!pass", "N3w!pass"))

	stored, err := store.GetByID(ctx, alice.ID)
	require.NoError(t, err)
	assert.Equal(t, pair.RefreshToken, stored.RefreshToken, "refresh token untouched by password change")

	_, err = svc.Refresh(ctx, pair.RefreshToken)
	assert.NoError(t, err)
}

func TestCurrentUser(t *testing.T) {
	svc, _ := newTestService(t)
	alice := registerAlice(t, svc)

	u, err := svc.CurrentUser(context.Background(), alice.ID)
	require.NoError(t, err)
	assert.Equal(t, "alice", u.Username)

	_, err = svc.CurrentUser(context.Background(), 999)
	assert.ErrorIs(t, err, ErrNotFound)
}

func TestUpdateProfile(t *testing.T) {
	svc, _ := newTestService(t)
	alice := registerAlice(t, svc)
	ctx := context.Background()

	u, err := svc.UpdateProfile(ctx, alice.ID, "Alice B.", "aliceb", "aliceb@x.com")
	require.NoError(t, err)
	assert.Equal(t, "aliceb", u.Username)
	assert.Equal(t, "Alice B.", u.FullName)

	// Colliding with another user's identity must be rejected.
	_, err = svc.Register(ctx, RegisterInput{
		FullName: "Bob", Username: "bob", Email: "bob@x.com", Password: "pw",
	})
	require.NoError(t, err)
	_, err = svc.UpdateProfile(ctx, alice.ID, "Alice", "bob", "aliceb@x.com")
	assert.ErrorIs(t, err, ErrDuplicate)
}

func TestUpdateProfile_DoesNotTouchPassword(t *testing.T) {
	svc, store := newTestService(t)
	alice := registerAlice(t, svc)
	ctx := context.Background()

	before, err := store.GetByID(ctx, alice.ID)
	require.NoError(t, err)

	_, err = svc.UpdateProfile(ctx, alice.ID, "Alice B.", "alice", "alice@x.com")
	require.NoError(t, err)

	after, err := store.GetByID(ctx, alice.ID)
	require.NoError(t, err)
	assert.Equal(t, before.PasswordHash, after.PasswordHash,
		"profile updates must never re-hash the stored digest")
}

func TestSetAvatarAndCover(t *testing.T) {
	svc, _ := newTestService(t)
	alice := registerAlice(t, svc)
	ctx := context.Background()

	u, err := svc.SetAvatar(ctx, alice.ID, "http://cdn/avatars/new.png")
	require.NoError(t, err)
	assert.Equal(t, "http://cdn/avatars/new.png", u.AvatarURL)

	u, err = svc.SetCover(ctx, alice.ID, "http://cdn/covers/new.png")
	require.NoError(t, err)
	assert.Equal(t, "http://cdn/covers/new.png", u.CoverURL)
}

// failingSessions simulates an unexpected persistence fault so the
// orchestration's opaque-error policy can be observed.
type failingSessions struct{ SessionStore }

func (f failingSessions) Begin(context.Context, uint64, string) error {
	return errors.New("disk on fire")
}

func TestLogin_InternalFaultIsOpaque(t *testing.T) {
	store := newMemStore()
	svc := NewService(store, failingSessions{store}, NewHasher(bcrypt.MinCost), testCodec())
	registerAlice(t, svc)

	_, _, err := svc.Login(context.Background(), "alice", "P@ss1")
	assert.ErrorIs(t, err, ErrInternal)
	assert.NotContains(t, err.Error(), "disk on fire", "internal detail must not leak")
}
