package service

import (
	"context"
	"sort"
	"sync"
	"testing"
	"time"

	"github.com/jackc/pgx/v5"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"golang.org/x/crypto/bcrypt"

	"github.com/spec-kit/note-service/internal/auth"
	"github.com/spec-kit/note-service/internal/domain"
	apperrors "github.com/spec-kit/note-service/pkg/util"
)

type memTokenRepo struct {
	mu   sync.Mutex
	byID map[string]*domain.AccessToken
	// failSaves forces this many conflicts before saves succeed.
	failSaves int
}

func newMemTokenRepo() *memTokenRepo {
	return &memTokenRepo{byID: make(map[string]*domain.AccessToken)}
}

func (r *memTokenRepo) Save(ctx context.Context, token *domain.AccessToken) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	if r.failSaves > 0 {
		r.failSaves--
		return apperrors.NewConflict("token identifier already exists", nil)
	}
	if _, exists := r.byID[token.Identifier]; exists {
		return apperrors.NewConflict("token identifier already exists", nil)
	}
	clone := *token
	r.byID[token.Identifier] = &clone
	return nil
}

func (r *memTokenRepo) FindByIdentifier(ctx context.Context, identifier string) (*domain.AccessToken, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	token, ok := r.byID[identifier]
	if !ok {
		return nil, pgx.ErrNoRows
	}
	clone := *token
	return &clone, nil
}

func (r *memTokenRepo) ListByOwner(ctx context.Context, username string) ([]*domain.AccessToken, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	var out []*domain.AccessToken
	for _, token := range r.byID {
		if token.OwnerUsername == username {
			clone := *token
			out = append(out, &clone)
		}
	}
	sort.Slice(out, func(i, j int) bool { return out[i].CreatedAt.Before(out[j].CreatedAt) })
	return out, nil
}

func (r *memTokenRepo) Delete(ctx context.Context, identifier string) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	if _, ok := r.byID[identifier]; !ok {
		return pgx.ErrNoRows
	}
	delete(r.byID, identifier)
	return nil
}

func (r *memTokenRepo) TouchLastUsed(ctx context.Context, identifier string, at time.Time) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	if token, ok := r.byID[identifier]; ok {
		token.LastUsedAt = &at
	}
	return nil
}

type memUserRepo struct {
	mu         sync.Mutex
	byUsername map[string]*domain.User
}

func newMemUserRepo(usernames ...string) *memUserRepo {
	r := &memUserRepo{byUsername: make(map[string]*domain.User)}
	for _, name := range usernames {
		r.byUsername[name] = &domain.User{ID: name + "-id", Username: name, CreatedAt: time.Now()}
	}
	return r
}

func (r *memUserRepo) Create(ctx context.Context, user *domain.User) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	user.ID = user.Username + "-id"
	user.CreatedAt = time.Now()
	clone := *user
	r.byUsername[user.Username] = &clone
	return nil
}

func (r *memUserRepo) GetByID(ctx context.Context, id string) (*domain.User, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	for _, user := range r.byUsername {
		if user.ID == id {
			clone := *user
			return &clone, nil
		}
	}
	return nil, pgx.ErrNoRows
}

func (r *memUserRepo) GetByUsername(ctx context.Context, username string) (*domain.User, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	user, ok := r.byUsername[username]
	if !ok {
		return nil, pgx.ErrNoRows
	}
	clone := *user
	return &clone, nil
}

func newTokenService(tokens *memTokenRepo, users *memUserRepo) *TokenService {
	return NewTokenService(TokenDependencies{
		TokenRepo: tokens,
		UserRepo:  users,
	}, bcrypt.MinCost)
}

func errorCode(t *testing.T, err error) string {
	t.Helper()
	var domainErr *apperrors.DomainError
	require.ErrorAs(t, err, &domainErr)
	return domainErr.Code
}

func TestIssueAndValidate(t *testing.T) {
	ctx := context.Background()
	tokens := newMemTokenRepo()
	svc := newTokenService(tokens, newMemUserRepo("alice"))

	token, rawSecret, err := svc.Issue(ctx, "alice", "CI", nil)
	require.NoError(t, err)
	require.NotEmpty(t, rawSecret)
	assert.Equal(t, "alice", token.OwnerUsername)
	assert.Equal(t, "CI", token.Label)
	assert.Nil(t, token.ValidUntil)
	assert.NotEqual(t, rawSecret, token.SecretHash)

	user, err := svc.Validate(ctx, auth.EncodeCredential(token.Identifier, rawSecret))
	require.NoError(t, err)
	assert.Equal(t, "alice", user.Username)

	stored, err := tokens.FindByIdentifier(ctx, token.Identifier)
	require.NoError(t, err)
	assert.NotNil(t, stored.LastUsedAt, "validate should touch last_used_at")
}

func TestIssueRejectsEmptyLabel(t *testing.T) {
	svc := newTokenService(newMemTokenRepo(), newMemUserRepo("alice"))

	_, _, err := svc.Issue(context.Background(), "alice", "   ", nil)
	require.Error(t, err)
	assert.Equal(t, "VALIDATION_FAILED", errorCode(t, err))
}

func TestIssueRejectsPastExpiry(t *testing.T) {
	svc := newTokenService(newMemTokenRepo(), newMemUserRepo("bob"))

	past := time.Now().Add(-time.Second)
	_, _, err := svc.Issue(context.Background(), "bob", "temp", &past)
	require.Error(t, err)
	assert.Equal(t, "VALIDATION_FAILED", errorCode(t, err))
}

func TestValidateExpiredToken(t *testing.T) {
	ctx := context.Background()
	tokens := newMemTokenRepo()
	svc := newTokenService(tokens, newMemUserRepo("alice"))

	rawSecret, identifier, err := auth.GenerateSecret()
	require.NoError(t, err)
	hash, err := auth.HashSecret(rawSecret, bcrypt.MinCost)
	require.NoError(t, err)

	expired := time.Now().Add(-time.Minute)
	require.NoError(t, tokens.Save(ctx, &domain.AccessToken{
		Identifier:    identifier,
		SecretHash:    hash,
		OwnerUsername: "alice",
		Label:         "old",
		CreatedAt:     time.Now().Add(-time.Hour),
		ValidUntil:    &expired,
	}))

	_, err = svc.Validate(ctx, auth.EncodeCredential(identifier, rawSecret))
	require.Error(t, err)
	assert.ErrorIs(t, err, apperrors.ErrTokenExpired)
}

func TestValidateWrongSecretMatchesUnknownIdentifier(t *testing.T) {
	ctx := context.Background()
	svc := newTokenService(newMemTokenRepo(), newMemUserRepo("alice"))

	token, _, err := svc.Issue(ctx, "alice", "CI", nil)
	require.NoError(t, err)

	_, wrongErr := svc.Validate(ctx, auth.EncodeCredential(token.Identifier, "not-the-secret"))
	require.Error(t, wrongErr)

	_, unknownErr := svc.Validate(ctx, auth.EncodeCredential("ffffffffffffffff", "whatever"))
	require.Error(t, unknownErr)

	// A wrong secret and an unknown identifier must be externally identical.
	wrong := apperrors.ToDomainError(wrongErr)
	unknown := apperrors.ToDomainError(unknownErr)
	assert.Equal(t, wrong.Code, unknown.Code)
	assert.Equal(t, wrong.HTTPStatus, unknown.HTTPStatus)
	assert.Equal(t, wrong.Message, unknown.Message)
	assert.NotErrorIs(t, wrongErr, apperrors.ErrTokenExpired)
}

func TestValidateMalformedCredential(t *testing.T) {
	svc := newTokenService(newMemTokenRepo(), newMemUserRepo("alice"))

	for _, credential := range []string{"", "nodot", ".secretonly", "idonly."} {
		_, err := svc.Validate(context.Background(), credential)
		require.Error(t, err, "credential %q", credential)
		assert.Equal(t, "UNAUTHORIZED", errorCode(t, err))
	}
}

func TestRevokeThenValidateFails(t *testing.T) {
	ctx := context.Background()
	svc := newTokenService(newMemTokenRepo(), newMemUserRepo("alice"))

	token, rawSecret, err := svc.Issue(ctx, "alice", "CI", nil)
	require.NoError(t, err)

	credential := auth.EncodeCredential(token.Identifier, rawSecret)
	_, err = svc.Validate(ctx, credential)
	require.NoError(t, err)

	require.NoError(t, svc.Revoke(ctx, "alice", token.Identifier))

	_, err = svc.Validate(ctx, credential)
	require.Error(t, err)
	assert.Equal(t, "UNAUTHORIZED", errorCode(t, err))
}

func TestRevokeOwnershipMismatch(t *testing.T) {
	ctx := context.Background()
	svc := newTokenService(newMemTokenRepo(), newMemUserRepo("alice", "bob"))

	token, _, err := svc.Issue(ctx, "bob", "bobs", nil)
	require.NoError(t, err)

	err = svc.Revoke(ctx, "alice", token.Identifier)
	require.Error(t, err)
	assert.Equal(t, "FORBIDDEN", errorCode(t, err))

	err = svc.Revoke(ctx, "alice", "ffffffffffffffff")
	require.Error(t, err)
	assert.Equal(t, "NOT_FOUND", errorCode(t, err))
}

func TestConcurrentIssueUniqueIdentifiers(t *testing.T) {
	ctx := context.Background()
	svc := newTokenService(newMemTokenRepo(), newMemUserRepo("alice"))

	const n = 16
	identifiers := make(chan string, n)
	var wg sync.WaitGroup
	for i := 0; i < n; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			token, _, err := svc.Issue(ctx, "alice", "burst", nil)
			if err == nil {
				identifiers <- token.Identifier
			}
		}()
	}
	wg.Wait()
	close(identifiers)

	seen := make(map[string]bool)
	for id := range identifiers {
		assert.False(t, seen[id], "duplicate identifier %s", id)
		seen[id] = true
	}
	assert.Len(t, seen, n)
}

func TestIssueRetriesOnIdentifierCollision(t *testing.T) {
	ctx := context.Background()
	tokens := newMemTokenRepo()
	tokens.failSaves = issueAttempts - 1
	svc := newTokenService(tokens, newMemUserRepo("alice"))

	token, _, err := svc.Issue(ctx, "alice", "CI", nil)
	require.NoError(t, err)
	assert.NotEmpty(t, token.Identifier)

	tokens.failSaves = issueAttempts
	_, _, err = svc.Issue(ctx, "alice", "CI", nil)
	require.Error(t, err)
	assert.Equal(t, "INTERNAL_ERROR", errorCode(t, err))
}

func TestListForOwnerOrderedByCreation(t *testing.T) {
	ctx := context.Background()
	tokens := newMemTokenRepo()
	svc := newTokenService(tokens, newMemUserRepo("alice", "bob"))

	base := time.Now().Add(-time.Hour)
	for i, label := range []string{"first", "second", "third"} {
		require.NoError(t, tokens.Save(ctx, &domain.AccessToken{
			Identifier:    label,
			SecretHash:    "x",
			OwnerUsername: "alice",
			Label:         label,
			CreatedAt:     base.Add(time.Duration(i) * time.Minute),
		}))
	}
	_, _, err := svc.Issue(ctx, "bob", "not-alices", nil)
	require.NoError(t, err)

	list, err := svc.ListForOwner(ctx, "alice")
	require.NoError(t, err)
	require.Len(t, list, 3)
	assert.Equal(t, "first", list[0].Label)
	assert.Equal(t, "second", list[1].Label)
	assert.Equal(t, "third", list[2].Label)
}
