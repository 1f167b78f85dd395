package service

import (
	"context"
	"errors"
	"strings"
	"sync"
	"testing"
	"time"

	"github.com/golang-jwt/jwt/v5"
	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"golang.org/x/crypto/bcrypt"

	"github.com/Skotchmaster/survey_builder/internal/models"
	"github.com/Skotchmaster/survey_builder/internal/repo"
	"github.com/Skotchmaster/survey_builder/internal/testutil"
	"github.com/Skotchmaster/survey_builder/pkg/hash"
	"github.com/Skotchmaster/survey_builder/pkg/tokens"
)

type publishedEvent struct {
	topic, key string
	event      any
}

type fakePublisher struct {
	mu     sync.Mutex
	events []publishedEvent
	err    error
}

func (f *fakePublisher) PublishEvent(_ context.Context, topic, key string, event any) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.events = append(f.events, publishedEvent{topic: topic, key: key, event: event})
	return f.err
}

func (f *fakePublisher) types() []string {
	f.mu.Lock()
	defer f.mu.Unlock()
	out := make([]string, 0, len(f.events))
	for _, e := range f.events {
		out = append(out, e.event.(map[string]any)["type"].(string))
	}
	return out
}

type fakeRecorder struct {
	mu   sync.Mutex
	seen map[string]int
}

func (f *fakeRecorder) AuthOperation(operation, outcome string) {
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.seen == nil {
		f.seen = map[string]int{}
	}
	f.seen[operation+"/"+outcome]++
}

type testEnv struct {
	svc    *AuthService
	repo   *repo.GormRepo
	codec  *tokens.Codec
	events *fakePublisher
	rec    *fakeRecorder
}

func newTestCodec(t *testing.T) *tokens.Codec {
	t.Helper()
	codec, err := tokens.NewCodec(tokens.Config{
		Secret:     []byte("test-jwt-secret"),
		Algorithm:  "HS256",
		AccessTTL:  15 * time.Minute,
		RefreshTTL: 7 * 24 * time.Hour,
	})
	require.NoError(t, err)
	return codec
}

func newTestEnv(t *testing.T) *testEnv {
	t.Helper()
	r := &repo.GormRepo{DB: testutil.NewDB(t)}
	codec := newTestCodec(t)
	events := &fakePublisher{}
	rec := &fakeRecorder{}
	return &testEnv{
		svc: &AuthService{
			Users:    r,
			Sessions: r,
			Hasher:   hash.New(bcrypt.MinCost),
			Tokens:   codec,
			Events:   events,
			Metrics:  rec,
		},
		repo:   r,
		codec:  codec,
		events: events,
		rec:    rec,
	}
}

func TestRegister_Validation(t *testing.T) {
	t.Parallel()
	env := newTestEnv(t)

	tests := []struct {
		name, email, password string
	}{
		{name: "empty email", email: "", password: "secret"},
		{name: "bad email", email: "not-an-email", password: "secret"},
		{name: "empty password", email: "a@example.com", password: ""},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			res, err := env.svc.Register(context.Background(), tt.email, tt.password)
			assert.Nil(t, res)
			assert.ErrorIs(t, err, ErrValidation)
		})
	}
}

func TestRegister_IssuesSessionAndNormalizesEmail(t *testing.T) {
	t.Parallel()
	env := newTestEnv(t)
	ctx := context.Background()

	res, err := env.svc.Register(ctx, "  Alice@Example.COM ", "Secret123")
	require.NoError(t, err)
	assert.Equal(t, "alice@example.com", res.User.Email)
	assert.Equal(t, "user", res.User.Role)
	assert.True(t, res.User.IsActive)
	assert.NotEqual(t, "Secret123", res.User.PasswordHash)

	access, err := env.codec.Decode(res.AccessToken)
	require.NoError(t, err)
	assert.Equal(t, res.User.ID.String(), access.Subject)
	require.NotNil(t, access.TokenVersion)
	assert.Equal(t, 0, *access.TokenVersion)
	assert.Equal(t, 15*time.Minute, access.ExpiresAt.Sub(access.IssuedAt.Time))

	refresh, err := env.codec.Decode(res.RefreshToken)
	require.NoError(t, err)
	_, err = env.repo.FindActiveRefresh(ctx, refresh.ID)
	assert.NoError(t, err)

	env.svc.Wait()
	assert.Equal(t, []string{"user_registered"}, env.events.types())
	assert.Equal(t, TopicUserEvents, env.events.events[0].topic)
	assert.Equal(t, 1, env.rec.seen["register/success"])
}

func TestRegister_DuplicateEmail(t *testing.T) {
	t.Parallel()
	env := newTestEnv(t)
	ctx := context.Background()

	_, err := env.svc.Register(ctx, "bob@example.com", "Secret123")
	require.NoError(t, err)

	_, err = env.svc.Register(ctx, "BOB@example.com ", "Other123")
	assert.ErrorIs(t, err, ErrDuplicateEmail)
	assert.Equal(t, 1, env.rec.seen["register/duplicate"])
}

type racingUsers struct {
	UserStore
}

func (racingUsers) FindUserByEmail(context.Context, string) (*models.User, error) {
	return nil, repo.ErrUserNotFound
}

func TestRegister_ConcurrentUniqueViolation(t *testing.T) {
	t.Parallel()
	env := newTestEnv(t)
	ctx := context.Background()

	_, err := env.svc.Register(ctx, "race@example.com", "Secret123")
	require.NoError(t, err)

	env.svc.Users = racingUsers{UserStore: env.repo}
	_, err = env.svc.Register(ctx, "race@example.com", "Secret123")
	assert.ErrorIs(t, err, ErrDuplicateEmail)
}

func TestLogin(t *testing.T) {
	t.Parallel()
	env := newTestEnv(t)
	ctx := context.Background()

	_, err := env.svc.Register(ctx, "carol@example.com", "Secret123")
	require.NoError(t, err)

	res, err := env.svc.Login(ctx, "Carol@example.com", "Secret123")
	require.NoError(t, err)
	assert.NotEmpty(t, res.AccessToken)
	assert.NotEmpty(t, res.RefreshToken)

	_, err = env.svc.Login(ctx, "carol@example.com", "wrong")
	assert.ErrorIs(t, err, ErrInvalidCredentials)

	_, err = env.svc.Login(ctx, "nobody@example.com", "Secret123")
	assert.ErrorIs(t, err, ErrInvalidCredentials)

	_, err = env.svc.Login(ctx, "", "Secret123")
	assert.ErrorIs(t, err, ErrValidation)

	env.svc.Wait()
	assert.ElementsMatch(t, []string{"user_registered", "user_logged_in"}, env.events.types())
	assert.Equal(t, 2, env.rec.seen["login/invalid_credentials"])
}

func TestLogin_AccessCarriesCurrentTokenVersion(t *testing.T) {
	t.Parallel()
	env := newTestEnv(t)
	ctx := context.Background()

	reg, err := env.svc.Register(ctx, "dave@example.com", "Secret123")
	require.NoError(t, err)
	require.NoError(t, env.svc.Logout(ctx, reg.User))
	require.NoError(t, env.svc.Logout(ctx, reg.User))

	res, err := env.svc.Login(ctx, "dave@example.com", "Secret123")
	require.NoError(t, err)

	claims, err := env.codec.Decode(res.AccessToken)
	require.NoError(t, err)
	require.NotNil(t, claims.TokenVersion)
	assert.Equal(t, 2, *claims.TokenVersion)
}

func TestRefresh(t *testing.T) {
	t.Parallel()
	env := newTestEnv(t)
	ctx := context.Background()

	reg, err := env.svc.Register(ctx, "erin@example.com", "Secret123")
	require.NoError(t, err)

	access, err := env.svc.Refresh(ctx, reg.RefreshToken)
	require.NoError(t, err)
	claims, err := env.codec.Decode(access)
	require.NoError(t, err)
	assert.Equal(t, reg.User.ID.String(), claims.Subject)
	assert.Equal(t, "user", claims.Role)

	// not rotated: the same refresh token keeps working
	_, err = env.svc.Refresh(ctx, reg.RefreshToken)
	require.NoError(t, err)
}

func TestRefresh_Classification(t *testing.T) {
	t.Parallel()
	env := newTestEnv(t)
	ctx := context.Background()

	reg, err := env.svc.Register(ctx, "frank@example.com", "Secret123")
	require.NoError(t, err)

	unknown, _, err := env.codec.IssueRefresh(reg.User.ID.String())
	require.NoError(t, err)

	otherCodec, err := tokens.NewCodec(tokens.Config{Secret: []byte("other"), AccessTTL: time.Minute, RefreshTTL: time.Hour})
	require.NoError(t, err)
	foreign, _, err := otherCodec.IssueRefresh(reg.User.ID.String())
	require.NoError(t, err)

	badSub, _, err := env.codec.IssueRefresh("not-a-uuid")
	require.NoError(t, err)

	tests := []struct {
		name  string
		token string
		want  error
	}{
		{name: "missing", token: "", want: ErrMissingCredential},
		{name: "garbage", token: "abc.def.ghi", want: ErrInvalidCredential},
		{name: "foreign signature", token: foreign, want: ErrInvalidCredential},
		{name: "access token", token: reg.AccessToken, want: ErrInvalidCredential},
		{name: "bad subject", token: badSub, want: ErrInvalidCredential},
		{name: "unknown jti", token: unknown, want: ErrRevokedOrUnknown},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := env.svc.Refresh(ctx, tt.token)
			assert.ErrorIs(t, err, tt.want)
		})
	}
}

func TestRefresh_InactiveUser(t *testing.T) {
	t.Parallel()
	env := newTestEnv(t)
	ctx := context.Background()

	reg, err := env.svc.Register(ctx, "gina@example.com", "Secret123")
	require.NoError(t, err)
	require.NoError(t, env.repo.DB.Model(&models.User{}).Where("id = ?", reg.User.ID).Update("is_active", false).Error)

	_, err = env.svc.Refresh(ctx, reg.RefreshToken)
	assert.ErrorIs(t, err, ErrInactiveUser)
}

func TestRefresh_ExpiredToken(t *testing.T) {
	t.Parallel()
	env := newTestEnv(t)
	ctx := context.Background()

	reg, err := env.svc.Register(ctx, "hank@example.com", "Secret123")
	require.NoError(t, err)

	env.svc.Tokens = env.codec.WithClock(func() time.Time { return time.Now().Add(8 * 24 * time.Hour) })
	_, err = env.svc.Refresh(ctx, reg.RefreshToken)
	assert.ErrorIs(t, err, ErrInvalidCredential)
}

func TestLogout_RevokesEverything(t *testing.T) {
	t.Parallel()
	env := newTestEnv(t)
	ctx := context.Background()

	reg, err := env.svc.Register(ctx, "ivy@example.com", "Secret123")
	require.NoError(t, err)
	second, err := env.svc.Login(ctx, "ivy@example.com", "Secret123")
	require.NoError(t, err)

	require.NoError(t, env.svc.Logout(ctx, reg.User))

	for _, tok := range []string{reg.RefreshToken, second.RefreshToken} {
		_, err = env.svc.Refresh(ctx, tok)
		assert.ErrorIs(t, err, ErrRevokedOrUnknown)
	}

	u, err := env.repo.GetUserByID(ctx, reg.User.ID)
	require.NoError(t, err)
	assert.Equal(t, 1, u.TokenVersion)
	env.svc.Wait()
	assert.Contains(t, env.events.types(), "user_logged_out")
}

type failingSessions struct {
	SessionStore
}

var errStore = errors.New("store down")

func (failingSessions) CreateRefresh(context.Context, uuid.UUID, string) error { return errStore }
func (failingSessions) FindActiveRefresh(context.Context, string) (*models.RefreshToken, error) {
	return nil, errStore
}
func (failingSessions) LogoutUser(context.Context, uuid.UUID) error { return errStore }

func TestStoreFailuresPropagate(t *testing.T) {
	t.Parallel()
	env := newTestEnv(t)
	ctx := context.Background()

	reg, err := env.svc.Register(ctx, "jack@example.com", "Secret123")
	require.NoError(t, err)

	env.svc.Sessions = failingSessions{}

	_, err = env.svc.Login(ctx, "jack@example.com", "Secret123")
	assert.ErrorIs(t, err, errStore)

	_, err = env.svc.Refresh(ctx, reg.RefreshToken)
	assert.ErrorIs(t, err, errStore)

	assert.ErrorIs(t, env.svc.Logout(ctx, reg.User), errStore)
}

func TestPublishFailureDoesNotFailLogin(t *testing.T) {
	t.Parallel()
	env := newTestEnv(t)
	env.events.err = errors.New("broker unavailable")
	env.svc.Metrics = nil

	_, err := env.svc.Register(context.Background(), "kate@example.com", "Secret123")
	assert.NoError(t, err)
	env.svc.Wait()
	assert.Equal(t, []string{"user_registered"}, env.events.types())
}

type blockingPublisher struct {
	release chan struct{}
}

func (b blockingPublisher) PublishEvent(ctx context.Context, _, _ string, _ any) error {
	select {
	case <-b.release:
		return nil
	case <-ctx.Done():
		return ctx.Err()
	}
}

func TestSlowBrokerDoesNotDelayAuth(t *testing.T) {
	t.Parallel()
	env := newTestEnv(t)
	release := make(chan struct{})
	env.svc.Events = blockingPublisher{release: release}

	start := time.Now()
	_, err := env.svc.Register(context.Background(), "slow@example.com", "Secret123")
	require.NoError(t, err)
	_, err = env.svc.Login(context.Background(), "slow@example.com", "Secret123")
	require.NoError(t, err)
	assert.Less(t, time.Since(start), 2*time.Second)

	close(release)
	env.svc.Wait()
}

func TestRegister_LongPasswordRoundTrip(t *testing.T) {
	t.Parallel()
	env := newTestEnv(t)
	ctx := context.Background()

	long := strings.Repeat("p", 80)
	_, err := env.svc.Register(ctx, "long@example.com", long)
	require.NoError(t, err)

	res, err := env.svc.Login(ctx, "long@example.com", long)
	require.NoError(t, err)
	assert.NotEmpty(t, res.AccessToken)

	p72 := strings.Repeat("q", 72)
	_, err = env.svc.Register(ctx, "prefix@example.com", p72)
	require.NoError(t, err)
	_, err = env.svc.Login(ctx, "prefix@example.com", p72+"x")
	assert.ErrorIs(t, err, ErrInvalidCredentials)
}

// fixedJTICodec hands out a refresh jti that may already be taken.
type fixedJTICodec struct {
	*tokens.Codec
	jti string
}

func (f fixedJTICodec) IssueRefresh(string) (string, string, error) {
	return "refresh", f.jti, nil
}

func TestRegister_FailedSessionLeavesNoUser(t *testing.T) {
	t.Parallel()
	env := newTestEnv(t)
	ctx := context.Background()

	first, err := env.svc.Register(ctx, "first@example.com", "Secret123")
	require.NoError(t, err)
	claims, err := env.codec.Decode(first.RefreshToken)
	require.NoError(t, err)

	env.svc.Tokens = fixedJTICodec{Codec: env.codec, jti: claims.ID}
	_, err = env.svc.Register(ctx, "second@example.com", "Secret123")
	require.Error(t, err)
	assert.NotErrorIs(t, err, ErrDuplicateEmail)

	_, err = env.repo.FindUserByEmail(ctx, "second@example.com")
	assert.ErrorIs(t, err, repo.ErrUserNotFound)

	env.svc.Tokens = env.codec
	_, err = env.svc.Register(ctx, "second@example.com", "Secret123")
	assert.NoError(t, err)
	env.svc.Wait()
}

func TestRefresh_PayloadWithoutJTI(t *testing.T) {
	t.Parallel()
	env := newTestEnv(t)

	raw, err := jwt.NewWithClaims(jwt.SigningMethodHS256, jwt.MapClaims{
		"sub": uuid.NewString(),
		"iat": time.Now().Unix(),
		"exp": time.Now().Add(time.Hour).Unix(),
	}).SignedString([]byte("test-jwt-secret"))
	require.NoError(t, err)

	_, err = env.svc.Refresh(context.Background(), raw)
	assert.ErrorIs(t, err, ErrInvalidCredential)
}
