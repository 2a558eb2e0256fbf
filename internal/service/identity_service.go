package service

import (
	"context"
	"fmt"
	"sync"

	"github.com/golang-jwt/jwt/v5"
	"github.com/google/uuid"

	"ai-chat-client/internal/cache"
	"ai-chat-client/internal/constant"
	"ai-chat-client/internal/model"
	"ai-chat-client/internal/pkg/epoch"
	"ai-chat-client/internal/pkg/logger"
	"ai-chat-client/internal/repository/contract"
	"ai-chat-client/internal/store"
)

// resettable is anything holding per-identity transient state.
type resettable interface {
	Reset()
}

type IIdentityService interface {
	Current() *model.Identity
	Apply(ctx context.Context, identity model.Identity)
	Logout(ctx context.Context)
	UserIdFromToken(token string) (uuid.UUID, error)
	RememberSession(ctx context.Context, sessionId uuid.UUID)
	LastSession(ctx context.Context) (uuid.UUID, bool)
}

// identityService owns the authenticated identity and wipes every stateful
// component when it changes, so no data from one user can ever be shown to
// another.
type identityService struct {
	mu      sync.Mutex
	current *model.Identity

	epochs      *epoch.Counter
	store       *store.ChannelStore
	cache       *cache.MessageCache
	resettables []resettable
	kv          contract.IKeyValueRepository
	logger      logger.ILogger
}

func NewIdentityService(
	epochs *epoch.Counter,
	channelStore *store.ChannelStore,
	messageCache *cache.MessageCache,
	kv contract.IKeyValueRepository,
	log logger.ILogger,
	resettables ...resettable,
) IIdentityService {
	return &identityService{
		epochs:      epochs,
		store:       channelStore,
		cache:       messageCache,
		kv:          kv,
		logger:      log,
		resettables: resettables,
	}
}

func (s *identityService) Current() *model.Identity {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.current == nil {
		return nil
	}
	identity := *s.current
	return &identity
}

// Apply installs the identity confirmed by the backend. A different user
// than before wipes store, cache, guard and coordinator synchronously before
// anything of the new user is applied. Re-authentication of the same user
// (reconnect, or the first login after a restart matching the persisted
// identity) keeps state, so the remembered selection survives.
func (s *identityService) Apply(ctx context.Context, identity model.Identity) {
	s.mu.Lock()
	defer s.mu.Unlock()

	if !s.sameIdentityLocked(ctx, identity.UserId) {
		s.resetLocked(ctx)
	}
	s.current = &identity

	if err := s.kv.Set(ctx, constant.KVLastUserIdKey, identity.UserId.String()); err != nil {
		s.logger.Warn("IdentityService", "Failed to persist identity", map[string]interface{}{
			"error": err.Error(),
		})
	}
	s.logger.Info("IdentityService", "Identity applied", map[string]interface{}{
		"user_id": identity.UserId,
	})
}

// sameIdentityLocked reports whether userId is the identity already in
// effect. Before any in-process login that is the persisted one: a restart
// has no in-memory identity yet, and comparing against nil would wipe the
// persisted selection on every first login.
func (s *identityService) sameIdentityLocked(ctx context.Context, userId uuid.UUID) bool {
	if s.current != nil {
		return s.current.UserId == userId
	}
	value, found, err := s.kv.Get(ctx, constant.KVLastUserIdKey)
	if err != nil || !found {
		return false
	}
	return value == userId.String()
}

func (s *identityService) Logout(ctx context.Context) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.current = nil
	s.resetLocked(ctx)
	s.logger.Info("IdentityService", "Logged out", nil)
}

// resetLocked bumps the epoch FIRST so any response still in flight fails
// its epoch check, then clears everything.
func (s *identityService) resetLocked(ctx context.Context) {
	s.epochs.Bump()
	s.store.Dispatch(store.Reset{})
	s.cache.Flush()
	for _, r := range s.resettables {
		r.Reset()
	}
	if err := s.kv.Clear(ctx); err != nil {
		s.logger.Warn("IdentityService", "Failed to clear persisted state", map[string]interface{}{
			"error": err.Error(),
		})
	}
}

// UserIdFromToken extracts the subject claim from the client-held token.
// The signature is the backend's to verify; the client only needs to know
// which user to present to authenticate.
func (s *identityService) UserIdFromToken(token string) (uuid.UUID, error) {
	claims := jwt.MapClaims{}
	if _, _, err := jwt.NewParser().ParseUnverified(token, claims); err != nil {
		return uuid.Nil, fmt.Errorf("failed to parse auth token: %w", err)
	}
	subject, err := claims.GetSubject()
	if err != nil || subject == "" {
		return uuid.Nil, fmt.Errorf("auth token has no subject claim")
	}
	userId, err := uuid.Parse(subject)
	if err != nil {
		return uuid.Nil, fmt.Errorf("auth token subject is not a user id: %w", err)
	}
	return userId, nil
}

func (s *identityService) RememberSession(ctx context.Context, sessionId uuid.UUID) {
	if err := s.kv.Set(ctx, constant.KVLastSessionIdKey, sessionId.String()); err != nil {
		s.logger.Warn("IdentityService", "Failed to persist last session", map[string]interface{}{
			"error": err.Error(),
		})
	}
}

func (s *identityService) LastSession(ctx context.Context) (uuid.UUID, bool) {
	value, found, err := s.kv.Get(ctx, constant.KVLastSessionIdKey)
	if err != nil || !found {
		return uuid.Nil, false
	}
	sessionId, err := uuid.Parse(value)
	if err != nil {
		return uuid.Nil, false
	}
	return sessionId, true
}
