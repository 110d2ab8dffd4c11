// Package vk registers circuit verification keys with the relay and
// caches the relay-assigned identifiers per role.
package vk

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"

	"go.uber.org/zap"

	"github.com/roach88/zkclaim/internal/metrics"
	"github.com/roach88/zkclaim/internal/relay"
)

// Cache is the persistent role → vk id mapping.
type Cache interface {
	GetVK(ctx context.Context, role string) (vkID string, found bool, err error)
	PutVK(ctx context.Context, role, vkID string) error
}

// Relay is the subset of the relay client the registrar needs.
type Relay interface {
	RegisterVK(ctx context.Context, req relay.RegisterVKRequest) (*relay.RegisterVKResponse, error)
}

// RegistrationError reports that a role's key could not be registered or
// its id could not be cached. It is not retried.
type RegistrationError struct {
	Role  string
	Cause error
}

func (e *RegistrationError) Error() string {
	return fmt.Sprintf("register vk for %s: %v", e.Role, e.Cause)
}

func (e *RegistrationError) Unwrap() error {
	return e.Cause
}

// IsRegistrationError returns true if err is or wraps a RegistrationError.
func IsRegistrationError(err error) bool {
	var re *RegistrationError
	return errors.As(err, &re)
}

// Registrar returns a vk id per role, registering with the relay at most
// once while the cache holds the entry.
//
// Two concurrent first registrations for one role may both reach the
// relay. The cache keeps whichever write lands last; both ids are valid.
type Registrar struct {
	cache   Cache
	relay   Relay
	opts    relay.ProofOptions
	metrics *metrics.Metrics
	log     *zap.Logger
}

// NewRegistrar creates a Registrar. log and m may be nil.
func NewRegistrar(cache Cache, r Relay, opts relay.ProofOptions, m *metrics.Metrics, log *zap.Logger) *Registrar {
	if log == nil {
		log = zap.NewNop()
	}
	return &Registrar{
		cache:   cache,
		relay:   r,
		opts:    opts,
		metrics: m,
		log:     log,
	}
}

// Register returns the vk id for role, consulting the cache first.
// rawVK is the verification key document produced by the proving setup.
func (r *Registrar) Register(ctx context.Context, role string, rawVK json.RawMessage) (string, error) {
	return r.Resolve(ctx, role, func() (json.RawMessage, error) { return rawVK, nil })
}

// Resolve is Register with a lazily loaded key. load is only called on a
// cache miss, so a cached role needs no key document on disk.
func (r *Registrar) Resolve(ctx context.Context, role string, load func() (json.RawMessage, error)) (string, error) {
	if role == "" {
		return "", &RegistrationError{Role: role, Cause: errors.New("empty role")}
	}

	id, found, err := r.cache.GetVK(ctx, role)
	if err != nil {
		return "", &RegistrationError{Role: role, Cause: fmt.Errorf("read cache: %w", err)}
	}
	if found {
		r.metrics.VKRegistration(role, metrics.ResultCache)
		r.log.Debug("vk cache hit", zap.String("role", role), zap.String("vk", id))
		return id, nil
	}

	rawVK, err := load()
	if err != nil {
		r.metrics.VKRegistration(role, metrics.ResultError)
		return "", &RegistrationError{Role: role, Cause: fmt.Errorf("load vk: %w", err)}
	}
	if len(rawVK) == 0 {
		r.metrics.VKRegistration(role, metrics.ResultError)
		return "", &RegistrationError{Role: role, Cause: errors.New("empty verification key")}
	}

	resp, err := r.relay.RegisterVK(ctx, relay.RegisterVKRequest{
		ProofType:    relay.ProofTypeGroth16,
		ProofOptions: r.opts,
		VK:           rawVK,
	})
	if err != nil {
		r.metrics.VKRegistration(role, metrics.ResultError)
		return "", &RegistrationError{Role: role, Cause: err}
	}

	if err := r.cache.PutVK(ctx, role, resp.VKHash); err != nil {
		r.metrics.VKRegistration(role, metrics.ResultError)
		return "", &RegistrationError{Role: role, Cause: fmt.Errorf("write cache: %w", err)}
	}

	r.metrics.VKRegistration(role, metrics.ResultOK)
	r.log.Info("vk registered", zap.String("role", role), zap.String("vk", resp.VKHash))
	return resp.VKHash, nil
}
