package service

import (
	"context"

	"github.com/cgsmith/user-service/internal/domain"
)

// UserHook observes a user lifecycle event. Hooks run synchronously after
// the triggering operation commits and must not fail it.
type UserHook func(ctx context.Context, user *domain.User)

// Hooks is a registry of lifecycle observers
type Hooks struct {
	registered []UserHook
	confirmed  []UserHook
	blocked    []UserHook
	unblocked  []UserHook
	deleted    []UserHook
}

// NewHooks creates an empty hook registry
func NewHooks() *Hooks {
	return &Hooks{}
}

func (h *Hooks) OnRegistered(hook UserHook) { h.registered = append(h.registered, hook) }
func (h *Hooks) OnConfirmed(hook UserHook)  { h.confirmed = append(h.confirmed, hook) }
func (h *Hooks) OnBlocked(hook UserHook)    { h.blocked = append(h.blocked, hook) }
func (h *Hooks) OnUnblocked(hook UserHook)  { h.unblocked = append(h.unblocked, hook) }
func (h *Hooks) OnDeleted(hook UserHook)    { h.deleted = append(h.deleted, hook) }

func (h *Hooks) notifyRegistered(ctx context.Context, user *domain.User) { notify(ctx, h.registered, user) }
func (h *Hooks) notifyConfirmed(ctx context.Context, user *domain.User)  { notify(ctx, h.confirmed, user) }
func (h *Hooks) notifyBlocked(ctx context.Context, user *domain.User)    { notify(ctx, h.blocked, user) }
func (h *Hooks) notifyUnblocked(ctx context.Context, user *domain.User)  { notify(ctx, h.unblocked, user) }
func (h *Hooks) notifyDeleted(ctx context.Context, user *domain.User)    { notify(ctx, h.deleted, user) }

func notify(ctx context.Context, hooks []UserHook, user *domain.User) {
	for _, hook := range hooks {
		hook(ctx, user)
	}
}
