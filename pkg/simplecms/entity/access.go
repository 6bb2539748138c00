package entity

import (
	"log/slog"
	"slices"
)

// Entity operations checked by access control handlers.
const (
	OpView   = "view"
	OpCreate = "create"
	OpUpdate = "update"
	OpDelete = "delete"
)

// Entity is the minimal view of an entity instance access checks need.
type Entity interface {
	EntityTypeID() string
	ID() string
	Bundle() string
}

// Locker is implemented by entities that can be locked against changes.
type Locker interface {
	IsLocked() bool
}

// Account is the acting user of an access check.
type Account interface {
	ID() string
	IsAuthenticated() bool
	HasPermission(permission string) bool
}

// AccessControlHandler decides whether an account may perform an operation
// on an entity.
type AccessControlHandler interface {
	Access(e Entity, operation, langcode string, account Account) bool
}

// AccessFunc adapts a function to AccessControlHandler.
type AccessFunc func(e Entity, operation, langcode string, account Account) bool

func (f AccessFunc) Access(e Entity, operation, langcode string, account Account) bool {
	return f(e, operation, langcode, account)
}

// DefaultAccessHandler is the generic access algorithm: an account holding
// the entity type's admin permission is allowed everything, everyone else
// is denied.
type DefaultAccessHandler struct {
	entityType *EntityType
	logger     *slog.Logger
}

// NewDefaultAccessHandler returns the generic handler for an entity type.
func NewDefaultAccessHandler(entityType *EntityType) *DefaultAccessHandler {
	return &DefaultAccessHandler{entityType: entityType, logger: slog.Default()}
}

// Access implements AccessControlHandler.
func (h *DefaultAccessHandler) Access(e Entity, operation, langcode string, account Account) bool {
	if account == nil {
		return false
	}
	if h.entityType.AdminPermission != "" && account.HasPermission(h.entityType.AdminPermission) {
		return true
	}
	h.logger.Debug("Entity access denied",
		"entity_type", h.entityType.ID,
		"entity_id", e.ID(),
		"operation", operation,
		"account", account.ID())
	return false
}

// StaticAccount is an Account with a fixed permission list.
type StaticAccount struct {
	UID         string
	Permissions []string
}

// AnonymousAccount returns an unauthenticated account without permissions.
func AnonymousAccount() *StaticAccount {
	return &StaticAccount{UID: "0"}
}

func (a *StaticAccount) ID() string { return a.UID }

func (a *StaticAccount) IsAuthenticated() bool {
	return a.UID != "" && a.UID != "0"
}

func (a *StaticAccount) HasPermission(permission string) bool {
	return slices.Contains(a.Permissions, permission)
}
