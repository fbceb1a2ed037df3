package middleware

import (
	"context"
	"net/http"

	"github.com/google/uuid"
	"github.com/nordclean/fieldjobs/pkg/models"
)

type contextKey string

const (
	orgIDKey     contextKey = "organization_id"
	keyPrefixKey contextKey = "key_prefix"
	roleKey      contextKey = "api_role"
)

func SetOrganizationID(ctx context.Context, id uuid.UUID) context.Context {
	return context.WithValue(ctx, orgIDKey, id)
}

func GetOrganizationID(r *http.Request) (uuid.UUID, bool) {
	id, ok := r.Context().Value(orgIDKey).(uuid.UUID)
	return id, ok
}

func setKeyPrefix(ctx context.Context, prefix string) context.Context {
	return context.WithValue(ctx, keyPrefixKey, prefix)
}

func getKeyPrefix(r *http.Request) (string, bool) {
	prefix, ok := r.Context().Value(keyPrefixKey).(string)
	return prefix, ok
}

func SetRole(ctx context.Context, role models.APIRole) context.Context {
	return context.WithValue(ctx, roleKey, role)
}

func getRole(r *http.Request) (models.APIRole, bool) {
	role, ok := r.Context().Value(roleKey).(models.APIRole)
	return role, ok
}
