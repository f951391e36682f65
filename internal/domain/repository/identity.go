package repository

import (
	"context"
	"strconv"
)

// Login es una identidad externa embebida en el usuario.
// El par (LoginProvider, ProviderKey) es único entre todos los usuarios.
type Login struct {
	LoginProvider string `bson:"loginProvider"`
	ProviderKey   string `bson:"providerKey"`
	DisplayName   string `bson:"displayName,omitempty"`
}

// LoginInfo es lo que el caller entrega/recibe al gestionar logins.
type LoginInfo struct {
	LoginProvider string
	ProviderKey   string
	DisplayName   string
}

// NewLogin valida y convierte un LoginInfo.
func NewLogin(info LoginInfo) (Login, error) {
	if info.LoginProvider == "" {
		return Login{}, InvalidArgument("loginProvider")
	}
	if info.ProviderKey == "" {
		return Login{}, InvalidArgument("providerKey")
	}
	return Login{
		LoginProvider: info.LoginProvider,
		ProviderKey:   info.ProviderKey,
		DisplayName:   info.DisplayName,
	}, nil
}

// Info convierte el login al formato del caller.
func (l Login) Info() LoginInfo {
	return LoginInfo{
		LoginProvider: l.LoginProvider,
		ProviderKey:   l.ProviderKey,
		DisplayName:   l.DisplayName,
	}
}

// Matches compara sólo el par provider+key.
func (l Login) Matches(provider, key string) bool {
	return l.LoginProvider == provider && l.ProviderKey == key
}

// Key codifica el par provider+key sin ambigüedad (prefijo con el largo del provider).
func (l Login) Key() string {
	return LoginKey(l.LoginProvider, l.ProviderKey)
}

// LoginKey codifica un par provider+key.
func LoginKey(provider, key string) string {
	return strconv.Itoa(len(provider)) + ":" + provider + ":" + key
}

// LoginKeys deriva las claves de una lista de logins.
func LoginKeys(logins []Login) []string {
	keys := make([]string, 0, len(logins))
	for _, l := range logins {
		keys = append(keys, l.Key())
	}
	return keys
}

// UserLoginStore gestiona los logins externos de un usuario.
// Separado de UserStore para que un backend pueda no soportarlo.
type UserLoginStore interface {
	// AddLogin agrega el par al usuario. Retorna ErrUniqueViolation si el par
	// ya está asociado a cualquier usuario.
	AddLogin(ctx context.Context, u *User, info LoginInfo) error

	// RemoveLogin quita el par; no-op si no existe.
	RemoveLogin(ctx context.Context, u *User, provider, key string) error

	GetLogins(ctx context.Context, u *User) ([]LoginInfo, error)

	// FindByLogin retorna ErrNotFound si ningún usuario tiene el par.
	FindByLogin(ctx context.Context, provider, key string) (*User, error)
}
