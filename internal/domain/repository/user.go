package repository

import (
	"context"
	"time"

	"go.mongodb.org/mongo-driver/v2/bson"
)

// User es el documento persistido de un usuario.
// El ID lo asigna el store en Create; los demás campos se mutan vía las
// operaciones del store (o Update con un snapshot completo).
type User struct {
	ID                 bson.ObjectID `bson:"_id,omitempty"`
	UserName           string        `bson:"userName"`
	NormalizedUserName string        `bson:"normalizedUserName,omitempty"`
	Email              *Email        `bson:"email,omitempty"`
	PhoneNumber        *PhoneNumber  `bson:"phoneNumber,omitempty"`
	PasswordHash       string        `bson:"passwordHash,omitempty"`
	SecurityStamp      string        `bson:"securityStamp,omitempty"`
	IsLockoutEnabled   bool          `bson:"isLockoutEnabled"`
	IsTwoFactorEnabled bool          `bson:"isTwoFactorEnabled"`
	AccessFailedCount  int           `bson:"accessFailedCount"`
	LockoutEndDate     *time.Time    `bson:"lockoutEndDate,omitempty"`
	Claims             []Claim       `bson:"claims"`
	Logins             []Login       `bson:"logins"`

	// LoginKeys es derivado de Logins y lo mantiene el store.
	LoginKeys []string `bson:"loginKeys"`
}

// NewUser crea un usuario con userName requerido.
func NewUser(userName string) (*User, error) {
	if userName == "" {
		return nil, InvalidArgument("userName")
	}
	return &User{
		UserName: userName,
		Claims:   []Claim{},
		Logins:   []Login{},
	}, nil
}

// NewUserWithEmail crea un usuario con userName y email requeridos.
func NewUserWithEmail(userName, email string) (*User, error) {
	u, err := NewUser(userName)
	if err != nil {
		return nil, err
	}
	e, err := NewEmail(email)
	if err != nil {
		return nil, err
	}
	u.Email = e
	return u, nil
}

// IDHex retorna el ID en hex, o "" si el usuario no fue persistido.
func (u *User) IDHex() string {
	if u.ID.IsZero() {
		return ""
	}
	return u.ID.Hex()
}

// ConfirmationRecord registra cuándo se confirmó un canal de contacto (UTC).
type ConfirmationRecord struct {
	ConfirmedOn time.Time `bson:"confirmedOn"`
}

// NewConfirmation crea una confirmación con el instante actual.
func NewConfirmation() *ConfirmationRecord {
	return NewConfirmationAt(time.Now())
}

// NewConfirmationAt crea una confirmación en el instante dado.
func NewConfirmationAt(t time.Time) *ConfirmationRecord {
	return &ConfirmationRecord{ConfirmedOn: t.UTC()}
}

// ContactRecord es la forma base de email y teléfono.
type ContactRecord struct {
	Value        string              `bson:"value"`
	Confirmation *ConfirmationRecord `bson:"confirmation,omitempty"`
}

// IsConfirmed indica si el contacto tiene confirmación.
func (c *ContactRecord) IsConfirmed() bool {
	return c != nil && c.Confirmation != nil
}

// ConfirmAt marca el contacto como confirmado en t.
func (c *ContactRecord) ConfirmAt(t time.Time) {
	c.Confirmation = NewConfirmationAt(t)
}

// Confirm marca el contacto como confirmado ahora.
func (c *ContactRecord) Confirm() {
	c.Confirmation = NewConfirmation()
}

// Email es el contacto de correo; su Value es único entre usuarios.
type Email struct {
	ContactRecord `bson:",inline"`
}

// NewEmail crea un Email sin confirmar.
func NewEmail(value string) (*Email, error) {
	if value == "" {
		return nil, InvalidArgument("email")
	}
	return &Email{ContactRecord{Value: value}}, nil
}

// PhoneNumber es el contacto telefónico; sin restricción de unicidad.
type PhoneNumber struct {
	ContactRecord `bson:",inline"`
}

// NewPhoneNumber crea un PhoneNumber sin confirmar.
func NewPhoneNumber(value string) (*PhoneNumber, error) {
	if value == "" {
		return nil, InvalidArgument("phoneNumber")
	}
	return &PhoneNumber{ContactRecord{Value: value}}, nil
}

// Claim es un par (type, value) asociado al usuario.
type Claim struct {
	Type  string `bson:"type"`
	Value string `bson:"value"`
}

func (c Claim) String() string {
	return c.Type + "=" + c.Value
}

// UserStore define el CRUD básico de usuarios.
// Todas las operaciones fallan con ErrCancelled si ctx ya está cancelado.
type UserStore interface {
	// GetUserID retorna el ID (hex) del usuario.
	GetUserID(ctx context.Context, u *User) (string, error)

	GetUserName(ctx context.Context, u *User) (string, error)

	// SetUserName actualiza sólo el campo userName; la copia en memoria se
	// modifica después de que el backend confirma.
	SetUserName(ctx context.Context, u *User, name string) error

	GetNormalizedUserName(ctx context.Context, u *User) (string, error)

	// SetNormalizedUserName actualiza sólo normalizedUserName ("" lo elimina).
	// Retorna ErrUniqueViolation si otro usuario ya lo tiene.
	SetNormalizedUserName(ctx context.Context, u *User, name string) error

	// Create inserta un usuario nuevo y le asigna ID.
	// Retorna ErrUniqueViolation si normalizedUserName o email colisionan.
	Create(ctx context.Context, u *User) error

	// Update reemplaza el documento completo (upsert por ID).
	Update(ctx context.Context, u *User) error

	// Delete elimina el documento por ID. No falla si no existe.
	Delete(ctx context.Context, u *User) error

	// FindByID retorna ErrNotFound si no existe.
	FindByID(ctx context.Context, id string) (*User, error)

	// FindByName busca por normalizedUserName. Retorna ErrNotFound si no existe.
	FindByName(ctx context.Context, normalizedUserName string) (*User, error)
}

// UserEmailStore gestiona el email del usuario.
type UserEmailStore interface {
	GetEmail(ctx context.Context, u *User) (string, error)

	// SetEmail reemplaza el email y descarta la confirmación previa.
	// "" elimina el email.
	SetEmail(ctx context.Context, u *User, email string) error

	IsEmailConfirmed(ctx context.Context, u *User) (bool, error)
	SetEmailConfirmed(ctx context.Context, u *User, confirmed bool) error

	// FindByEmail retorna ErrNotFound si no existe.
	FindByEmail(ctx context.Context, email string) (*User, error)
}

// UserClaimStore gestiona los claims del usuario.
type UserClaimStore interface {
	GetClaims(ctx context.Context, u *User) ([]Claim, error)
	AddClaims(ctx context.Context, u *User, claims ...Claim) error
	RemoveClaim(ctx context.Context, u *User, claim Claim) error
}

// UserSecurityStore agrupa credenciales, lockout, 2FA y teléfono.
type UserSecurityStore interface {
	GetPasswordHash(ctx context.Context, u *User) (string, error)
	SetPasswordHash(ctx context.Context, u *User, hash string) error
	HasPassword(ctx context.Context, u *User) (bool, error)

	GetSecurityStamp(ctx context.Context, u *User) (string, error)
	SetSecurityStamp(ctx context.Context, u *User, stamp string) error

	SetPhoneNumber(ctx context.Context, u *User, phone string) error
	SetPhoneNumberConfirmed(ctx context.Context, u *User, confirmed bool) error

	SetTwoFactorEnabled(ctx context.Context, u *User, enabled bool) error
	SetLockoutEnabled(ctx context.Context, u *User, enabled bool) error
	SetLockoutEndDate(ctx context.Context, u *User, end *time.Time) error

	// IncrementAccessFailedCount incrementa atómicamente y retorna el nuevo valor.
	IncrementAccessFailedCount(ctx context.Context, u *User) (int, error)
	ResetAccessFailedCount(ctx context.Context, u *User) error
}
