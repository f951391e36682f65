package main

import (
	"encoding/json"
	"fmt"
	"os"
	"strings"
	"time"

	"github.com/dropDatabas3/identitystore/internal/domain/repository"
)

type loginView struct {
	Provider    string `json:"provider"`
	Key         string `json:"key"`
	DisplayName string `json:"displayName,omitempty"`
}

type userView struct {
	ID                 string      `json:"id"`
	UserName           string      `json:"userName"`
	NormalizedUserName string      `json:"normalizedUserName,omitempty"`
	Email              string      `json:"email,omitempty"`
	EmailConfirmed     bool        `json:"emailConfirmed"`
	PhoneNumber        string      `json:"phoneNumber,omitempty"`
	PhoneConfirmed     bool        `json:"phoneNumberConfirmed"`
	HasPassword        bool        `json:"hasPassword"`
	TwoFactorEnabled   bool        `json:"twoFactorEnabled"`
	LockoutEnabled     bool        `json:"lockoutEnabled"`
	LockoutEnd         *time.Time  `json:"lockoutEnd,omitempty"`
	AccessFailedCount  int         `json:"accessFailedCount"`
	Claims             []string    `json:"claims"`
	Logins             []loginView `json:"logins"`
}

func viewOf(u *repository.User) userView {
	v := userView{
		ID:                 u.IDHex(),
		UserName:           u.UserName,
		NormalizedUserName: u.NormalizedUserName,
		HasPassword:        u.PasswordHash != "",
		TwoFactorEnabled:   u.IsTwoFactorEnabled,
		LockoutEnabled:     u.IsLockoutEnabled,
		LockoutEnd:         u.LockoutEndDate,
		AccessFailedCount:  u.AccessFailedCount,
		Claims:             make([]string, 0, len(u.Claims)),
		Logins:             loginViews(u.Logins),
	}
	if u.Email != nil {
		v.Email = u.Email.Value
		v.EmailConfirmed = u.Email.IsConfirmed()
	}
	if u.PhoneNumber != nil {
		v.PhoneNumber = u.PhoneNumber.Value
		v.PhoneConfirmed = u.PhoneNumber.IsConfirmed()
	}
	for _, cl := range u.Claims {
		v.Claims = append(v.Claims, cl.String())
	}
	return v
}

func loginViews(logins []repository.Login) []loginView {
	out := make([]loginView, 0, len(logins))
	for _, l := range logins {
		out = append(out, loginView{Provider: l.LoginProvider, Key: l.ProviderKey, DisplayName: l.DisplayName})
	}
	return out
}

func (c *cli) printf(format string, args ...any) {
	if c.out == "json" {
		return
	}
	fmt.Printf(format, args...)
}

// print muestra v como JSON indentado (--out json) o en texto plano.
func (c *cli) print(v any) {
	if c.out == "json" {
		enc := json.NewEncoder(os.Stdout)
		enc.SetIndent("", "  ")
		_ = enc.Encode(v)
		return
	}
	switch t := v.(type) {
	case userView:
		printUserText(t)
	case []loginView:
		for _, l := range t {
			fmt.Printf("%s\t%s\t%s\n", l.Provider, l.Key, l.DisplayName)
		}
	case importSummary:
		fmt.Printf("created=%d skipped=%d failed=%d elapsed=%s\n", t.Created, t.Skipped, t.Failed, t.Elapsed)
		for _, e := range t.Errors {
			fmt.Println("  -", e)
		}
	default:
		fmt.Printf("%+v\n", v)
	}
}

func printUserText(v userView) {
	fmt.Printf("id:                 %s\n", v.ID)
	fmt.Printf("userName:           %s\n", v.UserName)
	fmt.Printf("normalizedUserName: %s\n", v.NormalizedUserName)
	if v.Email != "" {
		fmt.Printf("email:              %s (confirmed=%t)\n", v.Email, v.EmailConfirmed)
	}
	if v.PhoneNumber != "" {
		fmt.Printf("phoneNumber:        %s (confirmed=%t)\n", v.PhoneNumber, v.PhoneConfirmed)
	}
	fmt.Printf("hasPassword:        %t\n", v.HasPassword)
	fmt.Printf("twoFactorEnabled:   %t\n", v.TwoFactorEnabled)
	fmt.Printf("lockoutEnabled:     %t\n", v.LockoutEnabled)
	if v.LockoutEnd != nil {
		fmt.Printf("lockoutEnd:         %s\n", v.LockoutEnd.Format(time.RFC3339))
	}
	fmt.Printf("accessFailedCount:  %d\n", v.AccessFailedCount)
	if len(v.Claims) > 0 {
		fmt.Printf("claims:             %s\n", strings.Join(v.Claims, ", "))
	}
	for _, l := range v.Logins {
		fmt.Printf("login:              %s/%s %s\n", l.Provider, l.Key, l.DisplayName)
	}
}
