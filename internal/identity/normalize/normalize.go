// Package normalize produce las formas canónicas que el user store indexa.
//
// El store no normaliza por su cuenta: el caller calcula NormalizedUserName
// (y el email que guarda) con estas funciones antes de Create/Update.
package normalize

import (
	"strings"

	"golang.org/x/text/cases"
	"golang.org/x/text/unicode/norm"
)

var folder = cases.Fold()

// UserName aplica NFKC, case folding y recorta espacios.
func UserName(s string) string {
	s = strings.TrimSpace(norm.NFKC.String(s))
	if s == "" {
		return ""
	}
	return folder.String(s)
}

// Email normaliza un email: NFKC, dominio en minúsculas, local-part plegado.
// No valida el formato; un valor sin '@' se trata como UserName.
func Email(s string) string {
	s = strings.TrimSpace(norm.NFKC.String(s))
	at := strings.LastIndexByte(s, '@')
	if at <= 0 || at == len(s)-1 {
		return UserName(s)
	}
	local, domain := s[:at], s[at+1:]
	return folder.String(local) + "@" + strings.ToLower(domain)
}

// Equal compara dos usernames por su forma canónica.
func Equal(a, b string) bool {
	return UserName(a) == UserName(b)
}
