package password

import (
	"crypto/rand"
	"crypto/subtle"
	"encoding/base64"
	"errors"
	"fmt"
	"strconv"
	"strings"

	"golang.org/x/crypto/argon2"
)

// ErrEmptyPassword se retorna al intentar hashear un password vacío.
var ErrEmptyPassword = errors.New("password: empty password")

// ErrMalformedHash indica que el valor guardado no es un PHC argon2id válido.
var ErrMalformedHash = errors.New("password: malformed argon2id hash")

type Params struct {
	Memory      uint32 // KiB
	Time        uint32
	Parallelism uint8
	KeyLen      uint32
	SaltLen     int
}

var Default = Params{Memory: 64 * 1024, Time: 3, Parallelism: 1, KeyLen: 32, SaltLen: 16}

// Hash devuelve un PHC string: $argon2id$v=19$m=...,t=...,p=...$<saltB64>$<dkB64>.
// El resultado es lo que el user store persiste en passwordHash.
func Hash(p Params, plain string) (string, error) {
	if plain == "" {
		return "", ErrEmptyPassword
	}
	if p.SaltLen <= 0 {
		p.SaltLen = 16
	}
	salt := make([]byte, p.SaltLen)
	if _, err := rand.Read(salt); err != nil {
		return "", err
	}
	dk := argon2.IDKey([]byte(plain), salt, p.Time, p.Memory, p.Parallelism, p.KeyLen)
	return fmt.Sprintf("$argon2id$v=%d$m=%d,t=%d,p=%d$%s$%s",
		argon2.Version, p.Memory, p.Time, p.Parallelism,
		base64.RawStdEncoding.EncodeToString(salt),
		base64.RawStdEncoding.EncodeToString(dk),
	), nil
}

type decoded struct {
	params Params
	salt   []byte
	key    []byte
}

func decode(phc string) (decoded, error) {
	// "", "argon2id", "v=19", "m=..,t=..,p=..", salt, key
	parts := strings.Split(phc, "$")
	if len(parts) != 6 || parts[0] != "" || parts[1] != "argon2id" {
		return decoded{}, ErrMalformedHash
	}
	if parts[2] != "v="+strconv.Itoa(argon2.Version) {
		return decoded{}, ErrMalformedHash
	}
	var m, t uint32
	var p uint8
	if n, err := fmt.Sscanf(parts[3], "m=%d,t=%d,p=%d", &m, &t, &p); err != nil || n != 3 {
		return decoded{}, ErrMalformedHash
	}
	salt, err := base64.RawStdEncoding.DecodeString(parts[4])
	if err != nil {
		return decoded{}, ErrMalformedHash
	}
	key, err := base64.RawStdEncoding.DecodeString(parts[5])
	if err != nil || len(key) == 0 {
		return decoded{}, ErrMalformedHash
	}
	return decoded{
		params: Params{Memory: m, Time: t, Parallelism: p, KeyLen: uint32(len(key)), SaltLen: len(salt)},
		salt:   salt,
		key:    key,
	}, nil
}

// Verify compara plain contra el hash guardado en tiempo constante.
func Verify(plain, phc string) bool {
	d, err := decode(phc)
	if err != nil {
		return false
	}
	key := argon2.IDKey([]byte(plain), d.salt, d.params.Time, d.params.Memory, d.params.Parallelism, d.params.KeyLen)
	return subtle.ConstantTimeCompare(key, d.key) == 1
}

// NeedsRehash indica si el hash fue generado con parámetros distintos a p.
func NeedsRehash(p Params, phc string) bool {
	d, err := decode(phc)
	if err != nil {
		return true
	}
	return d.params.Memory != p.Memory || d.params.Time != p.Time ||
		d.params.Parallelism != p.Parallelism || d.params.KeyLen != p.KeyLen
}
