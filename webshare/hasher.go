package webshare

import (
	"crypto/md5"
	"crypto/sha1"
	"encoding/hex"
	"fmt"

	"github.com/GehirnInc/crypt/md5_crypt"
)

// ComputeLoginCredentials reproduces the password transform the remote
// service requires for login. The chain is fixed by the wire protocol and
// must stay byte-exact:
//
//	cryptHash    = md5-crypt(password, salt)        legacy $1$ scheme
//	passwordHash = hex(sha1(cryptHash))
//	digest       = hex(md5(username + ":Webshare:" + passwordHash))
//
// passwordHash is sent as the login password, digest authenticates the
// login request itself.
func ComputeLoginCredentials(username, password, salt string) (passwordHash, digest string, err error) {
	crypter := md5_crypt.New()
	cryptHash, err := crypter.Generate([]byte(password), []byte(md5_crypt.MagicPrefix+salt))
	if err != nil {
		return "", "", fmt.Errorf("failed to hash password: %w", err)
	}

	sha := sha1.Sum([]byte(cryptHash))
	passwordHash = hex.EncodeToString(sha[:])

	sum := md5.Sum([]byte(username + ":Webshare:" + passwordHash))
	digest = hex.EncodeToString(sum[:])

	return passwordHash, digest, nil
}
