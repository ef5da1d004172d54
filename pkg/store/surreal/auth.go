package surreal

import "golang.org/x/crypto/bcrypt"

func compareHash(hash, password string) error {
	return bcrypt.CompareHashAndPassword([]byte(hash), []byte(password))
}
