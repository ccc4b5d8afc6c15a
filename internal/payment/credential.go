package payment

import (
	"crypto/rand"
	"encoding/base64"
	"fmt"

	"golang.org/x/crypto/bcrypt"
)

const credentialBytes = 18

// CredentialGenerator は初期パスワードを生成してハッシュ化する。
type CredentialGenerator interface {
	Generate() (plain string, hash []byte, err error)
}

// BcryptGenerator はcrypto/randの乱数とbcryptで資格情報を生成する。
type BcryptGenerator struct {
	Cost int
}

// Generate は18バイトの乱数をbase64url（24文字）にした平文と、そのbcryptハッシュを返す。
func (g BcryptGenerator) Generate() (string, []byte, error) {
	buf := make([]byte, credentialBytes)
	if _, err := rand.Read(buf); err != nil {
		return "", nil, fmt.Errorf("failed to generate credential: %w", err)
	}
	plain := base64.RawURLEncoding.EncodeToString(buf)

	cost := g.Cost
	if cost == 0 {
		cost = bcrypt.DefaultCost
	}
	hash, err := bcrypt.GenerateFromPassword([]byte(plain), cost)
	if err != nil {
		return "", nil, fmt.Errorf("failed to hash credential: %w", err)
	}
	return plain, hash, nil
}
