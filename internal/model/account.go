package model

import "time"

// Role はアカウントの権限を表す。
type Role string

const (
	// RoleAdmin は選考を操作できる管理者。
	RoleAdmin Role = "admin"
	// RoleClient は支払い済みの受講者。
	RoleClient Role = "client"
)

// Account はログイン資格情報を表す。
// emailごとに高々1件で、作成後は更新しない。
type Account struct {
	ID           string
	Email        string
	PasswordHash []byte
	Name         string
	Role         Role
	ApplicantID  *string
	CreatedAt    time.Time
}

// Session はアカウントのログインセッションを表す。
type Session struct {
	ID        string
	AccountID string
	Role      Role
	ExpiresAt time.Time
	CreatedAt time.Time
}
