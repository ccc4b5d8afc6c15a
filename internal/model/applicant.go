// Package model はドメインモデルを定義する。
package model

import "time"

// Status は応募者の選考ステータスを表す。
// 値の集合は閉じており、遷移は transitions テーブルでのみ許可される。
type Status string

const (
	// StatusApplied は応募直後の状態。
	StatusApplied Status = "Applied"
	// StatusWaitlist は補欠の状態。
	StatusWaitlist Status = "Waitlist"
	// StatusAccepted は合格し、支払い待ちの状態。座席を消費する。
	StatusAccepted Status = "Accepted"
	// StatusRejected は不合格の状態。終端。
	StatusRejected Status = "Rejected"
	// StatusPaid は支払い完了の状態。座席を消費する。
	StatusPaid Status = "Paid"
	// StatusActive は受講中の状態。座席を消費する。終端。
	StatusActive Status = "Active"
)

// AllStatuses は定義済みの全ステータスを返す。
func AllStatuses() []Status {
	return []Status{
		StatusApplied,
		StatusWaitlist,
		StatusAccepted,
		StatusRejected,
		StatusPaid,
		StatusActive,
	}
}

// transitions は許可されるステータス遷移の表。
// 表にない遷移（Paid → Rejected を含む）はすべて不正として扱う。
var transitions = map[Status][]Status{
	StatusApplied:  {StatusWaitlist, StatusAccepted, StatusRejected},
	StatusWaitlist: {StatusAccepted, StatusRejected},
	StatusAccepted: {StatusPaid, StatusRejected},
	StatusPaid:     {StatusActive},
	StatusRejected: {},
	StatusActive:   {},
}

// ParseStatus は文字列をStatusに変換する。未定義の値の場合はfalseを返す。
func ParseStatus(s string) (Status, bool) {
	st := Status(s)
	if _, ok := transitions[st]; !ok {
		return "", false
	}
	return st, true
}

// IsSeatConsuming はコホートの座席を消費するステータスかどうかを返す。
func (s Status) IsSeatConsuming() bool {
	switch s {
	case StatusAccepted, StatusPaid, StatusActive:
		return true
	default:
		return false
	}
}

// IsTerminal は遷移先を持たないステータスかどうかを返す。
func (s Status) IsTerminal() bool {
	next, ok := transitions[s]
	return ok && len(next) == 0
}

// CanTransitionTo はsからnextへの遷移が許可されているかを返す。
// 同一ステータスへの遷移は遷移ではないためfalseを返す。
func (s Status) CanTransitionTo(next Status) bool {
	for _, allowed := range transitions[s] {
		if allowed == next {
			return true
		}
	}
	return false
}

// String はfmt.Stringerを実装する。
func (s Status) String() string {
	return string(s)
}

// ClassYears は卒業予定年度の選択肢。
var ClassYears = []string{"2027", "2028", "2029", "2030+"}

// Applicant はコホートへの応募者を表す。
// 作成後に削除されることはない。
type Applicant struct {
	ID              string
	CohortID        string
	FullName        string
	Email           string
	Instagram       *string
	School          *string
	ClassYear       string
	GPA             *string
	Activities      string
	WhatMakesUnique string
	WhyMentorship   string
	Status          Status
	Score           *int
	AdminNotes      *string
	CreatedAt       time.Time
	UpdatedAt       time.Time
}
