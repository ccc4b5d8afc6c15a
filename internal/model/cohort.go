package model

import (
	"fmt"
	"time"
)

// Cohort は定員付きの募集回を表す。
// 起動時に設定から解決され、以降は値としてサービスに注入される。
type Cohort struct {
	ID        string
	Name      string
	MaxSeats  int
	CreatedAt time.Time
	UpdatedAt time.Time
}

// CohortFill はコホートの座席充足状況を表す。
type CohortFill struct {
	SeatHolders  int // Accepted, Paid, Active の合計
	PaidOrActive int // Paid, Active の合計
	MaxSeats     int
}

// String は "<座席保有者数>/<定員>" 形式の文字列を返す。
// 定員超過エラーと同じ数え方。
func (f CohortFill) String() string {
	return fmt.Sprintf("%d/%d", f.SeatHolders, f.MaxSeats)
}

// PaidRatio は "<Paid/Active数>/<定員>" 形式の文字列を返す。
// 一覧画面の cohortFilled に使う。
func (f CohortFill) PaidRatio() string {
	return fmt.Sprintf("%d/%d", f.PaidOrActive, f.MaxSeats)
}

// IsFull は空席がないかどうかを返す。
func (f CohortFill) IsFull() bool {
	return f.SeatHolders >= f.MaxSeats
}
