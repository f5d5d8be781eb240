// Package model はドメインモデルを定義する。
package model

import "time"

// TotalDays は奉献プログラムの総日数。33日で固定。
const TotalDays = 33

// User は奉献プログラムを進めるユーザーを表す。
// CurrentDayは1..33の範囲で単調非減少。StartDayは一度だけ選択できる
// （HasChosenStartDayが選択済みガード）。
type User struct {
	ID                string
	Name              string
	Email             string
	PasswordHash      string
	CurrentDay        int
	StartDay          int
	HasChosenStartDay bool
	LibreMode         bool
	StartDate         time.Time
	IsActive          bool
	CreatedAt         time.Time
	UpdatedAt         time.Time
}
