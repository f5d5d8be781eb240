package model

import "time"

// DailyContent は日番号（1..33）ごとの奉献コンテンツを表す。
// アプリケーションからは読み取り専用の参照データとして扱う。
type DailyContent struct {
	ID               string
	Day              int
	Title            string
	Description      string
	VideoURL         string
	RosaryVideoURL   string
	MeditationPDFURL string
	Mysteries        string
	Quote            string
	CreatedAt        time.Time
	UpdatedAt        time.Time
}
