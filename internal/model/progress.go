package model

import "time"

// DailyProgress はユーザー1人・1日分のタスク達成状況を表す。
// (UserID, Day)の組み合わせで一意。CompletedAtは3タスクすべて完了のとき
// のみ非nil（不変条件）。いずれかのタスクが未完了に戻るとnilにクリアされる。
type DailyProgress struct {
	ID                  string
	UserID              string
	Day                 int
	MeditationCompleted bool
	VideoCompleted      bool
	RosaryCompleted     bool
	CompletedAt         *time.Time
}

// AllCompleted は3タスクすべてが完了しているかを返す。
func (p *DailyProgress) AllCompleted() bool {
	return p.MeditationCompleted && p.VideoCompleted && p.RosaryCompleted
}

// CompletedCount は完了済みタスク数（0〜3）を返す。
func (p *DailyProgress) CompletedCount() int {
	count := 0
	if p.MeditationCompleted {
		count++
	}
	if p.VideoCompleted {
		count++
	}
	if p.RosaryCompleted {
		count++
	}
	return count
}

// ProgressSummary はダッシュボード用の1日分の進捗サマリー。
// レコードが存在しない日はすべてfalse・TotalCompleted=0として扱う。
type ProgressSummary struct {
	Day                 int
	MeditationCompleted bool
	VideoCompleted      bool
	RosaryCompleted     bool
	TotalCompleted      int
}
