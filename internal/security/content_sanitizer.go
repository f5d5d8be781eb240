// Package security はアプリケーションのセキュリティ機能を提供する。
//
// ContentSanitizerService は日別コンテンツの本文・引用文をサニタイズし、
// シードデータ経由のXSS混入からユーザーを保護する。
// bluemondayライブラリを使用した許可リストベースのポリシーで、
// 祈りの文章に必要な最小限のタグのみを通過させる。
package security

import "github.com/microcosm-cc/bluemonday"

// ContentSanitizerService はHTMLコンテンツのサニタイズ機能のインターフェースを定義する。
// シードコマンドが日別コンテンツをデータベースへ投入する前に使用される。
type ContentSanitizerService interface {
	// Sanitize はHTMLコンテンツをサニタイズして安全なHTMLを返す。
	// 許可タグ（p, br, em, strong, blockquote）のみを通過させ、
	// script, iframe, styleタグおよびon*イベント属性を除去する。
	// リンクと画像は許可しない（コンテンツのメディアは専用のURLカラムで持つ）。
	// 空文字列の入力には空文字列を返す。
	// 同一入力に対して常に同一出力を返す（冪等）。
	Sanitize(rawHTML string) string
}

// contentSanitizer はContentSanitizerServiceの実装。
// bluemondayのポリシーを保持し、スレッドセーフにサニタイズ処理を行う。
type contentSanitizer struct {
	policy *bluemonday.Policy
}

// NewContentSanitizer はContentSanitizerServiceの新しいインスタンスを生成する。
// ポリシーの内容:
//   - 許可タグ: p, br, em, strong, blockquote
//   - 禁止タグ: script, iframe, style, a, img および全てのon*イベント属性
//
// 瞑想文・引用文は整形済みテキストが中心のため、リンクや画像を
// 通す必要がない。タグを絞ることでシードJSONの混入面を最小化する。
func NewContentSanitizer() *contentSanitizer {
	p := bluemonday.NewPolicy()
	p.AllowElements("p", "br", "em", "strong", "blockquote")

	return &contentSanitizer{
		policy: p,
	}
}

// Sanitize はHTMLコンテンツをサニタイズして安全なHTMLを返す。
func (s *contentSanitizer) Sanitize(rawHTML string) string {
	return s.policy.Sanitize(rawHTML)
}
