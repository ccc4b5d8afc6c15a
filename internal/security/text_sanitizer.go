// Package security はアプリケーションのセキュリティ機能を提供する。
//
// TextSanitizer は応募フォームの自由記述や管理者メモからHTMLを取り除き、
// 保存・表示して安全なプレーンテキストに変換する。
// bluemondayのStrictPolicyで全タグを除去して文字参照を元の文字に戻す処理を、
// 結果が変化しなくなるまで繰り返す。文字参照で隠したタグも最終的に除去される。
package security

import (
	"html"
	"strings"
	"unicode"

	"github.com/microcosm-cc/bluemonday"
)

// maxSanitizePasses は除去と復元を繰り返す上限回数。
// 超えた場合は山括弧を取り除いて打ち切る。
const maxSanitizePasses = 8

// TextSanitizer は自由記述テキストのサニタイズ機能のインターフェースを定義する。
type TextSanitizer interface {
	// Sanitize はHTMLタグと制御文字を除去し、前後の空白を取り除いたテキストを返す。
	// 改行とタブは保持する。同一入力に対して常に同一出力を返す（冪等）。
	Sanitize(raw string) string
}

// textSanitizer はTextSanitizerの実装。
// bluemondayのポリシーはスレッドセーフなので共有して使う。
type textSanitizer struct {
	policy *bluemonday.Policy
}

// NewTextSanitizer はTextSanitizerの新しいインスタンスを生成する。
func NewTextSanitizer() TextSanitizer {
	return &textSanitizer{
		policy: bluemonday.StrictPolicy(),
	}
}

// Sanitize はHTMLタグと制御文字を除去したプレーンテキストを返す。
func (s *textSanitizer) Sanitize(raw string) string {
	if raw == "" {
		return ""
	}

	stripped := s.strip(raw)

	cleaned := strings.Map(func(r rune) rune {
		if r == '\n' || r == '\t' {
			return r
		}
		if unicode.IsControl(r) {
			return -1
		}
		return r
	}, stripped)

	return strings.TrimSpace(cleaned)
}

// strip はタグの除去と文字参照の復元を不動点に達するまで繰り返す。
// "&lt;script&gt;" のように文字参照で書かれたタグは、復元後の次の周回で除去される。
func (s *textSanitizer) strip(raw string) string {
	current := raw
	for i := 0; i < maxSanitizePasses; i++ {
		next := html.UnescapeString(s.policy.Sanitize(current))
		if next == current {
			return current
		}
		current = next
	}
	return strings.NewReplacer("<", "", ">", "").Replace(current)
}

// SanitizePtr はnilを保ったままSanitizeを適用する。
// 結果が空文字列になった場合はnilを返す。
func SanitizePtr(s TextSanitizer, raw *string) *string {
	if raw == nil {
		return nil
	}
	v := s.Sanitize(*raw)
	if v == "" {
		return nil
	}
	return &v
}
