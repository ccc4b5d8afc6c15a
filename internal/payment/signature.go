// Package payment は決済プロバイダーからの支払い確定Webhookを処理する。
package payment

import (
	"errors"
	"fmt"
	"time"

	"github.com/stripe/stripe-go/v82/webhook"
)

// SignatureHeader は署名を運ぶHTTPヘッダー名。
const SignatureHeader = "Stripe-Signature"

// DefaultTolerance は署名タイムスタンプの許容誤差のデフォルト値。
const DefaultTolerance = webhook.DefaultTolerance

// ErrInvalidSignature は署名検証に失敗したことを表す。
// 原因（未設定・形式不正・期限切れ・不一致）は区別しない。
var ErrInvalidSignature = errors.New("invalid signature")

// Verifier はWebhookペイロードの署名を検証する。
// 検証そのものはstripe-goのwebhookパッケージに任せる。
type Verifier struct {
	secret    string
	tolerance time.Duration
}

// NewVerifier はVerifierを生成する。toleranceが0以下の場合はDefaultToleranceを使う。
// secretが空の場合、Verifyは常にErrInvalidSignatureを返す。
func NewVerifier(secret string, tolerance time.Duration) *Verifier {
	if tolerance <= 0 {
		tolerance = DefaultTolerance
	}
	return &Verifier{secret: secret, tolerance: tolerance}
}

// Verify はヘッダー "t=<unix>,v1=<hex>[,v1=<hex>...]" を検証する。
// 署名は HMAC-SHA256(secret, "<t>.<payload>") で、いずれかのv1と一致し、
// タイムスタンプが許容誤差より古くなければよい。
func (v *Verifier) Verify(payload []byte, header string) error {
	if v.secret == "" || header == "" {
		return ErrInvalidSignature
	}
	if err := webhook.ValidatePayloadWithTolerance(payload, header, v.secret, v.tolerance); err != nil {
		return fmt.Errorf("%w: %v", ErrInvalidSignature, err)
	}
	return nil
}

// Sign は指定時刻のヘッダー値を生成する。テストやローカルでの再送に使う。
func (v *Verifier) Sign(payload []byte, at time.Time) string {
	signed := webhook.GenerateTestSignedPayload(&webhook.UnsignedPayload{
		Payload:   payload,
		Secret:    v.secret,
		Timestamp: at,
	})
	return signed.Header
}
