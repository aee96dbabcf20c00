package generator

import "strings"

// フォールバックを発動させるエラーメッセージの断片。
// クォータ枯渇・レート制限・安全フィルター・モデル非対応が対象です。
var fallbackTriggers = []string{
	"429",
	"quota_exceeded",
	"rate_limit",
	"resourceexhausted",
	"resource_exhausted",
	"safety",
	"blocked",
	"filtered",
	"recitation",
	"invalid_argument",
	"does not support",
	"not support",
}

// IsFallbackEligible はエラーがフォールバック対象かを判定します。
// nil はフォールバック不要（成功）として false を返します。
func IsFallbackEligible(err error) bool {
	if err == nil {
		return false
	}
	msg := strings.ToLower(err.Error())
	for _, trigger := range fallbackTriggers {
		if strings.Contains(msg, trigger) {
			return true
		}
	}
	return false
}

// IsQuotaExhausted はクォータ枯渇・レート超過系のエラーかを判定します。
// この種のエラーが出た時点で、バッチの残り要求はフォールバックへ切り替わります。
func IsQuotaExhausted(err error) bool {
	if err == nil {
		return false
	}
	msg := strings.ToLower(err.Error())
	for _, trigger := range []string{"429", "quota", "rate_limit", "resourceexhausted", "resource_exhausted"} {
		if strings.Contains(msg, trigger) {
			return true
		}
	}
	return false
}

// IsRetryable は同一バックエンド内で再試行する価値があるエラーかを判定します。
// レート制限（待てば解消する）は再試行対象、安全フィルター等は対象外です。
func IsRetryable(err error) bool {
	if err == nil {
		return false
	}
	msg := strings.ToLower(err.Error())
	for _, trigger := range []string{"429", "resourceexhausted", "resource_exhausted", "timeout", "deadline", "unavailable", "connection"} {
		if strings.Contains(msg, trigger) {
			return true
		}
	}
	return false
}
