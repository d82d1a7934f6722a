package corefmt

import (
	"crypto/rand"
	"encoding/base64"
	"encoding/hex"
	"strings"

	"github.com/shopspring/decimal"
	"github.com/zintix-labs/megaodds/errs"
	"golang.org/x/text/language"
	"golang.org/x/text/message"
)

// 金額與快照的文字格式化。
//
// PRNG 快照在 JSON 中以 Base64URL 傳遞；交易參考碼以 hex 表示；
// 金額一律以 KSh 加千分位呈現（1300 -> "1,300"，1950.5 -> "1,950.50"）。

var printer = message.NewPrinter(language.English)

func EncodeBase64URL(b []byte) string {
	return base64.RawURLEncoding.EncodeToString(b)
}

func DecodeBase64URL(s string) ([]byte, error) {
	b, err := base64.RawURLEncoding.DecodeString(strings.TrimSpace(s))
	if err != nil {
		return nil, errs.Wrap(err, "corefmt: invalid base64url")
	}
	return b, nil
}

func EncodeHex(b []byte) string {
	return hex.EncodeToString(b)
}

func DecodeHex(s string) ([]byte, error) {
	b, err := hex.DecodeString(strings.TrimSpace(s))
	if err != nil {
		return nil, errs.Wrap(err, "corefmt: invalid hex")
	}
	return b, nil
}

// RandomHex 產生 n bytes 的加密隨機數並以 hex 表示，用於交易參考碼。
func RandomHex(n int) (string, error) {
	if n <= 0 {
		return "", errs.NewFatal("corefmt: random length must be positive")
	}
	b := make([]byte, n)
	if _, err := rand.Read(b); err != nil {
		return "", errs.Wrap(err, "corefmt: read random")
	}
	return EncodeHex(b), nil
}

// Amount 以千分位格式化金額；整數不帶小數，非整數固定兩位。
func Amount(d decimal.Decimal) string {
	d = d.Abs()
	if d.Equal(d.Truncate(0)) {
		return printer.Sprintf("%d", d.IntPart())
	}
	f, _ := d.Round(2).Float64()
	return printer.Sprintf("%.2f", f)
}

// KSh 例如 KSh1,300
func KSh(d decimal.Decimal) string {
	return "KSh" + Amount(d)
}

// Mult 乘數固定兩位小數，例如 1.90x
func Mult(m decimal.Decimal) string {
	return m.StringFixed(2) + "x"
}
