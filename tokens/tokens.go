// Package tokens 生成和 a_bogus 一起发送的 msToken / verifyFp。
// 都是纯随机串，服务端并不严格校验，结构像就行。
package tokens

import (
	"strconv"
	"strings"

	"dy_code/source"
)

const (
	msTokenAlphabet = "ABCDEFGHIJKLMNOPQRSTUVWXYZabcdefghijklmnopqrstuvwxyz0123456789+/"
	msTokenLen      = 126
	msTokenSuffix   = "=="

	fpAlphabet  = "0123456789ABCDEFGHIJKLMNOPQRSTUVWXYZabcdefghijklmnopqrstuvwxyz"
	fpPrefix    = "verify_"
	fpSep       = '_'
	fpTemplLen  = 36
	fpVersion   = '4'
	fpVariantAt = 19
)

// Generator 注入时间源和随机源
type Generator struct {
	clock source.Clock
	rand  source.Rand
}

// New nil 参数回落到墙上时钟 / crypto 随机
func New(clock source.Clock, r source.Rand) *Generator {
	if clock == nil {
		clock = source.Wall()
	}
	if r == nil {
		r = source.Crypto()
	}
	return &Generator{clock: clock, rand: r}
}

// MsToken 126 位随机 + "=="
func (g *Generator) MsToken() string {
	var sb strings.Builder
	sb.Grow(msTokenLen + len(msTokenSuffix))
	for i := 0; i < msTokenLen; i++ {
		sb.WriteByte(msTokenAlphabet[g.rand.Intn(len(msTokenAlphabet))])
	}
	sb.WriteString(msTokenSuffix)
	return sb.String()
}

// VerifyFp verify_<36进制毫秒>_<36位模板>，模板形如 uuid：
// 8/13/18/23 位是 '_'，14 位固定 '4'，19 位高两位固定为 10
func (g *Generator) VerifyFp() string {
	ms := g.clock.NowMilli()
	if ms < 0 {
		ms = 0
	}
	ts := strconv.FormatInt(ms, 36)
	if ms == 0 {
		ts = ""
	}

	var o [fpTemplLen]byte
	for i := range o {
		switch i {
		case 8, 13, 18, 23:
			o[i] = fpSep
		case 14:
			o[i] = fpVersion
		default:
			n := g.rand.Intn(len(fpAlphabet))
			if i == fpVariantAt {
				n = n&0x3 | 0x8
			}
			o[i] = fpAlphabet[n]
		}
	}
	return fpPrefix + ts + string(fpSep) + string(o[:])
}

var defaultGenerator = New(source.Wall(), source.Crypto())

// MsToken 默认生成器
func MsToken() string { return defaultGenerator.MsToken() }

// VerifyFp 默认生成器
func VerifyFp() string { return defaultGenerator.VerifyFp() }
