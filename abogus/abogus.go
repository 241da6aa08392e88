// Package abogus 生成抖音 web 接口要求的 a_bogus 参数。
//
// 流程：query+后缀 双 SM3 -> 组 44 字节帧 + 指纹 + 校验 -> RC4("y") 加密帧 -> 拼上 12 字节明文前缀 -> 变种 base64(S4)。
// 包内不做任何网络 IO，时间和随机数都从注入的 source 里取。
package abogus

import (
	"errors"
	"fmt"

	"dy_code/source"
)

// ErrEmptyKey 参数 key 为空
var ErrEmptyKey = errors.New("abogus: empty parameter key")

const (
	defaultMethod = "GET"
	defaultSuffix = "cus"
	defaultKey    = "y"

	// endTime = startTime + [jitterMin, jitterMax]
	jitterMin = 4
	jitterMax = 8
)

// 固定前缀
var framePrefix = [12]byte{170, 85, 170, 0, 0, 0, 0, 0, 170, 85, 170, 0}

// Signer 签名器。字段构造后只读，可以并发使用
type Signer struct {
	fp       DeviceFingerprint
	alphabet Alphabet
	method   string
	suffix   string
	key      []byte
	clock    source.Clock
	rand     source.Rand
}

// Option 构造选项
type Option func(*Signer)

// WithClock 注入时间源
func WithClock(c source.Clock) Option {
	return func(s *Signer) { s.clock = c }
}

// WithRand 注入随机源（只用来取 jitter）
func WithRand(r source.Rand) Option {
	return func(s *Signer) { s.rand = r }
}

// WithFingerprint 替换设备指纹
func WithFingerprint(fp DeviceFingerprint) Option {
	return func(s *Signer) { s.fp = fp }
}

// WithAlphabet 替换输出码表，非法码表忽略
func WithAlphabet(a Alphabet) Option {
	return func(s *Signer) {
		if a.Valid() {
			s.alphabet = a
		}
	}
}

// NewSigner 默认：墙上时钟 + crypto 随机 + 默认指纹 + S4 码表
func NewSigner(opts ...Option) *Signer {
	s := &Signer{
		fp:       DefaultFingerprint(),
		alphabet: AlphabetS4,
		method:   defaultMethod,
		suffix:   defaultSuffix,
		key:      []byte(defaultKey),
		clock:    source.Wall(),
		rand:     source.Crypto(),
	}
	for _, opt := range opts {
		opt(s)
	}
	return s
}

// Fingerprint 当前指纹（值拷贝）
func (s *Signer) Fingerprint() DeviceFingerprint {
	return s.fp
}

// Sign 对参数按给定顺序编码后签名
func (s *Signer) Sign(params Params) (string, error) {
	for i, kv := range params {
		if kv.Key == "" {
			return "", fmt.Errorf("param #%d: %w", i, ErrEmptyKey)
		}
	}
	return s.SignQuery(params.Encode()), nil
}

// SignQuery 对已经编码好的 query string 签名
func (s *Signer) SignQuery(query string) string {
	start := s.clock.NowMilli()
	end := start + int64(jitterMin+s.rand.Intn(jitterMax-jitterMin+1))
	return s.signAt(query, start, end)
}

// Frame 返回加密前的帧（不含 12 字节前缀），排查用
func (s *Signer) Frame(query string, start, end int64) []byte {
	return BuildFrame(FrameInput{
		Query:     query,
		Method:    s.method,
		Suffix:    s.suffix,
		StartTime: start,
		EndTime:   end,
	}, s.fp)
}

func (s *Signer) signAt(query string, start, end int64) string {
	frame := s.Frame(query, start, end)

	// 前缀明文，只加密帧本身
	buf := make([]byte, 0, len(framePrefix)+len(frame))
	buf = append(buf, framePrefix[:]...)
	buf = append(buf, RC4Encrypt(s.key, frame)...)

	return Encode(buf, s.alphabet)
}

var defaultSigner = NewSigner()

// Sign 使用默认签名器
func Sign(params Params) (string, error) {
	return defaultSigner.Sign(params)
}
