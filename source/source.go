// Package source 提供可注入的时间源和随机源。
// 签名和 token 生成都只通过这里读时间/随机数，测试时可以整条链路固定下来。
package source

import (
	"crypto/rand"
	"encoding/binary"
	mrand "math/rand"
	"sync"
	"time"
)

// Clock 返回当前毫秒时间戳
type Clock interface {
	NowMilli() int64
}

// Rand 返回 [0,n) 内均匀分布的整数，n<=0 时返回 0
type Rand interface {
	Intn(n int) int
}

// ClockFunc 把普通函数适配成 Clock
type ClockFunc func() int64

func (f ClockFunc) NowMilli() int64 { return f() }

type wallClock struct{}

func (wallClock) NowMilli() int64 { return time.Now().UnixMilli() }

// Wall 墙上时钟
func Wall() Clock { return wallClock{} }

// Fixed 永远返回同一个时间戳
func Fixed(ms int64) Clock {
	return ClockFunc(func() int64 { return ms })
}

type cryptoRand struct{}

func (cryptoRand) Intn(n int) int {
	if n <= 0 {
		return 0
	}
	// 拒绝采样，避免取模偏差
	max := uint64(n)
	limit := ^uint64(0) - (^uint64(0) % max)
	var b [8]byte
	for {
		if _, err := rand.Read(b[:]); err != nil {
			// crypto/rand 读失败基本只在系统熵源坏掉时出现，退回 math/rand
			return mrand.Intn(n)
		}
		v := binary.BigEndian.Uint64(b[:])
		if v < limit {
			return int(v % max)
		}
	}
}

// Crypto 基于 crypto/rand 的随机源，生产默认用这个
func Crypto() Rand { return cryptoRand{} }

// lockedRand: math/rand.Rand 不是并发安全的，加把锁
type lockedRand struct {
	mu sync.Mutex
	r  *mrand.Rand
}

func (l *lockedRand) Intn(n int) int {
	if n <= 0 {
		return 0
	}
	l.mu.Lock()
	defer l.mu.Unlock()
	return l.r.Intn(n)
}

// Seeded 固定种子的伪随机源，同一个 seed 输出序列完全一致
func Seeded(seed int64) Rand {
	return &lockedRand{r: mrand.New(mrand.NewSource(seed))}
}

// Sequence 按顺序循环返回给定值（对 n 取模），用于把随机分支钉死
type Sequence struct {
	mu   sync.Mutex
	vals []int
	pos  int
}

func NewSequence(vals ...int) *Sequence {
	return &Sequence{vals: vals}
}

func (s *Sequence) Intn(n int) int {
	if n <= 0 || len(s.vals) == 0 {
		return 0
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	v := s.vals[s.pos%len(s.vals)]
	s.pos++
	v %= n
	if v < 0 {
		v += n
	}
	return v
}
