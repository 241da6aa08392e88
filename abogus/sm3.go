package abogus

import (
	"encoding/hex"

	"github.com/emmansun/gmsm/sm3"
)

// Digest SM3 摘要，固定 32 字节
type Digest [sm3.Size]byte

// Hex 小写十六进制
func (d Digest) Hex() string {
	return hex.EncodeToString(d[:])
}

// SM3Sum 计算 SM3
func SM3Sum(data []byte) Digest {
	return Digest(sm3.Sum(data))
}

// DoubleSM3 sm3(sm3(data))，第二轮输入是第一轮的原始 32 字节，不是 hex 串
func DoubleSM3(data []byte) Digest {
	first := sm3.Sum(data)
	return Digest(sm3.Sum(first[:]))
}
