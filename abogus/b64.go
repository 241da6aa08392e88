package abogus

import (
	"fmt"
	"strings"
)

// Alphabet base64 变种码表：前 64 个字符是码表，第 65 个（可选）是填充符，缺省 '='
type Alphabet string

// 五套码表。线上 a_bogus 只用 S4，其余保留给别的接口/版本
const (
	AlphabetS0 Alphabet = "ABCDEFGHIJKLMNOPQRSTUVWXYZabcdefghijklmnopqrstuvwxyz0123456789+/="
	AlphabetS1 Alphabet = "Dkdpgh4ZKsQB80/Mfvw36XI1R25+WUAlEi7NLboqYTOPuzmFjJnryx9HVGcaStCe="
	AlphabetS2 Alphabet = "Dkdpgh4ZKsQB80/Mfvw36XI1R25-WUAlEi7NLboqYTOPuzmFjJnryx9HVGcaStCe="
	AlphabetS3 Alphabet = "ckdp1h4ZKsUB80/Mfvw36XIgR25+WQAlEi7NLboqYTOPuzmFjJnryx9HVGDaStCe"
	AlphabetS4 Alphabet = "Dkdpgh2ZmsQB80/MfvV36XI1R45-WUAlEixNLwoqYTOPuzKFjJnry79HbGcaStCe"
)

const defaultPad = '='

// Alphabets 按名字取码表
var Alphabets = map[string]Alphabet{
	"s0": AlphabetS0,
	"s1": AlphabetS1,
	"s2": AlphabetS2,
	"s3": AlphabetS3,
	"s4": AlphabetS4,
}

// Valid 至少 64 个不重复的 ASCII 符号，填充符不能出现在码表里
func (a Alphabet) Valid() bool {
	if len(a) != 64 && len(a) != 65 {
		return false
	}
	var seen [256]bool
	for i := 0; i < 64; i++ {
		c := a[i]
		if c >= 0x80 || seen[c] {
			return false
		}
		seen[c] = true
	}
	return !seen[a.pad()]
}

func (a Alphabet) pad() byte {
	if len(a) > 64 {
		return a[64]
	}
	return defaultPad
}

// Encode 3 字节一组编码成 4 个符号；尾组 2 字节出 3 个符号，1 字节出 2 个，最后补齐到 4 的倍数
func Encode(data []byte, alphabet Alphabet) string {
	var sb strings.Builder
	sb.Grow((len(data) + 2) / 3 * 4)

	for i := 0; i < len(data); i += 3 {
		var n uint32
		symbols := 4
		switch {
		case i+2 < len(data):
			n = uint32(data[i])<<16 | uint32(data[i+1])<<8 | uint32(data[i+2])
		case i+1 < len(data):
			n = uint32(data[i])<<16 | uint32(data[i+1])<<8
			symbols = 3
		default:
			n = uint32(data[i]) << 16
			symbols = 2
		}
		for k, shift := 0, 18; k < symbols; k, shift = k+1, shift-6 {
			sb.WriteByte(alphabet[(n>>uint(shift))&0x3f])
		}
	}

	for sb.Len()%4 != 0 {
		sb.WriteByte(alphabet.pad())
	}
	return sb.String()
}

// Decode Encode 的逆过程，主要给测试和排查用
func Decode(s string, alphabet Alphabet) ([]byte, error) {
	if len(s)%4 != 0 {
		return nil, fmt.Errorf("abogus: encoded length %d is not a multiple of 4", len(s))
	}
	var rev [256]int16
	for i := range rev {
		rev[i] = -1
	}
	for i := 0; i < 64; i++ {
		rev[alphabet[i]] = int16(i)
	}

	pad := alphabet.pad()
	body := strings.TrimRight(s, string(pad))
	if len(s)-len(body) > 2 {
		return nil, fmt.Errorf("abogus: too much padding")
	}
	if len(body)%4 == 1 {
		return nil, fmt.Errorf("abogus: dangling symbol at %d", len(body)-1)
	}

	out := make([]byte, 0, len(body)*3/4)
	for i := 0; i < len(body); i += 4 {
		end := i + 4
		if end > len(body) {
			end = len(body)
		}
		var n uint32
		for k := i; k < i+4; k++ {
			n <<= 6
			if k >= end {
				continue
			}
			v := rev[body[k]]
			if v < 0 {
				return nil, fmt.Errorf("abogus: invalid symbol %q at %d", body[k], k)
			}
			n |= uint32(v)
		}
		switch end - i {
		case 4:
			out = append(out, byte(n>>16), byte(n>>8), byte(n))
		case 3:
			out = append(out, byte(n>>16), byte(n>>8))
		case 2:
			out = append(out, byte(n>>16))
		}
	}
	return out, nil
}
