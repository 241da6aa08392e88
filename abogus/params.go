package abogus

import (
	"net/url"
	"strings"
)

// Param 一个 query 参数
type Param struct {
	Key   string
	Value string
}

// Params 保序的 query 参数。签名覆盖的是实际发出去的顺序，所以不能用 url.Values（会按 key 排序）
type Params []Param

// Add 追加，不去重
func (p *Params) Add(key, value string) {
	*p = append(*p, Param{Key: key, Value: value})
}

// Set 已存在则原位替换第一个并删除其余同名项，否则追加
func (p *Params) Set(key, value string) {
	found := false
	out := (*p)[:0]
	for _, kv := range *p {
		if kv.Key == key {
			if found {
				continue
			}
			kv.Value = value
			found = true
		}
		out = append(out, kv)
	}
	*p = out
	if !found {
		p.Add(key, value)
	}
}

// Get 第一个同名值
func (p Params) Get(key string) string {
	for _, kv := range p {
		if kv.Key == key {
			return kv.Value
		}
	}
	return ""
}

// Has 是否存在
func (p Params) Has(key string) bool {
	for _, kv := range p {
		if kv.Key == key {
			return true
		}
	}
	return false
}

// Del 删除所有同名项
func (p *Params) Del(key string) {
	out := (*p)[:0]
	for _, kv := range *p {
		if kv.Key != key {
			out = append(out, kv)
		}
	}
	*p = out
}

// Clone 深拷贝
func (p Params) Clone() Params {
	out := make(Params, len(p))
	copy(out, p)
	return out
}

// Encode 按插入顺序编码，空格编码成 '+'
func (p Params) Encode() string {
	var sb strings.Builder
	for i, kv := range p {
		if i > 0 {
			sb.WriteByte('&')
		}
		sb.WriteString(url.QueryEscape(kv.Key))
		sb.WriteByte('=')
		sb.WriteString(url.QueryEscape(kv.Value))
	}
	return sb.String()
}

// ParseQuery 解析原始 query string 并保持顺序
func ParseQuery(query string) (Params, error) {
	var out Params
	for query != "" {
		var part string
		part, query, _ = strings.Cut(query, "&")
		if part == "" {
			continue
		}
		k, v, _ := strings.Cut(part, "=")
		key, err := url.QueryUnescape(k)
		if err != nil {
			return nil, err
		}
		val, err := url.QueryUnescape(v)
		if err != nil {
			return nil, err
		}
		out = append(out, Param{Key: key, Value: val})
	}
	return out, nil
}
