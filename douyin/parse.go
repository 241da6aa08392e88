package douyin

import (
	"encoding/json"
	"fmt"
	"log"
)

// Video 搜索结果里的一条视频
type Video struct {
	VideoID     string         `json:"video_id"`
	Desc        string         `json:"desc"`
	Duration    float64        `json:"duration"` // 秒
	DownloadURL string         `json:"download_url"`
	Author      string         `json:"author"`
	Statistics  map[string]any `json:"statistics"`
}

// ParseSearchResults 解析搜索接口返回。接口结构经常变，兼容几种已知形态：
// data 是数组；data.data / data.aweme_list；顶层 aweme_list。没有下载地址的条目丢弃
func ParseSearchResults(body []byte) ([]Video, error) {
	var root map[string]any
	if err := json.Unmarshal(body, &root); err != nil {
		return nil, fmt.Errorf("parse search results: %w", err)
	}
	return parseSearchMap(root), nil
}

func parseSearchMap(root map[string]any) []Video {
	items := extractItems(root)
	if len(items) == 0 {
		log.Printf("[search] no video items in response, keys=%v", mapKeys(root))
		return nil
	}

	videos := make([]Video, 0, len(items))
	for _, it := range items {
		item, ok := it.(map[string]any)
		if !ok {
			continue
		}
		info := item
		if inner, ok := item["aweme_info"].(map[string]any); ok {
			info = inner
		}

		durationMs := asFloat(info["duration"])
		if durationMs == 0 {
			durationMs = asFloat(asMap(info["video"])["duration"])
		}

		v := Video{
			VideoID:     asString(info["aweme_id"]),
			Desc:        asString(info["desc"]),
			Duration:    durationMs / 1000,
			DownloadURL: videoURL(info),
			Author:      asString(asMap(info["author"])["nickname"]),
			Statistics:  asMap(info["statistics"]),
		}
		if v.DownloadURL != "" {
			videos = append(videos, v)
		}
	}
	log.Printf("[search] parsed %d videos from %d items", len(videos), len(items))
	return videos
}

func extractItems(root map[string]any) []any {
	var items []any
	switch d := root["data"].(type) {
	case []any:
		items = d
	case map[string]any:
		if v, ok := d["data"]; ok {
			items, _ = v.([]any)
		} else {
			items, _ = d["aweme_list"].([]any)
		}
	}
	if len(items) == 0 {
		items, _ = root["aweme_list"].([]any)
	}
	return items
}

// videoURL 优先 play_addr，其次第一个 bit_rate
func videoURL(info map[string]any) string {
	video := asMap(info["video"])
	if u := firstURL(asMap(video["play_addr"])); u != "" {
		return u
	}
	if rates, ok := video["bit_rate"].([]any); ok && len(rates) > 0 {
		return firstURL(asMap(asMap(rates[0])["play_addr"]))
	}
	return ""
}

func firstURL(addr map[string]any) string {
	list, ok := addr["url_list"].([]any)
	if !ok || len(list) == 0 {
		return ""
	}
	return asString(list[0])
}

func asMap(v any) map[string]any {
	m, _ := v.(map[string]any)
	return m
}

func asString(v any) string {
	s, _ := v.(string)
	return s
}

func asFloat(v any) float64 {
	switch n := v.(type) {
	case float64:
		return n
	case json.Number:
		f, _ := n.Float64()
		return f
	}
	return 0
}

func mapKeys(m map[string]any) []string {
	keys := make([]string, 0, len(m))
	for k := range m {
		keys = append(keys, k)
	}
	return keys
}
