package douyin

import (
	"log"
	"strings"
	"unicode"
)

// 抖音搜英文基本搜不到东西，常用词先翻成中文
var keywordTranslations = map[string]string{
	// 科技类短语
	"cyber future":            "未来科技",
	"cyber future ai":         "人工智能",
	"cyber future security":   "网络安全",
	"cyber future wearables":  "智能穿戴",
	"cyber future healthcare": "智慧医疗",
	"cyber future privacy":    "隐私保护",

	"cyber":                   "科技",
	"future":                  "未来",
	"technology":              "科技",
	"ai":                      "人工智能",
	"artificial intelligence": "人工智能",
	"security":                "安全",
	"cybersecurity":           "网络安全",
	"privacy":                 "隐私",
	"data":                    "数据",
	"digital":                 "数字化",
	"internet":                "互联网",
	"computer":                "电脑",
	"software":                "软件",
	"hardware":                "硬件",
	"cloud":                   "云计算",
	"blockchain":              "区块链",
	"cryptocurrency":          "数字货币",
	"robot":                   "机器人",
	"automation":              "自动化",
	"smart":                   "智能",
	"innovation":              "创新",
	"tech":                    "科技",

	// 医疗健康
	"healthcare": "医疗",
	"health":     "健康",
	"medical":    "医学",
	"hospital":   "医院",
	"doctor":     "医生",
	"medicine":   "药物",
	"wearable":   "可穿戴设备",
	"wearables":  "可穿戴设备",
	"fitness":    "健身",
	"wellness":   "养生",

	// 通用
	"device":        "设备",
	"phone":         "手机",
	"mobile":        "移动",
	"app":           "应用",
	"network":       "网络",
	"system":        "系统",
	"platform":      "平台",
	"service":       "服务",
	"user":          "用户",
	"information":   "信息",
	"communication": "通讯",
	"gaming":        "游戏",
	"entertainment": "娱乐",
	"education":     "教育",
	"business":      "商业",
	"finance":       "金融",
	"social":        "社交",
	"media":         "媒体",
	"video":         "视频",
	"music":         "音乐",
	"food":          "美食",
	"travel":        "旅游",
	"lifestyle":     "生活方式",
	"fashion":       "时尚",
	"beauty":        "美容",
	"sports":        "体育",
	"nature":        "自然",
	"science":       "科学",
	"space":         "太空",
	"car":           "汽车",
	"city":          "城市",
	"world":         "世界",
}

var stopWords = map[string]bool{
	"the": true, "a": true, "an": true, "and": true, "or": true, "of": true,
	"in": true, "on": true, "at": true, "to": true, "for": true,
}

// ContainsChinese 是否含 CJK 统一汉字（U+4E00..U+9FFF）
func ContainsChinese(s string) bool {
	for _, r := range s {
		if r >= 0x4e00 && r <= 0x9fff {
			return true
		}
	}
	return false
}

// NeedsTranslation 纯 ASCII 且至少有一个字母
func NeedsTranslation(s string) bool {
	hasLetter := false
	for _, r := range s {
		if r > unicode.MaxASCII {
			return false
		}
		if unicode.IsLetter(r) {
			hasLetter = true
		}
	}
	return hasLetter
}

// TranslateKeyword 英文关键词转中文：先整句匹配，再逐词（去停用词，未知词原样保留）
func TranslateKeyword(keyword string) string {
	if ContainsChinese(keyword) {
		return keyword
	}

	lower := strings.ToLower(strings.TrimSpace(keyword))
	if zh, ok := keywordTranslations[lower]; ok {
		log.Printf("[translate] %q -> %q", keyword, zh)
		return zh
	}

	var out []string
	for _, w := range strings.Fields(lower) {
		if stopWords[w] {
			continue
		}
		if zh, ok := keywordTranslations[w]; ok {
			out = append(out, zh)
		} else {
			out = append(out, w)
		}
	}
	if len(out) > 0 {
		zh := strings.Join(out, " ")
		log.Printf("[translate] %q -> %q", keyword, zh)
		return zh
	}

	log.Printf("[translate] no translation for %q, using as-is", keyword)
	return keyword
}
