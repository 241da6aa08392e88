package douyin

import (
	"strconv"

	"dy_code/abogus"
	"dy_code/tokens"
)

// SearchParams 视频搜索的 web 参数，顺序和浏览器发出去的一致。a_bogus 由调用方最后追加
func SearchParams(keyword string, count int, gen *tokens.Generator) abogus.Params {
	return abogus.Params{
		{Key: "device_platform", Value: "webapp"},
		{Key: "aid", Value: "6383"},
		{Key: "channel", Value: "channel_pc_web"},
		{Key: "search_channel", Value: "aweme_video_web"},
		{Key: "sort_type", Value: "0"},
		{Key: "publish_time", Value: "0"},
		{Key: "keyword", Value: keyword},
		{Key: "search_source", Value: "tab_search"},
		{Key: "query_correct_type", Value: "1"},
		{Key: "is_filter_search", Value: "0"},
		{Key: "from_group_id", Value: ""},
		{Key: "offset", Value: "0"},
		{Key: "count", Value: strconv.Itoa(count)},
		{Key: "pc_client_type", Value: "1"},
		{Key: "version_code", Value: "290100"},
		{Key: "version_name", Value: "29.1.0"},
		{Key: "cookie_enabled", Value: "true"},
		{Key: "screen_width", Value: "1920"},
		{Key: "screen_height", Value: "1080"},
		{Key: "browser_language", Value: "zh-CN"},
		{Key: "browser_platform", Value: "Win32"},
		{Key: "browser_name", Value: "Chrome"},
		{Key: "browser_version", Value: "130.0.0.0"},
		{Key: "browser_online", Value: "true"},
		{Key: "engine_name", Value: "Blink"},
		{Key: "engine_version", Value: "130.0.0.0"},
		{Key: "os_name", Value: "Windows"},
		{Key: "os_version", Value: "10"},
		{Key: "cpu_core_num", Value: "12"},
		{Key: "device_memory", Value: "8"},
		{Key: "platform", Value: "PC"},
		{Key: "downlink", Value: "10"},
		{Key: "effective_type", Value: "4g"},
		{Key: "round_trip_time", Value: "0"},
		{Key: "webid", Value: gen.VerifyFp()},
		{Key: "msToken", Value: gen.MsToken()},
		{Key: "verifyFp", Value: gen.VerifyFp()},
		{Key: "fp", Value: gen.VerifyFp()},
	}
}
