package abogus

// 帧的固定部分长度，后面跟浏览器描述串和 1 字节校验
const frameBaseLen = 44

// fieldSource 帧字段的取值来源
type fieldSource int

const (
	srcConst        fieldSource = iota // arg 即字面值
	srcEndTime                         // endTime >> arg
	srcStartTime                       // startTime >> arg
	srcEndHigh                         // endTime / 2^32
	srcStartHigh                       // startTime / 2^32
	srcParamsDigest                    // paramsDigest[arg]
	srcMethodDigest                    // methodDigest[arg]
	srcUACode                          // ua_code[arg]
	srcBrowserLen                      // len(browser)
)

// frameField 一个字段：偏移、宽度（目前都是 1 字节）、来源
type frameField struct {
	offset int
	width  int
	source fieldSource
	arg    int
}

// frameLayout 44 字节帧布局，未列出的偏移都是保留的 0。
// 和服务端校验逻辑逐字节对应，不要调整顺序或数值。
var frameLayout = []frameField{
	{0, 1, srcConst, 44},
	{1, 1, srcEndTime, 24},
	{6, 1, srcConst, 24},
	{7, 1, srcParamsDigest, 21},
	{8, 1, srcMethodDigest, 21},
	{10, 1, srcUACode, 23},
	{11, 1, srcEndTime, 16},
	{15, 1, srcConst, 1},
	{17, 1, srcConst, 239},
	{18, 1, srcParamsDigest, 22},
	{19, 1, srcMethodDigest, 22},
	{20, 1, srcUACode, 24},
	{21, 1, srcEndTime, 8},
	{26, 1, srcEndTime, 0},
	{29, 1, srcConst, 14},
	{30, 1, srcStartTime, 24},
	{31, 1, srcStartTime, 16},
	{33, 1, srcStartTime, 8},
	{34, 1, srcStartTime, 0},
	{35, 1, srcConst, 3},
	{36, 1, srcEndHigh, 0},
	{37, 1, srcConst, 1},
	{38, 1, srcStartHigh, 0},
	{39, 1, srcConst, 1},
	{40, 1, srcBrowserLen, 0},
}

// FrameInput 组帧需要的全部输入
type FrameInput struct {
	Query     string // 已编码的 query string
	Method    string // 一般是 "GET"
	Suffix    string // 拼在 query/method 后面再做摘要
	StartTime int64  // ms
	EndTime   int64  // ms，StartTime + jitter
}

// frameContext 单次组帧的工作区
type frameContext struct {
	in           FrameInput
	fp           DeviceFingerprint
	paramsDigest Digest
	methodDigest Digest
}

func (c *frameContext) value(f frameField) int64 {
	switch f.source {
	case srcConst:
		return int64(f.arg)
	case srcEndTime:
		return c.in.EndTime >> uint(f.arg)
	case srcStartTime:
		return c.in.StartTime >> uint(f.arg)
	case srcEndHigh:
		return c.in.EndTime / (1 << 32)
	case srcStartHigh:
		return c.in.StartTime / (1 << 32)
	case srcParamsDigest:
		return int64(c.paramsDigest[f.arg])
	case srcMethodDigest:
		return int64(c.methodDigest[f.arg])
	case srcUACode:
		return int64(c.fp.UACode[f.arg])
	case srcBrowserLen:
		return int64(len(c.fp.Browser))
	}
	return 0
}

// BuildFrame 组帧：44 字节固定布局 + 浏览器描述串 + 异或校验
func BuildFrame(in FrameInput, fp DeviceFingerprint) []byte {
	ctx := &frameContext{
		in:           in,
		fp:           fp,
		paramsDigest: DoubleSM3([]byte(in.Query + in.Suffix)),
		methodDigest: DoubleSM3([]byte(in.Method + in.Suffix)),
	}

	browser := fp.BrowserCode()
	frame := make([]byte, frameBaseLen, frameBaseLen+len(browser)+1)
	for _, f := range frameLayout {
		v := ctx.value(f)
		for w := 0; w < f.width; w++ {
			// 多字节字段按大端展开；每个字节都截断到 0-255
			frame[f.offset+w] = byte((v >> uint(8*(f.width-1-w))) & 0xff)
		}
	}

	checksum := xorChecksum(frame)
	frame = append(frame, browser...)
	frame = append(frame, checksum)
	return frame
}

// xorChecksum 所有字节异或
func xorChecksum(buf []byte) byte {
	var result byte
	for _, b := range buf {
		result ^= b
	}
	return result
}
