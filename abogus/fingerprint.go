package abogus

// DeviceFingerprint 浏览器指纹常量：ua_code 32 字节 + 屏幕/平台描述串。
// 构造后只读，可以在多个 goroutine 间共享。
type DeviceFingerprint struct {
	UACode  [32]byte
	Browser string
}

// 线上抓到的一组 MacIntel 指纹
var defaultUACode = [32]byte{
	76, 98, 15, 131, 97, 245, 224, 133, 122, 199, 241, 166, 79, 34, 90, 191,
	128, 126, 122, 98, 66, 11, 14, 40, 49, 110, 110, 173, 67, 96, 138, 252,
}

const defaultBrowser = "1536|742|1536|864|0|0|0|0|1536|864|1536|864|1536|742|24|24|MacIntel"

// DefaultFingerprint 返回默认指纹的拷贝
func DefaultFingerprint() DeviceFingerprint {
	return DeviceFingerprint{UACode: defaultUACode, Browser: defaultBrowser}
}

// BrowserCode 描述串的字符码。描述串只允许 ASCII，超出部分按字节截断
func (fp DeviceFingerprint) BrowserCode() []byte {
	out := make([]byte, len(fp.Browser))
	for i := 0; i < len(fp.Browser); i++ {
		out[i] = fp.Browser[i]
	}
	return out
}
