package abogus

// RC4Encrypt 标准 RC4（KSA + PRGA）。
// 每次调用都重新生成 S 盒，同一 key 加密两次即还原。key 为空时原样拷贝。
func RC4Encrypt(key, plaintext []byte) []byte {
	out := make([]byte, len(plaintext))
	if len(key) == 0 {
		copy(out, plaintext)
		return out
	}

	var s [256]byte
	for i := 0; i < 256; i++ {
		s[i] = byte(i)
	}

	j := 0
	keyLen := len(key)
	for i := 0; i < 256; i++ {
		j = (j + int(s[i]) + int(key[i%keyLen])) & 0xff
		s[i], s[j] = s[j], s[i]
	}

	i := 0
	j = 0
	for n := 0; n < len(plaintext); n++ {
		i = (i + 1) & 0xff
		j = (j + int(s[i])) & 0xff
		s[i], s[j] = s[j], s[i]
		k := s[(s[i]+s[j])&0xff]
		out[n] = plaintext[n] ^ k
	}
	return out
}
