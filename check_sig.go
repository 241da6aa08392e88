package main

import (
	"fmt"

	"dy_code/abogus"
	"dy_code/source"
)

// 固定时钟 + jitter=4 对 keyword=test 签名，和回归用例里钉住的结果比对
func main() {
	const expected = "OwIODDDDDDdOX5YD56KLfY3q6XuVYmQI0SVkMD2f/aDOqL39HMYg9exoIBGvXY8jwG/-IeEjy4hbT3ohrQ2y0Hwf9W0L/25ksDSkKl5Q5xSSs1X9eghgJ04qmkt5SMx2RvB-rOXmqhZHKRbp09oHmhK4b1dzFgf3qJLz-D=="

	s := abogus.NewSigner(
		abogus.WithClock(source.Fixed(1700000000000)),
		abogus.WithRand(source.NewSequence(0)),
	)
	got, err := s.Sign(abogus.Params{{Key: "keyword", Value: "test"}})
	if err != nil {
		fmt.Println("sign error:", err)
		return
	}

	fmt.Printf("Expected:  %s\n", expected)
	fmt.Printf("Generated: %s\n", got)
	fmt.Printf("Frame:     %x\n", s.Frame("keyword=test", 1700000000000, 1700000000004))

	if got == expected {
		fmt.Println("✅ Signature MATCHES!")
	} else {
		fmt.Println("❌ Signature MISMATCH!")
	}
}
