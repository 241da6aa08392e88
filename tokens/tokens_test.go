package tokens

import (
	"strconv"
	"strings"
	"testing"

	"dy_code/source"
)

func TestMsTokenShape(t *testing.T) {
	g := New(nil, source.Seeded(1))
	for i := 0; i < 20; i++ {
		tok := g.MsToken()
		if len(tok) != msTokenLen+2 {
			t.Fatalf("len = %d, want %d", len(tok), msTokenLen+2)
		}
		if !strings.HasSuffix(tok, "==") {
			t.Fatalf("token %q missing == suffix", tok)
		}
		for _, c := range tok[:msTokenLen] {
			if !strings.ContainsRune(msTokenAlphabet, c) {
				t.Fatalf("unexpected symbol %q", c)
			}
		}
	}
}

func TestMsTokenDeterministicWithSeed(t *testing.T) {
	a := New(nil, source.Seeded(99)).MsToken()
	b := New(nil, source.Seeded(99)).MsToken()
	if a != b {
		t.Fatal("same seed should give same token")
	}
	if a == New(nil, source.Seeded(100)).MsToken() {
		t.Fatal("different seeds should give different tokens")
	}
}

func TestVerifyFpShape(t *testing.T) {
	g := New(source.Fixed(1700000000000), source.Seeded(5))
	for i := 0; i < 50; i++ {
		fp := g.VerifyFp()
		if !strings.HasPrefix(fp, "verify_loyw3v28_") {
			t.Fatalf("fp %q has wrong prefix", fp)
		}
		if want := len("verify_") + len("loyw3v28") + 1 + 36; len(fp) != want {
			t.Fatalf("len = %d, want %d", len(fp), want)
		}
		tmpl := fp[len(fp)-36:]
		for _, pos := range []int{8, 13, 18, 23} {
			if tmpl[pos] != '_' {
				t.Fatalf("tmpl[%d] = %q, want '_'", pos, tmpl[pos])
			}
		}
		if tmpl[14] != '4' {
			t.Fatalf("tmpl[14] = %q, want '4'", tmpl[14])
		}
		idx := strings.IndexByte(fpAlphabet, tmpl[19])
		if idx < 0 || idx>>2 != 0b10 {
			t.Fatalf("tmpl[19] = %q (index %d), top bits must be 10", tmpl[19], idx)
		}
	}
}

func TestVerifyFpVariantChars(t *testing.T) {
	// 19 位只可能是 8/9/A/B
	for n := 0; n < len(fpAlphabet); n++ {
		g := New(source.Fixed(1), source.NewSequence(n))
		c := g.VerifyFp()
		c = c[len(c)-36:]
		if !strings.ContainsRune("89AB", rune(c[19])) {
			t.Fatalf("n=%d: variant char %q", n, c[19])
		}
	}
}

func TestVerifyFpTimestamp(t *testing.T) {
	ms := int64(1767424033997)
	fp := New(source.Fixed(ms), source.Seeded(1)).VerifyFp()
	parts := strings.SplitN(strings.TrimPrefix(fp, "verify_"), "_", 2)
	got, err := strconv.ParseInt(parts[0], 36, 64)
	if err != nil || got != ms {
		t.Fatalf("timestamp part %q decodes to %d (%v), want %d", parts[0], got, err, ms)
	}
}

func TestDefaultGenerators(t *testing.T) {
	if MsToken() == MsToken() {
		t.Error("two default msTokens should differ")
	}
	if !strings.HasPrefix(VerifyFp(), "verify_") {
		t.Error("VerifyFp() missing prefix")
	}
}
