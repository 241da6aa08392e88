package abogus

import "testing"

func TestParamsEncodeKeepsOrder(t *testing.T) {
	p := Params{{"z", "1"}, {"a", "2"}, {"m", "3"}}
	if got, want := p.Encode(), "z=1&a=2&m=3"; got != want {
		t.Fatalf("Encode() = %q, want %q", got, want)
	}
}

func TestParamsEncodeEscaping(t *testing.T) {
	testCases := []struct {
		name string
		p    Params
		want string
	}{
		{"space as plus", Params{{"keyword", "hello world"}}, "keyword=hello+world"},
		{"utf8", Params{{"keyword", "美食"}}, "keyword=%E7%BE%8E%E9%A3%9F"},
		{"reserved", Params{{"msToken", "a+b/c=="}}, "msToken=a%2Bb%2Fc%3D%3D"},
		{"empty value", Params{{"from_group_id", ""}}, "from_group_id="},
		{"unreserved kept", Params{{"v", "a-b_c.d~e"}}, "v=a-b_c.d~e"},
	}
	for _, tc := range testCases {
		t.Run(tc.name, func(t *testing.T) {
			if got := tc.p.Encode(); got != tc.want {
				t.Errorf("Encode() = %q, want %q", got, tc.want)
			}
		})
	}
}

func TestParamsSetGetDel(t *testing.T) {
	var p Params
	p.Add("a", "1")
	p.Add("b", "2")
	p.Add("a", "3")
	p.Set("a", "9")
	if got := p.Encode(); got != "a=9&b=2" {
		t.Fatalf("after Set: %q", got)
	}
	p.Set("c", "4")
	if p.Get("c") != "4" || !p.Has("b") || p.Has("x") {
		t.Fatalf("Get/Has mismatch: %v", p)
	}
	p.Del("b")
	if got := p.Encode(); got != "a=9&c=4" {
		t.Fatalf("after Del: %q", got)
	}
	c := p.Clone()
	c.Set("a", "0")
	if p.Get("a") != "9" {
		t.Fatal("Clone should not share storage")
	}
}

func TestParseQueryRoundTrip(t *testing.T) {
	raw := "device_platform=webapp&keyword=hello+world&from_group_id=&x=%E7%BE%8E"
	p, err := ParseQuery(raw)
	if err != nil {
		t.Fatalf("ParseQuery: %v", err)
	}
	if len(p) != 4 || p[1].Value != "hello world" || p[3].Value != "美" {
		t.Fatalf("ParseQuery = %#v", p)
	}
	if got := p.Encode(); got != raw {
		t.Fatalf("Encode() = %q, want %q", got, raw)
	}
	if _, err := ParseQuery("a=%zz"); err == nil {
		t.Fatal("expected error for bad escape")
	}
}
