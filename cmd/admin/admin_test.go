package main

import "testing"

func TestParseCenter(t *testing.T) {
	c, err := parseCenter(" 20, 22 ")
	if err != nil || c != [2]int{20, 22} {
		t.Fatalf("c=%v err=%v", c, err)
	}
	for _, bad := range []string{"", "1", "1,2,3", "a,2"} {
		if _, err := parseCenter(bad); err == nil {
			t.Fatalf("%q: expected error", bad)
		}
	}
}
