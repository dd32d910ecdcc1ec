// Copyright 2016 by Thorsten von Eicken, see LICENSE file
// Modified 2022 by Dan Crank, danno@danno.org

package board

import "testing"

func TestParseOffset(t *testing.T) {
	tests := []struct {
		in   string
		want int
		ok   bool
	}{
		{"GPIO25", 25, true},
		{"gpio8", 8, true},
		{"17", 17, true},
		{"GPIO", 0, false},
		{"SPI0_CE0", 0, false},
		{"-1", 0, false},
	}
	for _, tc := range tests {
		got, err := ParseOffset(tc.in)
		if (err == nil) != tc.ok || got != tc.want {
			t.Errorf("%q: got %d, %v", tc.in, got, err)
		}
	}
}
