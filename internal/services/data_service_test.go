package services

import (
	"testing"
)

func TestNextSessionIDFirst(t *testing.T) {
	if got := NextSessionID(nil); got != "0001" {
		t.Errorf("первый номер = %q, ожидалось \"0001\"", got)
	}
}

func TestNextSessionIDMonotonic(t *testing.T) {
	cases := []struct {
		existing []string
		want     string
	}{
		{[]string{"0001"}, "0002"},
		{[]string{"0001", "0002", "0003"}, "0004"},
		// номер растет от максимума, а не от количества
		{[]string{"0002", "0041", "0007"}, "0042"},
		{[]string{"0099"}, "0100"},
		{[]string{"0999"}, "1000"},
	}

	for _, c := range cases {
		if got := NextSessionID(c.existing); got != c.want {
			t.Errorf("NextSessionID(%v) = %q, ожидалось %q", c.existing, got, c.want)
		}
	}
}

func TestNextSessionIDIgnoresGarbage(t *testing.T) {
	existing := []string{"abcd", "", "0005", "12x4"}
	if got := NextSessionID(existing); got != "0006" {
		t.Errorf("NextSessionID = %q, ожидалось \"0006\"", got)
	}
}
