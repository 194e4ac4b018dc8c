package checksum

import "testing"

func TestSum(t *testing.T) {
	// sha256("abc")
	const want = "ba7816bf8f01cfea414140de5dae2223b00361a396177a9cb410ff61f20015ad"
	if got := Sum([]byte("abc")); got != want {
		t.Errorf("Sum = %q, want %q", got, want)
	}
}

func TestMatches(t *testing.T) {
	data := []byte("abc")
	sum := Sum(data)
	tests := []struct {
		want string
		ok   bool
	}{
		{"", true},
		{sum, true},
		{`"` + sum + `"`, true},
		{"deadbeef", false},
	}
	for _, tt := range tests {
		if got := Matches(data, tt.want); got != tt.ok {
			t.Errorf("Matches(%q) = %v, want %v", tt.want, got, tt.ok)
		}
	}
}
