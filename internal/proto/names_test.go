package proto

import "testing"

func TestValidateName(t *testing.T) {
	cases := []struct {
		name string
		ok   bool
	}{
		{"alice", true},
		{"a", true},
		{"bob-2", true},
		{"under_score", true},
		{"", false},
		{"a b", false},
		{"this-name-is-way-too-long", false},
		{"emoji😀", false},
	}
	for _, c := range cases {
		err := ValidateName(c.name)
		if (err == nil) != c.ok {
			t.Errorf("ValidateName(%q) err=%v, want ok=%v", c.name, err, c.ok)
		}
	}
}

func TestValidateNameMaxLength(t *testing.T) {
	exact := "123456789012345" // 15 chars
	if err := ValidateName(exact); err != nil {
		t.Fatalf("15-char name rejected: %v", err)
	}
	tooLong := exact + "6"
	if err := ValidateName(tooLong); err == nil {
		t.Fatal("16-char name should be rejected")
	}
}
