package indexer

import "testing"

func TestCleanContent(t *testing.T) {
	tests := []struct {
		name string
		in   string
		want string
	}{
		{"empty", "", ""},
		{"crlf", "a\r\nb\rc", "a\nb\nc"},
		{"blank lines", "a\n\n\n\n\nb", "a\n\nb"},
		{"keeps one blank line", "a\n\nb", "a\n\nb"},
		{"inline spaces", "a  \t  b\tc", "a b\tc"},
		{"trim", "  \n a \n  ", "a"},
		{"crlf runs", "a\r\n\r\n\r\nb", "a\n\nb"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got := CleanContent(tt.in)
			if got != tt.want {
				t.Errorf("CleanContent(%q) = %q, want %q", tt.in, got, tt.want)
			}
			if again := CleanContent(got); again != got {
				t.Errorf("CleanContent not idempotent: %q -> %q", got, again)
			}
		})
	}
}

func TestWordCount(t *testing.T) {
	if WordCount("") != 0 {
		t.Error("empty text has no words")
	}
	if WordCount(" one  two\nthree ") != 3 {
		t.Error("expected 3 words")
	}
}
