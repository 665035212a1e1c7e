package agent

import (
	"strings"
	"testing"
)

func TestTruncateOutputShortUnchanged(t *testing.T) {
	in := "short output"
	if got := TruncateOutput(in, "execute_command"); got != in {
		t.Errorf("got %q, want unchanged", got)
	}
}

func TestTruncateOutputKeepsHeadAndTail(t *testing.T) {
	head := strings.Repeat("H", 40000)
	tail := strings.Repeat("T", 40000)
	got := TruncateOutput(head+tail, "execute_command")

	if len(got) >= 80000 {
		t.Fatalf("len = %d, was not truncated", len(got))
	}
	if !strings.HasPrefix(got, "H") {
		t.Error("head not preserved")
	}
	if !strings.HasSuffix(got, "T") {
		t.Error("tail not preserved")
	}
	if !strings.Contains(got, "output truncated") {
		t.Error("missing truncation marker")
	}
}

func TestTruncateOutputPerToolLimits(t *testing.T) {
	in := strings.Repeat("x", 40000)
	// read_file has the largest ceiling and 40000 fits within it.
	if got := TruncateOutput(in, "read_file"); got != in {
		t.Error("read_file output within limit was truncated")
	}
	// search_files has a lower ceiling.
	if got := TruncateOutput(in, "search_files"); len(got) >= len(in) {
		t.Error("search_files output over limit was not truncated")
	}
}
