package readiness

import (
	"os"
	"path/filepath"
	"testing"
)

func TestWritableFD(t *testing.T) {
	tests := []struct {
		name  string
		flags string
		want  bool
	}{
		{name: "read only", flags: "0100000", want: false},
		{name: "write only", flags: "0100001", want: true},
		{name: "read write", flags: "02", want: true},
		{name: "append", flags: "02102001", want: true},
		{name: "garbage", flags: "zz", want: false},
	}
	for _, tc := range tests {
		t.Run(tc.name, func(t *testing.T) {
			path := filepath.Join(t.TempDir(), "fdinfo")
			body := "pos:\t0\nflags:\t" + tc.flags + "\nmnt_id:\t25\n"
			if err := os.WriteFile(path, []byte(body), 0o644); err != nil {
				t.Fatal(err)
			}
			if got := writableFD(path); got != tc.want {
				t.Fatalf("writableFD(%s) = %v, want %v", tc.flags, got, tc.want)
			}
		})
	}
}

func TestIsPID(t *testing.T) {
	for name, want := range map[string]bool{"1": true, "4242": true, "self": false, "": false, "12a": false} {
		if got := isPID(name); got != want {
			t.Fatalf("isPID(%q) = %v, want %v", name, got, want)
		}
	}
}
