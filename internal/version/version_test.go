package version

import "testing"

func TestString(t *testing.T) {
	Version, Commit, Date = "v1.2.3", "abc1234", "2024-03-05"
	t.Cleanup(func() { Version, Commit, Date = "dev", "unknown", "unknown" })

	if got, want := String(), "v1.2.3 (abc1234, 2024-03-05)"; got != want {
		t.Errorf("String() = %q, want %q", got, want)
	}
}
