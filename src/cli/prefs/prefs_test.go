package prefs

import "testing"

func TestSetAndGetInstalledProvider(t *testing.T) {
	t.Setenv("HOME", t.TempDir())

	if got := GetInstalledProvider("my-agent"); got != "" {
		t.Fatalf("GetInstalledProvider() = %q, want empty before any preference is set", got)
	}

	if err := SetInstalledProvider("my-agent", "droid"); err != nil {
		t.Fatalf("SetInstalledProvider() error = %v", err)
	}

	if got := GetInstalledProvider("my-agent"); got != "droid" {
		t.Fatalf("GetInstalledProvider() = %q, want %q", got, "droid")
	}
}

func TestSetInstalledProviderPreservesOtherEntries(t *testing.T) {
	t.Setenv("HOME", t.TempDir())

	if err := SetInstalledProvider("agent-a", "codex"); err != nil {
		t.Fatalf("SetInstalledProvider() error = %v", err)
	}
	if err := SetInstalledProvider("agent-b", "claude_code"); err != nil {
		t.Fatalf("SetInstalledProvider() error = %v", err)
	}

	if got := GetInstalledProvider("agent-a"); got != "codex" {
		t.Fatalf("GetInstalledProvider(agent-a) = %q, want %q", got, "codex")
	}
	if got := GetInstalledProvider("agent-b"); got != "claude_code" {
		t.Fatalf("GetInstalledProvider(agent-b) = %q, want %q", got, "claude_code")
	}
}
