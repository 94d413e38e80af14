package jail

import "testing"

func TestDeriveNameIsStableAndSanitized(t *testing.T) {
	n1 := DeriveName("/home/user/My Project!", "abcd1234", "claude")
	n2 := DeriveName("/home/user/My Project!", "abcd1234", "claude")
	if n1 != n2 {
		t.Fatalf("expected stable derivation, got %q and %q", n1, n2)
	}
	if n1 != "jail__My-Project__abcd1234__claude" {
		t.Fatalf("unexpected derived name %q", n1)
	}
}

func TestDeriveNameWithoutAgent(t *testing.T) {
	n := DeriveName("/workspaces/rust-app", "deadbeef", "")
	if n != "jail__rust-app__deadbeef" {
		t.Fatalf("unexpected derived name %q", n)
	}
}

func TestValidateNameRejectsBadChars(t *testing.T) {
	if err := ValidateName("../etc/passwd"); err == nil {
		t.Fatal("expected rejection of path-like name")
	}
	if err := ValidateName("my-jail_1"); err != nil {
		t.Fatalf("expected valid name to pass, got %v", err)
	}
}

func TestVolumeNameMirrorsJailName(t *testing.T) {
	if VolumeName("jail__foo__bar") != "jail__foo__bar" {
		t.Fatal("expected volume name to mirror jail name")
	}
}
