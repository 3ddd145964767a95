package osipack

import "testing"

func TestParseCargoMessages(t *testing.T) {
	stream := []byte(`
{"reason":"compiler-artifact","package_id":"path+file:///work/demo#demo@0.1.0","filenames":["/work/target/debug/demo"],"executable":"/work/target/debug/demo"}
{"reason":"compiler-artifact","package_id":"registry+https://github.com/rust-lang/crates.io-index#serde@1.0.0","filenames":["/work/target/debug/deps/libserde.rlib"],"executable":null}
{"reason":"build-finished","success":true}
`)
	artifacts, err := parseCargoMessages(stream)
	if err != nil {
		t.Fatal(err)
	}
	if len(artifacts) != 2 {
		t.Fatalf("expected 2 artifacts, got %d", len(artifacts))
	}
	if !artifacts[0].Executable || artifacts[0].Package != "demo" {
		t.Errorf("unexpected primary artifact: %+v", artifacts[0])
	}
	if artifacts[1].Executable || artifacts[1].Package != "serde" {
		t.Errorf("unexpected library artifact: %+v", artifacts[1])
	}
}

func TestCargoPackageName(t *testing.T) {
	testCases := []struct{ id, want string }{
		{"path+file:///work/demo#demo@0.1.0", "demo"},
		{"path+file:///work/demo#0.1.0", "demo"},
		{"registry+https://github.com/rust-lang/crates.io-index#serde@1.0.219", "serde"},
		{"demo 0.1.0 (path+file:///work/demo)", "demo"},
		{"bare", "bare"},
	}
	for _, tc := range testCases {
		if got := cargoPackageName(tc.id); got != tc.want {
			t.Errorf("cargoPackageName(%q) = %q, want %q", tc.id, got, tc.want)
		}
	}
}
