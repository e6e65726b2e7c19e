package semverdoc

import "testing"

func TestCompatibleSameMajorNewerMinor(t *testing.T) {
	ok, err := Compatible("1.2", "1.1")
	if err != nil {
		t.Fatal(err)
	}

	if !ok {
		t.Fatal("expected reader with newer minor to be compatible")
	}
}

func TestCompatibleDifferentMajorRejected(t *testing.T) {
	ok, err := Compatible("2.0", "1.5")
	if err != nil {
		t.Fatal(err)
	}

	if ok {
		t.Fatal("expected major mismatch to be incompatible")
	}
}

func TestParseRejectsMalformed(t *testing.T) {
	if _, err := Parse("not-a-version"); err == nil {
		t.Fatal("expected an error for a malformed schema version")
	}
}
