package checksum

import (
	"io"
	"strings"
	"testing"
)

const (
	// echo -n "hello" | sha256sum
	helloSHA = "2cf24dba5fb0a30e26e83b2ac5b9e29e1b161e5c1fa7425e73043362938b9824"
	emptySHA = "e3b0c44298fc1c149afbf4c8996fb92427ae41e4649b934ca495991b7852b855"
)

func TestCalculateSHA256(t *testing.T) {
	tests := []struct {
		name  string
		input string
		want  string
	}{
		{"hello", "hello", helloSHA},
		{"empty string", "", emptySHA},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got, err := CalculateSHA256(strings.NewReader(tt.input))
			if err != nil {
				t.Fatalf("CalculateSHA256() error: %v", err)
			}
			if got != tt.want {
				t.Errorf("CalculateSHA256(%q) = %q, want %q", tt.input, got, tt.want)
			}
		})
	}

	t.Run("read error is propagated", func(t *testing.T) {
		if _, err := CalculateSHA256(errReader{}); err == nil {
			t.Error("CalculateSHA256() expected error from failing reader, got nil")
		}
	})
}

func TestOf(t *testing.T) {
	if got := Of([]byte("hello")); got != helloSHA {
		t.Errorf("Of(hello) = %q, want %q", got, helloSHA)
	}
	if got := Of(nil); got != emptySHA {
		t.Errorf("Of(nil) = %q, want %q", got, emptySHA)
	}
}

func TestVerifySHA256(t *testing.T) {
	ok, err := VerifySHA256(strings.NewReader("hello"), helloSHA)
	if err != nil || !ok {
		t.Errorf("VerifySHA256(matching) = %v, %v; want true, nil", ok, err)
	}

	ok, err = VerifySHA256(strings.NewReader("hello"), emptySHA)
	if err != nil || ok {
		t.Errorf("VerifySHA256(mismatch) = %v, %v; want false, nil", ok, err)
	}

	if _, err := VerifySHA256(errReader{}, helloSHA); err == nil {
		t.Error("VerifySHA256() expected error from failing reader, got nil")
	}
}

func TestReader(t *testing.T) {
	r := NewReader(strings.NewReader("hello"))
	data, err := io.ReadAll(r)
	if err != nil {
		t.Fatalf("ReadAll() error: %v", err)
	}
	if string(data) != "hello" {
		t.Errorf("passthrough = %q, want hello", data)
	}
	if r.Sum() != helloSHA {
		t.Errorf("Sum() = %q, want %q", r.Sum(), helloSHA)
	}
	if r.Size() != 5 {
		t.Errorf("Size() = %d, want 5", r.Size())
	}
}

func TestReader_Empty(t *testing.T) {
	r := NewReader(strings.NewReader(""))
	if _, err := io.Copy(io.Discard, r); err != nil {
		t.Fatal(err)
	}
	if r.Sum() != emptySHA || r.Size() != 0 {
		t.Errorf("Sum(), Size() = %q, %d; want empty digest and 0", r.Sum(), r.Size())
	}
}

// errReader is an io.Reader that always returns an error.
type errReader struct{}

func (errReader) Read(_ []byte) (int, error) {
	return 0, io.ErrUnexpectedEOF
}
