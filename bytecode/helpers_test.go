package bytecode

import "testing"

// twoCalls is main calling helper twice. Line numbers matter.
const twoCalls = `.method helper
  LOADI R1 5
  RETURN R1
.end

.method main
  LOADSELF R1
  SEND R1 :helper 0
  SEND R1 :helper 0
  RETURN R1
.end
`

func mustAssemble(t *testing.T, src string) *Image {
	t.Helper()
	im, err := Assemble("test.oasm", []byte(src))
	if err != nil {
		t.Fatalf("Assemble: %v", err)
	}
	return im
}
