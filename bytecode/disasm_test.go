package bytecode

import (
	"strings"
	"testing"
)

func TestRender(t *testing.T) {
	u := &Unit{Class: "Object", Method: "m", Syms: []string{"puts"}, Pool: []Literal{{Kind: LiteralString, Str: "hi"}}}

	tests := []struct {
		ins  Instr
		want string
	}{
		{Z(OpNop), "NOP"},
		{ABC(OpAdd, 1, 2, 3), "ADD\tR1\tR2\tR3"},
		{ABC(OpSend, 1, 0, 2), "SEND\tR1\t:puts\t2"},
		{ABx(OpLoadL, 4, 0), "LOADL\tR4\tL(0)\t; \"hi\""},
		{AsBx(OpLoadI, 1, -7), "LOADI\tR1\t-7"},
		{AsBx(OpJmp, 0, -2), "JMP\t-2"},
		{AsBx(OpJmpNot, 3, 5), "JMPNOT\tR3\t+5"},
		{ABx(OpLoadSym, 1, 9), "LOADSYM\tR1\t:?"},
		{Instr(0xEE), "UNKNOWN(0xEE)\t0\t0\t0"},
	}
	for _, tt := range tests {
		if got := Render(u, tt.ins); got != tt.want {
			t.Errorf("Render(%08x) = %q, want %q", uint32(tt.ins), got, tt.want)
		}
	}
}

func TestRenderIsPure(t *testing.T) {
	u := mustAssemble(t, twoCalls).EntryUnit()
	for i := range u.Iseq {
		if Disassemble(u, i) != Disassemble(u, i) {
			t.Fatalf("offset %d renders differently on repeat", i)
		}
	}
	if got := Disassemble(u, u.Len()); got != "<out of range>" {
		t.Errorf("Disassemble past end = %q", got)
	}
}

func TestLongLiteralTruncated(t *testing.T) {
	u := &Unit{Pool: []Literal{{Kind: LiteralString, Str: strings.Repeat("x", 100)}}}
	got := Render(u, ABx(OpLoadL, 1, 0))
	if !strings.HasSuffix(got, "...") || len(got) > 60 {
		t.Errorf("Render = %q", got)
	}
}

func TestListing(t *testing.T) {
	im := mustAssemble(t, twoCalls)
	out := im.Lookup("main").Listing()

	for _, want := range []string{
		"; === Object#main ===",
		"; File: test.oasm",
		"Base: 0x1003",
		";   [  0] :helper",
		"0001  SEND\tR1\t:helper\t0",
		"; line 8",
	} {
		if !strings.Contains(out, want) {
			t.Errorf("listing missing %q:\n%s", want, out)
		}
	}
}
