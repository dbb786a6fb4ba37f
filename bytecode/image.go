package bytecode

import (
	"errors"
	"fmt"
)

// ImageVersion is the current image format version.
// Increment when making incompatible changes to the format.
const ImageVersion uint16 = 1

// ImageOrigin is the address of the first instruction of an image. Nothing
// lives below it, so a zero address is always invalid.
const ImageOrigin uint64 = 0x1000

// EntryMethod is the method run when an image names no entry.
const EntryMethod = "main"

var (
	// ErrNoUnits is returned when linking an empty image.
	ErrNoUnits = errors.New("image has no units")

	// ErrNilUnit is returned when an image holds a nil unit.
	ErrNilUnit = errors.New("nil unit")
)

// Image is a linked program.
type Image struct {
	Version uint16  `cbor:"1,keyasint"`
	Entry   int     `cbor:"2,keyasint"`
	Units   []*Unit `cbor:"3,keyasint"`

	trampoline *Unit
	methods    map[string]*Unit
}

// NewImage creates an empty image with the current version.
func NewImage() *Image {
	return &Image{Version: ImageVersion, Entry: -1}
}

// Add appends a unit and returns its index.
func (im *Image) Add(u *Unit) int {
	im.Units = append(im.Units, u)
	return len(im.Units) - 1
}

// NewTrampoline returns a call trampoline: the single-instruction unit the
// interpreter passes through whenever it invokes a native function.
func NewTrampoline() *Unit {
	return &Unit{Class: "", Method: "call", Iseq: []Instr{Z(OpCall)}}
}

// Link validates every unit, resolves the entry point and lays the units
// out at consecutive addresses starting at ImageOrigin, trampoline first.
func (im *Image) Link() error {
	if len(im.Units) == 0 {
		return ErrNoUnits
	}
	im.methods = make(map[string]*Unit, len(im.Units))
	for i, u := range im.Units {
		if u == nil {
			return fmt.Errorf("link: unit %d: %w", i, ErrNilUnit)
		}
		if err := u.validate(); err != nil {
			return fmt.Errorf("link: %w", err)
		}
		if _, dup := im.methods[u.Method]; !dup {
			im.methods[u.Method] = u
		}
	}

	if im.Entry < 0 {
		im.Entry = 0
		for i, u := range im.Units {
			if u.Method == EntryMethod {
				im.Entry = i
				break
			}
		}
	}
	if im.Entry >= len(im.Units) {
		return fmt.Errorf("link: entry %d outside %d units", im.Entry, len(im.Units))
	}

	im.trampoline = NewTrampoline()
	addr := ImageOrigin
	im.trampoline.base = addr
	addr += uint64(im.trampoline.Len())
	for _, u := range im.Units {
		u.base = addr
		addr += uint64(u.Len())
	}
	return nil
}

// Trampoline returns the call trampoline, or nil before Link.
func (im *Image) Trampoline() *Unit { return im.trampoline }

// EntryUnit returns the unit the program starts in.
func (im *Image) EntryUnit() *Unit {
	if im.Entry < 0 || im.Entry >= len(im.Units) {
		return nil
	}
	return im.Units[im.Entry]
}

// Lookup returns the first unit defining method, or nil.
func (im *Image) Lookup(method string) *Unit {
	return im.methods[method]
}
