package bytecode

import (
	"errors"
	"fmt"

	"github.com/fxamacker/cbor/v2"
	"github.com/zeebo/xxh3"
)

// ImageMagic opens every serialized image.
const ImageMagic = "OPBC"

var (
	ErrBadMagic    = errors.New("not an image")
	ErrBadVersion  = errors.New("unsupported image version")
	ErrBadChecksum = errors.New("image checksum mismatch")
)

// envelope wraps the encoded image so corruption is caught before decoding.
type envelope struct {
	Magic    string `cbor:"1,keyasint"`
	Version  uint16 `cbor:"2,keyasint"`
	Checksum uint64 `cbor:"3,keyasint"`
	Payload  []byte `cbor:"4,keyasint"`
}

// cborEncMode uses canonical mode so equal images encode to equal bytes.
var cborEncMode cbor.EncMode

func init() {
	em, err := cbor.CanonicalEncOptions().EncMode()
	if err != nil {
		panic(fmt.Sprintf("bytecode: failed to create CBOR enc mode: %v", err))
	}
	cborEncMode = em
}

// MarshalImage serializes an image to CBOR bytes.
func MarshalImage(im *Image) ([]byte, error) {
	payload, err := cborEncMode.Marshal(im)
	if err != nil {
		return nil, fmt.Errorf("bytecode: marshal image: %w", err)
	}
	return cborEncMode.Marshal(&envelope{
		Magic:    ImageMagic,
		Version:  im.Version,
		Checksum: xxh3.Hash(payload),
		Payload:  payload,
	})
}

// UnmarshalImage deserializes and links an image from CBOR bytes.
func UnmarshalImage(data []byte) (*Image, error) {
	var env envelope
	if err := cbor.Unmarshal(data, &env); err != nil {
		return nil, fmt.Errorf("bytecode: unmarshal image: %w", err)
	}
	if env.Magic != ImageMagic {
		return nil, ErrBadMagic
	}
	if env.Version != ImageVersion {
		return nil, fmt.Errorf("%w: %d", ErrBadVersion, env.Version)
	}
	if sum := xxh3.Hash(env.Payload); sum != env.Checksum {
		return nil, fmt.Errorf("%w: declared %016x, computed %016x", ErrBadChecksum, env.Checksum, sum)
	}

	var im Image
	if err := cbor.Unmarshal(env.Payload, &im); err != nil {
		return nil, fmt.Errorf("bytecode: unmarshal image: %w", err)
	}
	if err := im.Link(); err != nil {
		return nil, err
	}
	return &im, nil
}
