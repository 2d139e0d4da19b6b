package schematic

import (
	"bytes"
	"encoding/binary"
	"fmt"
	"io"

	"github.com/astei/blockschem/nbt"
	"github.com/klauspost/compress/zstd"
)

const zstdMagic = 0xB10C
const zstdLatestVersion = 1

// Frames larger than this are refused when loading.
const zstdMaxFrame = 1 << 30

// ZstdLoader stores the same tag document as NBTLoader, uncompressed, inside a
// small binary envelope:
//
//	uint16 magic (0xB10C) | uint8 version | uint32 compressed size |
//	uint32 uncompressed size | zstd frame
//
// All numbers are big endian.
type ZstdLoader struct {
	// Level defaults to zstd.SpeedDefault when zero.
	Level zstd.EncoderLevel
}

type zstdHeader struct {
	Magic   uint16
	Version uint8
}

type zstdSizes struct {
	Compressed   uint32
	Uncompressed uint32
}

func (l ZstdLoader) Save(s *Schematic, w io.Writer) (err error) {
	root, err := s.Tag()
	if err != nil {
		return
	}
	var raw bytes.Buffer
	if err = nbt.NewEncoder(&raw).Encode(root); err != nil {
		return
	}

	header := zstdHeader{Magic: zstdMagic, Version: zstdLatestVersion}
	if err = binary.Write(w, binary.BigEndian, header); err != nil {
		return
	}
	return l.writeCompressed(w, &raw)
}

func (l ZstdLoader) writeCompressed(w io.Writer, buf *bytes.Buffer) (err error) {
	var opts []zstd.EOption
	if l.Level != 0 {
		opts = append(opts, zstd.WithEncoderLevel(l.Level))
	}
	zstdWriter, err := zstd.NewWriter(io.Discard, opts...)
	if err != nil {
		return
	}
	uncompressedSize := buf.Len()

	var compressedOutput bytes.Buffer
	zstdWriter.Reset(&compressedOutput)
	if _, err = buf.WriteTo(zstdWriter); err != nil {
		return
	}
	if err = zstdWriter.Close(); err != nil {
		return
	}

	sizes := zstdSizes{Compressed: uint32(compressedOutput.Len()), Uncompressed: uint32(uncompressedSize)}
	if err = binary.Write(w, binary.BigEndian, sizes); err != nil {
		return
	}
	_, err = compressedOutput.WriteTo(w)
	return
}

func (l ZstdLoader) Load(r io.Reader) (*Schematic, error) {
	var header zstdHeader
	if err := readEnvelope(r, &header, "header"); err != nil {
		return nil, err
	}
	if header.Magic != zstdMagic {
		return nil, malformed("bad magic %#04x", header.Magic)
	}
	if header.Version != zstdLatestVersion {
		return nil, malformed("unsupported version %d", header.Version)
	}

	var sizes zstdSizes
	if err := readEnvelope(r, &sizes, "frame sizes"); err != nil {
		return nil, err
	}
	if sizes.Compressed > zstdMaxFrame || sizes.Uncompressed > zstdMaxFrame {
		return nil, malformed("frame of %d/%d bytes is too large", sizes.Compressed, sizes.Uncompressed)
	}

	var compressed bytes.Buffer
	if _, err := io.CopyN(&compressed, r, int64(sizes.Compressed)); err != nil {
		if err == io.EOF {
			return nil, malformed("truncated zstd frame")
		}
		return nil, fmt.Errorf("could not read zstd frame: %w", err)
	}

	decoder, err := zstd.NewReader(nil, zstd.WithDecoderMaxMemory(zstdMaxFrame))
	if err != nil {
		return nil, err
	}
	defer decoder.Close()
	raw, err := decoder.DecodeAll(compressed.Bytes(), make([]byte, 0, sizes.Uncompressed))
	if err != nil {
		return nil, malformed("zstd frame: %s", err.Error())
	}
	if len(raw) != int(sizes.Uncompressed) {
		return nil, malformed("frame decoded to %d bytes, header says %d", len(raw), sizes.Uncompressed)
	}

	root, err := nbt.Decode(bytes.NewReader(raw))
	if err != nil {
		return nil, err
	}
	return FromTag(root)
}

// IsZstdEnvelope reports whether prefix starts with the ZstdLoader magic.
func IsZstdEnvelope(prefix []byte) bool {
	return len(prefix) >= 2 && uint16(prefix[0])<<8|uint16(prefix[1]) == zstdMagic
}

func readEnvelope(r io.Reader, data any, what string) error {
	err := binary.Read(r, binary.BigEndian, data)
	if err == io.EOF || err == io.ErrUnexpectedEOF {
		return malformed("truncated %s", what)
	}
	if err != nil {
		return fmt.Errorf("could not read %s: %w", what, err)
	}
	return nil
}
