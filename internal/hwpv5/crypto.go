package hwpv5

import (
	"crypto/aes"
	"encoding/binary"
	"errors"
	"fmt"

	"github.com/hanpama/hwarang/internal/hwperr"
)

const distDataSize = 256

// decryptDistributed decrypts a ViewText section of a distribution document.
// The stream opens with a DISTRIBUTE_DOC_DATA record carrying the key
// material; the rest is AES-128 ECB.
func decryptDistributed(data []byte) ([]byte, error) {
	if len(data) < 4+distDataSize {
		return nil, hwperr.DecryptFailed("distribution stream too short")
	}
	head := binary.LittleEndian.Uint32(data)
	tagID := uint16(head & 0x3ff)
	size := head >> 20
	if tagID != recTagDistributeDocData || size != distDataSize {
		return nil, hwperr.DecryptFailed(fmt.Sprintf("invalid distribution header (tag=0x%x, size=%d)", tagID, size))
	}

	key, err := deriveKey(data[4 : 4+distDataSize])
	if err != nil {
		return nil, hwperr.DecryptFailed(err.Error())
	}
	block, err := aes.NewCipher(key)
	if err != nil {
		return nil, hwperr.DecryptFailed(fmt.Sprintf("failed to create cipher: %v", err))
	}

	body := data[4+distDataSize:]
	if len(body)%aes.BlockSize != 0 {
		return nil, hwperr.DecryptFailed("encrypted stream not aligned to block size")
	}
	out := make([]byte, len(body))
	for i := 0; i < len(body); i += aes.BlockSize {
		block.Decrypt(out[i:i+aes.BlockSize], body[i:i+aes.BlockSize])
	}
	return out, nil
}

// deriveKey extracts the AES-128 key from the distribution data:
// the first 4 bytes seed MSVC rand(), which fills a 256-byte mask in runs;
// the masked data holds the key at offset (seed & 0x0F) + 4.
func deriveKey(distData []byte) ([]byte, error) {
	if len(distData) != distDataSize {
		return nil, errors.New("invalid distribution data size")
	}

	seed := binary.LittleEndian.Uint32(distData[0:4])
	rng := &msvcRand{state: seed}

	var mask [distDataSize]byte
	for i := 0; i < distDataSize; {
		v := byte(rng.rand() & 0xFF)
		run := int(rng.rand()&0x0F) + 1
		for j := 0; j < run && i < distDataSize; j++ {
			mask[i] = v
			i++
		}
	}

	offset := int(seed&0x0F) + 4
	key := make([]byte, 16)
	for i := range key {
		key[i] = distData[offset+i] ^ mask[offset+i]
	}
	return key, nil
}

// msvcRand implements MS Visual C++ rand(): next = previous * 214013 + 2531011.
type msvcRand struct {
	state uint32
}

func (r *msvcRand) rand() uint32 {
	r.state = r.state*214013 + 2531011
	return (r.state >> 16) & 0x7FFF
}
