package encoding

import (
	"bytes"
	"encoding/base64"
	"encoding/binary"
	"fmt"
)

// EncodeRLE encodes a sequence of words into base64(varint pairs).
// The pairs are (value, run_len) repeated.
func EncodeRLE(vals []uint64) string {
	var buf bytes.Buffer
	var tmp [binary.MaxVarintLen64]byte

	i := 0
	for i < len(vals) {
		v := vals[i]
		run := 1
		for j := i + 1; j < len(vals) && vals[j] == v && run < 1<<31; j++ {
			run++
		}

		n := binary.PutUvarint(tmp[:], v)
		buf.Write(tmp[:n])
		n = binary.PutUvarint(tmp[:], uint64(run))
		buf.Write(tmp[:n])

		i += run
	}

	return base64.StdEncoding.EncodeToString(buf.Bytes())
}

// DecodeRLE reverses EncodeRLE. Decoding fails once the output would exceed
// limit words, so a hostile run length cannot balloon memory.
func DecodeRLE(b64 string, limit int) ([]uint64, error) {
	raw, err := base64.StdEncoding.DecodeString(b64)
	if err != nil {
		return nil, err
	}
	var out []uint64
	for i := 0; i < len(raw); {
		v, n := binary.Uvarint(raw[i:])
		if n <= 0 {
			return nil, fmt.Errorf("bad varint at %d", i)
		}
		i += n
		run, n := binary.Uvarint(raw[i:])
		if n <= 0 {
			return nil, fmt.Errorf("bad varint at %d", i)
		}
		i += n
		if run == 0 || run > uint64(limit-len(out)) {
			return nil, fmt.Errorf("run of %d exceeds limit %d", run, limit)
		}
		for k := uint64(0); k < run; k++ {
			out = append(out, v)
		}
	}
	return out, nil
}
