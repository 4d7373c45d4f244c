package storage

import (
	"bufio"
	"encoding/binary"
	"errors"
	"fmt"
	"io"
)

// MaxFrameSize bounds a single record. Larger length prefixes are treated as
// corruption.
const MaxFrameSize = 64 << 20

// ErrFrameTooLarge is returned for a payload or length prefix above
// MaxFrameSize.
var ErrFrameTooLarge = errors.New("storage: frame too large")

// AppendFrame appends payload to dst prefixed with its uvarint length.
func AppendFrame(dst, payload []byte) []byte {
	dst = binary.AppendUvarint(dst, uint64(len(payload)))
	return append(dst, payload...)
}

// CheckFrameSize fails with ErrFrameTooLarge when a payload of n bytes is
// above limit or MaxFrameSize.
func CheckFrameSize(n, limit int) error {
	if limit <= 0 || limit > MaxFrameSize {
		limit = MaxFrameSize
	}
	if n > limit {
		return fmt.Errorf("%w: %d bytes", ErrFrameTooLarge, n)
	}
	return nil
}

// WriteFrame writes one length-prefixed frame to w. Payloads ReadFrame would
// reject are refused.
func WriteFrame(w io.Writer, payload []byte) error {
	if err := CheckFrameSize(len(payload), MaxFrameSize); err != nil {
		return err
	}
	_, err := w.Write(AppendFrame(nil, payload))
	return err
}

// ReadFrame reads one frame. It returns io.EOF when r ends cleanly between
// frames and io.ErrUnexpectedEOF when it ends inside one.
func ReadFrame(r *bufio.Reader) ([]byte, error) {
	size, err := binary.ReadUvarint(r)
	if err != nil {
		return nil, err
	}
	if size > MaxFrameSize {
		return nil, fmt.Errorf("%w: %d bytes", ErrFrameTooLarge, size)
	}
	payload := make([]byte, size)
	if _, err := io.ReadFull(r, payload); err != nil {
		if errors.Is(err, io.EOF) {
			return nil, io.ErrUnexpectedEOF
		}
		return nil, err
	}
	return payload, nil
}
