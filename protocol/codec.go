package protocol

import (
	"encoding/binary"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"time"
	"unicode/utf8"
)

// MaxFrameSize 帧长度前缀的上限（1MB）
const MaxFrameSize = 1 << 20

var (
	// ErrConnectionClosed 对端断开（可能在帧中间）
	ErrConnectionClosed = errors.New("protocol: connection closed")
	// ErrFrameLength 长度前缀不在 (0, MaxFrameSize] 内；后续数据未读取，流已不可用
	ErrFrameLength = errors.New("protocol: invalid frame length")
	// ErrMalformedFrame 整帧已读出但无法解析；流仍对齐在下一帧
	ErrMalformedFrame = errors.New("protocol: malformed frame")
)

// Encode 序列化为 tagLen|tag|jsonLen|json（不含外层长度前缀）
// Timestamp 为 0 时填入当前时间
func Encode(m Message) ([]byte, error) {
	if m == nil {
		return nil, errors.New("protocol: encode nil message")
	}
	if h := m.Head(); h.Timestamp == 0 {
		h.Timestamp = time.Now().UnixMilli()
	}
	body, err := json.Marshal(m)
	if err != nil {
		return nil, fmt.Errorf("protocol: encode %s: %w", m.Tag(), err)
	}
	tag := m.Tag()
	rec := make([]byte, 0, 8+len(tag)+len(body))
	rec = binary.LittleEndian.AppendUint32(rec, uint32(len(tag)))
	rec = append(rec, tag...)
	rec = binary.LittleEndian.AppendUint32(rec, uint32(len(body)))
	rec = append(rec, body...)
	if len(rec) > MaxFrameSize {
		return nil, fmt.Errorf("%w: %s is %d bytes", ErrFrameLength, tag, len(rec))
	}
	return rec, nil
}

// Decode 解析 Encode 的输出；未知标签返回 *Unknown
func Decode(rec []byte) (Message, error) {
	tag, rest, err := field(rec)
	if err != nil {
		return nil, err
	}
	body, rest, err := field(rest)
	if err != nil {
		return nil, err
	}
	if len(rest) != 0 {
		return nil, fmt.Errorf("%w: %d trailing bytes", ErrMalformedFrame, len(rest))
	}
	if !utf8.Valid(tag) || !utf8.Valid(body) {
		return nil, fmt.Errorf("%w: invalid utf-8", ErrMalformedFrame)
	}

	m, ok := New(Tag(tag))
	if !ok {
		u := &Unknown{Name: string(tag)}
		_ = json.Unmarshal(body, &u.Header)
		return u, nil
	}
	if len(body) > 0 {
		if err := json.Unmarshal(body, m); err != nil {
			return nil, fmt.Errorf("%w: %s: %v", ErrMalformedFrame, tag, err)
		}
	}
	return m, nil
}

func field(b []byte) (val, rest []byte, err error) {
	if len(b) < 4 {
		return nil, nil, fmt.Errorf("%w: short length field", ErrMalformedFrame)
	}
	n := binary.LittleEndian.Uint32(b)
	if uint64(n) > uint64(len(b)-4) {
		return nil, nil, fmt.Errorf("%w: field of %d bytes exceeds frame", ErrMalformedFrame, n)
	}
	return b[4 : 4+n], b[4+n:], nil
}

// Frame 返回带长度前缀的完整帧
func Frame(m Message) ([]byte, error) {
	rec, err := Encode(m)
	if err != nil {
		return nil, err
	}
	out := make([]byte, 4, 4+len(rec))
	binary.LittleEndian.PutUint32(out, uint32(len(rec)))
	return append(out, rec...), nil
}

// WriteFrame 一次 Write 写出完整一帧
func WriteFrame(w io.Writer, m Message) error {
	b, err := Frame(m)
	if err != nil {
		return err
	}
	_, err = w.Write(b)
	return err
}

// ReadFrame 阻塞直到读出完整一帧
func ReadFrame(r io.Reader) (Message, error) {
	var prefix [4]byte
	if _, err := io.ReadFull(r, prefix[:]); err != nil {
		return nil, readErr(err)
	}
	n := binary.LittleEndian.Uint32(prefix[:])
	if n == 0 || n > MaxFrameSize {
		return nil, fmt.Errorf("%w: %d", ErrFrameLength, n)
	}
	rec := make([]byte, n)
	if _, err := io.ReadFull(r, rec); err != nil {
		return nil, readErr(err)
	}
	return Decode(rec)
}

func readErr(err error) error {
	if errors.Is(err, io.EOF) || errors.Is(err, io.ErrUnexpectedEOF) {
		return ErrConnectionClosed
	}
	return err
}

// Fatal err 是否导致流不可用；格式错误的帧可以丢弃后继续读
func Fatal(err error) bool {
	return err != nil && !errors.Is(err, ErrMalformedFrame)
}
