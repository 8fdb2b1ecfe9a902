package sunhome

import (
	"encoding/binary"
	"errors"
	"strconv"
)

// Wire format: every message starts with a 24-byte big-endian header.
//
//	offset  size  field
//	0       4     configId (uint32)
//	4       4     msgId (uint32)
//	8       8     userId
//	16      1     funCode
//	17      1     sourceId (upper 4 bits)
//	18      1     pageIndex
//	19      3     reserved
//	22      2     dataLength (uint16)
const HEADER_SIZE = 24

const (
	FUN_CODE_READ           byte = 0x03
	FUN_CODE_WRITE_SINGLE   byte = 0x06
	FUN_CODE_WRITE_MULTIPLE byte = 0x10
	FUN_CODE_RESPONSE       byte = 0x83

	SOURCE_ID_APP byte = 0x02
)

type MsgHeader struct {
	ConfigId   uint32
	MsgId      uint32
	UserId     [8]byte
	FunCode    byte
	SourceId   byte
	PageIndex  byte
	DataLength uint16
}

func (h MsgHeader) Encode() []byte {
	out := make([]byte, HEADER_SIZE)
	binary.BigEndian.PutUint32(out[0:4], h.ConfigId)
	binary.BigEndian.PutUint32(out[4:8], h.MsgId)
	copy(out[8:16], h.UserId[:])
	out[16] = h.FunCode
	out[17] = (h.SourceId << 4) & 0xFF
	out[18] = h.PageIndex
	// bytes 19..21 reserved
	binary.BigEndian.PutUint16(out[22:24], h.DataLength)
	return out
}

func DecodeMsgHeader(data []byte) (*MsgHeader, error) {
	if len(data) < HEADER_SIZE {
		return nil, errors.New("sunhome: message shorter than header")
	}
	h := &MsgHeader{
		ConfigId:   binary.BigEndian.Uint32(data[0:4]),
		MsgId:      binary.BigEndian.Uint32(data[4:8]),
		FunCode:    data[16],
		SourceId:   data[17],
		PageIndex:  data[18],
		DataLength: binary.BigEndian.Uint16(data[22:24]),
	}
	copy(h.UserId[:], data[8:16])
	return h, nil
}

// UserIdBytes packs a numeric user id string into the 8-byte header field,
// right-aligned. Non-numeric ids yield all zeros.
func UserIdBytes(userId string) [8]byte {
	var out [8]byte
	value, err := strconv.ParseUint(userId, 10, 64)
	if err != nil {
		return out
	}
	binary.BigEndian.PutUint64(out[:], value)
	return out
}

// CommandBuilder assembles register commands for the DOWN topic. Message ids
// are sequential per builder.
type CommandBuilder struct {
	userId [8]byte
	msgId  uint32
}

func NewCommandBuilder(userId string) *CommandBuilder {
	return &CommandBuilder{userId: UserIdBytes(userId)}
}

func (b *CommandBuilder) nextMsgId() uint32 {
	b.msgId++
	return b.msgId
}

// BuildWriteCommand builds a single-register write: payload is the register
// address followed by the value, both big-endian uint16.
func (b *CommandBuilder) BuildWriteCommand(register, value uint16) []byte {
	payload := make([]byte, 4)
	binary.BigEndian.PutUint16(payload[0:2], register)
	binary.BigEndian.PutUint16(payload[2:4], value)

	header := MsgHeader{
		MsgId:      b.nextMsgId(),
		UserId:     b.userId,
		FunCode:    FUN_CODE_WRITE_SINGLE,
		SourceId:   SOURCE_ID_APP,
		DataLength: uint16(len(payload)),
	}
	return append(header.Encode(), payload...)
}

// BuildReadCommand builds a register read: payload is the starting address
// and the register count.
func (b *CommandBuilder) BuildReadCommand(register, count uint16) []byte {
	payload := make([]byte, 4)
	binary.BigEndian.PutUint16(payload[0:2], register)
	binary.BigEndian.PutUint16(payload[2:4], count)

	header := MsgHeader{
		MsgId:      b.nextMsgId(),
		UserId:     b.userId,
		FunCode:    FUN_CODE_READ,
		SourceId:   SOURCE_ID_APP,
		DataLength: uint16(len(payload)),
	}
	return append(header.Encode(), payload...)
}
