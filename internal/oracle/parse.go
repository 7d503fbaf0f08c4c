package oracle

import (
	"encoding/binary"
	"fmt"
)

// Pyth pull-oracle price update account layout (PriceUpdateV2):
// discriminator(8) | write_authority(32) | verification_level(1..2) |
// feed_id(32) | price(i64) | conf(u64) | exponent(i32) | publish_time(i64) | ...
const (
	priceUpdateDiscriminatorLen = 8
	writeAuthorityLen           = 32
	feedIDLen                   = 32

	verificationPartial = 0
	verificationFull    = 1
)

// ParsePriceUpdate decodes a raw price update account image into a
// PriceUpdate and the 32-byte feed id it carries.
func ParsePriceUpdate(data []byte) (PriceUpdate, [32]byte, error) {
	var feedID [32]byte
	cursor := priceUpdateDiscriminatorLen + writeAuthorityLen
	if len(data) < cursor+1 {
		return PriceUpdate{}, feedID, fmt.Errorf("oracle: price update account too short: %d bytes", len(data))
	}

	// verification_level is a borsh enum; the Partial variant carries one
	// extra byte for the signature count.
	switch data[cursor] {
	case verificationPartial:
		cursor += 2
	case verificationFull:
		cursor++
	default:
		return PriceUpdate{}, feedID, fmt.Errorf("oracle: unknown verification level %d", data[cursor])
	}

	const messageLen = feedIDLen + 8 + 8 + 4 + 8
	if len(data) < cursor+messageLen {
		return PriceUpdate{}, feedID, fmt.Errorf("oracle: price message truncated: %d bytes", len(data))
	}

	copy(feedID[:], data[cursor:cursor+feedIDLen])
	cursor += feedIDLen

	update := PriceUpdate{
		Price:       int64(binary.LittleEndian.Uint64(data[cursor:])),
		Conf:        binary.LittleEndian.Uint64(data[cursor+8:]),
		Exponent:    int32(binary.LittleEndian.Uint32(data[cursor+16:])),
		PublishTime: int64(binary.LittleEndian.Uint64(data[cursor+20:])),
	}
	return update, feedID, nil
}
