package address

import (
	"encoding/binary"
	"hash/crc32"

	"github.com/mr-tron/base58"
	"google.golang.org/protobuf/encoding/protowire"
)

// Encode returns the printable form of a.
func Encode(a PublicAddress) string {
	var wrapper []byte
	wrapper = protowire.AppendTag(wrapper, wrapperPublicAddress, protowire.BytesType)
	wrapper = protowire.AppendBytes(wrapper, appendPublicAddress(nil, a))
	return printable(wrapper)
}

// EncodePaymentRequest returns the printable form of r.
func EncodePaymentRequest(r PaymentRequest) string {
	var msg []byte
	msg = protowire.AppendTag(msg, fieldRequestAddress, protowire.BytesType)
	msg = protowire.AppendBytes(msg, appendPublicAddress(nil, r.Address))
	if r.Value != 0 {
		msg = protowire.AppendTag(msg, fieldRequestValue, protowire.VarintType)
		msg = protowire.AppendVarint(msg, r.Value)
	}
	if r.Memo != "" {
		msg = protowire.AppendTag(msg, fieldRequestMemo, protowire.BytesType)
		msg = protowire.AppendString(msg, r.Memo)
	}
	if r.TokenID != 0 {
		msg = protowire.AppendTag(msg, fieldRequestToken, protowire.VarintType)
		msg = protowire.AppendVarint(msg, uint64(r.TokenID))
	}

	var wrapper []byte
	wrapper = protowire.AppendTag(wrapper, wrapperPaymentRequest, protowire.BytesType)
	wrapper = protowire.AppendBytes(wrapper, msg)
	return printable(wrapper)
}

func appendPublicAddress(b []byte, a PublicAddress) []byte {
	b = appendKey(b, fieldViewKey, a.ViewPublicKey)
	b = appendKey(b, fieldSpendKey, a.SpendPublicKey)
	if a.FogReportURL != "" {
		b = protowire.AppendTag(b, fieldFogReportURL, protowire.BytesType)
		b = protowire.AppendString(b, a.FogReportURL)
	}
	if a.FogReportID != "" {
		b = protowire.AppendTag(b, fieldFogReportID, protowire.BytesType)
		b = protowire.AppendString(b, a.FogReportID)
	}
	if len(a.FogAuthoritySig) > 0 {
		b = protowire.AppendTag(b, fieldFogAuthoritySig, protowire.BytesType)
		b = protowire.AppendBytes(b, a.FogAuthoritySig)
	}
	return b
}

func appendKey(b []byte, num protowire.Number, key []byte) []byte {
	var inner []byte
	inner = protowire.AppendTag(inner, fieldKeyData, protowire.BytesType)
	inner = protowire.AppendBytes(inner, key)
	b = protowire.AppendTag(b, num, protowire.BytesType)
	return protowire.AppendBytes(b, inner)
}

func printable(payload []byte) string {
	out := make([]byte, checksumLength, checksumLength+len(payload))
	binary.LittleEndian.PutUint32(out, crc32.ChecksumIEEE(payload))
	return base58.Encode(append(out, payload...))
}
