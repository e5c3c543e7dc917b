// Package address decodes and encodes printable (base58) account addresses.
//
// The printable form is base58(crc32_le(payload) || payload), where payload is
// a protobuf PrintableWrapper holding either a public address or a payment
// request.
package address

import (
	"encoding/binary"
	"errors"
	"fmt"
	"hash/crc32"

	"buddy_go/internal/domain"

	"github.com/mr-tron/base58"
	"google.golang.org/protobuf/encoding/protowire"
)

var ErrInvalidAddress = errors.New("invalid address")

// KeyLength is the size of a compressed ristretto public key.
const KeyLength = 32

const checksumLength = 4

// PrintableWrapper field numbers.
const (
	wrapperPublicAddress   protowire.Number = 1
	wrapperPaymentRequest  protowire.Number = 2
	wrapperTransferPayload protowire.Number = 3
)

// PublicAddress field numbers.
const (
	fieldViewKey         protowire.Number = 1
	fieldSpendKey        protowire.Number = 2
	fieldFogReportURL    protowire.Number = 3
	fieldFogReportID     protowire.Number = 4
	fieldFogAuthoritySig protowire.Number = 5
)

// PaymentRequest field numbers.
const (
	fieldRequestAddress protowire.Number = 1
	fieldRequestValue   protowire.Number = 2
	fieldRequestMemo    protowire.Number = 3
	fieldRequestToken   protowire.Number = 4
)

// key field inside CompressedRistretto.
const fieldKeyData protowire.Number = 1

type PublicAddress struct {
	ViewPublicKey   []byte `json:"view_public_key"`
	SpendPublicKey  []byte `json:"spend_public_key"`
	FogReportURL    string `json:"fog_report_url,omitempty"`
	FogReportID     string `json:"fog_report_id,omitempty"`
	FogAuthoritySig []byte `json:"fog_authority_sig,omitempty"`
}

// HasFog reports whether the address routes through a fog service.
func (a PublicAddress) HasFog() bool { return a.FogReportURL != "" }

type PaymentRequest struct {
	Address PublicAddress  `json:"address"`
	Value   uint64         `json:"value,string"`
	Memo    string         `json:"memo,omitempty"`
	TokenID domain.TokenID `json:"token_id,string"`
}

// Printable is a decoded wrapper. Exactly one of the pointers is set.
type Printable struct {
	PublicAddress  *PublicAddress  `json:"public_address,omitempty"`
	PaymentRequest *PaymentRequest `json:"payment_request,omitempty"`
}

// Decode parses s and returns the public address it designates, whether s
// is a plain address or a payment request.
func Decode(s string) (PublicAddress, error) {
	p, err := DecodePrintable(s)
	if err != nil {
		return PublicAddress{}, err
	}
	if p.PaymentRequest != nil {
		return p.PaymentRequest.Address, nil
	}
	return *p.PublicAddress, nil
}

// DecodePrintable parses and checksums a base58 printable string.
func DecodePrintable(s string) (Printable, error) {
	raw, err := base58.Decode(s)
	if err != nil {
		return Printable{}, fmt.Errorf("%w: %v", ErrInvalidAddress, err)
	}
	if len(raw) <= checksumLength {
		return Printable{}, fmt.Errorf("%w: too short", ErrInvalidAddress)
	}
	sum, payload := binary.LittleEndian.Uint32(raw[:checksumLength]), raw[checksumLength:]
	if crc32.ChecksumIEEE(payload) != sum {
		return Printable{}, fmt.Errorf("%w: checksum mismatch", ErrInvalidAddress)
	}

	var out Printable
	err = eachField(payload, func(num protowire.Number, typ protowire.Type, v []byte) error {
		switch num {
		case wrapperPublicAddress:
			addr, err := parsePublicAddress(v)
			if err != nil {
				return err
			}
			out = Printable{PublicAddress: &addr}
		case wrapperPaymentRequest:
			req, err := parsePaymentRequest(v)
			if err != nil {
				return err
			}
			out = Printable{PaymentRequest: &req}
		case wrapperTransferPayload:
			return errors.New("transfer payloads are not addresses")
		}
		return nil
	})
	if err != nil {
		return Printable{}, fmt.Errorf("%w: %v", ErrInvalidAddress, err)
	}
	if out.PublicAddress == nil && out.PaymentRequest == nil {
		return Printable{}, fmt.Errorf("%w: empty wrapper", ErrInvalidAddress)
	}
	return out, nil
}

func parsePublicAddress(b []byte) (PublicAddress, error) {
	var a PublicAddress
	err := eachField(b, func(num protowire.Number, typ protowire.Type, v []byte) error {
		var err error
		switch num {
		case fieldViewKey:
			a.ViewPublicKey, err = parseKey(v)
		case fieldSpendKey:
			a.SpendPublicKey, err = parseKey(v)
		case fieldFogReportURL:
			a.FogReportURL = string(v)
		case fieldFogReportID:
			a.FogReportID = string(v)
		case fieldFogAuthoritySig:
			a.FogAuthoritySig = append([]byte(nil), v...)
		}
		return err
	})
	if err != nil {
		return PublicAddress{}, err
	}
	if a.ViewPublicKey == nil || a.SpendPublicKey == nil {
		return PublicAddress{}, errors.New("missing public key")
	}
	return a, nil
}

func parsePaymentRequest(b []byte) (PaymentRequest, error) {
	var (
		r       PaymentRequest
		hasAddr bool
	)
	err := eachField(b, func(num protowire.Number, typ protowire.Type, v []byte) error {
		switch num {
		case fieldRequestAddress:
			addr, err := parsePublicAddress(v)
			if err != nil {
				return err
			}
			r.Address, hasAddr = addr, true
		case fieldRequestValue:
			r.Value = varint(v)
		case fieldRequestMemo:
			r.Memo = string(v)
		case fieldRequestToken:
			r.TokenID = domain.TokenID(varint(v))
		}
		return nil
	})
	if err != nil {
		return PaymentRequest{}, err
	}
	if !hasAddr {
		return PaymentRequest{}, errors.New("payment request without address")
	}
	return r, nil
}

func parseKey(b []byte) ([]byte, error) {
	var key []byte
	err := eachField(b, func(num protowire.Number, typ protowire.Type, v []byte) error {
		if num == fieldKeyData {
			key = append([]byte(nil), v...)
		}
		return nil
	})
	if err != nil {
		return nil, err
	}
	if len(key) != KeyLength {
		return nil, fmt.Errorf("public key is %d bytes, want %d", len(key), KeyLength)
	}
	return key, nil
}

// eachField walks a protobuf message. Length-delimited values are passed as
// their contents; varints are passed as their encoded bytes.
func eachField(b []byte, fn func(num protowire.Number, typ protowire.Type, v []byte) error) error {
	for len(b) > 0 {
		num, typ, n := protowire.ConsumeTag(b)
		if n < 0 {
			return protowire.ParseError(n)
		}
		b = b[n:]

		var v []byte
		switch typ {
		case protowire.BytesType:
			val, m := protowire.ConsumeBytes(b)
			if m < 0 {
				return protowire.ParseError(m)
			}
			v, n = val, m
		default:
			n = protowire.ConsumeFieldValue(num, typ, b)
			if n < 0 {
				return protowire.ParseError(n)
			}
			v = b[:n]
		}
		if err := fn(num, typ, v); err != nil {
			return err
		}
		b = b[n:]
	}
	return nil
}

func varint(b []byte) uint64 {
	v, n := protowire.ConsumeVarint(b)
	if n < 0 {
		return 0
	}
	return v
}
