package address

import (
	"bytes"
	"errors"
	"testing"

	"github.com/mr-tron/base58"
	"google.golang.org/protobuf/encoding/protowire"
)

func testKey(seed byte) []byte {
	return bytes.Repeat([]byte{seed}, KeyLength)
}

func TestEncodeDecode(t *testing.T) {
	tests := []struct {
		name string
		addr PublicAddress
	}{
		{
			name: "Plain",
			addr: PublicAddress{ViewPublicKey: testKey(1), SpendPublicKey: testKey(2)},
		},
		{
			name: "Fog",
			addr: PublicAddress{
				ViewPublicKey:   testKey(3),
				SpendPublicKey:  testKey(4),
				FogReportURL:    "fog://fog.prod.mobilecoinww.com",
				FogReportID:     "",
				FogAuthoritySig: []byte{9, 9, 9},
			},
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got, err := Decode(Encode(tt.addr))
			if err != nil {
				t.Fatalf("Decode failed: %v", err)
			}
			if !bytes.Equal(got.ViewPublicKey, tt.addr.ViewPublicKey) ||
				!bytes.Equal(got.SpendPublicKey, tt.addr.SpendPublicKey) ||
				got.FogReportURL != tt.addr.FogReportURL ||
				!bytes.Equal(got.FogAuthoritySig, tt.addr.FogAuthoritySig) {
				t.Errorf("Decode = %+v, want %+v", got, tt.addr)
			}
			if got.HasFog() != (tt.addr.FogReportURL != "") {
				t.Errorf("HasFog() = %v", got.HasFog())
			}
		})
	}
}

func TestDecodePrintable_PaymentRequest(t *testing.T) {
	req := PaymentRequest{
		Address: PublicAddress{ViewPublicKey: testKey(5), SpendPublicKey: testKey(6)},
		Value:   1_000_000,
		Memo:    "coffee",
		TokenID: 1,
	}
	s := EncodePaymentRequest(req)

	p, err := DecodePrintable(s)
	if err != nil {
		t.Fatalf("DecodePrintable failed: %v", err)
	}
	if p.PaymentRequest == nil || p.PublicAddress != nil {
		t.Fatalf("got %+v, want a payment request", p)
	}
	if p.PaymentRequest.Value != req.Value || p.PaymentRequest.Memo != req.Memo || p.PaymentRequest.TokenID != req.TokenID {
		t.Errorf("request = %+v", p.PaymentRequest)
	}

	// Decode resolves a payment request to its address.
	addr, err := Decode(s)
	if err != nil {
		t.Fatalf("Decode failed: %v", err)
	}
	if !bytes.Equal(addr.SpendPublicKey, testKey(6)) {
		t.Error("wrong address from payment request")
	}
}

func TestDecode_Invalid(t *testing.T) {
	valid := Encode(PublicAddress{ViewPublicKey: testKey(1), SpendPublicKey: testKey(2)})
	raw, _ := base58.Decode(valid)
	corrupted := append([]byte(nil), raw...)
	corrupted[len(corrupted)-1] ^= 0xff

	shortKey := func() string {
		var inner []byte
		inner = protowire.AppendTag(inner, fieldKeyData, protowire.BytesType)
		inner = protowire.AppendBytes(inner, []byte{1, 2, 3})
		var addr []byte
		addr = protowire.AppendTag(addr, fieldViewKey, protowire.BytesType)
		addr = protowire.AppendBytes(addr, inner)
		addr = protowire.AppendTag(addr, fieldSpendKey, protowire.BytesType)
		addr = protowire.AppendBytes(addr, inner)
		var wrapper []byte
		wrapper = protowire.AppendTag(wrapper, wrapperPublicAddress, protowire.BytesType)
		wrapper = protowire.AppendBytes(wrapper, addr)
		return printable(wrapper)
	}()

	tests := []struct {
		name  string
		input string
	}{
		{"Empty", ""},
		{"Not base58", "0OIl"},
		{"Too short", base58.Encode([]byte{1, 2, 3})},
		{"Bad checksum", base58.Encode(corrupted)},
		{"Short key", shortKey},
		{"Empty wrapper", printable([]byte{})},
		{"Garbage payload", printable([]byte{0xff, 0xff, 0xff})},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := Decode(tt.input)
			if !errors.Is(err, ErrInvalidAddress) {
				t.Errorf("Decode(%q) err = %v, want ErrInvalidAddress", tt.input, err)
			}
		})
	}
}

func FuzzDecode(f *testing.F) {
	f.Add(Encode(PublicAddress{ViewPublicKey: testKey(1), SpendPublicKey: testKey(2)}))
	f.Add("")
	f.Add("2D9XJuEn1dBZdNudPRjH9ZifaiNUKJP8VNGoGCLbGMmBb8sDy7vsFfnTAH5EnhAj6kLGTWS5A2RjfLBXN7frqR6NbsezMv9og1KPJMpRTrG")

	f.Fuzz(func(t *testing.T, s string) {
		addr, err := Decode(s)
		if err != nil {
			if !errors.Is(err, ErrInvalidAddress) {
				t.Fatalf("unexpected error type: %v", err)
			}
			return
		}
		if len(addr.ViewPublicKey) != KeyLength || len(addr.SpendPublicKey) != KeyLength {
			t.Fatalf("decoded keys of wrong length: %d, %d", len(addr.ViewPublicKey), len(addr.SpendPublicKey))
		}
	})
}
