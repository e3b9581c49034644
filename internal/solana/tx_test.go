package solana

import (
	"bytes"
	"crypto/ed25519"
	"encoding/base64"
	"testing"
)

func TestBase58RoundTrip(t *testing.T) {
	cases := [][]byte{
		{},
		{0},
		{0, 0, 1},
		{0xff},
		{1, 2, 3, 4, 5, 6, 7, 8},
		bytes.Repeat([]byte{0xab}, 32),
	}
	for _, in := range cases {
		enc := EncodeBase58(in)
		dec, err := DecodeBase58(enc)
		if err != nil {
			t.Fatalf("DecodeBase58(%q): %v", enc, err)
		}
		if !bytes.Equal(dec, in) {
			t.Errorf("round trip %v -> %q -> %v", in, enc, dec)
		}
	}
}

func TestBase58KnownVector(t *testing.T) {
	// The all-zero pubkey is 32 '1' characters.
	enc := EncodeBase58(make([]byte, 32))
	if enc != "11111111111111111111111111111111" {
		t.Errorf("EncodeBase58(zeros) = %q", enc)
	}
}

func TestDecodeBase58Invalid(t *testing.T) {
	if _, err := DecodeBase58("0OIl"); err == nil {
		t.Error("expected error for characters outside the alphabet")
	}
}

func TestDecodePubkeyLength(t *testing.T) {
	if _, err := DecodePubkey(EncodeBase58([]byte{1, 2, 3})); err == nil {
		t.Error("expected error for short pubkey")
	}
	if _, err := DecodePubkey(EncodeBase58(bytes.Repeat([]byte{7}, 32))); err != nil {
		t.Errorf("valid pubkey rejected: %v", err)
	}
}

func TestAppendShortVec(t *testing.T) {
	cases := []struct {
		n    int
		want []byte
	}{
		{0, []byte{0x00}},
		{1, []byte{0x01}},
		{127, []byte{0x7f}},
		{128, []byte{0x80, 0x01}},
		{300, []byte{0xac, 0x02}},
		{16383, []byte{0xff, 0x7f}},
		{16384, []byte{0x80, 0x80, 0x01}},
	}
	for _, c := range cases {
		got := appendShortVec(nil, c.n)
		if !bytes.Equal(got, c.want) {
			t.Errorf("appendShortVec(%d) = %x, want %x", c.n, got, c.want)
		}
	}
}

func TestAppendU64(t *testing.T) {
	got := AppendU64(nil, 0x0102030405060708)
	want := []byte{8, 7, 6, 5, 4, 3, 2, 1}
	if !bytes.Equal(got, want) {
		t.Errorf("AppendU64 = %x, want %x", got, want)
	}
}

func TestBuildTransactionStructure(t *testing.T) {
	_, priv, err := ed25519.GenerateKey(nil)
	if err != nil {
		t.Fatal(err)
	}
	payer := EncodeBase58(priv.Public().(ed25519.PublicKey))

	blockhash := EncodeBase58(bytes.Repeat([]byte{9}, 32))
	program := EncodeBase58(bytes.Repeat([]byte{2}, 32))
	pool := EncodeBase58(bytes.Repeat([]byte{3}, 32))

	ins := Instruction{
		ProgramID: program,
		Accounts: []AccountMeta{
			{Pubkey: payer, Signer: true, Writable: true},
			{Pubkey: pool, Writable: true},
		},
		Data: AppendU64(nil, 42),
	}

	txBase64, err := BuildTransaction(priv, blockhash, ins)
	if err != nil {
		t.Fatalf("BuildTransaction: %v", err)
	}

	raw, err := base64.StdEncoding.DecodeString(txBase64)
	if err != nil {
		t.Fatalf("transaction is not valid base64: %v", err)
	}

	// One signature, then the message.
	if raw[0] != 1 {
		t.Fatalf("signature count = %d, want 1", raw[0])
	}
	sig := raw[1 : 1+ed25519.SignatureSize]
	msg := raw[1+ed25519.SignatureSize:]

	if !ed25519.Verify(priv.Public().(ed25519.PublicKey), msg, sig) {
		t.Error("signature does not verify over the message")
	}

	// Header: 1 signer, 0 readonly signers, 1 readonly unsigned (the program).
	if msg[0] != 1 || msg[1] != 0 || msg[2] != 1 {
		t.Errorf("header = %v, want [1 0 1]", msg[:3])
	}
	// Three account keys: payer, pool, program.
	if msg[3] != 3 {
		t.Errorf("account count = %d, want 3", msg[3])
	}
	// The fee payer must be the first key.
	payerRaw, _ := DecodeBase58(payer)
	if !bytes.Equal(msg[4:36], payerRaw) {
		t.Error("fee payer is not the first account key")
	}
}
