package solana

import (
	"crypto/ed25519"
	"encoding/base64"
	"encoding/binary"
	"fmt"
)

// Instruction is one instruction in a transaction message.
type Instruction struct {
	// ProgramID is the base58 program address.
	ProgramID string
	// Accounts are the base58 account addresses in instruction order.
	Accounts []AccountMeta
	// Data is the program-specific instruction payload.
	Data []byte
}

// AccountMeta describes how an instruction references an account.
type AccountMeta struct {
	Pubkey   string
	Signer   bool
	Writable bool
}

// appendShortVec appends a Solana compact-u16 length prefix.
func appendShortVec(buf []byte, n int) []byte {
	for {
		if n < 0x80 {
			return append(buf, byte(n))
		}
		buf = append(buf, byte(n&0x7f)|0x80)
		n >>= 7
	}
}

// BuildTransaction assembles a single-instruction legacy transaction signed
// by the fee payer and returns it base64-encoded for sendTransaction. The
// fee payer must be the first signer.
func BuildTransaction(feePayer ed25519.PrivateKey, recentBlockhash string, ins Instruction) (string, error) {
	payerPub := feePayer.Public().(ed25519.PublicKey)
	payerB58 := EncodeBase58(payerPub)

	// Account ordering: writable signers, readonly signers, writable
	// non-signers, readonly non-signers, then the program ID.
	type entry struct {
		key      string
		signer   bool
		writable bool
	}
	seen := map[string]*entry{payerB58: {key: payerB58, signer: true, writable: true}}
	order := []string{payerB58}
	for _, m := range ins.Accounts {
		if e, ok := seen[m.Pubkey]; ok {
			e.signer = e.signer || m.Signer
			e.writable = e.writable || m.Writable
			continue
		}
		seen[m.Pubkey] = &entry{key: m.Pubkey, signer: m.Signer, writable: m.Writable}
		order = append(order, m.Pubkey)
	}
	if _, ok := seen[ins.ProgramID]; !ok {
		seen[ins.ProgramID] = &entry{key: ins.ProgramID}
		order = append(order, ins.ProgramID)
	}

	var keys []entry
	for _, class := range []func(entry) bool{
		func(e entry) bool { return e.signer && e.writable },
		func(e entry) bool { return e.signer && !e.writable },
		func(e entry) bool { return !e.signer && e.writable },
		func(e entry) bool { return !e.signer && !e.writable },
	} {
		for _, k := range order {
			if e := seen[k]; class(*e) {
				keys = append(keys, *e)
			}
		}
	}

	index := make(map[string]byte, len(keys))
	var numSigners, numReadonlySigners, numReadonlyUnsigned byte
	for i, e := range keys {
		index[e.key] = byte(i)
		if e.signer {
			numSigners++
			if !e.writable {
				numReadonlySigners++
			}
		} else if !e.writable {
			numReadonlyUnsigned++
		}
	}

	blockhash, err := DecodeBase58(recentBlockhash)
	if err != nil {
		return "", fmt.Errorf("solana: decode blockhash: %w", err)
	}
	if len(blockhash) != 32 {
		return "", fmt.Errorf("solana: blockhash must be 32 bytes, got %d", len(blockhash))
	}

	// Message: header, account keys, blockhash, instructions.
	msg := []byte{numSigners, numReadonlySigners, numReadonlyUnsigned}
	msg = appendShortVec(msg, len(keys))
	for _, e := range keys {
		pk, err := DecodePubkey(e.key)
		if err != nil {
			return "", err
		}
		msg = append(msg, pk[:]...)
	}
	msg = append(msg, blockhash...)

	msg = appendShortVec(msg, 1)
	msg = append(msg, index[ins.ProgramID])
	msg = appendShortVec(msg, len(ins.Accounts))
	for _, m := range ins.Accounts {
		msg = append(msg, index[m.Pubkey])
	}
	msg = appendShortVec(msg, len(ins.Data))
	msg = append(msg, ins.Data...)

	sig := ed25519.Sign(feePayer, msg)

	tx := appendShortVec(nil, 1)
	tx = append(tx, sig...)
	tx = append(tx, msg...)

	return base64.StdEncoding.EncodeToString(tx), nil
}

// AppendU64 appends a little-endian u64, the layout used by the arbitrage
// program's instruction arguments.
func AppendU64(buf []byte, v uint64) []byte {
	var b [8]byte
	binary.LittleEndian.PutUint64(b[:], v)
	return append(buf, b[:]...)
}
