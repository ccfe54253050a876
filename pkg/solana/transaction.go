package solana

import (
	"bytes"
	"crypto/ed25519"
	"crypto/sha256"
	"fmt"
	"sort"
	"strings"

	"github.com/mr-tron/base58"
	"github.com/pkg/errors"
)

const (
	// MaxTransactionSize taken from: https://github.com/solana-labs/solana/blob/39b3ac6a8d29e14faa1de73d8b46d390ad41797b/sdk/src/packet.rs#L9-L13
	MaxTransactionSize = 1232
)

var (
	ErrUnknownSigner    = errors.New("signing key is not a required signer")
	ErrMissingSignature = errors.New("transaction is missing signatures")
	ErrInvalidSignature = errors.New("transaction signature is invalid")
)

type Signature [ed25519.SignatureSize]byte
type Blockhash [sha256.Size]byte

func (s Signature) String() string {
	return base58.Encode(s[:])
}

// IsZero reports whether the signature slot has not been filled yet.
func (s Signature) IsZero() bool {
	return s == Signature{}
}

func (b Blockhash) String() string {
	return base58.Encode(b[:])
}

type Header struct {
	NumSignatures     byte
	NumReadonlySigned byte
	NumReadOnly       byte
}

type Message struct {
	Header          Header
	Accounts        []ed25519.PublicKey
	RecentBlockhash Blockhash
	Instructions    []CompiledInstruction
}

// Transaction is a legacy Solana transaction. All of its instructions are
// applied atomically by the ledger.
type Transaction struct {
	Signatures []Signature
	Message    Message
}

// NewTransaction compiles the instructions into an unsigned transaction paid
// for by payer. Account permissions are promoted when the same key is
// referenced more than once, and instruction account order is preserved
// through the compiled indices.
func NewTransaction(payer ed25519.PublicKey, instructions ...Instruction) Transaction {
	accounts := []AccountMeta{
		{
			PublicKey:  payer,
			IsSigner:   true,
			IsWritable: true,
			isPayer:    true,
		},
	}

	for _, ix := range instructions {
		accounts = append(accounts, AccountMeta{
			PublicKey: ix.Program,
			isProgram: true,
		})
		accounts = append(accounts, ix.Accounts...)
	}

	accounts = filterUnique(accounts)
	sort.Sort(SortableAccountMeta(accounts))

	var m Message
	for _, account := range accounts {
		m.Accounts = append(m.Accounts, account.PublicKey)

		if account.IsSigner {
			m.Header.NumSignatures++
			if !account.IsWritable {
				m.Header.NumReadonlySigned++
			}
		} else if !account.IsWritable {
			m.Header.NumReadOnly++
		}
	}

	for _, ix := range instructions {
		compiled := CompiledInstruction{
			ProgramIndex: byte(indexOf(m.Accounts, ix.Program)),
			Data:         ix.Data,
		}
		for _, a := range ix.Accounts {
			compiled.Accounts = append(compiled.Accounts, byte(indexOf(m.Accounts, a.PublicKey)))
		}
		m.Instructions = append(m.Instructions, compiled)
	}

	for i := range m.Accounts {
		if len(m.Accounts[i]) == 0 {
			m.Accounts[i] = make([]byte, ed25519.PublicKeySize)
		}
	}

	return Transaction{
		Signatures: make([]Signature, m.Header.NumSignatures),
		Message:    m,
	}
}

// Signature returns the first signature, which identifies the transaction.
func (t *Transaction) Signature() Signature {
	if len(t.Signatures) == 0 {
		return Signature{}
	}
	return t.Signatures[0]
}

// Signers returns the public keys whose signatures the transaction requires, in
// signature slot order.
func (t *Transaction) Signers() []ed25519.PublicKey {
	return t.Message.Accounts[:t.Message.Header.NumSignatures]
}

func (t *Transaction) SetBlockhash(bh Blockhash) {
	t.Message.RecentBlockhash = bh
}

// Sign fills the signature slot for each provided key. Signers may be applied
// across several calls, which allows a freshly generated key to sign before a
// wallet co-signs. The blockhash must be set beforehand.
func (t *Transaction) Sign(signers ...ed25519.PrivateKey) error {
	messageBytes := t.Message.Marshal()

	for _, s := range signers {
		pub := s.Public().(ed25519.PublicKey)
		index := indexOf(t.Message.Accounts, pub)
		if index < 0 || index >= len(t.Signatures) {
			return errors.Wrapf(ErrUnknownSigner, "%s", base58.Encode(pub))
		}

		copy(t.Signatures[index][:], ed25519.Sign(s, messageBytes))
	}

	return nil
}

// AddSignature attaches a detached signature produced by an external signer
// (for example, a wallet holding the key).
func (t *Transaction) AddSignature(pub ed25519.PublicKey, sig Signature) error {
	index := indexOf(t.Message.Accounts, pub)
	if index < 0 || index >= len(t.Signatures) {
		return errors.Wrapf(ErrUnknownSigner, "%s", base58.Encode(pub))
	}

	if !ed25519.Verify(pub, t.Message.Marshal(), sig[:]) {
		return ErrInvalidSignature
	}

	t.Signatures[index] = sig
	return nil
}

// MissingSigners returns the required signers that have not signed yet.
func (t *Transaction) MissingSigners() []ed25519.PublicKey {
	var missing []ed25519.PublicKey
	for i, signer := range t.Signers() {
		if t.Signatures[i].IsZero() {
			missing = append(missing, signer)
		}
	}
	return missing
}

// VerifySignatures checks that every required signature is present and valid.
func (t *Transaction) VerifySignatures() error {
	messageBytes := t.Message.Marshal()
	for i, signer := range t.Signers() {
		if t.Signatures[i].IsZero() {
			return errors.Wrapf(ErrMissingSignature, "%s", base58.Encode(signer))
		}
		if !ed25519.Verify(signer, messageBytes, t.Signatures[i][:]) {
			return errors.Wrapf(ErrInvalidSignature, "%s", base58.Encode(signer))
		}
	}
	return nil
}

// IsWritable reports whether the account at the message index is writable.
func (m *Message) IsWritable(index int) bool {
	numSigned := int(m.Header.NumSignatures)
	if index < numSigned {
		return index < numSigned-int(m.Header.NumReadonlySigned)
	}
	return index < len(m.Accounts)-int(m.Header.NumReadOnly)
}

// IsSigner reports whether the account at the message index is a signer.
func (m *Message) IsSigner(index int) bool {
	return index < int(m.Header.NumSignatures)
}

func (t *Transaction) String() string {
	var sb strings.Builder
	sb.WriteString("Signatures:\n")
	for i, s := range t.Signatures {
		sb.WriteString(fmt.Sprintf("  %d: %s\n", i, s.String()))
	}
	sb.WriteString("Message:\n")
	sb.WriteString("  Header:\n")
	sb.WriteString(fmt.Sprintf("    NumSignatures: %d\n", t.Message.Header.NumSignatures))
	sb.WriteString(fmt.Sprintf("    NumReadOnly: %d\n", t.Message.Header.NumReadOnly))
	sb.WriteString(fmt.Sprintf("    NumReadOnlySigned: %d\n", t.Message.Header.NumReadonlySigned))
	sb.WriteString("  Accounts:\n")
	for i, a := range t.Message.Accounts {
		sb.WriteString(fmt.Sprintf("    %d: %s\n", i, base58.Encode(a)))
	}
	sb.WriteString("  Instructions:\n")
	for i := range t.Message.Instructions {
		sb.WriteString(fmt.Sprintf("    %d:\n", i))
		sb.WriteString(fmt.Sprintf("      ProgramIndex: %d\n", t.Message.Instructions[i].ProgramIndex))
		sb.WriteString(fmt.Sprintf("      Accounts: %v\n", t.Message.Instructions[i].Accounts))
		sb.WriteString(fmt.Sprintf("      Data: %v\n", t.Message.Instructions[i].Data))
	}
	return sb.String()
}

func filterUnique(accounts []AccountMeta) []AccountMeta {
	filtered := make([]AccountMeta, 0, len(accounts))

	for i := range accounts {
		seen := false
		for j := range filtered {
			if !bytes.Equal(accounts[i].PublicKey, filtered[j].PublicKey) {
				continue
			}

			// Promote permissions so the strictest reference wins
			seen = true
			if accounts[i].IsSigner {
				filtered[j].IsSigner = true
			}
			if accounts[i].IsWritable {
				filtered[j].IsWritable = true
			}
			if accounts[i].isPayer {
				filtered[j].isPayer = true
			}
			break
		}

		if !seen {
			filtered = append(filtered, accounts[i])
		}
	}

	return filtered
}

func indexOf(slice []ed25519.PublicKey, item ed25519.PublicKey) int {
	for i, val := range slice {
		if bytes.Equal(val, item) {
			return i
		}
	}

	return -1
}
