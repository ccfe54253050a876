package solana

import (
	"bytes"
	"crypto/ed25519"

	"github.com/mr-tron/base58"
	"github.com/pkg/errors"
)

var (
	ErrIncorrectProgram     = errors.New("incorrect program")
	ErrIncorrectInstruction = errors.New("incorrect instruction")
	ErrEmptyInstructionData = errors.New("instruction data is empty")
	ErrInvalidAccountMeta   = errors.New("invalid account meta")
)

// AccountMeta is a single (address, is-signer, is-writable) reference within an
// instruction. Position within Instruction.Accounts is significant.
type AccountMeta struct {
	PublicKey  ed25519.PublicKey
	IsSigner   bool
	IsWritable bool
	isPayer    bool
	isProgram  bool
}

// NewAccountMeta creates a writable AccountMeta.
func NewAccountMeta(pub ed25519.PublicKey, isSigner bool) AccountMeta {
	return AccountMeta{
		PublicKey:  pub,
		IsSigner:   isSigner,
		IsWritable: true,
	}
}

// NewReadonlyAccountMeta creates a readonly AccountMeta.
func NewReadonlyAccountMeta(pub ed25519.PublicKey, isSigner bool) AccountMeta {
	return AccountMeta{
		PublicKey:  pub,
		IsSigner:   isSigner,
		IsWritable: false,
	}
}

func (m AccountMeta) String() string {
	var flags string
	if m.IsWritable {
		flags += "w"
	}
	if m.IsSigner {
		flags += "s"
	}
	return base58.Encode(m.PublicKey) + "[" + flags + "]"
}

// SortableAccountMeta sorts account metas using the message account ordering
// rules: payer, signers, writable, then programs.
//
// Reference: https://docs.solana.com/transaction#account-addresses-format
type SortableAccountMeta []AccountMeta

func (s SortableAccountMeta) Len() int {
	return len(s)
}

func (s SortableAccountMeta) Less(i int, j int) bool {
	if s[i].isPayer != s[j].isPayer {
		return s[i].isPayer
	}
	if s[i].isProgram != s[j].isProgram {
		return !s[i].isProgram
	}
	if s[i].IsSigner != s[j].IsSigner {
		return s[i].IsSigner
	}
	if s[i].IsWritable != s[j].IsWritable {
		return s[i].IsWritable
	}
	return bytes.Compare(s[i].PublicKey, s[j].PublicKey) < 0
}

func (s SortableAccountMeta) Swap(i int, j int) {
	s[i], s[j] = s[j], s[i]
}

// Instruction is a program invocation: the program, its ordered account list and
// the opaque argument buffer.
type Instruction struct {
	Program  ed25519.PublicKey
	Accounts []AccountMeta
	Data     []byte
}

// NewInstruction creates a new instruction.
func NewInstruction(program ed25519.PublicKey, data []byte, accounts ...AccountMeta) Instruction {
	return Instruction{
		Program:  program,
		Data:     data,
		Accounts: accounts,
	}
}

// Validate checks that every account reference is a well formed key.
func (i Instruction) Validate() error {
	if len(i.Program) != ed25519.PublicKeySize {
		return ErrIncorrectProgram
	}

	for idx, account := range i.Accounts {
		if len(account.PublicKey) != ed25519.PublicKeySize {
			return errors.Wrapf(ErrInvalidAccountMeta, "account %d", idx)
		}
	}

	return nil
}

// CompiledInstruction is an instruction whose program and accounts have been
// replaced with indices into the message account list.
type CompiledInstruction struct {
	ProgramIndex byte
	Accounts     []byte
	Data         []byte
}
