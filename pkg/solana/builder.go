package solana

import (
	"crypto/ed25519"

	"github.com/pkg/errors"
)

var (
	ErrNoInstructions      = errors.New("no instructions provided")
	ErrTransactionTooLarge = errors.New("transaction exceeds maximum size")
	ErrNoPayer             = errors.New("fee payer is required")
)

// Builder accumulates instructions for a single atomic transaction. The built
// transaction is unsigned; callers collect signatures themselves.
type Builder struct {
	payer        ed25519.PublicKey
	instructions []Instruction
	blockhash    *Blockhash
	err          error
}

func NewBuilder(payer ed25519.PublicKey) *Builder {
	b := &Builder{payer: payer}
	if len(payer) != ed25519.PublicKeySize {
		b.err = ErrNoPayer
	}
	return b
}

// AddInstruction appends an instruction. Account order within the instruction
// is preserved as given.
func (b *Builder) AddInstruction(ix Instruction) *Builder {
	if b.err != nil {
		return b
	}

	if err := ix.Validate(); err != nil {
		b.err = err
		return b
	}
	if len(ix.Data) == 0 {
		b.err = errors.Wrapf(ErrEmptyInstructionData, "instruction %d", len(b.instructions))
		return b
	}

	b.instructions = append(b.instructions, ix)
	return b
}

func (b *Builder) WithBlockhash(bh Blockhash) *Builder {
	b.blockhash = &bh
	return b
}

func (b *Builder) Build() (*Transaction, error) {
	if b.err != nil {
		return nil, b.err
	}
	if len(b.instructions) == 0 {
		return nil, ErrNoInstructions
	}

	txn := NewTransaction(b.payer, b.instructions...)
	if b.blockhash != nil {
		txn.SetBlockhash(*b.blockhash)
	}

	if size := txn.Size(); size > MaxTransactionSize {
		return nil, errors.Wrapf(ErrTransactionTooLarge, "%d > %d bytes", size, MaxTransactionSize)
	}

	return &txn, nil
}
