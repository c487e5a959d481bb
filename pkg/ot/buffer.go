package ot

import "fmt"

// Buffer is a concrete character store a transaction can be applied to.
// The engine itself never touches one; the service layer keeps a Buffer
// per document and applies the transactions the engine hands back.
type Buffer struct {
	content string
}

// NewBuffer creates a buffer holding the given initial content.
func NewBuffer(initial string) *Buffer {
	return &Buffer{content: initial}
}

// String returns the current content.
func (b *Buffer) String() string { return b.content }

// Len returns the current content length.
func (b *Buffer) Len() int { return len(b.content) }

// Apply runs the transaction's inserts and then its deletes, each
// sequentially, against the buffer. On a range error the buffer is left
// unchanged.
func (b *Buffer) Apply(tx Transaction) error {
	content := b.content
	for _, op := range tx.Inserts {
		if op.Position < 0 || op.Position > len(content) {
			return fmt.Errorf("%w: insert position %d out of range (buffer length %d)",
				ErrInvariantViolation, op.Position, len(content))
		}
		content = content[:op.Position] + op.Value + content[op.Position:]
	}
	for _, op := range tx.Deletes {
		if op.Position < 0 || op.Length < 0 || op.Position+op.Length > len(content) {
			return fmt.Errorf("%w: delete range %d-%d out of range (buffer length %d)",
				ErrInvariantViolation, op.Position, op.Position+op.Length, len(content))
		}
		content = content[:op.Position] + content[op.Position+op.Length:]
	}
	b.content = content
	return nil
}
