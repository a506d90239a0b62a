package domain

import (
	"crypto/rand"
	"math/big"
	"strings"
	"time"

	"github.com/google/uuid"
)

// CodePrefix starts every reference number and pickup code.
const CodePrefix = "GCR"

const (
	referenceDigits  = 4
	pickupCodeLength = 12
)

// CodeGenerator produces candidate identifiers; uniqueness is enforced by
// storage and collisions are retried with a fresh candidate.
type CodeGenerator interface {
	ReferenceNumber(now time.Time) string
	PickupCode() string
}

// RandomCodes is the production CodeGenerator.
type RandomCodes struct{}

// ReferenceNumber is GCR + yymm + 4 random digits, e.g. GCR25100427.
func (RandomCodes) ReferenceNumber(now time.Time) string {
	var b strings.Builder
	b.WriteString(CodePrefix)
	b.WriteString(now.Format("0601"))
	for i := 0; i < referenceDigits; i++ {
		n, err := rand.Int(rand.Reader, big.NewInt(10))
		if err != nil {
			// crypto/rand failing is unrecoverable for the process
			panic(err)
		}
		b.WriteByte(byte('0' + n.Int64()))
	}
	return b.String()
}

// PickupCode is GCR + the first 12 hex characters of a random UUID, upper-cased.
func (RandomCodes) PickupCode() string {
	id := strings.ToUpper(strings.ReplaceAll(uuid.NewString(), "-", ""))
	return CodePrefix + id[:pickupCodeLength]
}
