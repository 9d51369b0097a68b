// Package tickets issues QR ticket strings and invitation tokens.
package tickets

import (
	"crypto/rand"
	"encoding/hex"
	"fmt"
	"strconv"
	"strings"
	"time"
)

type Role string

const (
	RoleLeader Role = "leader"
	RoleMember Role = "member"
)

// tokenBytes gives invitation tokens 256 bits of entropy.
const tokenBytes = 32

const suffixBytes = 8

// Generator builds ticket strings of the form
// eventId|participantId|role|unixNanos|random. The random suffix keeps codes
// distinct even when two are minted in the same nanosecond.
type Generator struct {
	now  func() time.Time
	rand func([]byte) (int, error)
}

func NewGenerator() *Generator {
	return &Generator{now: time.Now, rand: rand.Read}
}

// NewGeneratorWith is used by tests to pin the clock or entropy source.
func NewGeneratorWith(now func() time.Time, read func([]byte) (int, error)) *Generator {
	g := NewGenerator()
	if now != nil {
		g.now = now
	}
	if read != nil {
		g.rand = read
	}
	return g
}

func (g *Generator) QRCode(eventID, participantID string, role Role) (string, error) {
	suffix, err := g.randomHex(suffixBytes)
	if err != nil {
		return "", fmt.Errorf("qr suffix: %w", err)
	}

	return strings.Join([]string{
		eventID,
		participantID,
		string(role),
		strconv.FormatInt(g.now().UnixNano(), 10),
		suffix,
	}, "|"), nil
}

func (g *Generator) InvitationToken() (string, error) {
	tok, err := g.randomHex(tokenBytes)
	if err != nil {
		return "", fmt.Errorf("invitation token: %w", err)
	}
	return tok, nil
}

func (g *Generator) randomHex(n int) (string, error) {
	b := make([]byte, n)
	if _, err := g.rand(b); err != nil {
		return "", err
	}
	return hex.EncodeToString(b), nil
}
