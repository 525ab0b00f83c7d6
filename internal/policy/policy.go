// Package policy holds the access rules for class records: ownership for
// mutation, the shared-secret gate for teacher registration, and the
// batch/department match for student visibility.
package policy

import "crypto/subtle"

// CanMutate reports whether the requester is the teacher that created the
// class. Only the owner may update or cancel it.
func CanMutate(requesterID, ownerID int64) bool {
	return requesterID == ownerID
}

// AudienceMatch reports whether a class is visible to a student: both the
// batch and the department have to match exactly.
func AudienceMatch(batch, department, classBatch, classDepartment string) bool {
	return batch == classBatch && department == classDepartment
}

// Gate screens teacher self-registration with a single shared secret.
// Every teacher uses the same value, so this is a registration-form screen,
// not an authorization boundary; do not rely on it for anything else.
type Gate struct {
	secret string
}

func NewGate(secret string) *Gate {
	return &Gate{secret: secret}
}

// Allow reports whether the supplied answer matches the configured secret.
func (g *Gate) Allow(answer string) bool {
	return subtle.ConstantTimeCompare([]byte(g.secret), []byte(answer)) == 1
}
