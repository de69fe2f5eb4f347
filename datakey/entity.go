// Package datakey holds the signing key entity, its lifecycle state
// machine and the service that mediates reads, CRUD and two-phase
// delete/revoke approvals over it.
package datakey

import (
	"fmt"
	"strings"
	"time"
)

// KeyState is a node in the lifecycle graph implemented by Transition.
type KeyState string

const (
	StateDisabled      KeyState = "disabled"
	StateEnabled       KeyState = "enabled"
	StatePendingRevoke KeyState = "pending_revoke"
	StateRevoked       KeyState = "revoked"
	StatePendingDelete KeyState = "pending_delete"
	StateDeleted       KeyState = "deleted"
)

// ParseKeyState validates a state string read back from storage.
func ParseKeyState(s string) (KeyState, error) {
	switch KeyState(s) {
	case StateDisabled, StateEnabled, StatePendingRevoke, StateRevoked, StatePendingDelete, StateDeleted:
		return KeyState(s), nil
	default:
		return "", fmt.Errorf("datakey: unsupported key state %q", s)
	}
}

// KeyAction is a requested transition trigger.
type KeyAction string

const (
	ActionRevoke       KeyAction = "revoke"
	ActionCancelRevoke KeyAction = "cancel_revoke"
	ActionDelete       KeyAction = "delete"
	ActionCancelDelete KeyAction = "cancel_delete"
	ActionDisable      KeyAction = "disable"
	ActionEnable       KeyAction = "enable"
	ActionIssueCert    KeyAction = "issue_cert"
	ActionSign         KeyAction = "sign"
	ActionRead         KeyAction = "read"
)

// KeyType identifies which sign plugin owns a key's material.
type KeyType string

const (
	KeyTypeOpenPGP  KeyType = "pgp"
	KeyTypeX509CA   KeyType = "x509ca"
	KeyTypeX509ICA  KeyType = "x509ica"
	KeyTypeX509EE   KeyType = "x509ee"
)

func ParseKeyType(s string) (KeyType, error) {
	switch KeyType(s) {
	case KeyTypeOpenPGP, KeyTypeX509CA, KeyTypeX509ICA, KeyTypeX509EE:
		return KeyType(s), nil
	default:
		return "", fmt.Errorf("datakey: unsupported key type %q", s)
	}
}

// IsX509 reports whether a key type belongs to the X.509 hierarchy.
func (t KeyType) IsX509() bool {
	return t == KeyTypeX509CA || t == KeyTypeX509ICA || t == KeyTypeX509EE
}

// Visibility controls whether a key may be used without an owner token
// bound to its name.
type Visibility string

const (
	VisibilityPublic  Visibility = "public"
	VisibilityPrivate Visibility = "private"
)

func ParseVisibility(s string) (Visibility, error) {
	switch Visibility(s) {
	case VisibilityPublic, VisibilityPrivate:
		return Visibility(s), nil
	default:
		return "", fmt.Errorf("datakey: unsupported visibility %q", s)
	}
}

// ParentKey carries a CA/ICA's material as loaded alongside a child key
// (an ICA or EE needs its issuer's private key to produce a chain).
type ParentKey struct {
	Name        string
	PrivateKey  []byte
	PublicKey   []byte
	Certificate []byte
	Attributes  map[string]string
}

// DataKey is the at-rest signing key record. PrivateKey, PublicKey and
// Certificate are envelope-encrypted blobs — only encryption.Engine.Decode
// can turn them into usable material.
type DataKey struct {
	ID                int32
	Name              string
	Visibility        Visibility
	Description       string
	User              int32
	Attributes        map[string]string
	KeyType           KeyType
	ParentID          *int32
	Fingerprint       string
	SerialNumber      *string
	PrivateKey        []byte
	PublicKey         []byte
	Certificate       []byte
	CreatedAt         time.Time
	ExpiresAt         time.Time
	KeyState          KeyState
	// PreviousState is the state a key held just before entering
	// pending_revoke or pending_delete, so cancel_delete can restore a
	// key deleted from disabled to disabled rather than always
	// re-enabling it.
	PreviousState     KeyState
	UserEmail         *string
	DeleteRequesters  []ApprovalRequester
	RevokeRequesters  []ApprovalRequester
	ParentKey         *ParentKey
}

// ApprovalRequester is one (user, email) pair that has asked for a
// pending delete or revoke; the compactor promotes the operation once
// enough distinct requesters have accumulated.
type ApprovalRequester struct {
	UserID int32
	Email  string
}

// Identity renders a DataKey's stable log-safe identity string — never
// includes key material.
func (d DataKey) Identity() string {
	return fmt.Sprintf("<ID:%d,Name:%s,User:%d,Type:%s,Fingerprint:%s>", d.ID, d.Name, d.User, d.KeyType, d.Fingerprint)
}

// FullName validates and normalizes a requested key name against its
// visibility: public keys may not contain ':'; private keys must be
// "{email}:{name}".
func FullName(name, email string, visibility Visibility) (string, error) {
	parts := strings.Split(name, ":")
	if visibility == VisibilityPublic {
		if len(parts) > 1 {
			return "", fmt.Errorf("datakey: public key name must not contain ':'")
		}
		return name, nil
	}
	if len(parts) == 1 {
		return fmt.Sprintf("%s:%s", email, name), nil
	}
	if len(parts) > 2 {
		return "", fmt.Errorf("datakey: private key name must be {email}:{key_name}")
	}
	if parts[0] != email {
		return "", fmt.Errorf("datakey: private key email prefix does not match owner")
	}
	return name, nil
}
