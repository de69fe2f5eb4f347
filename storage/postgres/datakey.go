package postgres

import (
	"context"
	"encoding/json"
	"fmt"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/keyforge-project/keyforge/datakey"
)

// DataKeyStore implements datakey.Repository. Attributes and the
// delete/revoke requester lists are stored as JSONB; every other field
// maps to its own column.
type DataKeyStore struct {
	db *pgxpool.Pool
}

func marshalAttributes(attrs map[string]string) ([]byte, error) {
	if attrs == nil {
		attrs = map[string]string{}
	}
	return json.Marshal(attrs)
}

func unmarshalAttributes(raw []byte) (map[string]string, error) {
	attrs := map[string]string{}
	if len(raw) == 0 {
		return attrs, nil
	}
	if err := json.Unmarshal(raw, &attrs); err != nil {
		return nil, err
	}
	return attrs, nil
}

func marshalRequesters(reqs []datakey.ApprovalRequester) ([]byte, error) {
	return json.Marshal(reqs)
}

func unmarshalRequesters(raw []byte) ([]datakey.ApprovalRequester, error) {
	var reqs []datakey.ApprovalRequester
	if len(raw) == 0 {
		return reqs, nil
	}
	if err := json.Unmarshal(raw, &reqs); err != nil {
		return nil, err
	}
	return reqs, nil
}

func (s *DataKeyStore) scanRow(row pgx.Row) (datakey.DataKey, error) {
	var k datakey.DataKey
	var attrs, deleteReq, revokeReq []byte
	var keyState string
	var previousState *string
	err := row.Scan(
		&k.ID, &k.Name, &k.Visibility, &k.Description, &k.User, &attrs,
		&k.KeyType, &k.ParentID, &k.Fingerprint, &k.SerialNumber,
		&k.PrivateKey, &k.PublicKey, &k.Certificate,
		&k.CreatedAt, &k.ExpiresAt, &keyState, &previousState, &k.UserEmail,
		&deleteReq, &revokeReq,
	)
	if err != nil {
		return datakey.DataKey{}, err
	}
	k.KeyState, err = datakey.ParseKeyState(keyState)
	if err != nil {
		return datakey.DataKey{}, err
	}
	if previousState != nil && *previousState != "" {
		k.PreviousState, err = datakey.ParseKeyState(*previousState)
		if err != nil {
			return datakey.DataKey{}, err
		}
	}
	if k.Attributes, err = unmarshalAttributes(attrs); err != nil {
		return datakey.DataKey{}, fmt.Errorf("postgres: unmarshal attributes: %w", err)
	}
	if k.DeleteRequesters, err = unmarshalRequesters(deleteReq); err != nil {
		return datakey.DataKey{}, fmt.Errorf("postgres: unmarshal delete requesters: %w", err)
	}
	if k.RevokeRequesters, err = unmarshalRequesters(revokeReq); err != nil {
		return datakey.DataKey{}, fmt.Errorf("postgres: unmarshal revoke requesters: %w", err)
	}
	return k, nil
}

const dataKeyColumns = `
	id, name, visibility, description, "user", attributes,
	key_type, parent_id, fingerprint, serial_number,
	private_key, public_key, certificate,
	created_at, expires_at, key_state, previous_state, user_email,
	delete_requesters, revoke_requesters
`

func (s *DataKeyStore) Create(ctx context.Context, key datakey.DataKey) (datakey.DataKey, error) {
	attrs, err := marshalAttributes(key.Attributes)
	if err != nil {
		return datakey.DataKey{}, fmt.Errorf("postgres: marshal attributes: %w", err)
	}
	deleteReq, err := marshalRequesters(key.DeleteRequesters)
	if err != nil {
		return datakey.DataKey{}, fmt.Errorf("postgres: marshal delete requesters: %w", err)
	}
	revokeReq, err := marshalRequesters(key.RevokeRequesters)
	if err != nil {
		return datakey.DataKey{}, fmt.Errorf("postgres: marshal revoke requesters: %w", err)
	}

	query := `
		INSERT INTO data_keys (
			name, visibility, description, "user", attributes,
			key_type, parent_id, fingerprint, serial_number,
			private_key, public_key, certificate,
			created_at, expires_at, key_state, previous_state, user_email,
			delete_requesters, revoke_requesters
		) VALUES ($1,$2,$3,$4,$5,$6,$7,$8,$9,$10,$11,$12,$13,$14,$15,$16,$17,$18,$19)
		RETURNING id
	`
	err = s.db.QueryRow(ctx, query,
		key.Name, key.Visibility, key.Description, key.User, attrs,
		key.KeyType, key.ParentID, key.Fingerprint, key.SerialNumber,
		key.PrivateKey, key.PublicKey, key.Certificate,
		key.CreatedAt, key.ExpiresAt, string(key.KeyState), string(key.PreviousState), key.UserEmail,
		deleteReq, revokeReq,
	).Scan(&key.ID)
	if err != nil {
		return datakey.DataKey{}, fmt.Errorf("postgres: create data key: %w", err)
	}
	return key, nil
}

func (s *DataKeyStore) GetAll(ctx context.Context) ([]datakey.DataKey, error) {
	query := `SELECT ` + dataKeyColumns + ` FROM data_keys ORDER BY id`
	rows, err := s.db.Query(ctx, query)
	if err != nil {
		return nil, fmt.Errorf("postgres: list data keys: %w", err)
	}
	defer rows.Close()

	var out []datakey.DataKey
	for rows.Next() {
		k, err := s.scanRow(rows)
		if err != nil {
			return nil, fmt.Errorf("postgres: scan data key: %w", err)
		}
		out = append(out, k)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("postgres: iterate data keys: %w", err)
	}
	return out, nil
}

func (s *DataKeyStore) GetByID(ctx context.Context, id int32) (datakey.DataKey, error) {
	query := `SELECT ` + dataKeyColumns + ` FROM data_keys WHERE id = $1`
	k, err := s.scanRow(s.db.QueryRow(ctx, query, id))
	if err == pgx.ErrNoRows {
		return datakey.DataKey{}, fmt.Errorf("postgres: data key %d not found", id)
	}
	if err != nil {
		return datakey.DataKey{}, fmt.Errorf("postgres: get data key: %w", err)
	}
	return k, nil
}

func (s *DataKeyStore) GetByName(ctx context.Context, name string) (datakey.DataKey, error) {
	query := `SELECT ` + dataKeyColumns + ` FROM data_keys WHERE name = $1`
	k, err := s.scanRow(s.db.QueryRow(ctx, query, name))
	if err == pgx.ErrNoRows {
		return datakey.DataKey{}, fmt.Errorf("postgres: data key %q not found", name)
	}
	if err != nil {
		return datakey.DataKey{}, fmt.Errorf("postgres: get data key: %w", err)
	}
	return k, nil
}

func (s *DataKeyStore) DeleteByID(ctx context.Context, id int32) error {
	query := `DELETE FROM data_keys WHERE id = $1`
	result, err := s.db.Exec(ctx, query, id)
	if err != nil {
		return fmt.Errorf("postgres: delete data key: %w", err)
	}
	if result.RowsAffected() == 0 {
		return fmt.Errorf("postgres: data key %d not found", id)
	}
	return nil
}

func (s *DataKeyStore) UpdateState(ctx context.Context, id int32, state, previousState datakey.KeyState) error {
	query := `UPDATE data_keys SET key_state = $1, previous_state = $2 WHERE id = $3`
	result, err := s.db.Exec(ctx, query, string(state), string(previousState), id)
	if err != nil {
		return fmt.Errorf("postgres: update data key state: %w", err)
	}
	if result.RowsAffected() == 0 {
		return fmt.Errorf("postgres: data key %d not found", id)
	}
	return nil
}
